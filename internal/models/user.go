package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Account struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Email         string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash  string    `json:"-" gorm:"not null"`
	EmailVerified bool      `json:"email_verified" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Session struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	AccountID    uuid.UUID `json:"account_id" gorm:"type:uuid;not null;index"`
	UserID       uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	RefreshToken string    `json:"-" gorm:"uniqueIndex;not null"`
	UserAgent    string    `json:"user_agent"`
	IPAddress    string    `json:"ip_address"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	AccountID      uuid.UUID `json:"-" gorm:"type:uuid;not null;index"`
	UserName       string    `json:"user_name" gorm:"uniqueIndex;not null"`
	DisplayName    string    `json:"display_name" gorm:"not null"`
	AvatarURL      string    `json:"avatar_url"`
	Bio            string    `json:"bio"`
	Website        string    `json:"website"`
	TweetCount     int64     `json:"tweet_count" gorm:"default:0"`
	FollowerCount  int64     `json:"follower_count" gorm:"default:0"`
	FollowingCount int64     `json:"following_count" gorm:"default:0"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Follow struct {
	FollowerID  uuid.UUID `json:"follower_id" gorm:"type:uuid;primaryKey"`
	FollowingID uuid.UUID `json:"following_id" gorm:"type:uuid;primaryKey;index"`
	CreatedAt   time.Time `json:"created_at"`

	Follower  User `json:"-" gorm:"foreignKey:FollowerID"`
	Following User `json:"-" gorm:"foreignKey:FollowingID"`
}

// UserSummary 嵌入在feed和各类列表响应中的用户摘要
type UserSummary struct {
	ID          uuid.UUID `json:"id"`
	UserName    string    `json:"user_name"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:          u.ID,
		UserName:    u.UserName,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (Account) TableName() string {
	return "accounts"
}

func (Session) TableName() string {
	return "sessions"
}

func (User) TableName() string {
	return "users"
}

func (Follow) TableName() string {
	return "follows"
}
