package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostKind string

const (
	PostKindOriginal PostKind = "ORIGINAL"
	PostKindReshare  PostKind = "RESHARE"
	PostKindQuote    PostKind = "QUOTE"
)

type Post struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	UserID         uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index;uniqueIndex:uniq_posts_reshare,priority:1"`
	Content        string     `json:"content" gorm:"type:text"`
	MediaURL       string     `json:"media_url"`
	Kind           PostKind   `json:"kind" gorm:"type:varchar(16);not null;default:'ORIGINAL';index"`
	// 部分唯一索引保证同一用户对同一原帖只有一条转发，并发下靠它兜底
	OriginalPostID *uuid.UUID `json:"original_post_id" gorm:"type:uuid;index;uniqueIndex:uniq_posts_reshare,priority:2,where:kind = 'RESHARE'"`
	LikeCount      int64      `json:"like_count" gorm:"default:0"`
	ReshareCount   int64      `json:"reshare_count" gorm:"default:0"`
	QuoteCount     int64      `json:"quote_count" gorm:"default:0"`
	CommentCount   int64      `json:"comment_count" gorm:"default:0"`
	BookmarkCount  int64      `json:"bookmark_count" gorm:"default:0"`
	CreatedAt      time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time  `json:"updated_at"`

	User     User  `json:"-" gorm:"foreignKey:UserID"`
	Original *Post `json:"-" gorm:"foreignKey:OriginalPostID"`
}

type Like struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	PostID    uuid.UUID `json:"post_id" gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
	Post Post `json:"-" gorm:"foreignKey:PostID"`
}

type Bookmark struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	PostID    uuid.UUID `json:"post_id" gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
	Post Post `json:"-" gorm:"foreignKey:PostID"`
}

type Comment struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	PostID    uuid.UUID `json:"post_id" gorm:"type:uuid;not null;index"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `json:"-" gorm:"foreignKey:UserID"`
	Post Post `json:"-" gorm:"foreignKey:PostID"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (Post) TableName() string {
	return "posts"
}

func (Like) TableName() string {
	return "likes"
}

func (Bookmark) TableName() string {
	return "bookmarks"
}

func (Comment) TableName() string {
	return "comments"
}
