package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationKind string

const (
	NotificationLike    NotificationKind = "LIKE"
	NotificationComment NotificationKind = "COMMENT"
	NotificationReshare NotificationKind = "RESHARE"
	NotificationQuote   NotificationKind = "QUOTE"
	NotificationFollow  NotificationKind = "FOLLOW"
)

type Notification struct {
	ID          uuid.UUID        `json:"id" gorm:"type:uuid;primary_key"`
	RecipientID uuid.UUID        `json:"recipient_id" gorm:"type:uuid;not null;index"`
	ActorID     uuid.UUID        `json:"actor_id" gorm:"type:uuid;not null"`
	Kind        NotificationKind `json:"kind" gorm:"type:varchar(16);not null"`
	PostID      *uuid.UUID       `json:"post_id" gorm:"type:uuid"`
	CommentID   *uuid.UUID       `json:"comment_id" gorm:"type:uuid"`
	IsRead      bool             `json:"is_read" gorm:"default:false"`
	CreatedAt   time.Time        `json:"created_at" gorm:"index"`

	Recipient User `json:"-" gorm:"foreignKey:RecipientID"`
	Actor     User `json:"-" gorm:"foreignKey:ActorID"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

func (Notification) TableName() string {
	return "notifications"
}
