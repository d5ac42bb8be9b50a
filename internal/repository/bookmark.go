package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/chirp-social/chirp/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookmarkRepository struct {
	db *gorm.DB
}

func NewBookmarkRepository(db *gorm.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

func (r *BookmarkRepository) WithTx(tx *gorm.DB) *BookmarkRepository {
	return &BookmarkRepository{db: tx}
}

func (r *BookmarkRepository) Create(ctx context.Context, bookmark *models.Bookmark) error {
	if err := r.db.WithContext(ctx).Create(bookmark).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Duplicate("already bookmarked")
		}
		return fmt.Errorf("failed to create bookmark: %w", err)
	}
	return nil
}

func (r *BookmarkRepository) Delete(ctx context.Context, userID, postID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Bookmark{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete bookmark: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *BookmarkRepository) GetByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Table("posts").
		Preload("User").
		Preload("Original").
		Preload("Original.User").
		Joins("JOIN bookmarks ON bookmarks.post_id = posts.id").
		Where("bookmarks.user_id = ?", userID).
		Order("bookmarks.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}
	return posts, nil
}

func (r *BookmarkRepository) CountByPostID(ctx context.Context, postID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Bookmark{}).
		Where("post_id = ?", postID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return count, nil
}
