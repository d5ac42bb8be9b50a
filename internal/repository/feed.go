package repository

import (
	"context"
	"fmt"

	"github.com/chirp-social/chirp/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeedRepository 只读的feed查询。两个feed都直接读posts表和维护好的计数器，
// 不走任何缓存。
type FeedRepository struct {
	db *gorm.DB
}

func NewFeedRepository(db *gorm.DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// GetFollowingFeed 按时间倒序取候选作者集合(自己+关注的人)的帖子，
// created_at相同用id兜底保证分页确定性。limit按调用方传入，探测行由服务层处理。
func (r *FeedRepository) GetFollowingFeed(ctx context.Context, authorIDs []uuid.UUID, offset, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Original").
		Preload("Original.User").
		Where("user_id IN ?", authorIDs).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to get following feed: %w", err)
	}
	return posts, nil
}

// GetExploreFeed 热度排序的发现页，转发不参与，按点赞数再按时间排
func (r *FeedRepository) GetExploreFeed(ctx context.Context, offset, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Original").
		Preload("Original.User").
		Where("kind IN ?", []models.PostKind{models.PostKindOriginal, models.PostKindQuote}).
		Order("like_count DESC, created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to get explore feed: %w", err)
	}
	return posts, nil
}
