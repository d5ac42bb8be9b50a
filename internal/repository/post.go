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

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) WithTx(tx *gorm.DB) *PostRepository {
	return &PostRepository{db: tx}
}

// Create 转发依赖(user_id, original_post_id)部分唯一索引做并发下的重复检测
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && post.Kind == models.PostKindReshare {
			return apperrors.Duplicate("already reshared")
		}
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (r *PostRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Original").
		Preload("Original.User").
		First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &post, nil
}

// GetOwned 按(id, 作者)查找。找不到和不属于该作者对调用方是同一种结果。
func (r *PostRepository) GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		First(&post, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get owned post: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) GetByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Original").
		Preload("Original.User").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to get posts by user: %w", err)
	}
	return posts, nil
}

// GetReshareBy 查找某用户对某原帖的转发记录
func (r *PostRepository) GetReshareBy(ctx context.Context, userID, originalPostID uuid.UUID) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).
		First(&post, "user_id = ? AND original_post_id = ? AND kind = ?",
			userID, originalPostID, models.PostKindReshare).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reshare: %w", err)
	}
	return &post, nil
}

func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return nil
}

// Delete 硬删除帖子及其下挂的点赞、收藏、评论。引用它的转发/引用帖的
// original_post_id 置空，与上游行为一致。
func (r *PostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
		return fmt.Errorf("failed to delete likes of post: %w", err)
	}
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", id).Delete(&models.Bookmark{}).Error; err != nil {
		return fmt.Errorf("failed to delete bookmarks of post: %w", err)
	}
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
		return fmt.Errorf("failed to delete comments of post: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("original_post_id = ?", id).
		UpdateColumn("original_post_id", nil).Error; err != nil {
		return fmt.Errorf("failed to detach reshares of post: %w", err)
	}
	if err := r.db.WithContext(ctx).
		Delete(&models.Post{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

func (r *PostRepository) addCount(ctx context.Context, column string, postID uuid.UUID, delta int64) error {
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID)
	if delta < 0 {
		q = q.Where(column+" >= ?", -delta)
	}
	res := q.UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("failed to update %s: %w", column, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Invariant(fmt.Sprintf("%s would go negative for post %s", column, postID))
	}
	return nil
}

func (r *PostRepository) AddLikeCount(ctx context.Context, postID uuid.UUID, delta int64) error {
	return r.addCount(ctx, "like_count", postID, delta)
}

func (r *PostRepository) AddReshareCount(ctx context.Context, postID uuid.UUID, delta int64) error {
	return r.addCount(ctx, "reshare_count", postID, delta)
}

func (r *PostRepository) AddQuoteCount(ctx context.Context, postID uuid.UUID, delta int64) error {
	return r.addCount(ctx, "quote_count", postID, delta)
}

func (r *PostRepository) AddCommentCount(ctx context.Context, postID uuid.UUID, delta int64) error {
	return r.addCount(ctx, "comment_count", postID, delta)
}

func (r *PostRepository) AddBookmarkCount(ctx context.Context, postID uuid.UUID, delta int64) error {
	return r.addCount(ctx, "bookmark_count", postID, delta)
}
