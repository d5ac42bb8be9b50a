package repository

import (
	"context"
	"fmt"

	"github.com/chirp-social/chirp/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FollowRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) *FollowRepository {
	return &FollowRepository{db: db}
}

func (r *FollowRepository) WithTx(tx *gorm.DB) *FollowRepository {
	return &FollowRepository{db: tx}
}

// Create 插入关注边，已存在时不报错。返回是否真的插入了新行。
func (r *FollowRepository) Create(ctx context.Context, follow *models.Follow) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(follow)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create follow: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Delete 返回是否删除了已有的边
func (r *FollowRepository) Delete(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete follow: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followingID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check follow status: %w", err)
	}
	return count > 0, nil
}

func (r *FollowRepository) GetFollowingIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Pluck("following_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get following IDs: %w", err)
	}
	return ids, nil
}

func (r *FollowRepository) GetFollowers(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.User, error) {
	var users []*models.User
	if err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.following_id = ?", userID).
		Order("follows.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return users, nil
}

func (r *FollowRepository) GetFollowing(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*models.User, error) {
	var users []*models.User
	if err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN follows ON follows.following_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	return users, nil
}

// Relation 描述viewer与某个用户的双向关注状态
type Relation struct {
	Following  bool
	FollowedBy bool
}

// GetRelations 批量查询viewer与一组用户之间的关注关系，feed装配用
func (r *FollowRepository) GetRelations(ctx context.Context, viewerID uuid.UUID, userIDs []uuid.UUID) (map[uuid.UUID]Relation, error) {
	relations := make(map[uuid.UUID]Relation, len(userIDs))
	if len(userIDs) == 0 {
		return relations, nil
	}

	var outgoing []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND following_id IN ?", viewerID, userIDs).
		Pluck("following_id", &outgoing).Error; err != nil {
		return nil, fmt.Errorf("failed to get outgoing follows: %w", err)
	}
	for _, id := range outgoing {
		rel := relations[id]
		rel.Following = true
		relations[id] = rel
	}

	var incoming []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id IN ? AND following_id = ?", userIDs, viewerID).
		Pluck("follower_id", &incoming).Error; err != nil {
		return nil, fmt.Errorf("failed to get incoming follows: %w", err)
	}
	for _, id := range incoming {
		rel := relations[id]
		rel.FollowedBy = true
		relations[id] = rel
	}

	return relations, nil
}

// GetSuggestions 推荐尚未关注的用户，按粉丝数排序
func (r *FollowRepository) GetSuggestions(ctx context.Context, userID uuid.UUID, limit int) ([]*models.User, error) {
	followingIDs, err := r.GetFollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	excluded := append(followingIDs, userID)

	var users []*models.User
	if err := r.db.WithContext(ctx).
		Where("id NOT IN ?", excluded).
		Order("follower_count DESC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get follow suggestions: %w", err)
	}
	return users, nil
}
