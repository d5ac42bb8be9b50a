package services

import (
	"context"
	"fmt"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/chirp-social/chirp/internal/models"
	"github.com/chirp-social/chirp/internal/repository"
	"github.com/chirp-social/chirp/pkg/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type LikeService struct {
	db              *repository.Database
	likeRepo        *repository.LikeRepository
	postRepo        *repository.PostRepository
	notificationSvc *NotificationService
	logger          *logger.Logger
}

func NewLikeService(
	db *repository.Database,
	likeRepo *repository.LikeRepository,
	postRepo *repository.PostRepository,
	notificationSvc *NotificationService,
	logger *logger.Logger,
) *LikeService {
	return &LikeService{
		db:              db,
		likeRepo:        likeRepo,
		postRepo:        postRepo,
		notificationSvc: notificationSvc,
		logger:          logger,
	}
}

// LikePost 点赞。重复点赞返回DUPLICATE，点赞记录和计数在同一事务内落库
func (s *LikeService) LikePost(ctx context.Context, userID, postID string) error {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.Validation("invalid user ID")
	}
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return apperrors.Validation("invalid post ID")
	}

	post, err := s.postRepo.GetByID(ctx, postUUID)
	if err != nil {
		return fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return apperrors.NotFound("post")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		like := &models.Like{UserID: userUUID, PostID: postUUID}
		if err := s.likeRepo.WithTx(tx).Create(ctx, like); err != nil {
			return err
		}
		return s.postRepo.WithTx(tx).AddLikeCount(ctx, postUUID, 1)
	})
	if err != nil {
		return err
	}

	s.notificationSvc.Notify(ctx, post.UserID, userUUID, models.NotificationLike, &postUUID, nil)

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"post_id": postID,
	}).Info("Post liked")
	return nil
}

// UnlikePost 取消点赞。没有点赞过返回NOT_FOUND
func (s *LikeService) UnlikePost(ctx context.Context, userID, postID string) error {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.Validation("invalid user ID")
	}
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return apperrors.Validation("invalid post ID")
	}

	post, err := s.postRepo.GetByID(ctx, postUUID)
	if err != nil {
		return fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return apperrors.NotFound("post")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		deleted, err := s.likeRepo.WithTx(tx).Delete(ctx, userUUID, postUUID)
		if err != nil {
			return err
		}
		if !deleted {
			return apperrors.NotFound("like")
		}
		return s.postRepo.WithTx(tx).AddLikeCount(ctx, postUUID, -1)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"post_id": postID,
	}).Info("Post unliked")
	return nil
}

func (s *LikeService) GetLikers(ctx context.Context, postID string, offset, limit int) ([]*models.UserSummary, error) {
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return nil, apperrors.Validation("invalid post ID")
	}
	offset, limit = normalizePage(offset, limit)

	post, err := s.postRepo.GetByID(ctx, postUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, apperrors.NotFound("post")
	}

	users, err := s.likeRepo.GetLikers(ctx, postUUID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get likers: %w", err)
	}

	summaries := make([]*models.UserSummary, len(users))
	for i, u := range users {
		summaries[i] = u.Summary()
	}
	return summaries, nil
}
