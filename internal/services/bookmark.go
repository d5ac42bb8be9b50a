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

type BookmarkService struct {
	db           *repository.Database
	bookmarkRepo *repository.BookmarkRepository
	postRepo     *repository.PostRepository
	logger       *logger.Logger
}

func NewBookmarkService(
	db *repository.Database,
	bookmarkRepo *repository.BookmarkRepository,
	postRepo *repository.PostRepository,
	logger *logger.Logger,
) *BookmarkService {
	return &BookmarkService{
		db:           db,
		bookmarkRepo: bookmarkRepo,
		postRepo:     postRepo,
		logger:       logger,
	}
}

// BookmarkPost 收藏。收藏是私密的，不产生通知
func (s *BookmarkService) BookmarkPost(ctx context.Context, userID, postID string) error {
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
		bookmark := &models.Bookmark{UserID: userUUID, PostID: postUUID}
		if err := s.bookmarkRepo.WithTx(tx).Create(ctx, bookmark); err != nil {
			return err
		}
		return s.postRepo.WithTx(tx).AddBookmarkCount(ctx, postUUID, 1)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"post_id": postID,
	}).Info("Post bookmarked")
	return nil
}

func (s *BookmarkService) UnbookmarkPost(ctx context.Context, userID, postID string) error {
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
		deleted, err := s.bookmarkRepo.WithTx(tx).Delete(ctx, userUUID, postUUID)
		if err != nil {
			return err
		}
		if !deleted {
			return apperrors.NotFound("bookmark")
		}
		return s.postRepo.WithTx(tx).AddBookmarkCount(ctx, postUUID, -1)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"post_id": postID,
	}).Info("Post unbookmarked")
	return nil
}

// GetBookmarks 返回用户收藏的帖子，按收藏时间倒序
func (s *BookmarkService) GetBookmarks(ctx context.Context, userID string, offset, limit int) ([]*models.Post, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}
	offset, limit = normalizePage(offset, limit)

	posts, err := s.bookmarkRepo.GetByUserID(ctx, userUUID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}
	return posts, nil
}
