package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/chirp-social/chirp/internal/models"
	"github.com/chirp-social/chirp/internal/repository"
	"github.com/chirp-social/chirp/pkg/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxCommentLength = 150

type CommentService struct {
	db              *repository.Database
	commentRepo     *repository.CommentRepository
	postRepo        *repository.PostRepository
	notificationSvc *NotificationService
	logger          *logger.Logger
}

func NewCommentService(
	db *repository.Database,
	commentRepo *repository.CommentRepository,
	postRepo *repository.PostRepository,
	notificationSvc *NotificationService,
	logger *logger.Logger,
) *CommentService {
	return &CommentService{
		db:              db,
		commentRepo:     commentRepo,
		postRepo:        postRepo,
		notificationSvc: notificationSvc,
		logger:          logger,
	}
}

func validateCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperrors.Validation("content is required")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return "", apperrors.Validation(fmt.Sprintf("comment must be at most %d characters", maxCommentLength))
	}
	return content, nil
}

// CreateComment 评论。评论记录和帖子计数在同一事务内落库
func (s *CommentService) CreateComment(ctx context.Context, userID, postID, content string) (*models.Comment, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return nil, apperrors.Validation("invalid post ID")
	}

	content, err = validateCommentContent(content)
	if err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, postUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, apperrors.NotFound("post")
	}

	comment := &models.Comment{
		PostID:  postUUID,
		UserID:  userUUID,
		Content: content,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.commentRepo.WithTx(tx).Create(ctx, comment); err != nil {
			return err
		}
		return s.postRepo.WithTx(tx).AddCommentCount(ctx, postUUID, 1)
	})
	if err != nil {
		return nil, err
	}

	s.notificationSvc.Notify(ctx, post.UserID, userUUID, models.NotificationComment, &postUUID, &comment.ID)

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"post_id":    postID,
		"comment_id": comment.ID,
	}).Info("Comment created")
	return comment, nil
}

// EditComment 编辑评论。非本人的评论按不存在处理
func (s *CommentService) EditComment(ctx context.Context, userID, commentID, content string) (*models.Comment, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}
	commentUUID, err := uuid.Parse(commentID)
	if err != nil {
		return nil, apperrors.Validation("invalid comment ID")
	}

	content, err = validateCommentContent(content)
	if err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.GetOwned(ctx, commentUUID, userUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	if comment == nil {
		return nil, apperrors.NotFound("comment")
	}

	comment.Content = content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"comment_id": commentID,
	}).Info("Comment edited")
	return comment, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID string) error {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.Validation("invalid user ID")
	}
	commentUUID, err := uuid.Parse(commentID)
	if err != nil {
		return apperrors.Validation("invalid comment ID")
	}

	comment, err := s.commentRepo.GetOwned(ctx, commentUUID, userUUID)
	if err != nil {
		return fmt.Errorf("failed to get comment: %w", err)
	}
	if comment == nil {
		return apperrors.NotFound("comment")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.commentRepo.WithTx(tx).Delete(ctx, commentUUID); err != nil {
			return err
		}
		return s.postRepo.WithTx(tx).AddCommentCount(ctx, comment.PostID, -1)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"comment_id": commentID,
	}).Info("Comment deleted")
	return nil
}

func (s *CommentService) GetComments(ctx context.Context, postID string, offset, limit int) ([]*models.Comment, error) {
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

	comments, err := s.commentRepo.GetByPostID(ctx, postUUID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	return comments, nil
}
