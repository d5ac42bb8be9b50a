package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/chirp-social/chirp/internal/models"
	"github.com/chirp-social/chirp/internal/repository"
	"github.com/chirp-social/chirp/internal/storage"
	"github.com/chirp-social/chirp/pkg/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	maxContentLength = 280
	maxMediaSize     = 4 << 20
)

type PostService struct {
	db              *repository.Database
	postRepo        *repository.PostRepository
	userRepo        *repository.UserRepository
	blobStore       storage.BlobStore
	notificationSvc *NotificationService
	logger          *logger.Logger
}

func NewPostService(
	db *repository.Database,
	postRepo *repository.PostRepository,
	userRepo *repository.UserRepository,
	blobStore storage.BlobStore,
	notificationSvc *NotificationService,
	logger *logger.Logger,
) *PostService {
	return &PostService{
		db:              db,
		postRepo:        postRepo,
		userRepo:        userRepo,
		blobStore:       blobStore,
		notificationSvc: notificationSvc,
		logger:          logger,
	}
}

type CreatePostRequest struct {
	Content       string
	MediaFilename string
	MediaData     []byte
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperrors.Validation("content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return "", apperrors.Validation(fmt.Sprintf("content must be at most %d characters", maxContentLength))
	}
	return content, nil
}

// CreatePost 发帖。帖子和作者的计数在同一事务内落库，媒体先传后写
func (s *PostService) CreatePost(ctx context.Context, userID string, req *CreatePostRequest) (*models.Post, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}

	content, err := validateContent(req.Content)
	if err != nil {
		return nil, err
	}

	var mediaURL string
	if len(req.MediaData) > 0 {
		if len(req.MediaData) > maxMediaSize {
			return nil, apperrors.Validation("media must be at most 4MB")
		}
		mediaURL, err = s.blobStore.Upload(ctx, req.MediaData, userID, req.MediaFilename)
		if err != nil {
			return nil, apperrors.Upload("failed to upload media", err)
		}
	}

	post := &models.Post{
		UserID:   userUUID,
		Content:  content,
		MediaURL: mediaURL,
		Kind:     models.PostKindOriginal,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.postRepo.WithTx(tx).Create(ctx, post); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).AddTweetCount(ctx, userUUID, 1)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"post_id": post.ID,
	}).Info("Post created")
	return s.postRepo.GetByID(ctx, post.ID)
}

type EditPostRequest struct {
	Content       string
	MediaFilename string
	MediaData     []byte
}

// EditPost 编辑。转发不可编辑，引用不能带媒体
func (s *PostService) EditPost(ctx context.Context, userID, postID string, req *EditPostRequest) (*models.Post, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return nil, apperrors.Validation("invalid post ID")
	}

	post, err := s.postRepo.GetOwned(ctx, postUUID, userUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, apperrors.NotFound("post")
	}

	if post.Kind == models.PostKindReshare {
		return nil, apperrors.Validation("reshares cannot be edited")
	}
	if post.Kind == models.PostKindQuote && len(req.MediaData) > 0 {
		return nil, apperrors.Validation("quotes cannot include media")
	}

	// 编辑后必须留下内容或媒体之一
	content := strings.TrimSpace(req.Content)
	if content == "" && len(req.MediaData) == 0 && post.MediaURL == "" {
		return nil, apperrors.Validation("post must have content or media")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, apperrors.Validation(fmt.Sprintf("content must be at most %d characters", maxContentLength))
	}
	post.Content = content

	if len(req.MediaData) > 0 {
		if len(req.MediaData) > maxMediaSize {
			return nil, apperrors.Validation("media must be at most 4MB")
		}
		url, err := s.blobStore.Upload(ctx, req.MediaData, userID, req.MediaFilename)
		if err != nil {
			return nil, apperrors.Upload("failed to upload media", err)
		}
		if post.MediaURL != "" {
			if err := s.blobStore.Delete(ctx, post.MediaURL); err != nil {
				s.logger.WithError(err).Warn("Failed to delete old media")
			}
		}
		post.MediaURL = url
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"post_id": postID,
	}).Info("Post edited")
	return s.postRepo.GetByID(ctx, post.ID)
}

// DeletePost 删帖。帖子本身、互动边、计数在同一事务内更新，
// 子转发/引用保留但原帖引用置空，媒体在事务提交后清理
func (s *PostService) DeletePost(ctx context.Context, userID, postID string) error {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.Validation("invalid user ID")
	}
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return apperrors.Validation("invalid post ID")
	}

	post, err := s.postRepo.GetOwned(ctx, postUUID, userUUID)
	if err != nil {
		return fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return apperrors.NotFound("post")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		postRepo := s.postRepo.WithTx(tx)

		if post.OriginalPostID != nil {
			switch post.Kind {
			case models.PostKindReshare:
				if err := postRepo.AddReshareCount(ctx, *post.OriginalPostID, -1); err != nil {
					return err
				}
			case models.PostKindQuote:
				if err := postRepo.AddQuoteCount(ctx, *post.OriginalPostID, -1); err != nil {
					return err
				}
			}
		}

		if err := postRepo.Delete(ctx, postUUID); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).AddTweetCount(ctx, userUUID, -1)
	})
	if err != nil {
		return err
	}

	if post.MediaURL != "" {
		if err := s.blobStore.Delete(ctx, post.MediaURL); err != nil {
			s.logger.WithError(err).Warn("Failed to delete post media")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"post_id": postID,
	}).Info("Post deleted")
	return nil
}

// Reshare 转发。不能转发自己的帖子，同一原帖只能转发一次
func (s *PostService) Reshare(ctx context.Context, userID, postID string) (*models.Post, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return nil, apperrors.Validation("invalid post ID")
	}

	original, err := s.postRepo.GetByID(ctx, postUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if original == nil {
		return nil, apperrors.NotFound("post")
	}
	if original.UserID == userUUID {
		return nil, apperrors.Validation("cannot reshare your own post")
	}

	// 先查一次给出友好错误，并发下的重复由唯一索引在事务内拦截
	existing, err := s.postRepo.GetReshareBy(ctx, userUUID, postUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to check reshare: %w", err)
	}
	if existing != nil {
		return nil, apperrors.Duplicate("already reshared")
	}

	reshare := &models.Post{
		UserID:         userUUID,
		Kind:           models.PostKindReshare,
		OriginalPostID: &postUUID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		postRepo := s.postRepo.WithTx(tx)
		if err := postRepo.Create(ctx, reshare); err != nil {
			return err
		}
		if err := postRepo.AddReshareCount(ctx, postUUID, 1); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).AddTweetCount(ctx, userUUID, 1)
	})
	if err != nil {
		return nil, err
	}

	s.notificationSvc.Notify(ctx, original.UserID, userUUID, models.NotificationReshare, &postUUID, nil)

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"post_id": postID,
	}).Info("Post reshared")
	return s.postRepo.GetByID(ctx, reshare.ID)
}

// Quote 引用。引用必须带内容，同一原帖可以引用多次
func (s *PostService) Quote(ctx context.Context, userID, postID, content string) (*models.Post, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return nil, apperrors.Validation("invalid post ID")
	}

	content, err = validateContent(content)
	if err != nil {
		return nil, err
	}

	original, err := s.postRepo.GetByID(ctx, postUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if original == nil {
		return nil, apperrors.NotFound("post")
	}

	quote := &models.Post{
		UserID:         userUUID,
		Content:        content,
		Kind:           models.PostKindQuote,
		OriginalPostID: &postUUID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		postRepo := s.postRepo.WithTx(tx)
		if err := postRepo.Create(ctx, quote); err != nil {
			return err
		}
		if err := postRepo.AddQuoteCount(ctx, postUUID, 1); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).AddTweetCount(ctx, userUUID, 1)
	})
	if err != nil {
		return nil, err
	}

	s.notificationSvc.Notify(ctx, original.UserID, userUUID, models.NotificationQuote, &postUUID, nil)

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"post_id": postID,
	}).Info("Post quoted")
	return s.postRepo.GetByID(ctx, quote.ID)
}

func (s *PostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	postUUID, err := uuid.Parse(postID)
	if err != nil {
		return nil, apperrors.Validation("invalid post ID")
	}

	post, err := s.postRepo.GetByID(ctx, postUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, apperrors.NotFound("post")
	}
	return post, nil
}

func (s *PostService) GetUserPosts(ctx context.Context, userID string, offset, limit int) ([]*models.Post, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}
	offset, limit = normalizePage(offset, limit)

	user, err := s.userRepo.GetByID(ctx, userUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}

	posts, err := s.postRepo.GetByUserID(ctx, userUUID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get user posts: %w", err)
	}
	return posts, nil
}
