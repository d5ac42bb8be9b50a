package services

import (
	"context"
	"fmt"
	"regexp"
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
	maxDisplayNameLength = 50
	maxBioLength         = 100
	maxWebsiteLength     = 100
	maxAvatarSize        = 2 << 20
)

var userNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{4,15}$`)

type UserService struct {
	db              *repository.Database
	userRepo        *repository.UserRepository
	followRepo      *repository.FollowRepository
	blobStore       storage.BlobStore
	notificationSvc *NotificationService
	logger          *logger.Logger
}

func NewUserService(
	db *repository.Database,
	userRepo *repository.UserRepository,
	followRepo *repository.FollowRepository,
	blobStore storage.BlobStore,
	notificationSvc *NotificationService,
	logger *logger.Logger,
) *UserService {
	return &UserService{
		db:              db,
		userRepo:        userRepo,
		followRepo:      followRepo,
		blobStore:       blobStore,
		notificationSvc: notificationSvc,
		logger:          logger,
	}
}

// UserProfile 是带关系标记的完整用户资料
type UserProfile struct {
	*models.User
	IsFollowing  bool `json:"is_following"`
	IsFollowedBy bool `json:"is_followed_by"`
}

func (s *UserService) GetProfile(ctx context.Context, viewerID, userName string) (*UserProfile, error) {
	user, err := s.userRepo.GetByUserName(ctx, userName)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}

	profile := &UserProfile{User: user}
	if viewerID != "" {
		viewerUUID, err := uuid.Parse(viewerID)
		if err != nil {
			return nil, apperrors.Validation("invalid user ID")
		}
		if viewerUUID != user.ID {
			relations, err := s.followRepo.GetRelations(ctx, viewerUUID, []uuid.UUID{user.ID})
			if err != nil {
				return nil, fmt.Errorf("failed to get relations: %w", err)
			}
			rel := relations[user.ID]
			profile.IsFollowing = rel.Following
			profile.IsFollowedBy = rel.FollowedBy
		}
	}
	return profile, nil
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
	Website     *string `json:"website"`
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *UpdateProfileRequest) (*models.User, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}

	user, err := s.userRepo.GetByID(ctx, userUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}

	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return nil, apperrors.Validation("display name is required")
		}
		if utf8.RuneCountInString(name) > maxDisplayNameLength {
			return nil, apperrors.Validation(fmt.Sprintf("display name must be at most %d characters", maxDisplayNameLength))
		}
		user.DisplayName = name
	}
	if req.Bio != nil {
		if utf8.RuneCountInString(*req.Bio) > maxBioLength {
			return nil, apperrors.Validation(fmt.Sprintf("bio must be at most %d characters", maxBioLength))
		}
		user.Bio = *req.Bio
	}
	if req.Website != nil {
		website := strings.TrimSpace(*req.Website)
		if utf8.RuneCountInString(website) > maxWebsiteLength {
			return nil, apperrors.Validation(fmt.Sprintf("website must be at most %d characters", maxWebsiteLength))
		}
		user.Website = website
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.WithField("user_id", userID).Info("Profile updated")
	return user, nil
}

// ChangeUserName 修改用户名。用户名全局唯一、大小写不敏感
func (s *UserService) ChangeUserName(ctx context.Context, userID, userName string) (*models.User, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}
	if !userNamePattern.MatchString(userName) {
		return nil, apperrors.Validation("username must be 4-15 characters of letters, digits or underscore")
	}

	user, err := s.userRepo.GetByID(ctx, userUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}

	normalized := strings.ToLower(userName)
	if normalized == user.UserName {
		return user, nil
	}

	existing, err := s.userRepo.GetByUserName(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("username already taken")
	}

	user.UserName = normalized
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"user_name": normalized,
	}).Info("Username changed")
	return user, nil
}

func (s *UserService) UploadAvatar(ctx context.Context, userID, filename string, data []byte) (*models.User, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}
	if len(data) == 0 {
		return nil, apperrors.Validation("avatar file is empty")
	}
	if len(data) > maxAvatarSize {
		return nil, apperrors.Validation("avatar must be at most 2MB")
	}

	user, err := s.userRepo.GetByID(ctx, userUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}

	url, err := s.blobStore.Upload(ctx, data, userID, filename)
	if err != nil {
		return nil, apperrors.Upload("failed to upload avatar", err)
	}

	oldURL := user.AvatarURL
	user.AvatarURL = url
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if oldURL != "" {
		if err := s.blobStore.Delete(ctx, oldURL); err != nil {
			s.logger.WithError(err).Warn("Failed to delete old avatar")
		}
	}

	s.logger.WithField("user_id", userID).Info("Avatar uploaded")
	return user, nil
}

// Follow 关注。已关注时静默成功，关注自己返回VALIDATION_ERROR
func (s *UserService) Follow(ctx context.Context, followerID, followingID string) error {
	followerUUID, err := uuid.Parse(followerID)
	if err != nil {
		return apperrors.Validation("invalid user ID")
	}
	followingUUID, err := uuid.Parse(followingID)
	if err != nil {
		return apperrors.Validation("invalid user ID")
	}
	if followerUUID == followingUUID {
		return apperrors.Validation("cannot follow yourself")
	}

	target, err := s.userRepo.GetByID(ctx, followingUUID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if target == nil {
		return apperrors.NotFound("user")
	}

	var inserted bool
	err = s.db.Transaction(func(tx *gorm.DB) error {
		follow := &models.Follow{FollowerID: followerUUID, FollowingID: followingUUID}
		var err error
		inserted, err = s.followRepo.WithTx(tx).Create(ctx, follow)
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		userRepo := s.userRepo.WithTx(tx)
		if err := userRepo.AddFollowingCount(ctx, followerUUID, 1); err != nil {
			return err
		}
		return userRepo.AddFollowerCount(ctx, followingUUID, 1)
	})
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	s.notificationSvc.Notify(ctx, followingUUID, followerUUID, models.NotificationFollow, nil, nil)

	s.logger.WithFields(logrus.Fields{
		"follower_id":  followerID,
		"following_id": followingID,
	}).Info("User followed")
	return nil
}

// Unfollow 取关。没有关注过返回NOT_FOUND
func (s *UserService) Unfollow(ctx context.Context, followerID, followingID string) error {
	followerUUID, err := uuid.Parse(followerID)
	if err != nil {
		return apperrors.Validation("invalid user ID")
	}
	followingUUID, err := uuid.Parse(followingID)
	if err != nil {
		return apperrors.Validation("invalid user ID")
	}

	target, err := s.userRepo.GetByID(ctx, followingUUID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if target == nil {
		return apperrors.NotFound("user")
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		deleted, err := s.followRepo.WithTx(tx).Delete(ctx, followerUUID, followingUUID)
		if err != nil {
			return err
		}
		if !deleted {
			return apperrors.NotFound("follow")
		}
		userRepo := s.userRepo.WithTx(tx)
		if err := userRepo.AddFollowingCount(ctx, followerUUID, -1); err != nil {
			return err
		}
		return userRepo.AddFollowerCount(ctx, followingUUID, -1)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"follower_id":  followerID,
		"following_id": followingID,
	}).Info("User unfollowed")
	return nil
}

// RelatedUser 关注列表里的用户摘要，带和观察者的双向关系标记
type RelatedUser struct {
	models.UserSummary
	IsFollowing  bool `json:"is_following"`
	IsFollowedBy bool `json:"is_followed_by"`
}

func (s *UserService) GetFollowers(ctx context.Context, viewerID, userID string, offset, limit int) ([]*RelatedUser, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}
	offset, limit = normalizePage(offset, limit)

	users, err := s.followRepo.GetFollowers(ctx, userUUID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return s.relateUsers(ctx, viewerID, users)
}

func (s *UserService) GetFollowing(ctx context.Context, viewerID, userID string, offset, limit int) ([]*RelatedUser, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}
	offset, limit = normalizePage(offset, limit)

	users, err := s.followRepo.GetFollowing(ctx, userUUID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	return s.relateUsers(ctx, viewerID, users)
}

func (s *UserService) relateUsers(ctx context.Context, viewerID string, users []*models.User) ([]*RelatedUser, error) {
	relations := make(map[uuid.UUID]repository.Relation)
	if viewerID != "" && len(users) > 0 {
		viewerUUID, err := uuid.Parse(viewerID)
		if err != nil {
			return nil, apperrors.Validation("invalid user ID")
		}
		ids := make([]uuid.UUID, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		relations, err = s.followRepo.GetRelations(ctx, viewerUUID, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to get relations: %w", err)
		}
	}

	result := make([]*RelatedUser, len(users))
	for i, u := range users {
		rel := relations[u.ID]
		result[i] = &RelatedUser{
			UserSummary:  *u.Summary(),
			IsFollowing:  rel.Following,
			IsFollowedBy: rel.FollowedBy,
		}
	}
	return result, nil
}

// GetSuggestions 推荐关注：按粉丝数取未关注的用户
func (s *UserService) GetSuggestions(ctx context.Context, userID string, limit int) ([]*models.UserSummary, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}
	_, limit = normalizePage(0, limit)

	users, err := s.followRepo.GetSuggestions(ctx, userUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestions: %w", err)
	}
	return summarize(users), nil
}

func (s *UserService) Search(ctx context.Context, query string, offset, limit int) ([]*models.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.Validation("search query is required")
	}
	offset, limit = normalizePage(offset, limit)

	users, err := s.userRepo.Search(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return summarize(users), nil
}

func summarize(users []*models.User) []*models.UserSummary {
	summaries := make([]*models.UserSummary, len(users))
	for i, u := range users {
		summaries[i] = u.Summary()
	}
	return summaries
}
