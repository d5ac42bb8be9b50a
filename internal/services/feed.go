package services

import (
	"context"
	"fmt"
	"time"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/chirp-social/chirp/internal/models"
	"github.com/chirp-social/chirp/internal/repository"
	"github.com/chirp-social/chirp/pkg/logger"
	"github.com/google/uuid"
)

type FeedService struct {
	feedRepo   *repository.FeedRepository
	followRepo *repository.FollowRepository
	logger     *logger.Logger
}

func NewFeedService(
	feedRepo *repository.FeedRepository,
	followRepo *repository.FollowRepository,
	logger *logger.Logger,
) *FeedService {
	return &FeedService{
		feedRepo:   feedRepo,
		followRepo: followRepo,
		logger:     logger,
	}
}

// FeedAuthor 是feed里的作者摘要，带和观察者的双向关系标记
type FeedAuthor struct {
	models.UserSummary
	IsFollowing  bool `json:"is_following"`
	IsFollowedBy bool `json:"is_followed_by"`
}

type OriginalPost struct {
	ID        uuid.UUID           `json:"id"`
	Content   string              `json:"content"`
	MediaURL  string              `json:"media_url"`
	CreatedAt time.Time           `json:"created_at"`
	User      *models.UserSummary `json:"user"`
}

type FeedPost struct {
	ID            uuid.UUID       `json:"id"`
	Content       string          `json:"content"`
	MediaURL      string          `json:"media_url"`
	Kind          models.PostKind `json:"kind"`
	LikeCount     int64           `json:"like_count"`
	ReshareCount  int64           `json:"reshare_count"`
	QuoteCount    int64           `json:"quote_count"`
	CommentCount  int64           `json:"comment_count"`
	BookmarkCount int64           `json:"bookmark_count"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	User          *FeedAuthor     `json:"user"`
	Original      *OriginalPost   `json:"original_post"`
}

type FeedResponse struct {
	Posts      []*FeedPost `json:"posts"`
	HasMore    bool        `json:"has_more"`
	NextOffset int         `json:"next_offset"`
}

// GetFollowingFeed 关注feed：自己和关注对象的全部帖子，按时间倒序。
// 多取一条探测是否还有下一页
func (s *FeedService) GetFollowingFeed(ctx context.Context, viewerID string, offset, limit int) (*FeedResponse, error) {
	viewerUUID, err := uuid.Parse(viewerID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}
	offset, limit = normalizePage(offset, limit)

	followingIDs, err := s.followRepo.GetFollowingIDs(ctx, viewerUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	authorIDs := append(followingIDs, viewerUUID)

	posts, err := s.feedRepo.GetFollowingFeed(ctx, authorIDs, offset, limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to get following feed: %w", err)
	}
	return s.buildResponse(ctx, &viewerUUID, posts, offset, limit)
}

// GetExploreFeed 发现feed：全站原创和引用按热度排序，匿名可访问
func (s *FeedService) GetExploreFeed(ctx context.Context, viewerID string, offset, limit int) (*FeedResponse, error) {
	var viewerUUID *uuid.UUID
	if viewerID != "" {
		parsed, err := uuid.Parse(viewerID)
		if err != nil {
			return nil, apperrors.Validation("invalid user ID")
		}
		viewerUUID = &parsed
	}
	offset, limit = normalizePage(offset, limit)

	posts, err := s.feedRepo.GetExploreFeed(ctx, offset, limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to get explore feed: %w", err)
	}
	return s.buildResponse(ctx, viewerUUID, posts, offset, limit)
}

func (s *FeedService) buildResponse(ctx context.Context, viewerID *uuid.UUID, posts []*models.Post, offset, limit int) (*FeedResponse, error) {
	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	relations := make(map[uuid.UUID]repository.Relation)
	if viewerID != nil && len(posts) > 0 {
		authorSet := make(map[uuid.UUID]struct{})
		authorIDs := make([]uuid.UUID, 0, len(posts))
		for _, p := range posts {
			if _, ok := authorSet[p.UserID]; !ok {
				authorSet[p.UserID] = struct{}{}
				authorIDs = append(authorIDs, p.UserID)
			}
		}
		var err error
		relations, err = s.followRepo.GetRelations(ctx, *viewerID, authorIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to get relations: %w", err)
		}
	}

	feedPosts := make([]*FeedPost, len(posts))
	for i, p := range posts {
		rel := relations[p.UserID]
		fp := &FeedPost{
			ID:            p.ID,
			Content:       p.Content,
			MediaURL:      p.MediaURL,
			Kind:          p.Kind,
			LikeCount:     p.LikeCount,
			ReshareCount:  p.ReshareCount,
			QuoteCount:    p.QuoteCount,
			CommentCount:  p.CommentCount,
			BookmarkCount: p.BookmarkCount,
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
			User: &FeedAuthor{
				UserSummary:  *p.User.Summary(),
				IsFollowing:  rel.Following,
				IsFollowedBy: rel.FollowedBy,
			},
		}
		if p.Original != nil {
			fp.Original = &OriginalPost{
				ID:        p.Original.ID,
				Content:   p.Original.Content,
				MediaURL:  p.Original.MediaURL,
				CreatedAt: p.Original.CreatedAt,
				User:      p.Original.User.Summary(),
			}
		}
		feedPosts[i] = fp
	}

	return &FeedResponse{
		Posts:      feedPosts,
		HasMore:    hasMore,
		NextOffset: offset + len(feedPosts),
	}, nil
}
