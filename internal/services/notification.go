package services

import (
	"context"
	"fmt"
	"time"

	"github.com/chirp-social/chirp/internal/apperrors"
	"github.com/chirp-social/chirp/internal/models"
	"github.com/chirp-social/chirp/internal/repository"
	"github.com/chirp-social/chirp/pkg/cache"
	"github.com/chirp-social/chirp/pkg/logger"
	"github.com/chirp-social/chirp/pkg/queue"
	"github.com/google/uuid"
)

const unreadCountTTL = 5 * time.Minute

type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	producer         *queue.KafkaProducer
	cache            *cache.RedisClient
	logger           *logger.Logger
}

func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	producer *queue.KafkaProducer,
	cache *cache.RedisClient,
	logger *logger.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		producer:         producer,
		cache:            cache,
		logger:           logger,
	}
}

// Notify 记录一条通知并投递事件。通知是尽力而为的：任何失败只记日志，
// 绝不让触发它的交互失败。自己对自己的操作不产生通知。
func (s *NotificationService) Notify(ctx context.Context, recipientID, actorID uuid.UUID, kind models.NotificationKind, postID, commentID *uuid.UUID) {
	if recipientID == actorID {
		return
	}

	notification := &models.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		Kind:        kind,
		PostID:      postID,
		CommentID:   commentID,
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		s.logger.WithError(err).Error("Failed to create notification")
		return
	}

	s.invalidateUnreadCount(ctx, recipientID)

	event := queue.Event{
		Type:      queue.EventNotificationCreated,
		Timestamp: notification.CreatedAt,
		Data: queue.NotificationEventData{
			NotificationID: notification.ID.String(),
			RecipientID:    recipientID.String(),
			ActorID:        actorID.String(),
			Kind:           string(kind),
			PostID:         uuidString(postID),
			CommentID:      uuidString(commentID),
			CreatedAt:      notification.CreatedAt.Format(time.RFC3339),
		},
	}
	if s.producer != nil {
		if err := s.producer.Publish(ctx, recipientID.String(), event); err != nil {
			s.logger.WithError(err).Error("Failed to publish notification event")
		}
	}
}

// NotificationGroup 是按(类型, 帖子, 评论)聚合后的一条通知，
// 带参与的用户列表和渲染好的文案
type NotificationGroup struct {
	Kind      models.NotificationKind `json:"kind"`
	PostID    *uuid.UUID              `json:"post_id"`
	CommentID *uuid.UUID              `json:"comment_id"`
	LatestAt  time.Time               `json:"latest_at"`
	IsRead    bool                    `json:"is_read"`
	Actors    []*models.UserSummary   `json:"actors"`
	Message   string                  `json:"message"`

	ids []uuid.UUID
}

// IDs 返回该分组覆盖的原始通知ID
func (g *NotificationGroup) IDs() []uuid.UUID {
	return g.ids
}

const notificationScanLimit = 100

func (s *NotificationService) GetNotifications(ctx context.Context, userID string) ([]*NotificationGroup, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Validation("invalid user ID")
	}

	rows, err := s.notificationRepo.GetByRecipient(ctx, userUUID, notificationScanLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}

	type groupKey struct {
		kind      models.NotificationKind
		postID    uuid.UUID
		commentID uuid.UUID
	}

	var order []groupKey
	groups := make(map[groupKey]*NotificationGroup)
	for _, n := range rows {
		key := groupKey{kind: n.Kind}
		if n.PostID != nil {
			key.postID = *n.PostID
		}
		if n.CommentID != nil {
			key.commentID = *n.CommentID
		}

		g, ok := groups[key]
		if !ok {
			g = &NotificationGroup{
				Kind:      n.Kind,
				PostID:    n.PostID,
				CommentID: n.CommentID,
				LatestAt:  n.CreatedAt,
				IsRead:    true,
			}
			groups[key] = g
			order = append(order, key)
		}
		g.Actors = append(g.Actors, n.Actor.Summary())
		g.ids = append(g.ids, n.ID)
		if !n.IsRead {
			g.IsRead = false
		}
	}

	result := make([]*NotificationGroup, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.Message = renderNotificationMessage(g)
		result = append(result, g)
	}
	return result, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.Validation("invalid user ID")
	}
	notificationUUID, err := uuid.Parse(notificationID)
	if err != nil {
		return apperrors.Validation("invalid notification ID")
	}

	updated, err := s.notificationRepo.MarkRead(ctx, notificationUUID, userUUID)
	if err != nil {
		return err
	}
	if !updated {
		return apperrors.NotFound("notification")
	}

	s.invalidateUnreadCount(ctx, userUUID)
	return nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return 0, apperrors.Validation("invalid user ID")
	}

	cacheKey := unreadCountKey(userUUID)
	if s.cache != nil {
		if count, err := s.cache.GetInt(ctx, cacheKey); err == nil {
			return count, nil
		}
	}

	count, err := s.notificationRepo.CountUnread(ctx, userUUID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, count, unreadCountTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache unread count")
		}
	}
	return count, nil
}

func (s *NotificationService) invalidateUnreadCount(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, unreadCountKey(userID)); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate unread count")
	}
}

func unreadCountKey(userID uuid.UUID) string {
	return fmt.Sprintf("notifications:unread:%s", userID)
}

func renderNotificationMessage(g *NotificationGroup) string {
	action := notificationAction(g.Kind)
	names := make([]string, len(g.Actors))
	for i, a := range g.Actors {
		names[i] = a.DisplayName
	}

	switch len(names) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s %s", names[0], action)
	case 2:
		return fmt.Sprintf("%s and %s %s", names[0], names[1], action)
	default:
		return fmt.Sprintf("%s, %s and %d others %s", names[0], names[1], len(names)-2, action)
	}
}

func notificationAction(kind models.NotificationKind) string {
	switch kind {
	case models.NotificationLike:
		return "liked your post"
	case models.NotificationComment:
		return "commented on your post"
	case models.NotificationReshare:
		return "reshared your post"
	case models.NotificationQuote:
		return "quoted your post"
	case models.NotificationFollow:
		return "followed you"
	default:
		return "interacted with you"
	}
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
