package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chirp-social/chirp/pkg/cache"
	"github.com/chirp-social/chirp/pkg/logger"
	"github.com/chirp-social/chirp/pkg/queue"
	"github.com/sirupsen/logrus"
)

// NotificationWorker 消费通知事件并推给在线订阅者。
// 投递走redis pub/sub，网关按用户频道订阅
type NotificationWorker struct {
	consumer *queue.KafkaConsumer
	cache    *cache.RedisClient
	logger   *logger.Logger
}

func NewNotificationWorker(consumer *queue.KafkaConsumer, cache *cache.RedisClient, logger *logger.Logger) *NotificationWorker {
	return &NotificationWorker{
		consumer: consumer,
		cache:    cache,
		logger:   logger,
	}
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Notification worker started")
	return w.consumer.Subscribe(ctx, w.handleMessage)
}

func (w *NotificationWorker) Stop() error {
	w.logger.Info("Notification worker stopping")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleMessage(key string, value []byte) error {
	var event queue.Event
	if err := json.Unmarshal(value, &event); err != nil {
		w.logger.WithError(err).Error("Failed to unmarshal notification event")
		return nil
	}

	if event.Type != queue.EventNotificationCreated {
		w.logger.WithField("type", event.Type).Warn("Unknown event type, skipping")
		return nil
	}

	ctx := context.Background()
	channel := fmt.Sprintf("notifications:user:%s", event.Data.RecipientID)
	if err := w.cache.Publish(ctx, channel, event.Data); err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"notification_id": event.Data.NotificationID,
			"recipient_id":    event.Data.RecipientID,
		}).Error("Failed to push notification")
		return err
	}

	w.logger.WithFields(logrus.Fields{
		"notification_id": event.Data.NotificationID,
		"recipient_id":    event.Data.RecipientID,
		"kind":            event.Data.Kind,
	}).Info("Notification delivered")
	return nil
}
