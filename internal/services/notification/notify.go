// Package notification delivers user notifications. Notifications are
// persisted in postgres and the most recent ones are mirrored into a
// Redis list per user for cheap polling. Delivery is fire and forget:
// the core never blocks or fails on notification problems.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/terminal-bench/lendvault/internal/models"
	"github.com/terminal-bench/lendvault/internal/stores"
)

// recentKept is how many notifications the Redis mirror retains per user.
const recentKept = 100

// Service stores and serves notifications.
type Service struct {
	repo   stores.NotificationStore
	redis  *redis.Client
	logger *slog.Logger
}

var _ stores.Notifier = (*Service)(nil)

// NewService creates a notification service. The Redis client may be
// nil, in which case the recent-notification mirror is skipped.
func NewService(repo stores.NotificationStore, rdb *redis.Client, logger *slog.Logger) *Service {
	return &Service{repo: repo, redis: rdb, logger: logger}
}

// Notify records a notification for the user. Failures are logged and
// swallowed; notification delivery must never block core logic.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, title, message, kind string, relatedID uuid.UUID) {
	n := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Kind:      kind,
		IsRead:    false,
		CreatedAt: time.Now(),
	}
	if relatedID != uuid.Nil {
		n.RelatedID = &relatedID
	}

	if err := s.repo.Insert(ctx, n); err != nil {
		s.logger.Error("failed to persist notification", "user_id", userID, "kind", kind, "error", err)
		return
	}
	s.mirrorRecent(ctx, n)
}

func (s *Service) mirrorRecent(ctx context.Context, n *models.Notification) {
	if s.redis == nil {
		return
	}
	key := fmt.Sprintf("notifications:%s", n.UserID)
	data, err := json.Marshal(n)
	if err != nil {
		return
	}
	if err := s.redis.LPush(ctx, key, data).Err(); err != nil {
		s.logger.Warn("failed to mirror notification to redis", "user_id", n.UserID, "error", err)
		return
	}
	s.redis.LTrim(ctx, key, 0, recentKept-1)
}

// Recent returns up to limit of the user's latest notifications from
// the Redis mirror, falling back to postgres when the mirror is empty
// or unavailable.
func (s *Service) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	if s.redis != nil {
		key := fmt.Sprintf("notifications:%s", userID)
		data, err := s.redis.LRange(ctx, key, 0, int64(limit-1)).Result()
		if err == nil && len(data) > 0 {
			notifications := make([]models.Notification, 0, len(data))
			for _, item := range data {
				var n models.Notification
				if err := json.Unmarshal([]byte(item), &n); err != nil {
					continue
				}
				notifications = append(notifications, n)
			}
			return notifications, nil
		}
	}
	return s.repo.ListByUser(ctx, userID)
}

// List returns all the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

// MarkRead marks a notification as read.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

// Delete removes a notification and invalidates the Redis mirror.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	if s.redis != nil {
		key := fmt.Sprintf("notifications:%s", userID)
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			s.logger.Warn("failed to invalidate notification mirror", "user_id", userID, "error", err)
		}
	}
	return nil
}
