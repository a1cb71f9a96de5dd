package notification

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService is the emitter the workflow transitions fan out through.
// Callers treat it as fire-and-forget: a failed create is logged by the caller
// and never rolls back the transition that triggered it.
type NotificationService interface {
	CreateNotification(ctx context.Context, userID primitive.ObjectID, title, message string, notifType NotificationType, link string, metadata map[string]interface{}) error
	CreateBatch(ctx context.Context, userIDs []primitive.ObjectID, title, message string, notifType NotificationType, link string, metadata map[string]interface{}) error
	GetUserNotifications(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) error
	MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error
}

type NotificationServiceImpl struct {
	Repo NotificationRepository
}

func NewNotificationService(repo NotificationRepository) NotificationService {
	return &NotificationServiceImpl{
		Repo: repo,
	}
}

func (s *NotificationServiceImpl) CreateNotification(ctx context.Context, userID primitive.ObjectID, title, message string, notifType NotificationType, link string, metadata map[string]interface{}) error {
	n := &Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Link:      link,
		Metadata:  metadata,
		IsRead:    false,
		CreatedAt: time.Now(),
	}
	return s.Repo.Create(ctx, n)
}

func (s *NotificationServiceImpl) CreateBatch(ctx context.Context, userIDs []primitive.ObjectID, title, message string, notifType NotificationType, link string, metadata map[string]interface{}) error {
	now := time.Now()
	ns := make([]Notification, 0, len(userIDs))
	for _, userID := range userIDs {
		ns = append(ns, Notification{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			Title:     title,
			Message:   message,
			Type:      notifType,
			Link:      link,
			Metadata:  metadata,
			IsRead:    false,
			CreatedAt: now,
		})
	}
	return s.Repo.CreateMany(ctx, ns)
}

func (s *NotificationServiceImpl) GetUserNotifications(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return s.Repo.FindByUser(ctx, userID, limit, (page-1)*limit)
}

func (s *NotificationServiceImpl) GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.Repo.CountUnread(ctx, userID)
}

func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	return s.Repo.MarkAsRead(ctx, objID, userID)
}

func (s *NotificationServiceImpl) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error {
	return s.Repo.MarkAllAsRead(ctx, userID)
}
