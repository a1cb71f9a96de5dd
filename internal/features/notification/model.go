package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationTypeInfo       NotificationType = "info"
	NotificationTypeApproval   NotificationType = "approval"
	NotificationTypeTask       NotificationType = "task"
	NotificationTypeAssignment NotificationType = "assignment"
	NotificationTypeProcess    NotificationType = "process"
)

type Notification struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID     `bson:"user_id" json:"user_id"`
	Title     string                 `bson:"title" json:"title"`
	Message   string                 `bson:"message" json:"message"`
	Type      NotificationType       `bson:"type" json:"type"`
	Link      string                 `bson:"link,omitempty" json:"link,omitempty"`
	Metadata  map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	IsRead    bool                   `bson:"is_read" json:"is_read"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
	ReadAt    *time.Time             `bson:"read_at,omitempty" json:"read_at,omitempty"`
}
