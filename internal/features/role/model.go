package role

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role names used by the workflow notifications
const (
	NameAdmin          = "admin"
	NameProcessManager = "process_manager"
	NameAgent          = "agent"
)

// Role carries resource -> actions permission grants, e.g. "processes" -> ["approve"].
type Role struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Name        string              `json:"name" bson:"name"`
	Description string              `json:"description" bson:"description"`
	Permissions map[string][]string `json:"permissions" bson:"permissions"`
	IsSystem    bool                `json:"is_system" bson:"is_system"`
	CreatedAt   time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" bson:"updated_at"`
}
