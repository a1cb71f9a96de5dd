package property

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PropertyStatus string

const (
	PropertyStatusPendingApproval PropertyStatus = "pending_approval"
	PropertyStatusInProcess       PropertyStatus = "in_process"
	PropertyStatusAcquired        PropertyStatus = "acquired"
)

// Owner is a registered owner of the property. Owner-scoped upload tasks are
// fanned out one per owner on template population.
type Owner struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email,omitempty" json:"email,omitempty"`
}

// Property is the real-estate asset under acquisition.
type Property struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Reference string             `bson:"reference" json:"reference"`
	Address   string             `bson:"address" json:"address"`
	Status    PropertyStatus     `bson:"status" json:"status"`
	Owners    []Owner            `bson:"owners,omitempty" json:"owners,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
