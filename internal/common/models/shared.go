package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditAction string

const (
	AuditActionCreate  AuditAction = "CREATE"
	AuditActionUpdate  AuditAction = "UPDATE"
	AuditActionDelete  AuditAction = "DELETE"
	AuditActionLogin   AuditAction = "LOGIN"
	AuditActionApprove AuditAction = "APPROVE"
	AuditActionReturn  AuditAction = "RETURN"
	AuditActionReject  AuditAction = "REJECT"
	AuditActionHold    AuditAction = "HOLD"
	AuditActionResume  AuditAction = "RESUME"
	AuditActionCancel  AuditAction = "CANCEL"
	AuditActionBypass  AuditAction = "BYPASS"
	AuditActionReset   AuditAction = "RESET"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action    AuditAction        `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`
	RecordID  string             `bson:"record_id" json:"record_id"`
	ActorID   string             `bson:"actor_id" json:"actor_id"`
	ActorName string             `bson:"-" json:"actor_name,omitempty"`
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// User is the back-office account the engine resolves actors and recipients from.
type User struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Username  string               `bson:"username" json:"username"`
	Password  string               `bson:"password" json:"-"`
	Email     string               `bson:"email" json:"email"`
	FullName  string               `bson:"full_name" json:"full_name"`
	Status    string               `bson:"status" json:"status"`
	Roles     []primitive.ObjectID `bson:"roles" json:"roles"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at" json:"updated_at"`
}

// Log is the row shape the async zap tee writes into the logs collection.
type Log struct {
	Message      string    `bson:"message"`
	Caller       string    `bson:"caller,omitempty"`
	IpAddress    string    `bson:"ip_address,omitempty"`
	ActorID      string    `bson:"actor_id,omitempty"`
	LogLevelId   int       `bson:"log_level_id"`
	AppId        string    `bson:"app_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc"`
}
