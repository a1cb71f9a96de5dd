package process

import (
	"time"

	"go-propflow/internal/features/task"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProcessStatus is the lifecycle state of a process instance
type ProcessStatus string

const (
	StatusPendingApproval ProcessStatus = "pending_approval"
	StatusReturned        ProcessStatus = "returned"
	StatusActive          ProcessStatus = "active"
	StatusOnHold          ProcessStatus = "on_hold"
	StatusCompleted       ProcessStatus = "completed"
	StatusCancelled       ProcessStatus = "cancelled"
	StatusRejected        ProcessStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions
func (s ProcessStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

// ProcessInstance is one acquisition workflow run over a property. An instance
// is born pending_approval and only carries tasks once a manager approves it
// against a template.
type ProcessInstance struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ExternalRef  string             `bson:"external_ref" json:"external_ref"`
	PropertyID   primitive.ObjectID `bson:"property_id" json:"property_id"`
	TplProcessID string             `bson:"tpl_process_id,omitempty" json:"tpl_process_id,omitempty"`
	TemplateName string             `bson:"template_name,omitempty" json:"template_name,omitempty"`

	CurrentStatus   ProcessStatus `bson:"current_status" json:"current_status"`
	PercentComplete int           `bson:"percent_complete" json:"percent_complete"`

	RequestedBy primitive.ObjectID  `bson:"requested_by" json:"requested_by"`
	ApprovedBy  *primitive.ObjectID `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovedAt  *time.Time          `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	StartedAt   *time.Time          `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt *time.Time          `bson:"completed_at,omitempty" json:"completed_at,omitempty"`

	ReturnedReason string `bson:"returned_reason,omitempty" json:"returned_reason,omitempty"`
	RejectedReason string `bson:"rejected_reason,omitempty" json:"rejected_reason,omitempty"`
	OnHoldReason   string `bson:"on_hold_reason,omitempty" json:"on_hold_reason,omitempty"`
	Notes          string `bson:"notes,omitempty" json:"notes,omitempty"`

	DeletedAt *time.Time          `bson:"deleted_at,omitempty" json:"-"`
	DeletedBy *primitive.ObjectID `bson:"deleted_by,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Deleted reports whether the instance has been soft-deleted
func (p *ProcessInstance) Deleted() bool {
	return p.DeletedAt != nil
}

// StageSummary is the per-stage rollup derived from the instance's tasks.
// Stages live on the tasks only; this is never persisted.
type StageSummary struct {
	Name    string `json:"name"`
	Order   int    `json:"order"`
	Total   int    `json:"total"`
	Done    int    `json:"done"`
	Percent int    `json:"percent"`
}

// ProcessDetail is the full read model: the instance, its ordered tasks and
// the derived stage rollup.
type ProcessDetail struct {
	Instance ProcessInstance `json:"instance"`
	Tasks    []task.Task     `json:"tasks"`
	Stages   []StageSummary  `json:"stages"`
}

// SubmitRequest opens a new instance for an existing property.
type SubmitRequest struct {
	ExternalRef string `json:"external_ref"`
	PropertyID  string `json:"property_id"`
	Notes       string `json:"notes,omitempty"`
}
