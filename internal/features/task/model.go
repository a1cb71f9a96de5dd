package task

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusSkipped    TaskStatus = "skipped"
)

// Done reports whether the status counts towards progress
func (s TaskStatus) Done() bool {
	return s == TaskStatusCompleted || s == TaskStatusSkipped
}

// TaskAction is the kind of work the task asks for
type TaskAction string

const (
	TaskActionUpload      TaskAction = "UPLOAD"
	TaskActionEmail       TaskAction = "EMAIL"
	TaskActionGenerateDoc TaskAction = "GENERATE_DOC"
	TaskActionManual      TaskAction = "MANUAL"
	TaskActionForm        TaskAction = "FORM"
)

type TaskPriority string

const (
	TaskPriorityUrgent TaskPriority = "urgent"
	TaskPriorityNormal TaskPriority = "normal"
	TaskPriorityLow    TaskPriority = "low"
)

// Subtask is a read-only checklist item under a task, kept sorted by order.
type Subtask struct {
	ID          primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Title       string                 `bson:"title" json:"title"`
	IsMandatory bool                   `bson:"is_mandatory" json:"is_mandatory"`
	IsCompleted bool                   `bson:"is_completed" json:"is_completed"`
	CompletedAt *time.Time             `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CompletedBy *primitive.ObjectID    `bson:"completed_by,omitempty" json:"completed_by,omitempty"`
	OrderIndex  int                    `bson:"order_index" json:"order_index"`
	Config      map[string]interface{} `bson:"config,omitempty" json:"config,omitempty"`
}

// Task is one unit of work inside a process instance. The stage is denormalized
// onto the task (name + order), never stored as its own row.
type Task struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProcInstanceID  primitive.ObjectID `bson:"proc_instance_id" json:"proc_instance_id"`
	StageName       string             `bson:"stage_name" json:"stage_name"`
	StageOrderIndex int                `bson:"stage_order_index" json:"stage_order_index"`
	OrderIndex      int                `bson:"order_index" json:"order_index"`
	Title           string             `bson:"title" json:"title"`
	ActionType      TaskAction         `bson:"action_type" json:"action_type"`
	Status          TaskStatus         `bson:"status" json:"status"`
	IsMandatory     bool               `bson:"is_mandatory" json:"is_mandatory"`
	Priority        TaskPriority       `bson:"priority" json:"priority"`
	// DocType is the document type an UPLOAD task requires; the auto-completer
	// matches it against the document registry.
	DocType      string                 `bson:"doc_type,omitempty" json:"doc_type,omitempty"`
	DueDate      *time.Time             `bson:"due_date,omitempty" json:"due_date,omitempty"`
	AssignedTo   *primitive.ObjectID    `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`
	OwnerID      *primitive.ObjectID    `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	StartedAt    *time.Time             `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt  *time.Time             `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	IsBypassed   bool                   `bson:"is_bypassed" json:"is_bypassed"`
	BypassReason string                 `bson:"bypass_reason,omitempty" json:"bypass_reason,omitempty"`
	BypassedBy   *primitive.ObjectID    `bson:"bypassed_by,omitempty" json:"bypassed_by,omitempty"`
	TaskResult   map[string]interface{} `bson:"task_result,omitempty" json:"task_result,omitempty"`
	Subtasks     []Subtask              `bson:"subtasks,omitempty" json:"subtasks,omitempty"`
	CreatedAt    time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time              `bson:"updated_at" json:"updated_at"`
}
