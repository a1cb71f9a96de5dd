package template

import (
	"time"
)

// SubtaskDef is a checklist item in the template definition
type SubtaskDef struct {
	Title       string                 `bson:"title" json:"title"`
	IsMandatory bool                   `bson:"is_mandatory" json:"is_mandatory"`
	OrderIndex  int                    `bson:"order_index" json:"order_index"`
	Config      map[string]interface{} `bson:"config,omitempty" json:"config,omitempty"`
}

// TaskDef describes one task row the populator will materialize
type TaskDef struct {
	Title       string `bson:"title" json:"title"`
	ActionType  string `bson:"action_type" json:"action_type"`
	IsMandatory bool   `bson:"is_mandatory" json:"is_mandatory"`
	Priority    string `bson:"priority,omitempty" json:"priority,omitempty"`
	DocType     string `bson:"doc_type,omitempty" json:"doc_type,omitempty"`
	// OwnerScoped tasks are created once per property owner
	OwnerScoped bool         `bson:"owner_scoped,omitempty" json:"owner_scoped,omitempty"`
	DueInDays   int          `bson:"due_in_days,omitempty" json:"due_in_days,omitempty"`
	Subtasks    []SubtaskDef `bson:"subtasks,omitempty" json:"subtasks,omitempty"`
}

// StageDef is a named, ordered group of task definitions
type StageDef struct {
	Name  string    `bson:"name" json:"name"`
	Order int       `bson:"order" json:"order"`
	Tasks []TaskDef `bson:"tasks" json:"tasks"`
}

// Template is an externally authored process definition. The engine only
// consumes it; the authoring format lives elsewhere.
type Template struct {
	ID        string     `bson:"_id" json:"id"` // UUID assigned by the authoring system
	Name      string     `bson:"name" json:"name"`
	Active    bool       `bson:"active" json:"active"`
	Stages    []StageDef `bson:"stages" json:"stages"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}
