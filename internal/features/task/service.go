package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-propflow/internal/common/apperrors"
	common_models "go-propflow/internal/common/models"
	"go-propflow/internal/features/audit"
	"go-propflow/internal/features/notification"
	"go-propflow/internal/features/role"
	"go-propflow/internal/features/user"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Instance statuses under which task mutation is allowed
const (
	instanceActive = "active"
	instanceOnHold = "on_hold"
)

// InstanceInfo is the slice of the owning process instance the task machine
// needs for its guard.
type InstanceInfo struct {
	ID          primitive.ObjectID
	PropertyID  primitive.ObjectID
	Status      string
	Deleted     bool
	DeletedAt   *time.Time
	DeletedBy   string
	ExternalRef string
}

// InstanceReader resolves the owning instance; implemented by the process
// feature and adapted in main to break the package cycle.
type InstanceReader interface {
	GetInstanceInfo(ctx context.Context, id primitive.ObjectID) (*InstanceInfo, error)
}

// ProgressTrigger re-derives and persists the instance progress after a
// task-level status change.
type ProgressTrigger interface {
	Recalculate(ctx context.Context, instanceID primitive.ObjectID) error
}

type TaskService interface {
	GetTask(ctx context.Context, id string) (*Task, error)
	ListByInstance(ctx context.Context, instanceID string) ([]Task, error)

	Start(ctx context.Context, id string, actor primitive.ObjectID) (*Task, error)
	Complete(ctx context.Context, id string, result map[string]interface{}, actor primitive.ObjectID) (*Task, error)
	Bypass(ctx context.Context, id string, reason string, actor primitive.ObjectID) (*Task, error)
	Reset(ctx context.Context, id string, actor primitive.ObjectID) (*Task, error)
	Assign(ctx context.Context, id string, assignee primitive.ObjectID, actor primitive.ObjectID) (*Task, error)
	UpdatePriority(ctx context.Context, id string, priority TaskPriority, actor primitive.ObjectID) (*Task, error)
	UpdateDueDate(ctx context.Context, id string, dueDate *time.Time, actor primitive.ObjectID) (*Task, error)
}

type TaskServiceImpl struct {
	TaskRepo            TaskRepository
	Instances           InstanceReader
	Progress            ProgressTrigger
	NotificationService notification.NotificationService
	AuditService        audit.AuditService
	RoleRepo            role.RoleRepository
	UserRepo            user.UserRepository
	Log                 *zap.Logger

	now func() time.Time
}

func NewTaskService(
	taskRepo TaskRepository,
	instances InstanceReader,
	progress ProgressTrigger,
	notificationService notification.NotificationService,
	auditService audit.AuditService,
	roleRepo role.RoleRepository,
	userRepo user.UserRepository,
	log *zap.Logger,
) TaskService {
	return &TaskServiceImpl{
		TaskRepo:            taskRepo,
		Instances:           instances,
		Progress:            progress,
		NotificationService: notificationService,
		AuditService:        auditService,
		RoleRepo:            roleRepo,
		UserRepo:            userRepo,
		Log:                 log,
		now:                 time.Now,
	}
}

func (s *TaskServiceImpl) GetTask(ctx context.Context, id string) (*Task, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Validation("invalid task id")
	}
	t, err := s.TaskRepo.FindByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return t, nil
}

func (s *TaskServiceImpl) ListByInstance(ctx context.Context, instanceID string) ([]Task, error) {
	objID, err := primitive.ObjectIDFromHex(instanceID)
	if err != nil {
		return nil, apperrors.Validation("invalid process instance id")
	}
	return s.TaskRepo.ListByInstance(ctx, objID)
}

// loadGuarded fetches the task and enforces the owning-instance guard: the
// instance must exist, not be deleted, and sit in active or on_hold.
func (s *TaskServiceImpl) loadGuarded(ctx context.Context, id string) (*Task, *InstanceInfo, error) {
	t, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	info, err := s.Instances.GetInstanceInfo(ctx, t.ProcInstanceID)
	if err != nil {
		return nil, nil, err
	}
	if info == nil {
		return nil, nil, fmt.Errorf("process instance %s: %w", t.ProcInstanceID.Hex(), apperrors.ErrNotFound)
	}
	if info.Deleted {
		gone := &apperrors.GoneError{DeletedBy: info.DeletedBy, ExternalRef: info.ExternalRef}
		if info.DeletedAt != nil {
			gone.DeletedAt = *info.DeletedAt
		}
		return nil, nil, gone
	}
	if info.Status != instanceActive && info.Status != instanceOnHold {
		return nil, nil, apperrors.StateConflict("process instance", info.Status, "tasks can only be modified while the process is active or on hold")
	}

	return t, info, nil
}

func (s *TaskServiceImpl) Start(ctx context.Context, id string, actor primitive.ObjectID) (*Task, error) {
	t, _, err := s.loadGuarded(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != TaskStatusPending {
		return nil, apperrors.StateConflict("task", string(t.Status), "only pending tasks can be started")
	}

	now := s.now()
	set := bson.M{
		"status":      TaskStatusInProgress,
		"started_at":  now,
		"assigned_to": actor,
		"updated_at":  now,
	}
	if err := s.TaskRepo.Update(ctx, t.ID, set, nil); err != nil {
		return nil, err
	}

	t.Status = TaskStatusInProgress
	t.StartedAt = &now
	t.AssignedTo = &actor

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "tasks", t.ID.Hex(), map[string]common_models.Change{
		"status": {Old: TaskStatusPending, New: TaskStatusInProgress},
	})

	return t, nil
}

func (s *TaskServiceImpl) Complete(ctx context.Context, id string, result map[string]interface{}, actor primitive.ObjectID) (*Task, error) {
	t, info, err := s.loadGuarded(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != TaskStatusPending && t.Status != TaskStatusInProgress {
		return nil, apperrors.StateConflict("task", string(t.Status), "only pending or in-progress tasks can be completed")
	}

	now := s.now()
	set := bson.M{
		"status":       TaskStatusCompleted,
		"completed_at": now,
		"updated_at":   now,
	}
	if len(result) > 0 {
		merged := t.TaskResult
		if merged == nil {
			merged = map[string]interface{}{}
		}
		for k, v := range result {
			merged[k] = v
		}
		set["task_result"] = merged
		t.TaskResult = merged
	}
	if err := s.TaskRepo.Update(ctx, t.ID, set, nil); err != nil {
		return nil, err
	}

	oldStatus := t.Status
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now

	s.recalc(ctx, t.ProcInstanceID)

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "tasks", t.ID.Hex(), map[string]common_models.Change{
		"status": {Old: oldStatus, New: TaskStatusCompleted},
	})

	s.notifyProcessManagers(ctx, t, info, actor)

	return t, nil
}

func (s *TaskServiceImpl) Bypass(ctx context.Context, id string, reason string, actor primitive.ObjectID) (*Task, error) {
	if len(strings.TrimSpace(reason)) < 10 {
		return nil, apperrors.Validation("bypass reason must be at least 10 characters")
	}

	t, _, err := s.loadGuarded(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == TaskStatusCompleted {
		return nil, apperrors.StateConflict("task", string(t.Status), "completed tasks cannot be bypassed")
	}
	if t.IsMandatory {
		return nil, apperrors.Validation("mandatory tasks cannot be bypassed")
	}

	now := s.now()
	set := bson.M{
		"status":        TaskStatusSkipped,
		"is_bypassed":   true,
		"bypass_reason": reason,
		"bypassed_by":   actor,
		"completed_at":  now,
		"updated_at":    now,
	}
	if err := s.TaskRepo.Update(ctx, t.ID, set, nil); err != nil {
		return nil, err
	}

	oldStatus := t.Status
	t.Status = TaskStatusSkipped
	t.IsBypassed = true
	t.BypassReason = reason
	t.BypassedBy = &actor
	t.CompletedAt = &now

	s.recalc(ctx, t.ProcInstanceID)

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionBypass, "tasks", t.ID.Hex(), map[string]common_models.Change{
		"status":        {Old: oldStatus, New: TaskStatusSkipped},
		"bypass_reason": {Old: nil, New: reason},
	})

	return t, nil
}

func (s *TaskServiceImpl) Reset(ctx context.Context, id string, actor primitive.ObjectID) (*Task, error) {
	t, _, err := s.loadGuarded(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != TaskStatusSkipped {
		return nil, apperrors.StateConflict("task", string(t.Status), "only skipped tasks can be reset")
	}

	set := bson.M{
		"status":      TaskStatusPending,
		"is_bypassed": false,
		"updated_at":  s.now(),
	}
	unset := bson.M{
		"bypass_reason": "",
		"bypassed_by":   "",
		"completed_at":  "",
		"assigned_to":   "",
		"started_at":    "",
	}
	if err := s.TaskRepo.Update(ctx, t.ID, set, unset); err != nil {
		return nil, err
	}

	t.Status = TaskStatusPending
	t.IsBypassed = false
	t.BypassReason = ""
	t.BypassedBy = nil
	t.CompletedAt = nil
	t.AssignedTo = nil
	t.StartedAt = nil

	s.recalc(ctx, t.ProcInstanceID)

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionReset, "tasks", t.ID.Hex(), map[string]common_models.Change{
		"status": {Old: TaskStatusSkipped, New: TaskStatusPending},
	})

	return t, nil
}

func (s *TaskServiceImpl) Assign(ctx context.Context, id string, assignee primitive.ObjectID, actor primitive.ObjectID) (*Task, error) {
	if assignee.IsZero() {
		return nil, apperrors.Validation("assignee is required")
	}

	t, _, err := s.loadGuarded(ctx, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"assigned_to": assignee,
		"updated_at":  s.now(),
	}
	if err := s.TaskRepo.Update(ctx, t.ID, set, nil); err != nil {
		return nil, err
	}

	var oldAssignee interface{}
	if t.AssignedTo != nil {
		oldAssignee = t.AssignedTo.Hex()
	}
	t.AssignedTo = &assignee

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "tasks", t.ID.Hex(), map[string]common_models.Change{
		"assigned_to": {Old: oldAssignee, New: assignee.Hex()},
	})

	if assignee != actor {
		if err := s.NotificationService.CreateNotification(ctx, assignee,
			"Task Assigned",
			fmt.Sprintf("You have been assigned the task %q", t.Title),
			notification.NotificationTypeAssignment,
			fmt.Sprintf("/processes/%s/tasks/%s", t.ProcInstanceID.Hex(), t.ID.Hex()),
			map[string]interface{}{"proc_instance_id": t.ProcInstanceID.Hex()},
		); err != nil {
			s.Log.Warn("assignment notification failed", zap.Error(err), zap.String("task", t.ID.Hex()))
		}
	}

	return t, nil
}

func (s *TaskServiceImpl) UpdatePriority(ctx context.Context, id string, priority TaskPriority, actor primitive.ObjectID) (*Task, error) {
	switch priority {
	case TaskPriorityUrgent, TaskPriorityNormal, TaskPriorityLow:
	default:
		return nil, apperrors.Validation("invalid priority %q", priority)
	}

	t, _, err := s.loadGuarded(ctx, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"priority": priority, "updated_at": s.now()}
	if err := s.TaskRepo.Update(ctx, t.ID, set, nil); err != nil {
		return nil, err
	}

	old := t.Priority
	t.Priority = priority

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "tasks", t.ID.Hex(), map[string]common_models.Change{
		"priority": {Old: old, New: priority},
	})

	s.notifyAssigneeOfChange(ctx, t, actor, fmt.Sprintf("Priority of %q changed to %s", t.Title, priority))

	return t, nil
}

func (s *TaskServiceImpl) UpdateDueDate(ctx context.Context, id string, dueDate *time.Time, actor primitive.ObjectID) (*Task, error) {
	t, _, err := s.loadGuarded(ctx, id)
	if err != nil {
		return nil, err
	}

	var set, unset bson.M
	if dueDate != nil {
		set = bson.M{"due_date": *dueDate, "updated_at": s.now()}
	} else {
		set = bson.M{"updated_at": s.now()}
		unset = bson.M{"due_date": ""}
	}
	if err := s.TaskRepo.Update(ctx, t.ID, set, unset); err != nil {
		return nil, err
	}

	var old interface{}
	if t.DueDate != nil {
		old = *t.DueDate
	}
	t.DueDate = dueDate

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionUpdate, "tasks", t.ID.Hex(), map[string]common_models.Change{
		"due_date": {Old: old, New: dueDate},
	})

	s.notifyAssigneeOfChange(ctx, t, actor, fmt.Sprintf("Due date of %q was updated", t.Title))

	return t, nil
}

// recalc re-derives the instance percentage; a failure is logged and never
// fails the task transition that triggered it.
func (s *TaskServiceImpl) recalc(ctx context.Context, instanceID primitive.ObjectID) {
	if err := s.Progress.Recalculate(ctx, instanceID); err != nil {
		s.Log.Error("progress recalculation failed", zap.Error(err), zap.String("instance", instanceID.Hex()))
	}
}

func (s *TaskServiceImpl) notifyAssigneeOfChange(ctx context.Context, t *Task, actor primitive.ObjectID, message string) {
	if t.AssignedTo == nil || *t.AssignedTo == actor {
		return
	}
	if err := s.NotificationService.CreateNotification(ctx, *t.AssignedTo,
		"Task Updated", message, notification.NotificationTypeTask,
		fmt.Sprintf("/processes/%s/tasks/%s", t.ProcInstanceID.Hex(), t.ID.Hex()),
		map[string]interface{}{"proc_instance_id": t.ProcInstanceID.Hex()},
	); err != nil {
		s.Log.Warn("task update notification failed", zap.Error(err), zap.String("task", t.ID.Hex()))
	}
}

func (s *TaskServiceImpl) notifyProcessManagers(ctx context.Context, t *Task, info *InstanceInfo, actor primitive.ObjectID) {
	managers, err := s.RoleRepo.FindByName(ctx, role.NameProcessManager)
	if err != nil || managers == nil {
		if err != nil {
			s.Log.Warn("process manager role lookup failed", zap.Error(err))
		}
		return
	}

	users, err := s.UserRepo.FindByRole(ctx, managers.ID)
	if err != nil {
		s.Log.Warn("process manager lookup failed", zap.Error(err))
		return
	}

	recipients := make([]primitive.ObjectID, 0, len(users))
	for _, u := range users {
		if u.ID != actor {
			recipients = append(recipients, u.ID)
		}
	}
	if len(recipients) == 0 {
		return
	}

	if err := s.NotificationService.CreateBatch(ctx, recipients,
		"Task Completed",
		fmt.Sprintf("Task %q was completed", t.Title),
		notification.NotificationTypeTask,
		fmt.Sprintf("/processes/%s", t.ProcInstanceID.Hex()),
		map[string]interface{}{
			"proc_instance_id": t.ProcInstanceID.Hex(),
			"external_ref":     info.ExternalRef,
		},
	); err != nil {
		s.Log.Warn("completion notification failed", zap.Error(err), zap.String("task", t.ID.Hex()))
	}
}
