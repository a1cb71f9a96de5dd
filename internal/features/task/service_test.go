package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-propflow/internal/common/apperrors"
	common_models "go-propflow/internal/common/models"
	"go-propflow/internal/features/notification"
	"go-propflow/internal/features/role"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memTaskRepo struct {
	tasks map[primitive.ObjectID]*Task
}

func (r *memTaskRepo) BulkCreate(ctx context.Context, tasks []Task) error {
	for i := range tasks {
		cp := tasks[i]
		r.tasks[cp.ID] = &cp
	}
	return nil
}

func (r *memTaskRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*Task, error) {
	t, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *memTaskRepo) ListByInstance(ctx context.Context, instanceID primitive.ObjectID) ([]Task, error) {
	var out []Task
	for _, t := range r.tasks {
		if t.ProcInstanceID == instanceID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memTaskRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset bson.M) error {
	t, ok := r.tasks[id]
	if !ok {
		return nil
	}
	for k, v := range set {
		switch k {
		case "status":
			t.Status = v.(TaskStatus)
		case "started_at":
			at := v.(time.Time)
			t.StartedAt = &at
		case "completed_at":
			at := v.(time.Time)
			t.CompletedAt = &at
		case "assigned_to":
			u := v.(primitive.ObjectID)
			t.AssignedTo = &u
		case "task_result":
			t.TaskResult = v.(map[string]interface{})
		case "is_bypassed":
			t.IsBypassed = v.(bool)
		case "bypass_reason":
			t.BypassReason = v.(string)
		case "bypassed_by":
			u := v.(primitive.ObjectID)
			t.BypassedBy = &u
		case "priority":
			t.Priority = v.(TaskPriority)
		case "due_date":
			at := v.(time.Time)
			t.DueDate = &at
		case "updated_at":
			t.UpdatedAt = v.(time.Time)
		}
	}
	for k := range unset {
		switch k {
		case "bypass_reason":
			t.BypassReason = ""
		case "bypassed_by":
			t.BypassedBy = nil
		case "completed_at":
			t.CompletedAt = nil
		case "assigned_to":
			t.AssignedTo = nil
		case "started_at":
			t.StartedAt = nil
		case "due_date":
			t.DueDate = nil
		}
	}
	return nil
}

func (r *memTaskRepo) DeleteByInstance(ctx context.Context, instanceID primitive.ObjectID) error {
	for id, t := range r.tasks {
		if t.ProcInstanceID == instanceID {
			delete(r.tasks, id)
		}
	}
	return nil
}

type stubInstances struct {
	info *InstanceInfo
}

func (s *stubInstances) GetInstanceInfo(ctx context.Context, id primitive.ObjectID) (*InstanceInfo, error) {
	return s.info, nil
}

type countingProgress struct {
	calls int
}

func (p *countingProgress) Recalculate(ctx context.Context, instanceID primitive.ObjectID) error {
	p.calls++
	return nil
}

type silentNotifier struct {
	sent int
}

func (n *silentNotifier) CreateNotification(ctx context.Context, userID primitive.ObjectID, title, message string, notifType notification.NotificationType, link string, metadata map[string]interface{}) error {
	n.sent++
	return nil
}

func (n *silentNotifier) CreateBatch(ctx context.Context, userIDs []primitive.ObjectID, title, message string, notifType notification.NotificationType, link string, metadata map[string]interface{}) error {
	n.sent += len(userIDs)
	return nil
}

func (n *silentNotifier) GetUserNotifications(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]notification.Notification, int64, error) {
	return nil, 0, nil
}

func (n *silentNotifier) GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return 0, nil
}

func (n *silentNotifier) MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) error {
	return nil
}

func (n *silentNotifier) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error {
	return nil
}

type noopAudit struct{}

func (noopAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (noopAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

type emptyRoleRepo struct{}

func (emptyRoleRepo) Create(ctx context.Context, r *role.Role) error { return nil }
func (emptyRoleRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*role.Role, error) {
	return nil, nil
}
func (emptyRoleRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]role.Role, error) {
	return nil, nil
}
func (emptyRoleRepo) FindByName(ctx context.Context, name string) (*role.Role, error) {
	return nil, nil
}
func (emptyRoleRepo) List(ctx context.Context) ([]role.Role, error) { return nil, nil }

type emptyUserRepo struct{}

func (emptyUserRepo) Create(ctx context.Context, u *common_models.User) error { return nil }
func (emptyUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*common_models.User, error) {
	return nil, nil
}
func (emptyUserRepo) FindByIDs(ctx context.Context, ids []string) ([]common_models.User, error) {
	return nil, nil
}
func (emptyUserRepo) FindByUsername(ctx context.Context, username string) (*common_models.User, error) {
	return nil, nil
}
func (emptyUserRepo) FindByRole(ctx context.Context, roleID primitive.ObjectID) ([]common_models.User, error) {
	return nil, nil
}

type taskEnv struct {
	svc       *TaskServiceImpl
	repo      *memTaskRepo
	instances *stubInstances
	progress  *countingProgress
	notifier  *silentNotifier
	now       time.Time
}

func newTaskEnv(instanceStatus string) *taskEnv {
	env := &taskEnv{
		repo: &memTaskRepo{tasks: map[primitive.ObjectID]*Task{}},
		instances: &stubInstances{info: &InstanceInfo{
			ID:          primitive.NewObjectID(),
			PropertyID:  primitive.NewObjectID(),
			Status:      instanceStatus,
			ExternalRef: "ACQ-1",
		}},
		progress: &countingProgress{},
		notifier: &silentNotifier{},
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	env.svc = &TaskServiceImpl{
		TaskRepo:            env.repo,
		Instances:           env.instances,
		Progress:            env.progress,
		NotificationService: env.notifier,
		AuditService:        noopAudit{},
		RoleRepo:            emptyRoleRepo{},
		UserRepo:            emptyUserRepo{},
		Log:                 zap.NewNop(),
		now:                 func() time.Time { return env.now },
	}
	return env
}

func (env *taskEnv) seedTask(status TaskStatus, mandatory bool) *Task {
	t := &Task{
		ID:             primitive.NewObjectID(),
		ProcInstanceID: env.instances.info.ID,
		Title:          "Verify registry extract",
		ActionType:     TaskActionManual,
		Status:         status,
		IsMandatory:    mandatory,
		Priority:       TaskPriorityNormal,
	}
	env.repo.tasks[t.ID] = t
	return t
}

func TestStartPendingTask(t *testing.T) {
	env := newTaskEnv(instanceActive)
	seeded := env.seedTask(TaskStatusPending, false)
	actor := primitive.NewObjectID()

	started, err := env.svc.Start(context.Background(), seeded.ID.Hex(), actor)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if started.Status != TaskStatusInProgress {
		t.Errorf("Expected in_progress, got %s", started.Status)
	}
	if started.AssignedTo == nil || *started.AssignedTo != actor {
		t.Error("Expected task assigned to the actor who started it")
	}
	if started.StartedAt == nil || !started.StartedAt.Equal(env.now) {
		t.Error("Expected start timestamp stamped")
	}
}

func TestStartRejectsNonPending(t *testing.T) {
	env := newTaskEnv(instanceActive)
	seeded := env.seedTask(TaskStatusCompleted, false)

	_, err := env.svc.Start(context.Background(), seeded.ID.Hex(), primitive.NewObjectID())

	var conflict *apperrors.StateConflictError
	if !errors.As(err, &conflict) {
		t.Errorf("Expected state conflict, got %v", err)
	}
}

func TestCompleteTriggersRecalc(t *testing.T) {
	env := newTaskEnv(instanceActive)
	seeded := env.seedTask(TaskStatusInProgress, true)

	done, err := env.svc.Complete(context.Background(), seeded.ID.Hex(), map[string]interface{}{"valuation": 4200000}, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if done.Status != TaskStatusCompleted {
		t.Errorf("Expected completed, got %s", done.Status)
	}
	if done.TaskResult["valuation"] != 4200000 {
		t.Error("Expected task result merged")
	}
	if env.progress.calls != 1 {
		t.Errorf("Expected one recalculation, got %d", env.progress.calls)
	}
}

func TestCompleteRejectsSkippedTask(t *testing.T) {
	env := newTaskEnv(instanceActive)
	seeded := env.seedTask(TaskStatusSkipped, false)

	_, err := env.svc.Complete(context.Background(), seeded.ID.Hex(), nil, primitive.NewObjectID())

	var conflict *apperrors.StateConflictError
	if !errors.As(err, &conflict) {
		t.Errorf("Expected state conflict, got %v", err)
	}
	if env.progress.calls != 0 {
		t.Error("Recalculation must not run on a failed completion")
	}
}

func TestBypassRequiresSubstantialReason(t *testing.T) {
	env := newTaskEnv(instanceActive)
	seeded := env.seedTask(TaskStatusPending, false)

	_, err := env.svc.Bypass(context.Background(), seeded.ID.Hex(), "短い", primitive.NewObjectID())

	var validation *apperrors.ValidationError
	if !errors.As(err, &validation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestBypassRejectsMandatoryTask(t *testing.T) {
	env := newTaskEnv(instanceActive)
	seeded := env.seedTask(TaskStatusPending, true)

	_, err := env.svc.Bypass(context.Background(), seeded.ID.Hex(), "owner is deceased, awaiting probate", primitive.NewObjectID())

	var validation *apperrors.ValidationError
	if !errors.As(err, &validation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestBypassSkipsOptionalTask(t *testing.T) {
	env := newTaskEnv(instanceActive)
	seeded := env.seedTask(TaskStatusPending, false)
	actor := primitive.NewObjectID()

	skipped, err := env.svc.Bypass(context.Background(), seeded.ID.Hex(), "owner is deceased, awaiting probate", actor)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if skipped.Status != TaskStatusSkipped || !skipped.IsBypassed {
		t.Errorf("Expected bypassed skipped task, got %s", skipped.Status)
	}
	if skipped.BypassedBy == nil || *skipped.BypassedBy != actor {
		t.Error("Expected bypass provenance recorded")
	}
	if env.progress.calls != 1 {
		t.Errorf("Expected one recalculation, got %d", env.progress.calls)
	}
}

func TestResetOnlyFromSkipped(t *testing.T) {
	env := newTaskEnv(instanceActive)
	actor := primitive.NewObjectID()

	skipped := env.seedTask(TaskStatusSkipped, false)
	skipped.IsBypassed = true
	skipped.BypassReason = "owner is deceased, awaiting probate"
	skipped.BypassedBy = &actor
	at := env.now.Add(-time.Hour)
	skipped.CompletedAt = &at

	reset, err := env.svc.Reset(context.Background(), skipped.ID.Hex(), actor)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if reset.Status != TaskStatusPending || reset.IsBypassed {
		t.Errorf("Expected pristine pending task, got %s", reset.Status)
	}
	if reset.BypassReason != "" || reset.BypassedBy != nil || reset.CompletedAt != nil {
		t.Error("Expected bypass provenance cleared on reset")
	}

	pending := env.seedTask(TaskStatusPending, false)
	_, err = env.svc.Reset(context.Background(), pending.ID.Hex(), actor)
	var conflict *apperrors.StateConflictError
	if !errors.As(err, &conflict) {
		t.Errorf("Expected state conflict, got %v", err)
	}
}

func TestMutationsAllowedWhileInstanceOnHold(t *testing.T) {
	env := newTaskEnv(instanceOnHold)
	seeded := env.seedTask(TaskStatusPending, false)

	if _, err := env.svc.Start(context.Background(), seeded.ID.Hex(), primitive.NewObjectID()); err != nil {
		t.Errorf("Expected start allowed on held instance, got %v", err)
	}
}

func TestMutationsRejectedOnTerminalInstance(t *testing.T) {
	env := newTaskEnv("cancelled")
	seeded := env.seedTask(TaskStatusPending, false)

	_, err := env.svc.Start(context.Background(), seeded.ID.Hex(), primitive.NewObjectID())

	var conflict *apperrors.StateConflictError
	if !errors.As(err, &conflict) {
		t.Errorf("Expected state conflict, got %v", err)
	}
}

func TestMutationsRejectedOnDeletedInstance(t *testing.T) {
	env := newTaskEnv(instanceActive)
	env.instances.info.Deleted = true
	at := env.now.Add(-time.Hour)
	env.instances.info.DeletedAt = &at
	env.instances.info.DeletedBy = primitive.NewObjectID().Hex()
	seeded := env.seedTask(TaskStatusPending, false)

	_, err := env.svc.Start(context.Background(), seeded.ID.Hex(), primitive.NewObjectID())
	if !apperrors.IsGone(err) {
		t.Errorf("Expected gone, got %v", err)
	}
}

func TestAssignNotifiesAssignee(t *testing.T) {
	env := newTaskEnv(instanceActive)
	seeded := env.seedTask(TaskStatusPending, false)
	actor := primitive.NewObjectID()
	assignee := primitive.NewObjectID()

	assigned, err := env.svc.Assign(context.Background(), seeded.ID.Hex(), assignee, actor)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if assigned.AssignedTo == nil || *assigned.AssignedTo != assignee {
		t.Error("Expected assignee recorded")
	}
	if env.notifier.sent != 1 {
		t.Errorf("Expected one notification, got %d", env.notifier.sent)
	}

	// Self-assignment stays silent.
	if _, err := env.svc.Assign(context.Background(), seeded.ID.Hex(), actor, actor); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if env.notifier.sent != 1 {
		t.Errorf("Expected no notification on self-assign, got %d", env.notifier.sent)
	}
}

func TestUpdatePriorityValidatesValue(t *testing.T) {
	env := newTaskEnv(instanceActive)
	seeded := env.seedTask(TaskStatusPending, false)

	_, err := env.svc.UpdatePriority(context.Background(), seeded.ID.Hex(), "critical", primitive.NewObjectID())

	var validation *apperrors.ValidationError
	if !errors.As(err, &validation) {
		t.Errorf("Expected validation error, got %v", err)
	}

	updated, err := env.svc.UpdatePriority(context.Background(), seeded.ID.Hex(), TaskPriorityUrgent, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if updated.Priority != TaskPriorityUrgent {
		t.Errorf("Expected urgent, got %s", updated.Priority)
	}
}

func TestUpdateDueDateClears(t *testing.T) {
	env := newTaskEnv(instanceActive)
	seeded := env.seedTask(TaskStatusPending, false)
	due := env.now.AddDate(0, 0, 7)
	seeded.DueDate = &due

	updated, err := env.svc.UpdateDueDate(context.Background(), seeded.ID.Hex(), nil, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if updated.DueDate != nil {
		t.Error("Expected due date cleared")
	}

	stored, _ := env.repo.FindByID(context.Background(), seeded.ID)
	if stored.DueDate != nil {
		t.Error("Expected due date cleared in store")
	}
}
