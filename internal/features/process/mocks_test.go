package process

import (
	"context"
	"fmt"
	"time"

	common_models "go-propflow/internal/common/models"
	"go-propflow/internal/features/document"
	"go-propflow/internal/features/notification"
	"go-propflow/internal/features/property"
	"go-propflow/internal/features/role"
	"go-propflow/internal/features/task"
	"go-propflow/internal/features/template"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeProcessRepo mirrors the conditional-update semantics of the Mongo
// repository so transition races behave the same under test.
type fakeProcessRepo struct {
	instances map[primitive.ObjectID]*ProcessInstance
}

func newFakeProcessRepo() *fakeProcessRepo {
	return &fakeProcessRepo{instances: map[primitive.ObjectID]*ProcessInstance{}}
}

func (r *fakeProcessRepo) Create(ctx context.Context, p *ProcessInstance) error {
	cp := *p
	r.instances[p.ID] = &cp
	return nil
}

func (r *fakeProcessRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*ProcessInstance, error) {
	p, ok := r.instances[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProcessRepo) List(ctx context.Context, filter bson.M, page, limit int64) ([]ProcessInstance, int64, error) {
	var out []ProcessInstance
	for _, p := range r.instances {
		if p.DeletedAt != nil {
			continue
		}
		if status, ok := filter["current_status"]; ok && string(p.CurrentStatus) != status {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *fakeProcessRepo) TransitionStatus(ctx context.Context, id primitive.ObjectID, from []ProcessStatus, set bson.M, unset bson.M) (*ProcessInstance, error) {
	p, ok := r.instances[id]
	if !ok || p.DeletedAt != nil {
		return nil, nil
	}
	legal := false
	for _, f := range from {
		if p.CurrentStatus == f {
			legal = true
			break
		}
	}
	if !legal {
		return nil, nil
	}

	for k, v := range set {
		switch k {
		case "current_status":
			p.CurrentStatus = v.(ProcessStatus)
		case "tpl_process_id":
			p.TplProcessID = v.(string)
		case "template_name":
			p.TemplateName = v.(string)
		case "approved_by":
			id := v.(primitive.ObjectID)
			p.ApprovedBy = &id
		case "approved_at":
			t := v.(time.Time)
			p.ApprovedAt = &t
		case "started_at":
			t := v.(time.Time)
			p.StartedAt = &t
		case "completed_at":
			t := v.(time.Time)
			p.CompletedAt = &t
		case "percent_complete":
			p.PercentComplete = v.(int)
		case "returned_reason":
			p.ReturnedReason = v.(string)
		case "rejected_reason":
			p.RejectedReason = v.(string)
		case "on_hold_reason":
			p.OnHoldReason = v.(string)
		case "notes":
			p.Notes = v.(string)
		case "updated_at":
			p.UpdatedAt = v.(time.Time)
		default:
			return nil, fmt.Errorf("fakeProcessRepo: unhandled set key %q", k)
		}
	}
	for k := range unset {
		switch k {
		case "returned_reason":
			p.ReturnedReason = ""
		case "on_hold_reason":
			p.OnHoldReason = ""
		default:
			return nil, fmt.Errorf("fakeProcessRepo: unhandled unset key %q", k)
		}
	}

	cp := *p
	return &cp, nil
}

func (r *fakeProcessRepo) SetPercent(ctx context.Context, id primitive.ObjectID, percent int) error {
	p, ok := r.instances[id]
	if !ok || p.DeletedAt != nil {
		return nil
	}
	p.PercentComplete = percent
	return nil
}

func (r *fakeProcessRepo) SoftDelete(ctx context.Context, id primitive.ObjectID, deletedBy primitive.ObjectID, at time.Time) (bool, error) {
	p, ok := r.instances[id]
	if !ok || p.DeletedAt != nil {
		return false, nil
	}
	p.DeletedAt = &at
	p.DeletedBy = &deletedBy
	return true, nil
}

type fakeTaskRepo struct {
	tasks map[primitive.ObjectID][]task.Task
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: map[primitive.ObjectID][]task.Task{}}
}

func (r *fakeTaskRepo) BulkCreate(ctx context.Context, ts []task.Task) error {
	for _, t := range ts {
		r.tasks[t.ProcInstanceID] = append(r.tasks[t.ProcInstanceID], t)
	}
	return nil
}

func (r *fakeTaskRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*task.Task, error) {
	for _, ts := range r.tasks {
		for i := range ts {
			if ts[i].ID == id {
				cp := ts[i]
				return &cp, nil
			}
		}
	}
	return nil, nil
}

func (r *fakeTaskRepo) ListByInstance(ctx context.Context, instanceID primitive.ObjectID) ([]task.Task, error) {
	return append([]task.Task(nil), r.tasks[instanceID]...), nil
}

func (r *fakeTaskRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset bson.M) error {
	for instanceID, ts := range r.tasks {
		for i := range ts {
			if ts[i].ID != id {
				continue
			}
			t := &r.tasks[instanceID][i]
			if v, ok := set["status"]; ok {
				t.Status = v.(task.TaskStatus)
			}
			if v, ok := set["completed_at"]; ok {
				at := v.(time.Time)
				t.CompletedAt = &at
			}
			if v, ok := set["task_result"]; ok {
				t.TaskResult = v.(map[string]interface{})
			}
			return nil
		}
	}
	return nil
}

func (r *fakeTaskRepo) DeleteByInstance(ctx context.Context, instanceID primitive.ObjectID) error {
	delete(r.tasks, instanceID)
	return nil
}

type fakeTemplateRepo struct {
	templates map[string]*template.Template
}

func (r *fakeTemplateRepo) FindByID(ctx context.Context, id string) (*template.Template, error) {
	return r.templates[id], nil
}

func (r *fakeTemplateRepo) ListActive(ctx context.Context) ([]template.Template, error) {
	var out []template.Template
	for _, tpl := range r.templates {
		if tpl.Active {
			out = append(out, *tpl)
		}
	}
	return out, nil
}

func (r *fakeTemplateRepo) Upsert(ctx context.Context, tpl *template.Template) error {
	r.templates[tpl.ID] = tpl
	return nil
}

// fakePopulator creates a fixed number of pending tasks on Populate.
type fakePopulator struct {
	taskRepo   *fakeTaskRepo
	taskCount  int
	calls      int
	failureErr error
}

func (p *fakePopulator) Populate(ctx context.Context, instanceID, propertyID primitive.ObjectID, templateID string) error {
	p.calls++
	if p.failureErr != nil {
		return p.failureErr
	}
	var ts []task.Task
	for i := 0; i < p.taskCount; i++ {
		ts = append(ts, task.Task{
			ID:             primitive.NewObjectID(),
			ProcInstanceID: instanceID,
			StageName:      "Preparation",
			OrderIndex:     i,
			Title:          fmt.Sprintf("Task %d", i+1),
			ActionType:     task.TaskActionManual,
			Status:         task.TaskStatusPending,
		})
	}
	return p.taskRepo.BulkCreate(ctx, ts)
}

type registryKey struct {
	propertyID string
	docType    string
	ownerID    string
}

type fakeRegistry struct {
	docs map[registryKey]*document.Document
	err  error
}

func (r *fakeRegistry) FindActive(ctx context.Context, propertyID, docType, ownerID string) (*document.Document, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.docs[registryKey{propertyID, docType, ownerID}], nil
}

type fakePropertyRepo struct {
	properties  map[primitive.ObjectID]*property.Property
	transitions []string
}

func (r *fakePropertyRepo) Create(ctx context.Context, p *property.Property) error {
	r.properties[p.ID] = p
	return nil
}

func (r *fakePropertyRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*property.Property, error) {
	return r.properties[id], nil
}

func (r *fakePropertyRepo) List(ctx context.Context) ([]property.Property, error) {
	var out []property.Property
	for _, p := range r.properties {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakePropertyRepo) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to property.PropertyStatus) (bool, error) {
	p, ok := r.properties[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	r.transitions = append(r.transitions, fmt.Sprintf("%s->%s", from, to))
	return true, nil
}

func (r *fakePropertyRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status property.PropertyStatus) error {
	if p, ok := r.properties[id]; ok {
		p.Status = status
	}
	return nil
}

type sentNotification struct {
	UserID  primitive.ObjectID
	Title   string
	Message string
}

type fakeNotifier struct {
	sent []sentNotification
}

func (n *fakeNotifier) CreateNotification(ctx context.Context, userID primitive.ObjectID, title, message string, notifType notification.NotificationType, link string, metadata map[string]interface{}) error {
	n.sent = append(n.sent, sentNotification{UserID: userID, Title: title, Message: message})
	return nil
}

func (n *fakeNotifier) CreateBatch(ctx context.Context, userIDs []primitive.ObjectID, title, message string, notifType notification.NotificationType, link string, metadata map[string]interface{}) error {
	for _, id := range userIDs {
		n.sent = append(n.sent, sentNotification{UserID: id, Title: title, Message: message})
	}
	return nil
}

func (n *fakeNotifier) GetUserNotifications(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]notification.Notification, int64, error) {
	return nil, 0, nil
}

func (n *fakeNotifier) GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return 0, nil
}

func (n *fakeNotifier) MarkAsRead(ctx context.Context, id string, userID primitive.ObjectID) error {
	return nil
}

func (n *fakeNotifier) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error {
	return nil
}

type fakeAudit struct {
	actions []common_models.AuditAction
}

func (a *fakeAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	a.actions = append(a.actions, action)
	return nil
}

func (a *fakeAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

type fakeRoleRepo struct {
	roles map[string]*role.Role
}

func (r *fakeRoleRepo) Create(ctx context.Context, role *role.Role) error { return nil }

func (r *fakeRoleRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*role.Role, error) {
	return nil, nil
}

func (r *fakeRoleRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]role.Role, error) {
	return nil, nil
}

func (r *fakeRoleRepo) FindByName(ctx context.Context, name string) (*role.Role, error) {
	return r.roles[name], nil
}

func (r *fakeRoleRepo) List(ctx context.Context) ([]role.Role, error) { return nil, nil }

type fakeUserRepo struct {
	byRole map[primitive.ObjectID][]common_models.User
}

func (r *fakeUserRepo) Create(ctx context.Context, user *common_models.User) error { return nil }

func (r *fakeUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*common_models.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) FindByIDs(ctx context.Context, ids []string) ([]common_models.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*common_models.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) FindByRole(ctx context.Context, roleID primitive.ObjectID) ([]common_models.User, error) {
	return r.byRole[roleID], nil
}

// testEnv bundles the fakes behind a ready-to-use service.
type testEnv struct {
	svc          *ProcessServiceImpl
	processRepo  *fakeProcessRepo
	taskRepo     *fakeTaskRepo
	templateRepo *fakeTemplateRepo
	populator    *fakePopulator
	registry     *fakeRegistry
	propertyRepo *fakePropertyRepo
	notifier     *fakeNotifier
	audit        *fakeAudit
	now          time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		processRepo:  newFakeProcessRepo(),
		taskRepo:     newFakeTaskRepo(),
		templateRepo: &fakeTemplateRepo{templates: map[string]*template.Template{}},
		registry:     &fakeRegistry{docs: map[registryKey]*document.Document{}},
		propertyRepo: &fakePropertyRepo{properties: map[primitive.ObjectID]*property.Property{}},
		notifier:     &fakeNotifier{},
		audit:        &fakeAudit{},
		now:          time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	env.populator = &fakePopulator{taskRepo: env.taskRepo, taskCount: 4}
	env.svc = &ProcessServiceImpl{
		ProcessRepo:         env.processRepo,
		TaskRepo:            env.taskRepo,
		TemplateRepo:        env.templateRepo,
		Populator:           env.populator,
		Documents:           env.registry,
		PropertyRepo:        env.propertyRepo,
		NotificationService: env.notifier,
		AuditService:        env.audit,
		RoleRepo:            &fakeRoleRepo{roles: map[string]*role.Role{}},
		UserRepo:            &fakeUserRepo{byRole: map[primitive.ObjectID][]common_models.User{}},
		Log:                 zap.NewNop(),
		now:                 func() time.Time { return env.now },
	}
	return env
}

func (env *testEnv) seedProperty() *property.Property {
	p := &property.Property{
		ID:        primitive.NewObjectID(),
		Reference: "GNR-1-BNR-1",
		Address:   "Testveien 1",
		Status:    property.PropertyStatusPendingApproval,
	}
	env.propertyRepo.properties[p.ID] = p
	return p
}

func (env *testEnv) seedInstance(status ProcessStatus, propertyID primitive.ObjectID) *ProcessInstance {
	p := &ProcessInstance{
		ID:            primitive.NewObjectID(),
		ExternalRef:   "ACQ-1",
		PropertyID:    propertyID,
		CurrentStatus: status,
		RequestedBy:   primitive.NewObjectID(),
		CreatedAt:     env.now,
		UpdatedAt:     env.now,
	}
	env.processRepo.instances[p.ID] = p
	return p
}

func (env *testEnv) seedTemplate(active bool) *template.Template {
	tpl := &template.Template{
		ID:     "5f0c2d9e-1a2b-4c3d-8e4f-5a6b7c8d9e0f",
		Name:   "Standard Acquisition",
		Active: active,
	}
	env.templateRepo.templates[tpl.ID] = tpl
	return tpl
}
