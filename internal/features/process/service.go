package process

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-propflow/internal/common/apperrors"
	common_models "go-propflow/internal/common/models"
	"go-propflow/internal/features/audit"
	"go-propflow/internal/features/document"
	"go-propflow/internal/features/notification"
	"go-propflow/internal/features/property"
	"go-propflow/internal/features/role"
	"go-propflow/internal/features/task"
	"go-propflow/internal/features/template"
	"go-propflow/internal/features/user"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ProcessService interface {
	Submit(ctx context.Context, req SubmitRequest, actor primitive.ObjectID) (*ProcessInstance, error)
	GetProcess(ctx context.Context, id string) (*ProcessDetail, error)
	ListProcesses(ctx context.Context, status string, page, limit int64) ([]ProcessInstance, int64, error)

	Approve(ctx context.Context, id string, templateID string, actor primitive.ObjectID) (*ProcessInstance, error)
	Return(ctx context.Context, id string, reason string, actor primitive.ObjectID) (*ProcessInstance, error)
	Reject(ctx context.Context, id string, reason string, actor primitive.ObjectID) (*ProcessInstance, error)
	Hold(ctx context.Context, id string, reason string, actor primitive.ObjectID) (*ProcessInstance, error)
	Resume(ctx context.Context, id string, actor primitive.ObjectID) (*ProcessInstance, error)
	Cancel(ctx context.Context, id string, reason string, actor primitive.ObjectID) (*ProcessInstance, error)
	SoftDelete(ctx context.Context, id string, actor primitive.ObjectID) error

	// Recalculate and GetInstanceInfo serve the task state machine; main wires
	// them in through the task package's narrow interfaces.
	Recalculate(ctx context.Context, instanceID primitive.ObjectID) error
	GetInstanceInfo(ctx context.Context, id primitive.ObjectID) (*task.InstanceInfo, error)
}

type ProcessServiceImpl struct {
	ProcessRepo         ProcessRepository
	TaskRepo            task.TaskRepository
	TemplateRepo        template.TemplateRepository
	Populator           template.Populator
	Documents           document.Registry
	PropertyRepo        property.PropertyRepository
	NotificationService notification.NotificationService
	AuditService        audit.AuditService
	RoleRepo            role.RoleRepository
	UserRepo            user.UserRepository
	Log                 *zap.Logger

	now func() time.Time
}

func NewProcessService(
	processRepo ProcessRepository,
	taskRepo task.TaskRepository,
	templateRepo template.TemplateRepository,
	populator template.Populator,
	documents document.Registry,
	propertyRepo property.PropertyRepository,
	notificationService notification.NotificationService,
	auditService audit.AuditService,
	roleRepo role.RoleRepository,
	userRepo user.UserRepository,
	log *zap.Logger,
) ProcessService {
	return &ProcessServiceImpl{
		ProcessRepo:         processRepo,
		TaskRepo:            taskRepo,
		TemplateRepo:        templateRepo,
		Populator:           populator,
		Documents:           documents,
		PropertyRepo:        propertyRepo,
		NotificationService: notificationService,
		AuditService:        auditService,
		RoleRepo:            roleRepo,
		UserRepo:            userRepo,
		Log:                 log,
		now:                 time.Now,
	}
}

func (s *ProcessServiceImpl) Submit(ctx context.Context, req SubmitRequest, actor primitive.ObjectID) (*ProcessInstance, error) {
	if strings.TrimSpace(req.ExternalRef) == "" {
		return nil, apperrors.Validation("external reference is required")
	}
	propertyID, err := primitive.ObjectIDFromHex(req.PropertyID)
	if err != nil {
		return nil, apperrors.Validation("invalid property id")
	}
	prop, err := s.PropertyRepo.FindByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if prop == nil {
		return nil, fmt.Errorf("property %s: %w", req.PropertyID, apperrors.ErrNotFound)
	}

	now := s.now()
	instance := &ProcessInstance{
		ID:            primitive.NewObjectID(),
		ExternalRef:   strings.TrimSpace(req.ExternalRef),
		PropertyID:    propertyID,
		CurrentStatus: StatusPendingApproval,
		RequestedBy:   actor,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.ProcessRepo.Create(ctx, instance); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCreate, "processes", instance.ID.Hex(), map[string]common_models.Change{
		"current_status": {Old: nil, New: StatusPendingApproval},
		"external_ref":   {Old: nil, New: instance.ExternalRef},
	})

	s.notifyProcessManagers(ctx, instance, actor,
		"Approval Requested",
		fmt.Sprintf("Process %s for property %q is awaiting approval", instance.ExternalRef, prop.Reference))

	return instance, nil
}

func (s *ProcessServiceImpl) GetProcess(ctx context.Context, id string) (*ProcessDetail, error) {
	instance, err := s.loadLive(ctx, id)
	if err != nil {
		return nil, err
	}

	tasks, err := s.TaskRepo.ListByInstance(ctx, instance.ID)
	if err != nil {
		return nil, err
	}

	return &ProcessDetail{
		Instance: *instance,
		Tasks:    tasks,
		Stages:   Stages(tasks),
	}, nil
}

func (s *ProcessServiceImpl) ListProcesses(ctx context.Context, status string, page, limit int64) ([]ProcessInstance, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["current_status"] = status
	}
	return s.ProcessRepo.List(ctx, filter, page, limit)
}

// Approve binds the instance to a template and activates it. The transition is
// a conditional update on the source statuses, so when two managers approve at
// once only the first one wins; the loser gets the state conflict back.
func (s *ProcessServiceImpl) Approve(ctx context.Context, id string, templateID string, actor primitive.ObjectID) (*ProcessInstance, error) {
	if uuid.Validate(templateID) != nil {
		return nil, apperrors.Validation("invalid template id")
	}

	tpl, err := s.TemplateRepo.FindByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, fmt.Errorf("template %s: %w", templateID, apperrors.ErrNotFound)
	}
	if !tpl.Active {
		return nil, apperrors.Validation("template %q is not active", tpl.Name)
	}

	instance, err := s.loadLive(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	set := bson.M{
		"current_status":   StatusActive,
		"tpl_process_id":   tpl.ID,
		"template_name":    tpl.Name,
		"approved_by":      actor,
		"approved_at":      now,
		"percent_complete": 0,
	}
	if instance.StartedAt == nil {
		set["started_at"] = now
	}

	updated, err := s.transition(ctx, instance.ID,
		[]ProcessStatus{StatusPendingApproval, StatusReturned},
		set, bson.M{"returned_reason": ""},
		"only pending or returned processes can be approved")
	if err != nil {
		return nil, err
	}

	// A re-approval after a return replaces the previous task set wholesale.
	// Population is best-effort: the instance stays active either way, and a
	// failed expansion is repaired by returning and re-approving.
	if err := s.TaskRepo.DeleteByInstance(ctx, updated.ID); err != nil {
		s.Log.Error("failed to clear previous tasks", zap.Error(err), zap.String("instance", updated.ID.Hex()))
	} else if err := s.Populator.Populate(ctx, updated.ID, updated.PropertyID, tpl.ID); err != nil {
		s.Log.Error("template population failed", zap.Error(err), zap.String("instance", updated.ID.Hex()))
	}

	s.autoCompleteUploads(ctx, updated)
	if err := s.Recalculate(ctx, updated.ID); err != nil {
		s.Log.Error("progress recalculation failed", zap.Error(err), zap.String("instance", updated.ID.Hex()))
	}

	if _, err := s.PropertyRepo.TransitionStatus(ctx, updated.PropertyID,
		property.PropertyStatusPendingApproval, property.PropertyStatusInProcess); err != nil {
		s.Log.Warn("property status update failed", zap.Error(err), zap.String("property", updated.PropertyID.Hex()))
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionApprove, "processes", updated.ID.Hex(), map[string]common_models.Change{
		"current_status": {Old: instance.CurrentStatus, New: StatusActive},
		"tpl_process_id": {Old: instance.TplProcessID, New: tpl.ID},
	})

	s.notifyRequester(ctx, updated, actor,
		"Process Approved",
		fmt.Sprintf("Process %s was approved against template %q", updated.ExternalRef, tpl.Name))

	return s.ProcessRepo.FindByID(ctx, updated.ID)
}

func (s *ProcessServiceImpl) Return(ctx context.Context, id string, reason string, actor primitive.ObjectID) (*ProcessInstance, error) {
	if len(strings.TrimSpace(reason)) < 10 {
		return nil, apperrors.Validation("return reason must be at least 10 characters")
	}

	instance, err := s.loadLive(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.transition(ctx, instance.ID,
		[]ProcessStatus{StatusPendingApproval, StatusActive},
		bson.M{"current_status": StatusReturned, "returned_reason": reason},
		nil,
		"only pending or active processes can be returned")
	if err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionReturn, "processes", updated.ID.Hex(), map[string]common_models.Change{
		"current_status":  {Old: instance.CurrentStatus, New: StatusReturned},
		"returned_reason": {Old: nil, New: reason},
	})

	s.notifyRequester(ctx, updated, actor,
		"Process Returned",
		fmt.Sprintf("Process %s was returned for rework: %s", updated.ExternalRef, reason))

	return updated, nil
}

func (s *ProcessServiceImpl) Reject(ctx context.Context, id string, reason string, actor primitive.ObjectID) (*ProcessInstance, error) {
	if len(strings.TrimSpace(reason)) < 10 {
		return nil, apperrors.Validation("rejection reason must be at least 10 characters")
	}

	instance, err := s.loadLive(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.transition(ctx, instance.ID,
		[]ProcessStatus{StatusPendingApproval, StatusReturned},
		bson.M{"current_status": StatusRejected, "rejected_reason": reason},
		nil,
		"only pending or returned processes can be rejected")
	if err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionReject, "processes", updated.ID.Hex(), map[string]common_models.Change{
		"current_status":  {Old: instance.CurrentStatus, New: StatusRejected},
		"rejected_reason": {Old: nil, New: reason},
	})

	s.notifyRequester(ctx, updated, actor,
		"Process Rejected",
		fmt.Sprintf("Process %s was rejected: %s", updated.ExternalRef, reason))

	return updated, nil
}

func (s *ProcessServiceImpl) Hold(ctx context.Context, id string, reason string, actor primitive.ObjectID) (*ProcessInstance, error) {
	reason = strings.TrimSpace(reason)

	instance, err := s.loadLive(ctx, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{"current_status": StatusOnHold}
	if reason != "" {
		set["on_hold_reason"] = reason
	}
	updated, err := s.transition(ctx, instance.ID,
		[]ProcessStatus{StatusActive},
		set,
		nil,
		"only active processes can be put on hold")
	if err != nil {
		return nil, err
	}

	changes := map[string]common_models.Change{
		"current_status": {Old: instance.CurrentStatus, New: StatusOnHold},
	}
	if reason != "" {
		changes["on_hold_reason"] = common_models.Change{Old: nil, New: reason}
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditActionHold, "processes", updated.ID.Hex(), changes)

	message := fmt.Sprintf("Process %s was put on hold", updated.ExternalRef)
	if reason != "" {
		message += ": " + reason
	}
	s.notifyRequester(ctx, updated, actor, "Process On Hold", message)

	return updated, nil
}

func (s *ProcessServiceImpl) Resume(ctx context.Context, id string, actor primitive.ObjectID) (*ProcessInstance, error) {
	instance, err := s.loadLive(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.transition(ctx, instance.ID,
		[]ProcessStatus{StatusOnHold},
		bson.M{"current_status": StatusActive},
		bson.M{"on_hold_reason": ""},
		"only processes on hold can be resumed")
	if err != nil {
		return nil, err
	}

	// The hold may have outlived the last open task; re-derive so a fully
	// done instance completes on resume instead of idling at 100.
	if err := s.Recalculate(ctx, updated.ID); err != nil {
		s.Log.Error("progress recalculation failed", zap.Error(err), zap.String("instance", updated.ID.Hex()))
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionResume, "processes", updated.ID.Hex(), map[string]common_models.Change{
		"current_status": {Old: instance.CurrentStatus, New: StatusActive},
	})

	s.notifyRequester(ctx, updated, actor,
		"Process Resumed",
		fmt.Sprintf("Process %s was resumed", updated.ExternalRef))

	return s.ProcessRepo.FindByID(ctx, updated.ID)
}

func (s *ProcessServiceImpl) Cancel(ctx context.Context, id string, reason string, actor primitive.ObjectID) (*ProcessInstance, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validation("cancellation reason is required")
	}

	instance, err := s.loadLive(ctx, id)
	if err != nil {
		return nil, err
	}

	notes := reason
	if instance.Notes != "" {
		notes = instance.Notes + "\n" + reason
	}

	updated, err := s.transition(ctx, instance.ID,
		[]ProcessStatus{StatusActive, StatusOnHold},
		bson.M{"current_status": StatusCancelled, "notes": notes},
		nil,
		"only active or on-hold processes can be cancelled")
	if err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCancel, "processes", updated.ID.Hex(), map[string]common_models.Change{
		"current_status": {Old: instance.CurrentStatus, New: StatusCancelled},
	})

	s.notifyRequester(ctx, updated, actor,
		"Process Cancelled",
		fmt.Sprintf("Process %s was cancelled: %s", updated.ExternalRef, reason))

	return updated, nil
}

// SoftDelete retires the instance while preserving it for audit. A second
// delete of the same instance reports the gone state rather than succeeding
// twice.
func (s *ProcessServiceImpl) SoftDelete(ctx context.Context, id string, actor primitive.ObjectID) error {
	instance, err := s.loadLive(ctx, id)
	if err != nil {
		return err
	}

	ok, err := s.ProcessRepo.SoftDelete(ctx, instance.ID, actor, s.now())
	if err != nil {
		return err
	}
	if !ok {
		// Lost the race against a concurrent delete; report gone with the
		// provenance the winner stamped.
		current, err := s.ProcessRepo.FindByID(ctx, instance.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("process instance %s: %w", id, apperrors.ErrNotFound)
		}
		return goneError(current)
	}

	if !instance.CurrentStatus.Terminal() {
		if _, err := s.PropertyRepo.TransitionStatus(ctx, instance.PropertyID,
			property.PropertyStatusInProcess, property.PropertyStatusPendingApproval); err != nil {
			s.Log.Warn("property status revert failed", zap.Error(err), zap.String("property", instance.PropertyID.Hex()))
		}
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionDelete, "processes", instance.ID.Hex(), map[string]common_models.Change{
		"deleted": {Old: false, New: true},
	})

	s.notifyRequester(ctx, instance, actor,
		"Process Deleted",
		fmt.Sprintf("Process %s was deleted", instance.ExternalRef))
	s.notifyProcessManagers(ctx, instance, actor,
		"Process Deleted",
		fmt.Sprintf("Process %s was deleted", instance.ExternalRef))

	return nil
}

func (s *ProcessServiceImpl) GetInstanceInfo(ctx context.Context, id primitive.ObjectID) (*task.InstanceInfo, error) {
	instance, err := s.ProcessRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, nil
	}

	info := &task.InstanceInfo{
		ID:          instance.ID,
		PropertyID:  instance.PropertyID,
		Status:      string(instance.CurrentStatus),
		Deleted:     instance.Deleted(),
		DeletedAt:   instance.DeletedAt,
		ExternalRef: instance.ExternalRef,
	}
	if instance.DeletedBy != nil {
		info.DeletedBy = instance.DeletedBy.Hex()
	}
	return info, nil
}

// loadLive resolves the id to a live instance: unknown ids are not found,
// soft-deleted ones are gone.
func (s *ProcessServiceImpl) loadLive(ctx context.Context, id string) (*ProcessInstance, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Validation("invalid process instance id")
	}
	instance, err := s.ProcessRepo.FindByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, fmt.Errorf("process instance %s: %w", id, apperrors.ErrNotFound)
	}
	if instance.Deleted() {
		return nil, goneError(instance)
	}
	return instance, nil
}

// transition runs the conditional status update and classifies a miss: the
// instance vanished, was deleted underneath us, or sits in a status the caller
// cannot move it from.
func (s *ProcessServiceImpl) transition(ctx context.Context, id primitive.ObjectID, from []ProcessStatus, set bson.M, unset bson.M, conflictMsg string) (*ProcessInstance, error) {
	updated, err := s.ProcessRepo.TransitionStatus(ctx, id, from, set, unset)
	if err != nil {
		return nil, err
	}
	if updated != nil {
		return updated, nil
	}

	current, err := s.ProcessRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("process instance %s: %w", id.Hex(), apperrors.ErrNotFound)
	}
	if current.Deleted() {
		return nil, goneError(current)
	}
	return nil, apperrors.StateConflict("process instance", string(current.CurrentStatus), "%s", conflictMsg)
}

func goneError(p *ProcessInstance) *apperrors.GoneError {
	gone := &apperrors.GoneError{ExternalRef: p.ExternalRef}
	if p.DeletedAt != nil {
		gone.DeletedAt = *p.DeletedAt
	}
	if p.DeletedBy != nil {
		gone.DeletedBy = p.DeletedBy.Hex()
	}
	return gone
}

func (s *ProcessServiceImpl) notifyRequester(ctx context.Context, p *ProcessInstance, actor primitive.ObjectID, title, message string) {
	if p.RequestedBy.IsZero() || p.RequestedBy == actor {
		return
	}
	if err := s.NotificationService.CreateNotification(ctx, p.RequestedBy,
		title, message, notification.NotificationTypeProcess,
		fmt.Sprintf("/processes/%s", p.ID.Hex()),
		map[string]interface{}{"external_ref": p.ExternalRef},
	); err != nil {
		s.Log.Warn("requester notification failed", zap.Error(err), zap.String("instance", p.ID.Hex()))
	}
}

func (s *ProcessServiceImpl) notifyProcessManagers(ctx context.Context, p *ProcessInstance, actor primitive.ObjectID, title, message string) {
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
		title, message, notification.NotificationTypeProcess,
		fmt.Sprintf("/processes/%s", p.ID.Hex()),
		map[string]interface{}{"external_ref": p.ExternalRef},
	); err != nil {
		s.Log.Warn("process manager notification failed", zap.Error(err), zap.String("instance", p.ID.Hex()))
	}
}
