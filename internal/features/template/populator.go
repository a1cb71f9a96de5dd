package template

import (
	"context"
	"fmt"
	"time"

	"go-propflow/internal/common/apperrors"
	"go-propflow/internal/features/property"
	"go-propflow/internal/features/task"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Populator materializes a template into task rows for a process instance.
// Owner-scoped definitions are fanned out once per registered property owner.
type Populator interface {
	Populate(ctx context.Context, instanceID, propertyID primitive.ObjectID, templateID string) error
}

type PopulatorImpl struct {
	TemplateRepo TemplateRepository
	TaskRepo     task.TaskRepository
	PropertyRepo property.PropertyRepository

	now func() time.Time
}

func NewPopulator(templateRepo TemplateRepository, taskRepo task.TaskRepository, propertyRepo property.PropertyRepository) Populator {
	return &PopulatorImpl{
		TemplateRepo: templateRepo,
		TaskRepo:     taskRepo,
		PropertyRepo: propertyRepo,
		now:          time.Now,
	}
}

func (p *PopulatorImpl) Populate(ctx context.Context, instanceID, propertyID primitive.ObjectID, templateID string) error {
	tpl, err := p.TemplateRepo.FindByID(ctx, templateID)
	if err != nil {
		return fmt.Errorf("failed to load template %s: %w", templateID, err)
	}
	if tpl == nil {
		return apperrors.ErrNotFound
	}

	var owners []property.Owner
	prop, err := p.PropertyRepo.FindByID(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("failed to load property: %w", err)
	}
	if prop != nil {
		owners = prop.Owners
	}

	now := p.now()
	var tasks []task.Task
	for _, stage := range tpl.Stages {
		orderIndex := 0
		for _, def := range stage.Tasks {
			if def.OwnerScoped && len(owners) > 0 {
				for _, owner := range owners {
					ownerID := owner.ID
					t := buildTask(instanceID, stage, def, orderIndex, now)
					t.Title = fmt.Sprintf("%s (%s)", def.Title, owner.Name)
					t.OwnerID = &ownerID
					tasks = append(tasks, t)
					orderIndex++
				}
				continue
			}
			tasks = append(tasks, buildTask(instanceID, stage, def, orderIndex, now))
			orderIndex++
		}
	}

	if err := p.TaskRepo.BulkCreate(ctx, tasks); err != nil {
		return fmt.Errorf("failed to create tasks from template %s: %w", templateID, err)
	}
	return nil
}

func buildTask(instanceID primitive.ObjectID, stage StageDef, def TaskDef, orderIndex int, now time.Time) task.Task {
	t := task.Task{
		ID:              primitive.NewObjectID(),
		ProcInstanceID:  instanceID,
		StageName:       stage.Name,
		StageOrderIndex: stage.Order,
		OrderIndex:      orderIndex,
		Title:           def.Title,
		ActionType:      task.TaskAction(def.ActionType),
		Status:          task.TaskStatusPending,
		IsMandatory:     def.IsMandatory,
		Priority:        task.TaskPriority(def.Priority),
		DocType:         def.DocType,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if t.Priority == "" {
		t.Priority = task.TaskPriorityNormal
	}
	if def.DueInDays > 0 {
		due := now.AddDate(0, 0, def.DueInDays)
		t.DueDate = &due
	}
	for i, sub := range def.Subtasks {
		order := sub.OrderIndex
		if order == 0 {
			order = i
		}
		t.Subtasks = append(t.Subtasks, task.Subtask{
			ID:          primitive.NewObjectID(),
			Title:       sub.Title,
			IsMandatory: sub.IsMandatory,
			OrderIndex:  order,
			Config:      sub.Config,
		})
	}
	return t
}
