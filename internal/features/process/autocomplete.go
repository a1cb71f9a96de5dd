package process

import (
	"context"

	"go-propflow/internal/features/task"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// autoCompleteUploads closes pending upload tasks that the document registry
// already satisfies. It is best effort: registry failures are logged per task
// and never fail the approval that triggered the sweep. Returns how many tasks
// were closed.
func (s *ProcessServiceImpl) autoCompleteUploads(ctx context.Context, instance *ProcessInstance) int {
	tasks, err := s.TaskRepo.ListByInstance(ctx, instance.ID)
	if err != nil {
		s.Log.Error("auto-complete sweep failed to list tasks",
			zap.Error(err), zap.String("instance", instance.ID.Hex()))
		return 0
	}

	closed := 0
	for i := range tasks {
		t := &tasks[i]
		if t.Status != task.TaskStatusPending || t.ActionType != task.TaskActionUpload || t.DocType == "" {
			continue
		}

		ownerID := ""
		if t.OwnerID != nil {
			ownerID = t.OwnerID.Hex()
		}
		doc, err := s.Documents.FindActive(ctx, instance.PropertyID.Hex(), t.DocType, ownerID)
		if err != nil {
			s.Log.Warn("document registry lookup failed",
				zap.Error(err),
				zap.String("task", t.ID.Hex()),
				zap.String("doc_type", t.DocType))
			continue
		}
		if doc == nil {
			continue
		}

		now := s.now()
		set := bson.M{
			"status":       task.TaskStatusCompleted,
			"completed_at": now,
			"updated_at":   now,
			"task_result": map[string]interface{}{
				"auto_completed": true,
				"document_id":    doc.ID,
				"file_name":      doc.FileName,
			},
		}
		if err := s.TaskRepo.Update(ctx, t.ID, set, nil); err != nil {
			s.Log.Warn("auto-complete update failed",
				zap.Error(err), zap.String("task", t.ID.Hex()))
			continue
		}
		closed++
	}

	if closed > 0 {
		s.Log.Info("upload tasks auto-completed from document registry",
			zap.Int("count", closed),
			zap.String("instance", instance.ID.Hex()))
	}
	return closed
}
