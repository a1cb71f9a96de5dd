package process

import (
	"context"
	"math"

	"go-propflow/internal/features/task"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Percent derives the instance completion percentage from its tasks. Both
// completed and skipped tasks count as done; an instance with no tasks is 0.
func Percent(tasks []task.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range tasks {
		if t.Status.Done() {
			done++
		}
	}
	return int(math.Round(float64(done) * 100 / float64(len(tasks))))
}

func allDone(tasks []task.Task) bool {
	for _, t := range tasks {
		if !t.Status.Done() {
			return false
		}
	}
	return true
}

// Stages rolls the tasks up into their denormalized stages, ordered by stage
// order index.
func Stages(tasks []task.Task) []StageSummary {
	var summaries []StageSummary
	index := map[string]int{}

	for _, t := range tasks {
		i, ok := index[t.StageName]
		if !ok {
			i = len(summaries)
			index[t.StageName] = i
			summaries = append(summaries, StageSummary{
				Name:  t.StageName,
				Order: t.StageOrderIndex,
			})
		}
		summaries[i].Total++
		if t.Status.Done() {
			summaries[i].Done++
		}
	}

	for i := range summaries {
		if summaries[i].Total > 0 {
			summaries[i].Percent = int(math.Round(float64(summaries[i].Done) * 100 / float64(summaries[i].Total)))
		}
	}
	return summaries
}

// Recalculate re-derives and persists the completion percentage. When every
// task is done and the instance is still active, it is promoted to completed.
// Paused instances keep their percentage but are never promoted until resumed.
func (s *ProcessServiceImpl) Recalculate(ctx context.Context, instanceID primitive.ObjectID) error {
	instance, err := s.ProcessRepo.FindByID(ctx, instanceID)
	if err != nil {
		return err
	}
	if instance == nil || instance.Deleted() {
		return nil
	}

	tasks, err := s.TaskRepo.ListByInstance(ctx, instanceID)
	if err != nil {
		return err
	}

	percent := Percent(tasks)
	if err := s.ProcessRepo.SetPercent(ctx, instanceID, percent); err != nil {
		return err
	}

	// The rounded percentage can hit 100 with work outstanding; promotion
	// requires every task to actually be done.
	if len(tasks) > 0 && allDone(tasks) && instance.CurrentStatus == StatusActive {
		now := s.now()
		updated, err := s.ProcessRepo.TransitionStatus(ctx, instanceID,
			[]ProcessStatus{StatusActive},
			bson.M{"current_status": StatusCompleted, "completed_at": now},
			nil,
		)
		if err != nil {
			return err
		}
		if updated != nil {
			s.Log.Info("process instance completed",
				zap.String("instance", instanceID.Hex()),
				zap.String("external_ref", updated.ExternalRef))
			s.notifyRequester(ctx, updated, primitive.NilObjectID,
				"Process Completed",
				"All tasks are done; the acquisition process has completed")
		}
	}
	return nil
}
