package process

import (
	"context"
	"errors"
	"testing"

	"go-propflow/internal/features/document"
	"go-propflow/internal/features/task"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seedUploadTask(env *testEnv, instanceID primitive.ObjectID, docType string, ownerID *primitive.ObjectID) task.Task {
	t := task.Task{
		ID:             primitive.NewObjectID(),
		ProcInstanceID: instanceID,
		Title:          "Upload " + docType,
		ActionType:     task.TaskActionUpload,
		Status:         task.TaskStatusPending,
		DocType:        docType,
		OwnerID:        ownerID,
	}
	env.taskRepo.tasks[instanceID] = append(env.taskRepo.tasks[instanceID], t)
	return t
}

func TestAutoCompleteClosesMatchedUploads(t *testing.T) {
	env := newTestEnv()
	prop := env.seedProperty()
	instance := env.seedInstance(StatusActive, prop.ID)

	seedUploadTask(env, instance.ID, "registry_extract", nil)
	seedUploadTask(env, instance.ID, "signed_agreement", nil)

	env.registry.docs[registryKey{prop.ID.Hex(), "registry_extract", ""}] = &document.Document{
		ID:       101,
		DocType:  "registry_extract",
		FileName: "extract.pdf",
	}

	closed := env.svc.autoCompleteUploads(context.Background(), instance)
	if closed != 1 {
		t.Fatalf("Expected 1 closed task, got %d", closed)
	}

	tasks, _ := env.taskRepo.ListByInstance(context.Background(), instance.ID)
	for _, tk := range tasks {
		switch tk.DocType {
		case "registry_extract":
			if tk.Status != task.TaskStatusCompleted {
				t.Errorf("Expected matched upload completed, got %s", tk.Status)
			}
			if tk.TaskResult["auto_completed"] != true {
				t.Error("Expected auto_completed marker in task result")
			}
			if tk.TaskResult["document_id"] != int64(101) {
				t.Errorf("Expected document id 101, got %v", tk.TaskResult["document_id"])
			}
		case "signed_agreement":
			if tk.Status != task.TaskStatusPending {
				t.Errorf("Expected unmatched upload pending, got %s", tk.Status)
			}
		}
	}
}

func TestAutoCompleteMatchesOwnerScope(t *testing.T) {
	env := newTestEnv()
	prop := env.seedProperty()
	instance := env.seedInstance(StatusActive, prop.ID)

	ownerA := primitive.NewObjectID()
	ownerB := primitive.NewObjectID()
	seedUploadTask(env, instance.ID, "owner_id", &ownerA)
	seedUploadTask(env, instance.ID, "owner_id", &ownerB)

	// Only owner A has uploaded identification.
	env.registry.docs[registryKey{prop.ID.Hex(), "owner_id", ownerA.Hex()}] = &document.Document{
		ID:       7,
		DocType:  "owner_id",
		FileName: "id-a.pdf",
	}

	closed := env.svc.autoCompleteUploads(context.Background(), instance)
	if closed != 1 {
		t.Fatalf("Expected 1 closed task, got %d", closed)
	}

	tasks, _ := env.taskRepo.ListByInstance(context.Background(), instance.ID)
	for _, tk := range tasks {
		want := task.TaskStatusPending
		if tk.OwnerID != nil && *tk.OwnerID == ownerA {
			want = task.TaskStatusCompleted
		}
		if tk.Status != want {
			t.Errorf("Owner task %s: expected %s, got %s", tk.Title, want, tk.Status)
		}
	}
}

func TestAutoCompleteSkipsNonUploadAndStartedTasks(t *testing.T) {
	env := newTestEnv()
	prop := env.seedProperty()
	instance := env.seedInstance(StatusActive, prop.ID)

	manual := task.Task{
		ID:             primitive.NewObjectID(),
		ProcInstanceID: instance.ID,
		ActionType:     task.TaskActionManual,
		Status:         task.TaskStatusPending,
	}
	started := seedUploadTask(env, instance.ID, "registry_extract", nil)
	env.taskRepo.tasks[instance.ID] = append(env.taskRepo.tasks[instance.ID], manual)
	for i := range env.taskRepo.tasks[instance.ID] {
		if env.taskRepo.tasks[instance.ID][i].ID == started.ID {
			env.taskRepo.tasks[instance.ID][i].Status = task.TaskStatusInProgress
		}
	}

	env.registry.docs[registryKey{prop.ID.Hex(), "registry_extract", ""}] = &document.Document{ID: 1}

	if closed := env.svc.autoCompleteUploads(context.Background(), instance); closed != 0 {
		t.Errorf("Expected no auto-completions, got %d", closed)
	}
}

func TestAutoCompleteSurvivesRegistryOutage(t *testing.T) {
	env := newTestEnv()
	prop := env.seedProperty()
	instance := env.seedInstance(StatusActive, prop.ID)

	seedUploadTask(env, instance.ID, "registry_extract", nil)
	env.registry.err = errors.New("connection refused")

	if closed := env.svc.autoCompleteUploads(context.Background(), instance); closed != 0 {
		t.Errorf("Expected no auto-completions during outage, got %d", closed)
	}

	tasks, _ := env.taskRepo.ListByInstance(context.Background(), instance.ID)
	if tasks[0].Status != task.TaskStatusPending {
		t.Errorf("Expected task untouched, got %s", tasks[0].Status)
	}
}
