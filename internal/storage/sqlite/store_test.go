package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"tracker/internal/models"
	"tracker/internal/storage"
)

var _ storage.Store = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createUser(t *testing.T, store *Store, email string) models.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), models.User{Name: "Tester", Email: email, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("", nil); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestProjectLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := createUser(t, store, "owner@example.com")
	other := createUser(t, store, "other@example.com")

	p, err := store.CreateProject(ctx, owner.ID, "Website")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if p.Status != models.StatusDraft || p.Progress != 0 {
		t.Fatalf("new project = %+v, want draft/0", p)
	}

	got, err := store.GetProject(ctx, owner.ID, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.Name != "Website" || got.OwnerID != owner.ID {
		t.Errorf("get project = %+v", got)
	}

	if _, err := store.GetProject(ctx, other.ID, p.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("foreign get error = %v, want ErrNotFound", err)
	}
	if _, err := store.RenameProject(ctx, other.ID, p.ID, "Hijack"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("foreign rename error = %v, want ErrNotFound", err)
	}

	renamed, err := store.RenameProject(ctx, owner.ID, p.ID, "Site")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if renamed.Name != "Site" {
		t.Errorf("renamed name = %q", renamed.Name)
	}

	list, err := store.ListProjects(ctx, other.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("other user sees %d projects", len(list))
	}

	ids, err := store.ListProjectIDs(ctx)
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != p.ID {
		t.Errorf("ids = %v", ids)
	}
}

func TestSetProjectAggregate(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := createUser(t, store, "owner@example.com")
	p, err := store.CreateProject(ctx, owner.ID, "Website")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	if err := store.SetProjectAggregate(ctx, p.ID, 33.3, models.StatusInProgress); err != nil {
		t.Fatalf("set aggregate: %v", err)
	}
	got, err := store.GetProject(ctx, owner.ID, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.Progress != 33.3 || got.Status != models.StatusInProgress {
		t.Errorf("aggregate = (%v, %s)", got.Progress, got.Status)
	}
	if got.UpdatedAt.Before(p.UpdatedAt) {
		t.Errorf("updatedAt went backwards")
	}

	if err := store.SetProjectAggregate(ctx, "missing", 0, models.StatusDraft); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing project error = %v, want ErrNotFound", err)
	}
}

func TestTaskCRUDAndMove(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := createUser(t, store, "owner@example.com")
	a, _ := store.CreateProject(ctx, owner.ID, "A")
	b, _ := store.CreateProject(ctx, owner.ID, "B")

	task, err := store.CreateTask(ctx, models.Task{ProjectID: a.ID, Name: "Design", Status: models.StatusDraft, Weight: 2})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.ID == "" {
		t.Fatal("task id not assigned")
	}

	task.ProjectID = b.ID
	task.Status = models.StatusDone
	moved, err := store.UpdateTask(ctx, task)
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if moved.ProjectID != b.ID || moved.Status != models.StatusDone || moved.Weight != 2 {
		t.Errorf("moved task = %+v", moved)
	}

	inA, _ := store.ListTasks(ctx, a.ID)
	inB, _ := store.ListTasks(ctx, b.ID)
	if len(inA) != 0 || len(inB) != 1 {
		t.Errorf("after move: A has %d, B has %d", len(inA), len(inB))
	}

	if err := store.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if err := store.DeleteTask(ctx, task.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetTask(ctx, task.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("get deleted task error = %v, want ErrNotFound", err)
	}
}

func TestCreateTaskForMissingProject(t *testing.T) {
	store := openTestStore(t)
	_, err := store.CreateTask(context.Background(), models.Task{ProjectID: "nope", Name: "x", Status: models.StatusDraft, Weight: 1})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListOwnerTasks(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := createUser(t, store, "owner@example.com")
	other := createUser(t, store, "other@example.com")
	a, _ := store.CreateProject(ctx, owner.ID, "A")
	b, _ := store.CreateProject(ctx, owner.ID, "B")
	foreign, _ := store.CreateProject(ctx, other.ID, "Foreign")
	for _, pid := range []string{a.ID, b.ID, b.ID, foreign.ID} {
		if _, err := store.CreateTask(ctx, models.Task{ProjectID: pid, Name: "t", Status: models.StatusDraft, Weight: 1}); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	tasks, err := store.ListOwnerTasks(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list owner tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}
	for _, task := range tasks {
		if task.ProjectID == foreign.ID {
			t.Errorf("foreign task %s listed", task.ID)
		}
	}

	none, err := store.ListOwnerTasks(ctx, "nobody")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("unknown owner = %v, %v; want empty slice", none, err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	owner := createUser(t, store, "owner@example.com")
	other := createUser(t, store, "other@example.com")
	p, _ := store.CreateProject(ctx, owner.ID, "Doomed")
	for i := 0; i < 3; i++ {
		if _, err := store.CreateTask(ctx, models.Task{ProjectID: p.ID, Name: "t", Status: models.StatusDone, Weight: 1}); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}

	if err := store.DeleteProject(ctx, other.ID, p.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("foreign delete error = %v, want ErrNotFound", err)
	}
	if tasks, _ := store.ListTasks(ctx, p.ID); len(tasks) != 3 {
		t.Fatalf("foreign delete removed tasks: %d left", len(tasks))
	}

	if err := store.DeleteProject(ctx, owner.ID, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	tasks, err := store.ListTasks(ctx, p.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("%d orphaned tasks remain", len(tasks))
	}
	if _, err := store.GetProject(ctx, owner.ID, p.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("deleted project still readable: %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	u := createUser(t, store, "dup@example.com")
	if u.Role != models.RoleUser {
		t.Errorf("default role = %q", u.Role)
	}

	_, err := store.CreateUser(ctx, models.User{Name: "Again", Email: "dup@example.com", PasswordHash: "y"})
	if !errors.Is(err, models.ErrConflict) {
		t.Errorf("duplicate error = %v, want ErrConflict", err)
	}

	byEmail, err := store.GetUserByEmail(ctx, "dup@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Errorf("by email id = %s, want %s", byEmail.ID, u.ID)
	}
	if _, err := store.GetUser(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("missing user error = %v", err)
	}
}
