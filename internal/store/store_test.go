package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"skytrack/internal/logger"
	"skytrack/internal/model"
	"skytrack/internal/slot"
	"skytrack/internal/store"
)

func setup(t *testing.T) (*store.Store, *slot.Memory) {
	t.Helper()
	slots := slot.NewMemory()
	return store.New(slots, logger.Nop()), slots
}

func open(t *testing.T, st *store.Store, uid string) *store.Workspace {
	t.Helper()
	w, err := st.Open(context.Background(), uid)
	if err != nil {
		t.Fatalf("open %s: %v", uid, err)
	}
	return w
}

func ptr[T any](v T) *T { return &v }

var due = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func TestOpenRequiresUser(t *testing.T) {
	st, _ := setup(t)
	if _, err := st.Open(context.Background(), ""); !errors.Is(err, store.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := st.Workspace("nobody"); !errors.Is(err, store.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for unopened user, got %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	st, _ := setup(t)
	a := open(t, st, "u1")
	b := open(t, st, "u1")
	if a != b {
		t.Fatal("second open returned a different workspace")
	}
	if st.OpenCount() != 1 {
		t.Errorf("open count: %d", st.OpenCount())
	}
}

func TestAddStampsOwnerAndUniqueIDs(t *testing.T) {
	st, _ := setup(t)
	w := open(t, st, "u1")
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c, err := w.AddClass(ctx, model.ClassFields{Name: fmt.Sprintf("class-%d", i)})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if c.OwnerUID != "u1" {
			t.Fatalf("owner: got %s", c.OwnerUID)
		}
		if c.ID == "" || seen[c.ID] {
			t.Fatalf("id %q empty or duplicated", c.ID)
		}
		if c.CreatedAt.IsZero() {
			t.Fatal("createdAt not stamped")
		}
		seen[c.ID] = true
	}
}

func TestIDCollisionIsRetried(t *testing.T) {
	ids := []string{"same", "same", "other"}
	n := 0
	st := store.New(slot.NewMemory(), logger.Nop(), store.WithIDs(func() string {
		id := ids[n%len(ids)]
		n++
		return id
	}))
	w := open(t, st, "u1")
	ctx := context.Background()

	a, _ := w.AddClass(ctx, model.ClassFields{Name: "A"})
	b, _ := w.AddClass(ctx, model.ClassFields{Name: "B"})
	if a.ID != "same" || b.ID != "other" {
		t.Fatalf("ids: %s %s", a.ID, b.ID)
	}
}

func TestScenario(t *testing.T) {
	st, _ := setup(t)
	w := open(t, st, "u1")
	ctx := context.Background()

	math, err := w.AddClass(ctx, model.ClassFields{Name: "Math", Color: "#3b82f6"})
	if err != nil {
		t.Fatalf("add class: %v", err)
	}
	if len(w.Classes()) != 1 {
		t.Fatalf("classes: %d", len(w.Classes()))
	}

	task, err := w.AddTask(ctx, model.TaskFields{Title: "HW1", ClassID: math.ID, DueDate: due, Status: model.StatusPending})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	updated, err := w.UpdateTask(ctx, task.ID, model.TaskPatch{Status: ptr(model.StatusCompleted)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != model.StatusCompleted || updated.Title != "HW1" {
		t.Errorf("update result: %+v", updated)
	}

	if err := w.RemoveClass(ctx, math.ID); err != nil {
		t.Fatalf("remove class: %v", err)
	}
	tasks := w.Tasks()
	if len(tasks) != 1 || tasks[0].ClassID != math.ID {
		t.Fatalf("task should survive its class: %+v", tasks)
	}
}

func TestTaskDefaultsToPending(t *testing.T) {
	st, _ := setup(t)
	w := open(t, st, "u1")
	task, err := w.AddTask(context.Background(), model.TaskFields{Title: "HW", DueDate: due})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if task.Status != model.StatusPending {
		t.Errorf("status: %s", task.Status)
	}
}

func TestValidationRejectsBeforeWrite(t *testing.T) {
	st, slots := setup(t)
	w := open(t, st, "u1")
	ctx := context.Background()

	if _, err := w.AddTask(ctx, model.TaskFields{Title: "no due date"}); !errors.Is(err, model.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if _, ok, _ := slots.Get(ctx, slot.Key(model.KindTasks, "u1")); ok {
		t.Fatal("invalid add should not touch storage")
	}
}

func TestNotFound(t *testing.T) {
	st, _ := setup(t)
	w := open(t, st, "u1")
	ctx := context.Background()
	w.AddContact(ctx, model.ContactFields{Name: "Ana", Type: model.ContactFriend})

	if _, err := w.UpdateContact(ctx, "missing", model.ContactPatch{Name: ptr("x")}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("update: expected ErrNotFound, got %v", err)
	}
	if err := w.RemoveContact(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("remove: expected ErrNotFound, got %v", err)
	}
	if len(w.Contacts()) != 1 {
		t.Error("not-found mutation changed the collection")
	}
}

func TestReloadReflectsMutations(t *testing.T) {
	st, slots := setup(t)
	w := open(t, st, "u1")
	ctx := context.Background()

	keep, _ := w.AddNote(ctx, model.NoteFields{Title: "keep", Content: "a", Attachments: []string{"x.pdf"}})
	gone, _ := w.AddNote(ctx, model.NoteFields{Title: "gone"})
	if _, err := w.UpdateNote(ctx, keep.ID, model.NotePatch{Content: ptr("b")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := w.RemoveNote(ctx, gone.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// a fresh store over the same slots sees only what was persisted
	reloaded := open(t, store.New(slots, logger.Nop()), "u1")
	notes := reloaded.Notes()
	if len(notes) != 1 {
		t.Fatalf("notes after reload: %d", len(notes))
	}
	n := notes[0]
	if n.ID != keep.ID || n.Content != "b" || n.Title != "keep" || len(n.Attachments) != 1 || n.Attachments[0] != "x.pdf" {
		t.Errorf("reloaded note: %+v", n)
	}
	if !n.CreatedAt.Equal(keep.CreatedAt) {
		t.Errorf("createdAt: got %v want %v", n.CreatedAt, keep.CreatedAt)
	}
}

func TestLogoutClearsAndLoginRestores(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	w := open(t, st, "u1")

	c, _ := w.AddClass(ctx, model.ClassFields{Name: "Math"})
	task, _ := w.AddTask(ctx, model.TaskFields{Title: "HW1", ClassID: c.ID, DueDate: due})
	w.AddNote(ctx, model.NoteFields{Title: "N"})
	w.AddContact(ctx, model.ContactFields{Name: "Ana"})
	ev, _ := w.AddEvent(ctx, model.EventFields{Title: "Exam", Date: due.Add(48 * time.Hour)})

	st.Close("u1")

	snap := w.Snapshot()
	if len(snap.Classes)+len(snap.Tasks)+len(snap.Notes)+len(snap.Contacts)+len(snap.Events) != 0 {
		t.Fatalf("collections not cleared: %+v", snap)
	}
	if _, err := w.AddClass(ctx, model.ClassFields{Name: "late"}); !errors.Is(err, store.ErrUnauthenticated) {
		t.Fatalf("mutation after logout: expected ErrUnauthenticated, got %v", err)
	}
	if _, err := st.Workspace("u1"); !errors.Is(err, store.ErrUnauthenticated) {
		t.Fatalf("workspace after logout: %v", err)
	}

	again := open(t, st, "u1")
	snap = again.Snapshot()
	if len(snap.Classes) != 1 || len(snap.Tasks) != 1 || len(snap.Notes) != 1 || len(snap.Contacts) != 1 || len(snap.Events) != 1 {
		t.Fatalf("restore: %+v", snap)
	}
	if !snap.Tasks[0].DueDate.Equal(task.DueDate) || snap.Tasks[0].ClassID != c.ID {
		t.Errorf("task round trip: %+v", snap.Tasks[0])
	}
	if !snap.Events[0].Date.Equal(ev.Date) {
		t.Errorf("event date: got %v want %v", snap.Events[0].Date, ev.Date)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()

	alice := open(t, st, "alice")
	alice.AddClass(ctx, model.ClassFields{Name: "Alice's class"})
	st.Close("alice")

	bob := open(t, st, "bob")
	if len(bob.Classes()) != 0 {
		t.Fatalf("bob sees alice's classes: %+v", bob.Classes())
	}
	c, _ := bob.AddClass(ctx, model.ClassFields{Name: "Bob's class"})
	if c.OwnerUID != "bob" {
		t.Errorf("owner: %s", c.OwnerUID)
	}

	alice = open(t, st, "alice")
	classes := alice.Classes()
	if len(classes) != 1 || classes[0].Name != "Alice's class" {
		t.Fatalf("alice's classes: %+v", classes)
	}
}

func TestCorruptSlot(t *testing.T) {
	st, slots := setup(t)
	ctx := context.Background()
	slots.Put(ctx, slot.Key(model.KindTasks, "u1"), []byte("{not json"))

	_, err := st.Open(ctx, "u1")
	if !errors.Is(err, store.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if st.OpenCount() != 0 {
		t.Error("corrupt workspace should not be registered")
	}
}

type failingSlots struct {
	*slot.Memory
	fail bool
}

func (f *failingSlots) Put(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.Put(ctx, key, value)
}

func TestFailedWriteLeavesMemoryUnchanged(t *testing.T) {
	slots := &failingSlots{Memory: slot.NewMemory()}
	st := store.New(slots, logger.Nop())
	w := open(t, st, "u1")
	ctx := context.Background()

	c, _ := w.AddClass(ctx, model.ClassFields{Name: "Math"})
	slots.fail = true

	if _, err := w.AddClass(ctx, model.ClassFields{Name: "Art"}); err == nil {
		t.Fatal("expected write error")
	}
	if _, err := w.UpdateClass(ctx, c.ID, model.ClassPatch{Name: ptr("Algebra")}); err == nil {
		t.Fatal("expected write error")
	}
	if err := w.RemoveClass(ctx, c.ID); err == nil {
		t.Fatal("expected write error")
	}
	classes := w.Classes()
	if len(classes) != 1 || classes[0].Name != "Math" {
		t.Fatalf("memory changed despite failed write: %+v", classes)
	}
}

func TestExportReadsDurableState(t *testing.T) {
	st, _ := setup(t)
	ctx := context.Background()
	w := open(t, st, "u1")
	w.AddEvent(ctx, model.EventFields{Title: "Exam", Date: due})
	st.Close("u1")

	snap, err := st.Export(ctx, "u1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(snap.Events) != 1 || snap.Events[0].Title != "Exam" {
		t.Fatalf("export: %+v", snap)
	}
	if st.OpenCount() != 0 {
		t.Error("export should not open a workspace")
	}
}

func TestEmptyCollectionPersistsAsArray(t *testing.T) {
	st, slots := setup(t)
	ctx := context.Background()
	w := open(t, st, "u1")
	c, _ := w.AddClass(ctx, model.ClassFields{Name: "Math"})
	w.RemoveClass(ctx, c.ID)

	b, _, _ := slots.Get(ctx, slot.Key(model.KindClasses, "u1"))
	if string(b) != "[]" {
		t.Errorf("slot after removing last class: %s", b)
	}
}

func TestNotesAreCopies(t *testing.T) {
	st, _ := setup(t)
	w := open(t, st, "u1")
	w.AddNote(context.Background(), model.NoteFields{Title: "N", Attachments: []string{"a"}})

	notes := w.Notes()
	notes[0].Attachments[0] = "mutated"
	notes[0].Title = "mutated"
	if got := w.Notes()[0]; got.Attachments[0] != "a" || got.Title != "N" {
		t.Errorf("caller mutated store state: %+v", got)
	}
}

func TestObserverSeesMutations(t *testing.T) {
	var seen []string
	obs := func(kind, op string, err error) {
		seen = append(seen, fmt.Sprintf("%s/%s/%v", kind, op, err != nil))
	}
	st := store.New(slot.NewMemory(), logger.Nop(), store.WithObserver(obs))
	w := open(t, st, "u1")
	ctx := context.Background()

	c, _ := w.AddClass(ctx, model.ClassFields{Name: "Math"})
	w.UpdateClass(ctx, c.ID, model.ClassPatch{Color: ptr("#fff")})
	w.RemoveClass(ctx, "missing")

	want := []string{"classes/add/false", "classes/update/false", "classes/remove/true"}
	if fmt.Sprint(seen) != fmt.Sprint(want) {
		t.Errorf("observed %v, want %v", seen, want)
	}
}
