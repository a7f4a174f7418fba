package store

import (
	"context"
	"sync"
	"time"

	"skytrack/internal/logger"
	"skytrack/internal/model"
	"skytrack/internal/slot"
)

// Workspace is one signed-in user's five collections. All records it creates
// are owned by that user and it only touches that user's slots.
type Workspace struct {
	uid     string
	slots   slot.Slots
	log     *logger.Logger
	now     func() time.Time
	newID   func() string
	observe Observer

	mu       sync.RWMutex
	closed   bool
	classes  collection[model.Class]
	tasks    collection[model.Task]
	notes    collection[model.Note]
	contacts collection[model.Contact]
	events   collection[model.Event]
}

// Snapshot is every collection of one user at one moment.
type Snapshot struct {
	Classes  []model.Class   `json:"classes"`
	Tasks    []model.Task    `json:"tasks"`
	Notes    []model.Note    `json:"notes"`
	Contacts []model.Contact `json:"contacts"`
	Events   []model.Event   `json:"events"`
}

func (s *Store) newWorkspace(uid string) *Workspace {
	return &Workspace{
		uid:      uid,
		slots:    s.slots,
		log:      s.log.WithUserID(uid),
		now:      s.now,
		newID:    s.newID,
		observe:  s.observe,
		classes:  collection[model.Class]{kind: model.KindClasses},
		tasks:    collection[model.Task]{kind: model.KindTasks},
		notes:    collection[model.Note]{kind: model.KindNotes},
		contacts: collection[model.Contact]{kind: model.KindContacts},
		events:   collection[model.Event]{kind: model.KindEvents},
	}
}

func (w *Workspace) load(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	loaders := []func(context.Context, slot.Slots, string) error{
		w.classes.load, w.tasks.load, w.notes.load, w.contacts.load, w.events.load,
	}
	for _, load := range loaders {
		if err := load(ctx, w.slots, w.uid); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workspace) clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.classes.items = nil
	w.tasks.items = nil
	w.notes.items = nil
	w.contacts.items = nil
	w.events.items = nil
}

func (w *Workspace) UID() string { return w.uid }

func (w *Workspace) Classes() []model.Class    { return snapshot(w, &w.classes) }
func (w *Workspace) Tasks() []model.Task       { return snapshot(w, &w.tasks) }
func (w *Workspace) Contacts() []model.Contact { return snapshot(w, &w.contacts) }
func (w *Workspace) Events() []model.Event     { return snapshot(w, &w.events) }

func (w *Workspace) Notes() []model.Note {
	notes := snapshot(w, &w.notes)
	for i := range notes {
		notes[i].Attachments = append([]string{}, notes[i].Attachments...)
	}
	return notes
}

func (w *Workspace) Snapshot() Snapshot {
	return Snapshot{
		Classes:  w.Classes(),
		Tasks:    w.Tasks(),
		Notes:    w.Notes(),
		Contacts: w.Contacts(),
		Events:   w.Events(),
	}
}

func (w *Workspace) AddClass(ctx context.Context, f model.ClassFields) (model.Class, error) {
	if err := f.Validate(); err != nil {
		return model.Class{}, err
	}
	return insert(ctx, w, &w.classes, func(id string, now time.Time) model.Class {
		return model.Class{ID: id, OwnerUID: w.uid, Name: f.Name, Color: f.Color, CreatedAt: now}
	})
}

func (w *Workspace) UpdateClass(ctx context.Context, id string, p model.ClassPatch) (model.Class, error) {
	if err := p.Validate(); err != nil {
		return model.Class{}, err
	}
	return modify(ctx, w, &w.classes, id, p.Apply)
}

// RemoveClass deletes only the class. Tasks, notes and events that point at
// it stay in their collections.
func (w *Workspace) RemoveClass(ctx context.Context, id string) error {
	return drop(ctx, w, &w.classes, id)
}

func (w *Workspace) AddTask(ctx context.Context, f model.TaskFields) (model.Task, error) {
	if err := f.Validate(); err != nil {
		return model.Task{}, err
	}
	if f.Status == "" {
		f.Status = model.StatusPending
	}
	return insert(ctx, w, &w.tasks, func(id string, now time.Time) model.Task {
		return model.Task{
			ID:          id,
			OwnerUID:    w.uid,
			ClassID:     f.ClassID,
			Title:       f.Title,
			Description: f.Description,
			DueDate:     f.DueDate,
			Status:      f.Status,
			CreatedAt:   now,
		}
	})
}

func (w *Workspace) UpdateTask(ctx context.Context, id string, p model.TaskPatch) (model.Task, error) {
	if err := p.Validate(); err != nil {
		return model.Task{}, err
	}
	return modify(ctx, w, &w.tasks, id, p.Apply)
}

func (w *Workspace) RemoveTask(ctx context.Context, id string) error {
	return drop(ctx, w, &w.tasks, id)
}

func (w *Workspace) AddNote(ctx context.Context, f model.NoteFields) (model.Note, error) {
	if err := f.Validate(); err != nil {
		return model.Note{}, err
	}
	atts := append([]string{}, f.Attachments...)
	return insert(ctx, w, &w.notes, func(id string, now time.Time) model.Note {
		return model.Note{
			ID:          id,
			OwnerUID:    w.uid,
			ClassID:     f.ClassID,
			Title:       f.Title,
			Content:     f.Content,
			Attachments: atts,
			CreatedAt:   now,
		}
	})
}

func (w *Workspace) UpdateNote(ctx context.Context, id string, p model.NotePatch) (model.Note, error) {
	if err := p.Validate(); err != nil {
		return model.Note{}, err
	}
	return modify(ctx, w, &w.notes, id, p.Apply)
}

func (w *Workspace) RemoveNote(ctx context.Context, id string) error {
	return drop(ctx, w, &w.notes, id)
}

func (w *Workspace) AddContact(ctx context.Context, f model.ContactFields) (model.Contact, error) {
	if err := f.Validate(); err != nil {
		return model.Contact{}, err
	}
	if f.Type == "" {
		f.Type = model.ContactOther
	}
	return insert(ctx, w, &w.contacts, func(id string, now time.Time) model.Contact {
		return model.Contact{
			ID:        id,
			OwnerUID:  w.uid,
			Name:      f.Name,
			Type:      f.Type,
			Email:     f.Email,
			Phone:     f.Phone,
			CreatedAt: now,
		}
	})
}

func (w *Workspace) UpdateContact(ctx context.Context, id string, p model.ContactPatch) (model.Contact, error) {
	if err := p.Validate(); err != nil {
		return model.Contact{}, err
	}
	return modify(ctx, w, &w.contacts, id, p.Apply)
}

func (w *Workspace) RemoveContact(ctx context.Context, id string) error {
	return drop(ctx, w, &w.contacts, id)
}

func (w *Workspace) AddEvent(ctx context.Context, f model.EventFields) (model.Event, error) {
	if err := f.Validate(); err != nil {
		return model.Event{}, err
	}
	return insert(ctx, w, &w.events, func(id string, now time.Time) model.Event {
		return model.Event{
			ID:          id,
			OwnerUID:    w.uid,
			Title:       f.Title,
			Description: f.Description,
			Date:        f.Date,
			ClassID:     f.ClassID,
			CreatedAt:   now,
		}
	})
}

func (w *Workspace) UpdateEvent(ctx context.Context, id string, p model.EventPatch) (model.Event, error) {
	if err := p.Validate(); err != nil {
		return model.Event{}, err
	}
	return modify(ctx, w, &w.events, id, p.Apply)
}

func (w *Workspace) RemoveEvent(ctx context.Context, id string) error {
	return drop(ctx, w, &w.events, id)
}
