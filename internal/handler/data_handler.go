package handler

import (
	"context"

	apiv1 "skytrack/internal/api/v1"
	"skytrack/internal/model"
	"skytrack/internal/query"
)

// classes

func (h *Handler) ListClasses(ctx context.Context, req *apiv1.ListRequest) (*apiv1.ClassList, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	out, err := query.Where(w.Classes(), req.Where)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &apiv1.ClassList{Classes: out}, nil
}

func (h *Handler) AddClass(ctx context.Context, req *model.ClassFields) (*model.Class, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	c, err := w.AddClass(ctx, *req)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &c, nil
}

func (h *Handler) UpdateClass(ctx context.Context, req *apiv1.UpdateClassRequest) (*model.Class, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	c, err := w.UpdateClass(ctx, req.ID, req.Patch)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &c, nil
}

// RemoveClass leaves the class's tasks, notes and events in place. They drop
// out of class views because those only resolve existing classes.
func (h *Handler) RemoveClass(ctx context.Context, req *apiv1.IDRequest) (*apiv1.Empty, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.RemoveClass(ctx, req.ID); err != nil {
		return nil, h.fail(ctx, err)
	}
	return &apiv1.Empty{}, nil
}

// tasks

func (h *Handler) ListTasks(ctx context.Context, req *apiv1.ListRequest) (*apiv1.TaskList, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	tasks := w.Tasks()
	if req.ClassID != "" {
		tasks = query.TasksForClass(w.Classes(), tasks, req.ClassID)
	}
	if req.Status != "" {
		tasks = query.TasksByStatus(tasks, req.Status)
	}
	out, err := query.Where(tasks, req.Where)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &apiv1.TaskList{Tasks: out}, nil
}

func (h *Handler) AddTask(ctx context.Context, req *model.TaskFields) (*model.Task, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	t, err := w.AddTask(ctx, *req)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &t, nil
}

func (h *Handler) UpdateTask(ctx context.Context, req *apiv1.UpdateTaskRequest) (*model.Task, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	t, err := w.UpdateTask(ctx, req.ID, req.Patch)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &t, nil
}

func (h *Handler) RemoveTask(ctx context.Context, req *apiv1.IDRequest) (*apiv1.Empty, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.RemoveTask(ctx, req.ID); err != nil {
		return nil, h.fail(ctx, err)
	}
	return &apiv1.Empty{}, nil
}

// notes

func (h *Handler) ListNotes(ctx context.Context, req *apiv1.ListRequest) (*apiv1.NoteList, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	notes := w.Notes()
	if req.ClassID != "" {
		notes = query.NotesForClass(w.Classes(), notes, req.ClassID)
	}
	out, err := query.Where(notes, req.Where)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &apiv1.NoteList{Notes: out}, nil
}

func (h *Handler) AddNote(ctx context.Context, req *model.NoteFields) (*model.Note, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	n, err := w.AddNote(ctx, *req)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &n, nil
}

func (h *Handler) UpdateNote(ctx context.Context, req *apiv1.UpdateNoteRequest) (*model.Note, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	n, err := w.UpdateNote(ctx, req.ID, req.Patch)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &n, nil
}

func (h *Handler) RemoveNote(ctx context.Context, req *apiv1.IDRequest) (*apiv1.Empty, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.RemoveNote(ctx, req.ID); err != nil {
		return nil, h.fail(ctx, err)
	}
	return &apiv1.Empty{}, nil
}

// contacts

func (h *Handler) ListContacts(ctx context.Context, req *apiv1.ListRequest) (*apiv1.ContactList, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	out, err := query.Where(w.Contacts(), req.Where)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &apiv1.ContactList{Contacts: out}, nil
}

func (h *Handler) AddContact(ctx context.Context, req *model.ContactFields) (*model.Contact, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	c, err := w.AddContact(ctx, *req)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &c, nil
}

func (h *Handler) UpdateContact(ctx context.Context, req *apiv1.UpdateContactRequest) (*model.Contact, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	c, err := w.UpdateContact(ctx, req.ID, req.Patch)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &c, nil
}

func (h *Handler) RemoveContact(ctx context.Context, req *apiv1.IDRequest) (*apiv1.Empty, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.RemoveContact(ctx, req.ID); err != nil {
		return nil, h.fail(ctx, err)
	}
	return &apiv1.Empty{}, nil
}

// events

func (h *Handler) ListEvents(ctx context.Context, req *apiv1.ListRequest) (*apiv1.EventList, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	events := w.Events()
	if req.ClassID != "" {
		events = query.EventsForClass(w.Classes(), events, req.ClassID)
	}
	out, err := query.Where(events, req.Where)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &apiv1.EventList{Events: out}, nil
}

func (h *Handler) AddEvent(ctx context.Context, req *model.EventFields) (*model.Event, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	e, err := w.AddEvent(ctx, *req)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &e, nil
}

func (h *Handler) UpdateEvent(ctx context.Context, req *apiv1.UpdateEventRequest) (*model.Event, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	e, err := w.UpdateEvent(ctx, req.ID, req.Patch)
	if err != nil {
		return nil, h.fail(ctx, err)
	}
	return &e, nil
}

func (h *Handler) RemoveEvent(ctx context.Context, req *apiv1.IDRequest) (*apiv1.Empty, error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.RemoveEvent(ctx, req.ID); err != nil {
		return nil, h.fail(ctx, err)
	}
	return &apiv1.Empty{}, nil
}
