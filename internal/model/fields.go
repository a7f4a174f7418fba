package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var ErrInvalid = errors.New("invalid fields")

var validate = validator.New()

// Validate checks struct tags on v and wraps failures in ErrInvalid.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Add payloads: everything except id, owner and creation time.

type ClassFields struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color"`
}

type TaskFields struct {
	ClassID     string     `json:"classID"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"dueDate"`
	Status      TaskStatus `json:"status" validate:"omitempty,oneof=pending completed"`
}

type NoteFields struct {
	ClassID     string   `json:"classID"`
	Title       string   `json:"title" validate:"required"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments"`
}

type ContactFields struct {
	Name  string      `json:"name" validate:"required"`
	Type  ContactType `json:"type" validate:"omitempty,oneof=friend teacher other"`
	Email string      `json:"email" validate:"omitempty,email"`
	Phone string      `json:"phone"`
}

type EventFields struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	ClassID     string    `json:"classID,omitempty"`
}

func (f ClassFields) Validate() error { return Validate(f) }

func (f TaskFields) Validate() error {
	if f.DueDate.IsZero() {
		return fmt.Errorf("%w: dueDate is required", ErrInvalid)
	}
	return Validate(f)
}

func (f NoteFields) Validate() error    { return Validate(f) }
func (f ContactFields) Validate() error { return Validate(f) }

func (f EventFields) Validate() error {
	if f.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalid)
	}
	return Validate(f)
}

// Patches. A nil field is left untouched; none of them can reach id, owner or createdAt.

type ClassPatch struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Color *string `json:"color,omitempty"`
}

type TaskPatch struct {
	ClassID     *string     `json:"classID,omitempty"`
	Title       *string     `json:"title,omitempty" validate:"omitempty,min=1"`
	Description *string     `json:"description,omitempty"`
	DueDate     *time.Time  `json:"dueDate,omitempty"`
	Status      *TaskStatus `json:"status,omitempty" validate:"omitempty,oneof=pending completed"`
}

type NotePatch struct {
	ClassID     *string   `json:"classID,omitempty"`
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=1"`
	Content     *string   `json:"content,omitempty"`
	Attachments *[]string `json:"attachments,omitempty"`
}

type ContactPatch struct {
	Name  *string      `json:"name,omitempty" validate:"omitempty,min=1"`
	Type  *ContactType `json:"type,omitempty" validate:"omitempty,oneof=friend teacher other"`
	Email *string      `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string      `json:"phone,omitempty"`
}

type EventPatch struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1"`
	Description *string    `json:"description,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	ClassID     *string    `json:"classID,omitempty"`
}

func (p ClassPatch) Validate() error   { return Validate(p) }
func (p NotePatch) Validate() error    { return Validate(p) }
func (p ContactPatch) Validate() error { return Validate(p) }

func (p TaskPatch) Validate() error {
	if p.DueDate != nil && p.DueDate.IsZero() {
		return fmt.Errorf("%w: dueDate is required", ErrInvalid)
	}
	return Validate(p)
}

func (p EventPatch) Validate() error {
	if p.Date != nil && p.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalid)
	}
	return Validate(p)
}

func (p ClassPatch) Apply(c *Class) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
}

func (p TaskPatch) Apply(t *Task) {
	if p.ClassID != nil {
		t.ClassID = *p.ClassID
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

func (p NotePatch) Apply(n *Note) {
	if p.ClassID != nil {
		n.ClassID = *p.ClassID
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Attachments != nil {
		n.Attachments = append([]string(nil), (*p.Attachments)...)
	}
}

func (p ContactPatch) Apply(c *Contact) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
}

func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.ClassID != nil {
		e.ClassID = *p.ClassID
	}
}
