package model

import "time"

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleTutor   Role = "tutor"
)

type User struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL,omitempty"`
	Role     Role   `json:"role"`
}

// ProfilePatch carries the profile fields a user may change. nil leaves a field as is.
type ProfilePatch struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1"`
	PhotoURL *string `json:"photoURL,omitempty"`
}

func (p ProfilePatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.PhotoURL != nil {
		u.PhotoURL = *p.PhotoURL
	}
}

// Kind names one of the five per-user collections. The value is part of the slot key.
type Kind string

const (
	KindClasses  Kind = "classes"
	KindTasks    Kind = "tasks"
	KindNotes    Kind = "notes"
	KindContacts Kind = "contacts"
	KindEvents   Kind = "events"
)

var Kinds = []Kind{KindClasses, KindTasks, KindNotes, KindContacts, KindEvents}

// Record is implemented by every entity stored in a collection.
type Record interface {
	RecordID() string
	Owner() string
}

type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

type ContactType string

const (
	ContactFriend  ContactType = "friend"
	ContactTeacher ContactType = "teacher"
	ContactOther   ContactType = "other"
)

type Class struct {
	ID        string    `json:"id"`
	OwnerUID  string    `json:"ownerUID"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

type Task struct {
	ID          string     `json:"id"`
	OwnerUID    string     `json:"ownerUID"`
	ClassID     string     `json:"classID"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"dueDate"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type Note struct {
	ID          string    `json:"id"`
	OwnerUID    string    `json:"ownerUID"`
	ClassID     string    `json:"classID"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Attachments []string  `json:"attachments"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Contact struct {
	ID        string      `json:"id"`
	OwnerUID  string      `json:"ownerUID"`
	Name      string      `json:"name"`
	Type      ContactType `json:"type"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	CreatedAt time.Time   `json:"createdAt"`
}

type Event struct {
	ID          string    `json:"id"`
	OwnerUID    string    `json:"ownerUID"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	ClassID     string    `json:"classID,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (c Class) RecordID() string   { return c.ID }
func (t Task) RecordID() string    { return t.ID }
func (n Note) RecordID() string    { return n.ID }
func (c Contact) RecordID() string { return c.ID }
func (e Event) RecordID() string   { return e.ID }

func (c Class) Owner() string   { return c.OwnerUID }
func (t Task) Owner() string    { return t.OwnerUID }
func (n Note) Owner() string    { return n.OwnerUID }
func (c Contact) Owner() string { return c.OwnerUID }
func (e Event) Owner() string   { return e.OwnerUID }

// Account is a locally managed identity: the public user plus its password hash.
type Account struct {
	User
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
