package apiv1

import (
	"time"

	"skytrack/internal/model"
	"skytrack/internal/query"
)

type Empty struct{}

type RegisterRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Name     string     `json:"name"`
	Role     model.Role `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginWithGoogleRequest carries either a Google ID token or an OAuth
// authorization code to exchange for one.
type LoginWithGoogleRequest struct {
	IDToken string `json:"idToken,omitempty"`
	Code    string `json:"code,omitempty"`
}

type GoogleAuthURLRequest struct {
	State string `json:"state,omitempty"`
}

type GoogleAuthURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Session is returned by every sign-in call.
type Session struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	Provider     string     `json:"provider"`
	User         model.User `json:"user"`
}

type UserResponse struct {
	User model.User `json:"user"`
}

type UpdateProfileRequest struct {
	model.ProfilePatch
}

type UploadPhotoRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

type UploadPhotoResponse struct {
	URL  string     `json:"url"`
	User model.User `json:"user"`
}

// ListRequest filters a collection. ClassID restricts tasks, notes and events
// to a class that still exists; Where is an expression over record fields.
type ListRequest struct {
	ClassID string           `json:"classID,omitempty"`
	Status  model.TaskStatus `json:"status,omitempty"`
	Where   string           `json:"where,omitempty"`
}

type IDRequest struct {
	ID string `json:"id"`
}

type ClassList struct {
	Classes []model.Class `json:"classes"`
}

type TaskList struct {
	Tasks []model.Task `json:"tasks"`
}

type NoteList struct {
	Notes []model.Note `json:"notes"`
}

type ContactList struct {
	Contacts []model.Contact `json:"contacts"`
}

type EventList struct {
	Events []model.Event `json:"events"`
}

type UpdateClassRequest struct {
	ID    string           `json:"id"`
	Patch model.ClassPatch `json:"patch"`
}

type UpdateTaskRequest struct {
	ID    string          `json:"id"`
	Patch model.TaskPatch `json:"patch"`
}

type UpdateNoteRequest struct {
	ID    string          `json:"id"`
	Patch model.NotePatch `json:"patch"`
}

type UpdateContactRequest struct {
	ID    string             `json:"id"`
	Patch model.ContactPatch `json:"patch"`
}

type UpdateEventRequest struct {
	ID    string           `json:"id"`
	Patch model.EventPatch `json:"patch"`
}

type ClassDetailRequest struct {
	ClassID string `json:"classID"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	Results *query.SearchResults `json:"results"`
}

type NoteStatsRequest struct {
	NoteID string `json:"noteID"`
}

type DashboardResponse = query.Dashboard
type ClassDetailResponse = query.ClassDetail
type NoteStatsResponse = query.NoteStats
