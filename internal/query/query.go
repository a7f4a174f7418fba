// Package query derives the views pages show from a user's collections. Every
// function is pure: it never mutates its input and keeps no state.
package query

import (
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"skytrack/internal/model"
	"skytrack/internal/store"
)

var ErrClassNotFound = errors.New("class not found")

type Priority string

const (
	PriorityOverdue Priority = "overdue"
	PriorityUrgent  Priority = "urgent"
	PriorityHigh    Priority = "high"
	PriorityNormal  Priority = "normal"
)

func classExists(classes []model.Class, id string) bool {
	return id != "" && slices.ContainsFunc(classes, func(c model.Class) bool { return c.ID == id })
}

// TasksForClass returns the class's tasks, or nothing once the class no longer resolves.
func TasksForClass(classes []model.Class, tasks []model.Task, classID string) []model.Task {
	if !classExists(classes, classID) {
		return nil
	}
	return filter(tasks, func(t model.Task) bool { return t.ClassID == classID })
}

func NotesForClass(classes []model.Class, notes []model.Note, classID string) []model.Note {
	if !classExists(classes, classID) {
		return nil
	}
	return filter(notes, func(n model.Note) bool { return n.ClassID == classID })
}

func EventsForClass(classes []model.Class, events []model.Event, classID string) []model.Event {
	if !classExists(classes, classID) {
		return nil
	}
	return filter(events, func(e model.Event) bool { return e.ClassID == classID })
}

func TasksByStatus(tasks []model.Task, status model.TaskStatus) []model.Task {
	return filter(tasks, func(t model.Task) bool { return t.Status == status })
}

// EventsOn returns the events falling on day's calendar date in day's location.
func EventsOn(events []model.Event, day time.Time) []model.Event {
	y, m, d := day.Date()
	return filter(events, func(e model.Event) bool {
		ey, em, ed := e.Date.In(day.Location()).Date()
		return ey == y && em == m && ed == d
	})
}

// UpcomingTasks returns up to n pending tasks ordered by due date.
func UpcomingTasks(tasks []model.Task, n int) []model.Task {
	out := TasksByStatus(tasks, model.StatusPending)
	slices.SortStableFunc(out, func(a, b model.Task) int { return a.DueDate.Compare(b.DueDate) })
	return limit(out, n)
}

// UpcomingEvents returns up to n events at or after now, soonest first.
func UpcomingEvents(events []model.Event, now time.Time, n int) []model.Event {
	out := filter(events, func(e model.Event) bool { return !e.Date.Before(now) })
	slices.SortStableFunc(out, func(a, b model.Event) int { return a.Date.Compare(b.Date) })
	return limit(out, n)
}

// RecentNotes returns up to n notes, newest first.
func RecentNotes(notes []model.Note, n int) []model.Note {
	out := slices.Clone(notes)
	slices.SortStableFunc(out, func(a, b model.Note) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return limit(out, n)
}

// TaskPriority labels a due date by whole days remaining, rounded up.
func TaskPriority(due, now time.Time) Priority {
	days := math.Ceil(due.Sub(now).Hours() / 24)
	switch {
	case days < 0:
		return PriorityOverdue
	case days <= 1:
		return PriorityUrgent
	case days <= 3:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

func IsOverdue(t model.Task, now time.Time) bool {
	return t.Status == model.StatusPending && t.DueDate.Before(now)
}

// CompletionPercent is the rounded share of completed tasks, 0 for no tasks.
func CompletionPercent(tasks []model.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	done := len(TasksByStatus(tasks, model.StatusCompleted))
	return int(math.Round(float64(done) / float64(len(tasks)) * 100))
}

type Dashboard struct {
	Classes        int           `json:"classes"`
	Tasks          int           `json:"tasks"`
	CompletedTasks int           `json:"completedTasks"`
	Notes          int           `json:"notes"`
	Contacts       int           `json:"contacts"`
	Completion     int           `json:"completion"`
	UpcomingTasks  []model.Task  `json:"upcomingTasks"`
	UpcomingEvents []model.Event `json:"upcomingEvents"`
	RecentNotes    []model.Note  `json:"recentNotes"`
}

func BuildDashboard(s store.Snapshot, now time.Time) Dashboard {
	return Dashboard{
		Classes:        len(s.Classes),
		Tasks:          len(s.Tasks),
		CompletedTasks: len(TasksByStatus(s.Tasks, model.StatusCompleted)),
		Notes:          len(s.Notes),
		Contacts:       len(s.Contacts),
		Completion:     CompletionPercent(s.Tasks),
		UpcomingTasks:  UpcomingTasks(s.Tasks, 5),
		UpcomingEvents: UpcomingEvents(s.Events, now, 3),
		RecentNotes:    RecentNotes(s.Notes, 3),
	}
}

type ClassDetail struct {
	Class          model.Class     `json:"class"`
	Tasks          []model.Task    `json:"tasks"`
	Notes          []model.Note    `json:"notes"`
	Events         []model.Event   `json:"events"`
	Teachers       []model.Contact `json:"teachers"`
	Completed      int             `json:"completed"`
	Pending        int             `json:"pending"`
	Overdue        int             `json:"overdue"`
	Completion     int             `json:"completion"`
	UpcomingTasks  []model.Task    `json:"upcomingTasks"`
	UpcomingEvents []model.Event   `json:"upcomingEvents"`
	RecentNotes    []model.Note    `json:"recentNotes"`
}

func BuildClassDetail(s store.Snapshot, classID string, now time.Time) (ClassDetail, error) {
	i := slices.IndexFunc(s.Classes, func(c model.Class) bool { return c.ID == classID })
	if i < 0 {
		return ClassDetail{}, ErrClassNotFound
	}
	tasks := TasksForClass(s.Classes, s.Tasks, classID)
	notes := NotesForClass(s.Classes, s.Notes, classID)
	events := EventsForClass(s.Classes, s.Events, classID)

	return ClassDetail{
		Class:          s.Classes[i],
		Tasks:          tasks,
		Notes:          notes,
		Events:         events,
		Teachers:       filter(s.Contacts, func(c model.Contact) bool { return c.Type == model.ContactTeacher }),
		Completed:      len(TasksByStatus(tasks, model.StatusCompleted)),
		Pending:        len(TasksByStatus(tasks, model.StatusPending)),
		Overdue:        len(filter(tasks, func(t model.Task) bool { return IsOverdue(t, now) })),
		Completion:     CompletionPercent(tasks),
		UpcomingTasks:  UpcomingTasks(tasks, 5),
		UpcomingEvents: UpcomingEvents(events, now, 5),
		RecentNotes:    RecentNotes(notes, 6),
	}, nil
}

type SearchResults struct {
	Classes  []model.Class   `json:"classes"`
	Tasks    []model.Task    `json:"tasks"`
	Notes    []model.Note    `json:"notes"`
	Contacts []model.Contact `json:"contacts"`
}

const searchLimit = 5

// Search matches q case-insensitively against class and contact names and
// task and note titles. A blank query matches nothing.
func Search(s store.Snapshot, q string) *SearchResults {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	has := func(field string) bool { return strings.Contains(strings.ToLower(field), q) }
	return &SearchResults{
		Classes:  limit(filter(s.Classes, func(c model.Class) bool { return has(c.Name) }), searchLimit),
		Tasks:    limit(filter(s.Tasks, func(t model.Task) bool { return has(t.Title) }), searchLimit),
		Notes:    limit(filter(s.Notes, func(n model.Note) bool { return has(n.Title) }), searchLimit),
		Contacts: limit(filter(s.Contacts, func(c model.Contact) bool { return has(c.Name) }), searchLimit),
	}
}

type NoteStats struct {
	Words          int `json:"words"`
	Characters     int `json:"characters"`
	ReadingMinutes int `json:"readingMinutes"`
}

const wordsPerMinute = 200

func StatsFor(n model.Note) NoteStats {
	words := len(strings.Fields(n.Content))
	return NoteStats{
		Words:          words,
		Characters:     len([]rune(n.Content)),
		ReadingMinutes: int(math.Ceil(float64(words) / wordsPerMinute)),
	}
}

func filter[T any](items []T, keep func(T) bool) []T {
	var out []T
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func limit[T any](items []T, n int) []T {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}
