// Package task defines the task entity, its legal field values, and the
// derived temporal predicates (overdue, due-today, upcoming boundaries).
package task

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// AllStatuses lists every legal status value, in a stable order.
var AllStatuses = []Status{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

// IsTerminal reports whether the status disqualifies a task from being overdue.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus resolves a status token case-insensitively.
// It is the single place a string becomes a Status.
func ParseStatus(token string) (Status, error) {
	upper := Status(strings.ToUpper(strings.TrimSpace(token)))
	for _, s := range AllStatuses {
		if upper == s {
			return s, nil
		}
	}
	return "", &ValidationError{
		Field:   "status",
		Message: fmt.Sprintf("invalid status %q, must be one of: %v", token, AllStatuses),
	}
}

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// AllPriorities lists every legal priority value, in a stable order.
var AllPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority resolves a priority token case-insensitively.
func ParsePriority(token string) (Priority, error) {
	upper := Priority(strings.ToUpper(strings.TrimSpace(token)))
	for _, p := range AllPriorities {
		if upper == p {
			return p, nil
		}
	}
	return "", &ValidationError{
		Field:   "priority",
		Message: fmt.Sprintf("invalid priority %q, must be one of: %v", token, AllPriorities),
	}
}

// AttachmentList holds the ordered attachment URLs of a task.
// It is stored as a JSON-encoded column.
type AttachmentList []string

// Task represents a single task owned by a user.
type Task struct {
	TaskID      uint           `gorm:"primaryKey;autoIncrement" json:"task_id"`
	UserID      uint           `gorm:"index;not null" json:"user_id"`
	Title       string         `gorm:"size:200;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      Status         `gorm:"size:20;not null;default:PENDING" json:"status"`
	Priority    Priority       `gorm:"size:10;not null;default:LOW" json:"priority"`
	StartDate   time.Time      `json:"start_date"`
	DueDate     *time.Time     `json:"due_date"`
	Attachments AttachmentList `gorm:"serializer:json" json:"attachments"`
}

// TableName returns the table name for the Task model.
func (Task) TableName() string {
	return "tasks"
}

// IsOverdue reports whether the task is past its due date at the given
// instant. Tasks without a due date and tasks in a terminal status are
// never overdue. Stored timestamps are treated as UTC.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status.IsTerminal() {
		return false
	}
	return normalizeUTC(*t.DueDate).Before(normalizeUTC(now))
}

// View is the caller-facing shape of a task. IsOverdue is computed at
// serialization time, never stored.
type View struct {
	TaskID      uint     `json:"task_id"`
	UserID      uint     `json:"user_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	StartDate   string   `json:"start_date"`
	DueDate     *string  `json:"due_date"`
	Attachments []string `json:"attachments"`
	IsOverdue   bool     `json:"is_overdue"`
}

// ToView maps the task to its caller-facing representation, computing the
// overdue flag against the given instant.
func (t *Task) ToView(now time.Time) View {
	v := View{
		TaskID:      t.TaskID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		StartDate:   normalizeUTC(t.StartDate).Format(time.RFC3339),
		Attachments: t.Attachments,
		IsOverdue:   t.IsOverdue(now),
	}
	if v.Attachments == nil {
		v.Attachments = []string{}
	}
	if t.DueDate != nil {
		due := normalizeUTC(*t.DueDate).Format(time.RFC3339)
		v.DueDate = &due
	}
	return v
}

// StartOfDay returns midnight UTC of the day containing the given instant.
func StartOfDay(now time.Time) time.Time {
	now = normalizeUTC(now)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns midnight UTC of the day after the given instant. The
// due-today window is [StartOfDay, EndOfDay) and upcoming starts at EndOfDay.
func EndOfDay(now time.Time) time.Time {
	return StartOfDay(now).AddDate(0, 0, 1)
}

// normalizeUTC converts a timestamp to UTC, treating naive values as UTC
// already. All comparisons in this package go through it.
func normalizeUTC(t time.Time) time.Time {
	return t.UTC()
}
