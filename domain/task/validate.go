package task

import (
	"fmt"
	"time"
	"unicode/utf8"
)

const (
	// TitleMaxLen bounds the title length in characters.
	TitleMaxLen = 200
	// dueDateLayout is the date-only input format for due dates.
	dueDateLayout = "2006-01-02"
)

// CreateInput carries the raw, caller-supplied fields of a new task. Enum
// and date fields arrive as tokens and are resolved during validation.
type CreateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
}

// ValidateCreate checks the input against creation rules and returns a task
// ready for persistence (owner and id are assigned by the caller).
//
// Rules: title 1-200 chars; status and priority resolved case-insensitively
// with defaults PENDING and LOW; a task can never be created in a terminal
// status; a due date must not lie strictly before today (UTC, date-only, so
// a due date of today is accepted).
func ValidateCreate(in CreateInput, now time.Time) (*Task, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}

	status := StatusPending
	if in.Status != "" {
		parsed, err := ParseStatus(in.Status)
		if err != nil {
			return nil, err
		}
		if parsed.IsTerminal() {
			return nil, &ValidationError{
				Field: "status",
				Message: fmt.Sprintf(
					"cannot create a task with %s status, new tasks must be %s or %s",
					parsed, StatusPending, StatusInProgress),
			}
		}
		status = parsed
	}

	priority := PriorityLow
	if in.Priority != "" {
		parsed, err := ParsePriority(in.Priority)
		if err != nil {
			return nil, err
		}
		priority = parsed
	}

	var dueDate *time.Time
	if in.DueDate != "" {
		due, err := parseDueDate(in.DueDate)
		if err != nil {
			return nil, err
		}
		if due.Before(StartOfDay(now)) {
			return nil, &ValidationError{Field: "due_date", Message: "due date cannot be in the past"}
		}
		dueDate = &due
	}

	return &Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		StartDate:   now.UTC(),
		DueDate:     dueDate,
		Attachments: AttachmentList{},
	}, nil
}

// UpdateInput carries the raw fields of a partial update. Nil means "leave
// unchanged"; a present field is validated exactly like on create.
type UpdateInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	DueDate     *string
}

// Patch holds a validated partial update.
type Patch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	DueDate     *time.Time
}

// ValidateUpdate checks a partial update. Unlike create, any of the four
// statuses may be set; the only guarded transition is "creation must not
// start terminal".
func ValidateUpdate(in UpdateInput) (Patch, error) {
	var patch Patch

	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return Patch{}, err
		}
		patch.Title = in.Title
	}
	if in.Description != nil {
		patch.Description = in.Description
	}
	if in.Status != nil {
		status, err := ParseStatus(*in.Status)
		if err != nil {
			return Patch{}, err
		}
		patch.Status = &status
	}
	if in.Priority != nil {
		priority, err := ParsePriority(*in.Priority)
		if err != nil {
			return Patch{}, err
		}
		patch.Priority = &priority
	}
	if in.DueDate != nil {
		due, err := parseDueDate(*in.DueDate)
		if err != nil {
			return Patch{}, err
		}
		patch.DueDate = &due
	}

	return patch, nil
}

// Apply copies the present patch fields onto the task. Absent fields are
// untouched; the attachment list is never replaced here.
func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
}

func validateTitle(title string) error {
	if title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if utf8.RuneCountInString(title) > TitleMaxLen {
		return &ValidationError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", TitleMaxLen),
		}
	}
	return nil
}

// parseDueDate accepts a date-only value or a full RFC 3339 timestamp and
// normalizes the result to UTC.
func parseDueDate(value string) (time.Time, error) {
	if t, err := time.Parse(dueDateLayout, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, &ValidationError{
		Field:   "due_date",
		Message: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD or RFC 3339", value),
	}
}
