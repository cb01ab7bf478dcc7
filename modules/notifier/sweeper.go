package notifier

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/taskflow/domain/task"
	"github.com/example/taskflow/modules/auth"
	"github.com/example/taskflow/modules/tasks"
)

// ReminderPublisher sends a reminder to a recipient's channel.
type ReminderPublisher interface {
	Publish(ctx context.Context, channel string, r Reminder) error
}

// Sweeper periodically scans for due and overdue tasks and sends a
// digest to each user who configured a notify channel.
type Sweeper struct {
	users     auth.AuthPort
	tasks     tasks.TasksPort
	publisher ReminderPublisher
	interval  time.Duration
}

// NewSweeper creates a sweeper.
func NewSweeper(users auth.AuthPort, taskPort tasks.TasksPort, publisher ReminderPublisher, interval time.Duration) *Sweeper {
	return &Sweeper{
		users:     users,
		tasks:     taskPort,
		publisher: publisher,
		interval:  interval,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
// The first sweep runs one interval after start.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[notifier] Sweeper running every %s", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("[notifier] Sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single reminder pass. Delivery failures are logged and
// do not stop the pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	recipients, err := s.users.ListNotifiable(ctx)
	if err != nil {
		log.Printf("[notifier] Failed to list recipients: %v", err)
		return
	}

	sent := 0
	for _, u := range recipients {
		dueToday, err := s.tasks.DueToday(ctx, u.UserID)
		if err != nil {
			log.Printf("[notifier] Failed to load due tasks for user %d: %v", u.UserID, err)
			continue
		}

		overdue, err := s.tasks.Overdue(ctx, u.UserID)
		if err != nil {
			log.Printf("[notifier] Failed to load overdue tasks for user %d: %v", u.UserID, err)
			continue
		}

		if len(dueToday) == 0 && len(overdue) == 0 {
			continue
		}

		reminder := Reminder{
			UserID:  u.UserID,
			Email:   u.Email,
			Subject: "[TaskFlow] Task Reminder: Upcoming Due Tasks",
			Body:    BuildDigest(dueToday, overdue),
			SentAt:  time.Now().UTC().Format(time.RFC3339),
		}

		if err := s.publisher.Publish(ctx, u.NotifyChannel, reminder); err != nil {
			log.Printf("[notifier] Failed to send reminder to user %d (%s): %v", u.UserID, u.Email, err)
			continue
		}

		log.Printf("[notifier] Reminder sent to user %d (%s)", u.UserID, u.Email)
		sent++
	}

	log.Printf("[notifier] Sweep complete: %d reminder(s) sent to %d recipient(s)", sent, len(recipients))
}

// BuildDigest renders the plain-text reminder body.
func BuildDigest(dueToday, overdue []task.View) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[REMINDER] You have %d task(s) needing attention!\n", len(dueToday)+len(overdue))

	if len(dueToday) > 0 {
		b.WriteString("\nDue today:\n")
		for _, t := range dueToday {
			fmt.Fprintf(&b, "- %s (Due: %s)\n", t.Title, digestDate(t.DueDate))
		}
	}

	if len(overdue) > 0 {
		b.WriteString("\nOverdue:\n")
		for _, t := range overdue {
			fmt.Fprintf(&b, "- %s (Due: %s)\n", t.Title, digestDate(t.DueDate))
		}
	}

	return b.String()
}

func digestDate(due *string) string {
	if due == nil {
		return "unscheduled"
	}
	if ts, err := time.Parse(time.RFC3339, *due); err == nil {
		return ts.Format("2006-01-02")
	}
	return *due
}
