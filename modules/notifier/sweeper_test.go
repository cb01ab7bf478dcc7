package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/taskflow/domain/task"
	domain "github.com/example/taskflow/domain/user"
	"github.com/example/taskflow/modules/auth"
)

// fakeAuthPort implements auth.AuthPort; the sweeper only uses
// ListNotifiable.
type fakeAuthPort struct {
	users []auth.NotifiableUser
	err   error
}

func (f *fakeAuthPort) ValidateToken(context.Context, string) (*domain.Claims, error) {
	return nil, errors.New("not used")
}

func (f *fakeAuthPort) GetUser(context.Context, uint) (*domain.User, error) {
	return nil, errors.New("not used")
}

func (f *fakeAuthPort) ListNotifiable(context.Context) ([]auth.NotifiableUser, error) {
	return f.users, f.err
}

type fakeTasksPort struct {
	dueToday map[uint][]task.View
	overdue  map[uint][]task.View
	err      error
}

func (f *fakeTasksPort) DueToday(_ context.Context, ownerID uint) ([]task.View, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.dueToday[ownerID], nil
}

func (f *fakeTasksPort) Overdue(_ context.Context, ownerID uint) ([]task.View, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.overdue[ownerID], nil
}

type sentReminder struct {
	channel  string
	reminder Reminder
}

type capturingPublisher struct {
	sent     []sentReminder
	failFor  map[string]bool
	attempts int
}

func (p *capturingPublisher) Publish(_ context.Context, channel string, r Reminder) error {
	p.attempts++
	if p.failFor[channel] {
		return errors.New("simulated publish failure")
	}
	p.sent = append(p.sent, sentReminder{channel, r})
	return nil
}

func view(title, due string) task.View {
	v := task.View{Title: title}
	if due != "" {
		v.DueDate = &due
	}
	return v
}

func TestBuildDigest(t *testing.T) {
	dueToday := []task.View{view("Ship release", "2025-06-15T00:00:00Z")}
	overdue := []task.View{
		view("Pay invoice", "2025-06-10T00:00:00Z"),
		view("Call dentist", "2025-06-12T00:00:00Z"),
	}

	digest := BuildDigest(dueToday, overdue)

	if !strings.Contains(digest, "3 task(s)") {
		t.Errorf("digest should count all tasks: %q", digest)
	}
	if !strings.Contains(digest, "Due today:") || !strings.Contains(digest, "Overdue:") {
		t.Errorf("digest missing sections: %q", digest)
	}
	if !strings.Contains(digest, "Ship release (Due: 2025-06-15)") {
		t.Errorf("digest should render date-only due dates: %q", digest)
	}
	if !strings.Contains(digest, "Pay invoice (Due: 2025-06-10)") {
		t.Errorf("digest missing overdue line: %q", digest)
	}
}

func TestBuildDigestEmptySections(t *testing.T) {
	digest := BuildDigest(nil, []task.View{view("Late", "2025-06-01T00:00:00Z")})
	if strings.Contains(digest, "Due today:") {
		t.Errorf("empty section should be omitted: %q", digest)
	}
	if !strings.Contains(digest, "1 task(s)") {
		t.Errorf("digest = %q", digest)
	}
}

func TestSweepSendsOnlyToUsersWithWork(t *testing.T) {
	users := &fakeAuthPort{users: []auth.NotifiableUser{
		{UserID: 1, Email: "busy@example.com", NotifyChannel: "busy-channel"},
		{UserID: 2, Email: "idle@example.com", NotifyChannel: "idle-channel"},
	}}
	taskPort := &fakeTasksPort{
		dueToday: map[uint][]task.View{1: {view("Ship it", "2025-06-15T00:00:00Z")}},
		overdue:  map[uint][]task.View{},
	}
	pub := &capturingPublisher{}

	NewSweeper(users, taskPort, pub, time.Hour).Sweep(context.Background())

	if len(pub.sent) != 1 {
		t.Fatalf("sent %d reminders, want 1 (idle user skipped)", len(pub.sent))
	}
	got := pub.sent[0]
	if got.channel != "busy-channel" {
		t.Errorf("channel = %q", got.channel)
	}
	if got.reminder.UserID != 1 || got.reminder.Email != "busy@example.com" {
		t.Errorf("reminder = %+v", got.reminder)
	}
	if !strings.Contains(got.reminder.Body, "Ship it") {
		t.Errorf("body = %q", got.reminder.Body)
	}
	if !strings.Contains(got.reminder.Subject, "Task Reminder") {
		t.Errorf("subject = %q", got.reminder.Subject)
	}
}

func TestSweepContinuesPastPublishFailure(t *testing.T) {
	users := &fakeAuthPort{users: []auth.NotifiableUser{
		{UserID: 1, Email: "a@example.com", NotifyChannel: "broken"},
		{UserID: 2, Email: "b@example.com", NotifyChannel: "fine"},
	}}
	taskPort := &fakeTasksPort{
		overdue: map[uint][]task.View{
			1: {view("Late A", "2025-06-01T00:00:00Z")},
			2: {view("Late B", "2025-06-01T00:00:00Z")},
		},
	}
	pub := &capturingPublisher{failFor: map[string]bool{"broken": true}}

	NewSweeper(users, taskPort, pub, time.Hour).Sweep(context.Background())

	if pub.attempts != 2 {
		t.Errorf("attempted %d publishes, want 2 (failure must not abort the pass)", pub.attempts)
	}
	if len(pub.sent) != 1 || pub.sent[0].channel != "fine" {
		t.Errorf("sent = %+v", pub.sent)
	}
}

func TestSweepStopsWhenRecipientsUnavailable(t *testing.T) {
	users := &fakeAuthPort{err: errors.New("bus down")}
	pub := &capturingPublisher{}

	NewSweeper(users, &fakeTasksPort{}, pub, time.Hour).Sweep(context.Background())

	if pub.attempts != 0 {
		t.Errorf("no reminders should be attempted when the recipient list fails")
	}
}
