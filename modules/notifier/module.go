package notifier

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/example/taskflow/modules/auth"
	"github.com/example/taskflow/modules/tasks"
	"github.com/go-monolith/mono"
)

// DefaultSweepInterval is how often reminders are sent when
// NOTIFY_SWEEP_INTERVAL is not set.
const DefaultSweepInterval = 24 * time.Hour

// NotifierModule runs the reminder sweeper as a mono module.
type NotifierModule struct {
	publisher *Publisher
	sweeper   *Sweeper
	interval  time.Duration
	natsURL   string

	users auth.AuthPort
	tasks tasks.TasksPort

	cancel context.CancelFunc
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*NotifierModule)(nil)
	_ mono.DependentModule       = (*NotifierModule)(nil)
	_ mono.HealthCheckableModule = (*NotifierModule)(nil)
)

// NewModule creates a new NotifierModule configured from the environment.
func NewModule() *NotifierModule {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	interval := DefaultSweepInterval
	if raw := os.Getenv("NOTIFY_SWEEP_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			log.Printf("[notifier] Invalid NOTIFY_SWEEP_INTERVAL %q, using %s", raw, DefaultSweepInterval)
		} else {
			interval = parsed
		}
	}

	return &NotifierModule{
		natsURL:  natsURL,
		interval: interval,
	}
}

// Name returns the module name.
func (m *NotifierModule) Name() string {
	return "notifier"
}

// Dependencies returns the list of module dependencies.
func (m *NotifierModule) Dependencies() []string {
	return []string{"auth", "tasks"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *NotifierModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.users = auth.NewAuthAdapter(container)
	case "tasks":
		m.tasks = tasks.NewTasksAdapter(container)
	}
}

// Start connects to NATS and launches the sweeper.
func (m *NotifierModule) Start(_ context.Context) error {
	if m.users == nil || m.tasks == nil {
		return fmt.Errorf("notifier module dependencies not set")
	}

	m.publisher = NewPublisher(m.natsURL)
	if err := m.publisher.Connect(); err != nil {
		return err
	}

	m.sweeper = NewSweeper(m.users, m.tasks, m.publisher, m.interval)

	// The sweeper outlives the Start context; it is stopped via
	// the module's own cancel func in Stop.
	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.sweeper.Run(runCtx)

	log.Println("[notifier] Module started successfully")
	return nil
}

// Stop stops the sweeper and closes the NATS connection.
func (m *NotifierModule) Stop(_ context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	if m.publisher != nil {
		m.publisher.Close()
	}
	log.Println("[notifier] Module stopped")
	return nil
}

// Health reports the NATS connection state.
func (m *NotifierModule) Health(_ context.Context) mono.HealthStatus {
	if m.publisher == nil || !m.publisher.IsConnected() {
		return mono.HealthStatus{
			Healthy: false,
			Message: "NATS connection unavailable",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "Notifier operational",
		Details: map[string]any{
			"sweep_interval": m.interval.String(),
		},
	}
}
