package attachments

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/example/taskflow/modules/tasks"
	"github.com/go-monolith/mono"
)

// Module provides attachment storage as a mono module.
type Module struct {
	store   *JetStreamObjectStore
	service *Service
	natsURL string
	bucket  string
	baseURL string
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)
var _ tasks.StoreProvider = (*Module)(nil)

// NewModule creates a new attachments module configured from the environment.
func NewModule() *Module {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}
	bucket := os.Getenv("ATTACHMENTS_BUCKET")
	if bucket == "" {
		bucket = "task-attachments"
	}
	baseURL := os.Getenv("ATTACHMENTS_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000/api/v1/attachments"
	}
	return &Module{
		natsURL: natsURL,
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "attachments"
}

// Start connects to NATS and prepares the object store bucket.
func (m *Module) Start(ctx context.Context) error {
	store, err := NewJetStreamObjectStore(m.natsURL, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return fmt.Errorf("failed to init object store bucket: %w", err)
	}

	m.store = store
	m.service = NewService(store, m.baseURL)

	log.Printf("[attachments] Object store ready (bucket: %s)", m.bucket)
	return nil
}

// Stop closes the NATS connection.
func (m *Module) Stop(_ context.Context) error {
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			return err
		}
	}
	log.Println("[attachments] Module stopped")
	return nil
}

// Health reports the object store health.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.store == nil || !m.store.IsConnected() {
		return mono.HealthStatus{
			Healthy: false,
			Message: "object store not connected",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"bucket": m.bucket,
		},
	}
}

// GetStore returns the attachment store consumed by the tasks module.
func (m *Module) GetStore() tasks.AttachmentStore {
	if m.service == nil {
		return nil
	}
	return m.service
}

// GetService returns the attachment service for the download route.
func (m *Module) GetService() *Service {
	return m.service
}
