// Package tasks provides the owner-scoped task query and lifecycle services.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/example/taskflow/domain/task"
	"github.com/example/taskflow/modules/cache"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CacheProvider hands out the cache service once its module has started.
type CacheProvider interface {
	GetCache() cache.CacheService
}

// StoreProvider hands out the attachment store once its module has started.
type StoreProvider interface {
	GetStore() AttachmentStore
}

// TasksModule provides task management services backed by GORM + SQLite.
type TasksModule struct {
	db            *gorm.DB
	repo          *Repository
	service       *Service
	dbPath        string
	storeProvider StoreProvider
	cacheProvider CacheProvider
}

// Compile-time interface checks.
var _ mono.Module = (*TasksModule)(nil)
var _ mono.ServiceProviderModule = (*TasksModule)(nil)
var _ mono.HealthCheckableModule = (*TasksModule)(nil)

// NewModule creates a new TasksModule. The providers are consulted during
// Start, after their own modules have started.
func NewModule(storeProvider StoreProvider, cacheProvider CacheProvider) *TasksModule {
	dbPath := os.Getenv("TASKS_DB_PATH")
	if dbPath == "" {
		dbPath = "taskflow.db"
	}
	return &TasksModule{
		dbPath:        dbPath,
		storeProvider: storeProvider,
		cacheProvider: cacheProvider,
	}
}

// Name returns the module name.
func (m *TasksModule) Name() string {
	return "tasks"
}

// Start opens the database, runs migrations and builds the service.
func (m *TasksModule) Start(_ context.Context) error {
	log.Printf("[tasks] Connecting to SQLite database: %s", m.dbPath)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := m.db.AutoMigrate(&task.Task{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.repo = NewRepository(m.db)

	var store AttachmentStore
	if m.storeProvider != nil {
		store = m.storeProvider.GetStore()
	}
	var c cache.CacheService
	if m.cacheProvider != nil {
		c = m.cacheProvider.GetCache()
	}
	m.service = NewService(m.repo, store, c)

	log.Println("[tasks] Module started")
	return nil
}

// Stop closes the database connection.
func (m *TasksModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	log.Println("[tasks] Database connection closed")
	return nil
}

// Health performs a health check on the tasks module.
func (m *TasksModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
// The framework prefixes service names with "services.tasks.".
func (m *TasksModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create", json.Unmarshal, json.Marshal, m.handleCreate,
	); err != nil {
		return fmt.Errorf("failed to register create service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "get", json.Unmarshal, json.Marshal, m.handleGet,
	); err != nil {
		return fmt.Errorf("failed to register get service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "list", json.Unmarshal, json.Marshal, m.handleList,
	); err != nil {
		return fmt.Errorf("failed to register list service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "overdue", json.Unmarshal, json.Marshal, m.handleOverdue,
	); err != nil {
		return fmt.Errorf("failed to register overdue service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "today", json.Unmarshal, json.Marshal, m.handleDueToday,
	); err != nil {
		return fmt.Errorf("failed to register today service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "upcoming", json.Unmarshal, json.Marshal, m.handleUpcoming,
	); err != nil {
		return fmt.Errorf("failed to register upcoming service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "recent", json.Unmarshal, json.Marshal, m.handleRecent,
	); err != nil {
		return fmt.Errorf("failed to register recent service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "stats", json.Unmarshal, json.Marshal, m.handleStats,
	); err != nil {
		return fmt.Errorf("failed to register stats service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "update", json.Unmarshal, json.Marshal, m.handleUpdate,
	); err != nil {
		return fmt.Errorf("failed to register update service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "delete", json.Unmarshal, json.Marshal, m.handleDelete,
	); err != nil {
		return fmt.Errorf("failed to register delete service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "bulk-delete", json.Unmarshal, json.Marshal, m.handleBulkDelete,
	); err != nil {
		return fmt.Errorf("failed to register bulk-delete service: %w", err)
	}

	log.Printf("[tasks] Registered services: services.tasks.{create,get,list,overdue,today,upcoming,recent,stats,update,delete,bulk-delete}")
	return nil
}

// Service handlers delegate to the task service.

func (m *TasksModule) handleCreate(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (CreateTaskResponse, error) {
	return m.service.Create(ctx, req)
}

func (m *TasksModule) handleGet(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (GetTaskResponse, error) {
	return m.service.Get(ctx, req)
}

func (m *TasksModule) handleList(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	return m.service.List(ctx, req)
}

func (m *TasksModule) handleOverdue(ctx context.Context, req TaskListRequest, _ *mono.Msg) (TaskListResponse, error) {
	return m.service.Overdue(ctx, req)
}

func (m *TasksModule) handleDueToday(ctx context.Context, req TaskListRequest, _ *mono.Msg) (TaskListResponse, error) {
	return m.service.DueToday(ctx, req)
}

func (m *TasksModule) handleUpcoming(ctx context.Context, req TaskListRequest, _ *mono.Msg) (TaskListResponse, error) {
	return m.service.Upcoming(ctx, req)
}

func (m *TasksModule) handleRecent(ctx context.Context, req RecentTasksRequest, _ *mono.Msg) (TaskListResponse, error) {
	return m.service.Recent(ctx, req)
}

func (m *TasksModule) handleStats(ctx context.Context, req StatsRequest, _ *mono.Msg) (StatsResponse, error) {
	return m.service.Stats(ctx, req)
}

func (m *TasksModule) handleUpdate(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (UpdateTaskResponse, error) {
	return m.service.Update(ctx, req)
}

func (m *TasksModule) handleDelete(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	return m.service.Delete(ctx, req)
}

func (m *TasksModule) handleBulkDelete(ctx context.Context, req BulkDeleteRequest, _ *mono.Msg) (BulkDeleteResponse, error) {
	return m.service.BulkDelete(ctx, req)
}
