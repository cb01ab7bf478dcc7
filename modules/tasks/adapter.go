package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/taskflow/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// TasksPort is the interface other modules use to query tasks over the
// service bus.
type TasksPort interface {
	DueToday(ctx context.Context, ownerID uint) ([]task.View, error)
	Overdue(ctx context.Context, ownerID uint) ([]task.View, error)
}

// TasksAdapter implements TasksPort using the service container.
type TasksAdapter struct {
	container mono.ServiceContainer
}

// NewTasksAdapter creates a new TasksAdapter.
func NewTasksAdapter(container mono.ServiceContainer) *TasksAdapter {
	return &TasksAdapter{container: container}
}

// DueToday returns the owner's tasks due within the current UTC day.
func (a *TasksAdapter) DueToday(ctx context.Context, ownerID uint) ([]task.View, error) {
	return a.callListService(ctx, "today", ownerID)
}

// Overdue returns the owner's overdue tasks.
func (a *TasksAdapter) Overdue(ctx context.Context, ownerID uint) ([]task.View, error) {
	return a.callListService(ctx, "overdue", ownerID)
}

func (a *TasksAdapter) callListService(ctx context.Context, name string, ownerID uint) ([]task.View, error) {
	req := TaskListRequest{OwnerID: ownerID}
	var resp TaskListResponse

	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		name,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", name, err)
	}
	return resp.Tasks, nil
}
