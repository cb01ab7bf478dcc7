package tasks

import (
	"github.com/example/taskflow/domain/task"
)

// AttachmentUpload carries one file to be stored alongside a task. Data is
// base64-encoded on the wire by encoding/json.
type AttachmentUpload struct {
	Name        string `json:"name"`
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

// CreateTaskRequest is the request for creating a task. OwnerID is filled by
// the API layer from verified claims, never from the client payload.
type CreateTaskRequest struct {
	OwnerID     uint               `json:"owner_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      string             `json:"status"`
	Priority    string             `json:"priority"`
	DueDate     string             `json:"due_date"`
	Attachments []AttachmentUpload `json:"attachments,omitempty"`
}

// CreateTaskResponse is the response after creating a task. SkippedUploads
// counts attachment files dropped because their upload failed.
type CreateTaskResponse struct {
	Task           task.View `json:"task"`
	SkippedUploads int       `json:"skipped_uploads,omitempty"`
}

// GetTaskRequest is the request for fetching a single task.
type GetTaskRequest struct {
	OwnerID uint `json:"owner_id"`
	TaskID  uint `json:"task_id"`
}

// GetTaskResponse is the response containing a single task.
type GetTaskResponse struct {
	Task task.View `json:"task"`
}

// ListTasksRequest is the request for the filtered, paginated list.
type ListTasksRequest struct {
	OwnerID  uint   `json:"owner_id"`
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Search   string `json:"search,omitempty"`
	Page     int    `json:"page,omitempty"`
	PerPage  int    `json:"per_page,omitempty"`
}

// PaginationMeta describes the position of a page within the full result.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// ListTasksResponse is the response for the filtered, paginated list.
type ListTasksResponse struct {
	Tasks      []task.View    `json:"tasks"`
	Pagination PaginationMeta `json:"pagination"`
}

// TaskListRequest is the request for the temporal views (today, overdue,
// upcoming).
type TaskListRequest struct {
	OwnerID uint `json:"owner_id"`
}

// TaskListResponse is the response for the unpaginated task views.
type TaskListResponse struct {
	Tasks []task.View `json:"tasks"`
	Total int         `json:"total"`
}

// RecentTasksRequest is the request for the most recently created tasks.
type RecentTasksRequest struct {
	OwnerID uint `json:"owner_id"`
	Limit   int  `json:"limit,omitempty"`
}

// StatsRequest is the request for per-owner task statistics.
type StatsRequest struct {
	OwnerID uint `json:"owner_id"`
}

// StatsResponse aggregates the owner's tasks. StatusCounts always contains
// all four status tokens, zeroes included.
type StatsResponse struct {
	StatusCounts map[string]int64 `json:"status_counts"`
	OverdueCount int64            `json:"overdue_count"`
}

// UpdateTaskRequest is the request for a partial update. Nil fields are left
// unchanged; new attachments are appended, never replacing the list.
type UpdateTaskRequest struct {
	OwnerID     uint               `json:"owner_id"`
	TaskID      uint               `json:"task_id"`
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Status      *string            `json:"status,omitempty"`
	Priority    *string            `json:"priority,omitempty"`
	DueDate     *string            `json:"due_date,omitempty"`
	Attachments []AttachmentUpload `json:"attachments,omitempty"`
}

// UpdateTaskResponse is the response after a partial update.
type UpdateTaskResponse struct {
	Task           task.View `json:"task"`
	SkippedUploads int       `json:"skipped_uploads,omitempty"`
}

// DeleteTaskRequest is the request for deleting a single task.
type DeleteTaskRequest struct {
	OwnerID uint `json:"owner_id"`
	TaskID  uint `json:"task_id"`
}

// DeleteTaskResponse is the response after deleting a task.
type DeleteTaskResponse struct {
	Deleted bool `json:"deleted"`
	TaskID  uint `json:"task_id"`
}

// BulkDeleteRequest is the request for deleting a set of tasks.
type BulkDeleteRequest struct {
	OwnerID uint   `json:"owner_id"`
	TaskIDs []uint `json:"task_ids"`
}

// BulkDeleteResponse reports how many tasks the bulk delete removed.
type BulkDeleteResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}
