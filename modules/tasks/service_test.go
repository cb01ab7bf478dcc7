package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/taskflow/domain/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory AttachmentStore. Names listed in failNames
// fail their upload.
type fakeStore struct {
	objects   map[string][]byte
	failNames map[string]bool
	deleted   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:   make(map[string][]byte),
		failNames: make(map[string]bool),
	}
}

func (f *fakeStore) Store(_ context.Context, ownerID uint, name string, data []byte, _ string) (string, error) {
	if f.failNames[name] {
		return "", errors.New("simulated store failure")
	}
	url := fmt.Sprintf("http://store.local/%d/%s", ownerID, name)
	f.objects[url] = data
	return url, nil
}

func (f *fakeStore) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	delete(f.objects, url)
	return nil
}

func newTestService(t *testing.T, store AttachmentStore) *Service {
	t.Helper()
	return NewService(NewRepository(setupTestDB(t)), store, nil)
}

func TestService_Create(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	resp, err := svc.Create(ctx, CreateTaskRequest{
		OwnerID:  1,
		Title:    "Write tests",
		Priority: "high",
	})
	require.NoError(t, err)

	assert.NotZero(t, resp.Task.TaskID)
	assert.Equal(t, uint(1), resp.Task.UserID)
	assert.Equal(t, "PENDING", resp.Task.Status)
	assert.Equal(t, "HIGH", resp.Task.Priority)
	assert.False(t, resp.Task.IsOverdue)
	assert.NotNil(t, resp.Task.Attachments)
}

func TestService_CreateRejectsBadInput(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateTaskRequest{OwnerID: 1, Title: "t", Status: "COMPLETED"})
	require.Error(t, err)
	assert.True(t, task.IsValidation(err), "terminal initial status must be a validation error")

	_, err = svc.Create(ctx, CreateTaskRequest{OwnerID: 1, Title: "t", DueDate: "2001-01-01"})
	require.Error(t, err)
	assert.True(t, task.IsValidation(err), "past due date must be a validation error")
}

func TestService_CreateSkipsFailedUploads(t *testing.T) {
	store := newFakeStore()
	store.failNames["broken.png"] = true
	svc := newTestService(t, store)

	resp, err := svc.Create(context.Background(), CreateTaskRequest{
		OwnerID: 1,
		Title:   "With files",
		Attachments: []AttachmentUpload{
			{Name: "ok.txt", Data: []byte("hello")},
			{Name: "broken.png", Data: []byte{1, 2, 3}},
		},
	})
	require.NoError(t, err, "a failed upload must not fail the create")

	assert.Equal(t, 1, resp.SkippedUploads)
	require.Len(t, resp.Task.Attachments, 1)
	assert.Contains(t, resp.Task.Attachments[0], "ok.txt")
}

func TestService_ListValidatesFilterTokens(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.List(ctx, ListTasksRequest{OwnerID: 1, Status: "DONE"})
	require.Error(t, err, "an invalid filter token must error, not match nothing")
	assert.True(t, task.IsValidation(err))

	_, err = svc.List(ctx, ListTasksRequest{OwnerID: 1, Priority: "banana"})
	require.Error(t, err)
}

func TestService_ListPaginationMeta(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := svc.Create(ctx, CreateTaskRequest{OwnerID: 1, Title: fmt.Sprintf("task %d", i)})
		require.NoError(t, err)
	}

	resp, err := svc.List(ctx, ListTasksRequest{OwnerID: 1, Page: 2, PerPage: 5})
	require.NoError(t, err)

	assert.Len(t, resp.Tasks, 5)
	assert.Equal(t, int64(15), resp.Pagination.TotalItems)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.True(t, resp.Pagination.HasNext)
	assert.True(t, resp.Pagination.HasPrev)

	// Past the last page: empty items, no error.
	resp, err = svc.List(ctx, ListTasksRequest{OwnerID: 1, Page: 4, PerPage: 5})
	require.NoError(t, err)
	assert.Empty(t, resp.Tasks)
	assert.False(t, resp.Pagination.HasNext)

	// Defaults: page 1, five per page.
	resp, err = svc.List(ctx, ListTasksRequest{OwnerID: 1})
	require.NoError(t, err)
	assert.Len(t, resp.Tasks, DefaultPerPage)
	assert.Equal(t, 1, resp.Pagination.Page)

	// Oversized page size is clamped.
	resp, err = svc.List(ctx, ListTasksRequest{OwnerID: 1, PerPage: 5000})
	require.NoError(t, err)
	assert.Equal(t, MaxPerPage, resp.Pagination.PerPage)
}

func TestService_RecentLimitClamped(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	for i := 0; i < MaxPerPage+10; i++ {
		_, err := svc.Create(ctx, CreateTaskRequest{OwnerID: 1, Title: fmt.Sprintf("task %d", i)})
		require.NoError(t, err)
	}

	// Defaults when the limit is absent.
	resp, err := svc.Recent(ctx, RecentTasksRequest{OwnerID: 1})
	require.NoError(t, err)
	assert.Len(t, resp.Tasks, DefaultRecentLimit)

	// An oversized limit is clamped like per_page.
	resp, err = svc.Recent(ctx, RecentTasksRequest{OwnerID: 1, Limit: 1000000})
	require.NoError(t, err)
	assert.Len(t, resp.Tasks, MaxPerPage)
}

func TestService_OwnerIsolation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	mine, err := svc.Create(ctx, CreateTaskRequest{OwnerID: 1, Title: "mine"})
	require.NoError(t, err)
	theirs, err := svc.Create(ctx, CreateTaskRequest{OwnerID: 2, Title: "theirs"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, GetTaskRequest{OwnerID: 1, TaskID: theirs.Task.TaskID})
	assert.ErrorIs(t, err, task.ErrNotFound, "foreign task must look missing")

	title := "hijacked"
	_, err = svc.Update(ctx, UpdateTaskRequest{OwnerID: 2, TaskID: mine.Task.TaskID, Title: &title})
	assert.ErrorIs(t, err, task.ErrNotFound)

	_, err = svc.Delete(ctx, DeleteTaskRequest{OwnerID: 2, TaskID: mine.Task.TaskID})
	assert.ErrorIs(t, err, task.ErrNotFound)

	list, err := svc.List(ctx, ListTasksRequest{OwnerID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Pagination.TotalItems)
}

func TestService_UpdateAppendsAttachments(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTaskRequest{
		OwnerID:     1,
		Title:       "with file",
		Attachments: []AttachmentUpload{{Name: "first.txt", Data: []byte("a")}},
	})
	require.NoError(t, err)
	require.Len(t, created.Task.Attachments, 1)

	updated, err := svc.Update(ctx, UpdateTaskRequest{
		OwnerID:     1,
		TaskID:      created.Task.TaskID,
		Attachments: []AttachmentUpload{{Name: "second.txt", Data: []byte("b")}},
	})
	require.NoError(t, err)

	require.Len(t, updated.Task.Attachments, 2, "uploads append, never replace")
	assert.Contains(t, updated.Task.Attachments[0], "first.txt")
	assert.Contains(t, updated.Task.Attachments[1], "second.txt")
}

func TestService_DeleteCleansAttachmentsAndIsIdempotentlyNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(t, store)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateTaskRequest{
		OwnerID:     1,
		Title:       "doomed",
		Attachments: []AttachmentUpload{{Name: "file.txt", Data: []byte("x")}},
	})
	require.NoError(t, err)

	resp, err := svc.Delete(ctx, DeleteTaskRequest{OwnerID: 1, TaskID: created.Task.TaskID})
	require.NoError(t, err)
	assert.True(t, resp.Deleted)
	assert.Len(t, store.deleted, 1)

	// Second delete of the same id reports not found.
	_, err = svc.Delete(ctx, DeleteTaskRequest{OwnerID: 1, TaskID: created.Task.TaskID})
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func TestService_BulkDelete(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateTaskRequest{OwnerID: 1, Title: "a"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateTaskRequest{OwnerID: 1, Title: "b"})
	require.NoError(t, err)
	foreign, err := svc.Create(ctx, CreateTaskRequest{OwnerID: 2, Title: "foreign"})
	require.NoError(t, err)

	t.Run("empty set rejected", func(t *testing.T) {
		_, err := svc.BulkDelete(ctx, BulkDeleteRequest{OwnerID: 1})
		require.Error(t, err)
		assert.True(t, task.IsValidation(err))
	})

	t.Run("no match reports nothing to delete", func(t *testing.T) {
		_, err := svc.BulkDelete(ctx, BulkDeleteRequest{OwnerID: 1, TaskIDs: []uint{9999, foreign.Task.TaskID}})
		assert.ErrorIs(t, err, task.ErrNothingToDelete)
	})

	t.Run("partial match deletes only owned", func(t *testing.T) {
		resp, err := svc.BulkDelete(ctx, BulkDeleteRequest{
			OwnerID: 1,
			TaskIDs: []uint{a.Task.TaskID, b.Task.TaskID, foreign.Task.TaskID, 9999},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), resp.DeletedCount)

		_, err = svc.Get(ctx, GetTaskRequest{OwnerID: 2, TaskID: foreign.Task.TaskID})
		assert.NoError(t, err, "foreign task must survive")
	})
}

func TestService_Stats(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateTaskRequest{OwnerID: 1, Title: "a"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateTaskRequest{OwnerID: 1, Title: "b"})
	require.NoError(t, err)

	done := "completed"
	_, err = svc.Update(ctx, UpdateTaskRequest{OwnerID: 1, TaskID: b.Task.TaskID, Status: &done})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, StatsRequest{OwnerID: 1})
	require.NoError(t, err)

	assert.Len(t, stats.StatusCounts, 4, "all four statuses always present")
	assert.Equal(t, int64(1), stats.StatusCounts["PENDING"])
	assert.Equal(t, int64(1), stats.StatusCounts["COMPLETED"])
	assert.Equal(t, int64(0), stats.StatusCounts["IN_PROGRESS"])
	assert.Equal(t, int64(0), stats.StatusCounts["CANCELLED"])
	assert.Equal(t, int64(0), stats.OverdueCount)
}

// Full lifecycle: create with a future due date, backdate it via update,
// observe the overdue flag, complete the task, flag clears.
func TestService_OverdueLifecycle(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	future := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	created, err := svc.Create(ctx, CreateTaskRequest{OwnerID: 1, Title: "slippery deadline", DueDate: future})
	require.NoError(t, err)
	assert.False(t, created.Task.IsOverdue)

	past := time.Now().UTC().AddDate(0, 0, -3).Format(time.RFC3339)
	backdated, err := svc.Update(ctx, UpdateTaskRequest{OwnerID: 1, TaskID: created.Task.TaskID, DueDate: &past})
	require.NoError(t, err, "updates may backdate a due date")
	assert.True(t, backdated.Task.IsOverdue)

	overdue, err := svc.Overdue(ctx, TaskListRequest{OwnerID: 1})
	require.NoError(t, err)
	require.Equal(t, 1, overdue.Total)

	stats, err := svc.Stats(ctx, StatsRequest{OwnerID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.OverdueCount)

	done := "COMPLETED"
	completed, err := svc.Update(ctx, UpdateTaskRequest{OwnerID: 1, TaskID: created.Task.TaskID, Status: &done})
	require.NoError(t, err)
	assert.False(t, completed.Task.IsOverdue, "terminal status clears the overdue flag")

	overdue, err = svc.Overdue(ctx, TaskListRequest{OwnerID: 1})
	require.NoError(t, err)
	assert.Zero(t, overdue.Total)
}
