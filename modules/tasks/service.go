package tasks

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/example/taskflow/domain/task"
	"github.com/example/taskflow/modules/cache"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultPerPage is the page size used when the caller omits one.
	DefaultPerPage = 5
	// MaxPerPage caps the page size to bound response sizes.
	MaxPerPage = 100
	// DefaultRecentLimit is how many tasks the recent view returns by default.
	DefaultRecentLimit = 5
)

// AttachmentStore is the attachment-store collaborator: store bytes and get
// back a retrievable URL, delete by URL. Deletion is best-effort.
type AttachmentStore interface {
	Store(ctx context.Context, ownerID uint, name string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Service implements every owner-scoped task operation. All methods receive
// the owner id explicitly; it is never read from client-controlled fields.
type Service struct {
	repo    *Repository
	store   AttachmentStore
	cache   cache.CacheService
	sfGroup singleflight.Group
}

// NewService creates a new task service. store and cache may be nil, which
// disables attachment handling and stats caching respectively.
func NewService(repo *Repository, store AttachmentStore, c cache.CacheService) *Service {
	return &Service{
		repo:  repo,
		store: store,
		cache: c,
	}
}

// Create validates the input, uploads any attachment files and persists the
// task. A failed individual upload drops that one file and is counted in the
// response; the task is still created.
func (s *Service) Create(ctx context.Context, req CreateTaskRequest) (CreateTaskResponse, error) {
	now := time.Now().UTC()

	t, err := task.ValidateCreate(task.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	}, now)
	if err != nil {
		return CreateTaskResponse{}, err
	}
	t.UserID = req.OwnerID

	// Uploads happen before the record write so a slow object-store call
	// never overlaps a database transaction.
	urls, skipped := s.uploadAttachments(ctx, req.OwnerID, req.Attachments)
	t.Attachments = append(t.Attachments, urls...)

	if err := s.repo.Create(t); err != nil {
		return CreateTaskResponse{}, err
	}

	s.invalidateStats(ctx, req.OwnerID)

	return CreateTaskResponse{
		Task:           t.ToView(now),
		SkippedUploads: skipped,
	}, nil
}

// Get retrieves one of the owner's tasks.
func (s *Service) Get(_ context.Context, req GetTaskRequest) (GetTaskResponse, error) {
	t, err := s.repo.FindByID(req.OwnerID, req.TaskID)
	if err != nil {
		return GetTaskResponse{}, err
	}
	return GetTaskResponse{Task: t.ToView(time.Now().UTC())}, nil
}

// List retrieves a filtered, paginated page of the owner's tasks. Invalid
// filter tokens fail with a validation error rather than matching nothing.
func (s *Service) List(_ context.Context, req ListTasksRequest) (ListTasksResponse, error) {
	var filter Filter
	if req.Status != "" {
		status, err := task.ParseStatus(req.Status)
		if err != nil {
			return ListTasksResponse{}, err
		}
		filter.Status = status
	}
	if req.Priority != "" {
		priority, err := task.ParsePriority(req.Priority)
		if err != nil {
			return ListTasksResponse{}, err
		}
		filter.Priority = priority
	}
	filter.Search = req.Search

	page := req.Page
	if page < 1 {
		page = 1
	}
	perPage := req.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	items, total, err := s.repo.FindPage(req.OwnerID, filter, page, perPage)
	if err != nil {
		return ListTasksResponse{}, err
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))

	return ListTasksResponse{
		Tasks: toViews(items),
		Pagination: PaginationMeta{
			Page:       page,
			PerPage:    perPage,
			TotalItems: total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

// Overdue retrieves the owner's overdue tasks, soonest-overdue first.
func (s *Service) Overdue(_ context.Context, req TaskListRequest) (TaskListResponse, error) {
	items, err := s.repo.FindOverdue(req.OwnerID, time.Now().UTC())
	if err != nil {
		return TaskListResponse{}, err
	}
	return TaskListResponse{Tasks: toViews(items), Total: len(items)}, nil
}

// DueToday retrieves the owner's tasks due within the current UTC day.
func (s *Service) DueToday(_ context.Context, req TaskListRequest) (TaskListResponse, error) {
	items, err := s.repo.FindDueToday(req.OwnerID, time.Now().UTC())
	if err != nil {
		return TaskListResponse{}, err
	}
	return TaskListResponse{Tasks: toViews(items), Total: len(items)}, nil
}

// Upcoming retrieves the owner's tasks due after today, soonest first.
func (s *Service) Upcoming(_ context.Context, req TaskListRequest) (TaskListResponse, error) {
	items, err := s.repo.FindUpcoming(req.OwnerID, time.Now().UTC())
	if err != nil {
		return TaskListResponse{}, err
	}
	return TaskListResponse{Tasks: toViews(items), Total: len(items)}, nil
}

// Recent retrieves the owner's most recently created tasks.
func (s *Service) Recent(_ context.Context, req RecentTasksRequest) (TaskListResponse, error) {
	limit := req.Limit
	if limit < 1 {
		limit = DefaultRecentLimit
	}
	if limit > MaxPerPage {
		limit = MaxPerPage
	}
	items, err := s.repo.FindRecent(req.OwnerID, limit)
	if err != nil {
		return TaskListResponse{}, err
	}
	return TaskListResponse{Tasks: toViews(items), Total: len(items)}, nil
}

// Stats aggregates the owner's tasks by status plus the overdue count,
// served through the cache when one is configured. Concurrent misses for the
// same owner collapse into one query via singleflight.
func (s *Service) Stats(ctx context.Context, req StatsRequest) (StatsResponse, error) {
	key := statsKey(req.OwnerID)

	if s.cache != nil {
		var cached StatsResponse
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			log.Printf("[tasks] stats cache read failed for owner %d: %v", req.OwnerID, err)
		}
		if found {
			return cached, nil
		}
	}

	val, err, _ := s.sfGroup.Do(key, func() (any, error) {
		return s.computeStats(req.OwnerID)
	})
	if err != nil {
		return StatsResponse{}, err
	}
	resp := val.(StatsResponse)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp); err != nil {
			log.Printf("[tasks] stats cache write failed for owner %d: %v", req.OwnerID, err)
		}
	}
	return resp, nil
}

func (s *Service) computeStats(ownerID uint) (StatsResponse, error) {
	counts, err := s.repo.CountByStatus(ownerID)
	if err != nil {
		return StatsResponse{}, err
	}
	overdue, err := s.repo.CountOverdue(ownerID, time.Now().UTC())
	if err != nil {
		return StatsResponse{}, err
	}

	statusCounts := make(map[string]int64, len(counts))
	for status, count := range counts {
		statusCounts[string(status)] = count
	}
	return StatsResponse{StatusCounts: statusCounts, OverdueCount: overdue}, nil
}

// Update applies a partial update to one of the owner's tasks. New
// attachment uploads are appended to the existing list.
func (s *Service) Update(ctx context.Context, req UpdateTaskRequest) (UpdateTaskResponse, error) {
	t, err := s.repo.FindByID(req.OwnerID, req.TaskID)
	if err != nil {
		return UpdateTaskResponse{}, err
	}

	patch, err := task.ValidateUpdate(task.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return UpdateTaskResponse{}, err
	}
	patch.Apply(t)

	urls, skipped := s.uploadAttachments(ctx, req.OwnerID, req.Attachments)
	t.Attachments = append(t.Attachments, urls...)

	if err := s.repo.Save(t); err != nil {
		return UpdateTaskResponse{}, err
	}

	s.invalidateStats(ctx, req.OwnerID)

	return UpdateTaskResponse{
		Task:           t.ToView(time.Now().UTC()),
		SkippedUploads: skipped,
	}, nil
}

// Delete removes one of the owner's tasks, cleaning up its attachments
// first. Attachment-store failures are logged and never block the record
// deletion.
func (s *Service) Delete(ctx context.Context, req DeleteTaskRequest) (DeleteTaskResponse, error) {
	t, err := s.repo.FindByID(req.OwnerID, req.TaskID)
	if err != nil {
		return DeleteTaskResponse{}, err
	}

	s.deleteAttachments(ctx, t.Attachments)

	if err := s.repo.Delete(req.OwnerID, req.TaskID); err != nil {
		return DeleteTaskResponse{}, err
	}

	s.invalidateStats(ctx, req.OwnerID)

	return DeleteTaskResponse{Deleted: true, TaskID: req.TaskID}, nil
}

// BulkDelete removes the owner's tasks among the given ids. Foreign and
// nonexistent ids are ignored; an empty effective set is an error.
func (s *Service) BulkDelete(ctx context.Context, req BulkDeleteRequest) (BulkDeleteResponse, error) {
	if len(req.TaskIDs) == 0 {
		return BulkDeleteResponse{}, &task.ValidationError{Field: "task_ids", Message: "task_ids is required"}
	}

	matched, err := s.repo.FindByIDs(req.OwnerID, req.TaskIDs)
	if err != nil {
		return BulkDeleteResponse{}, err
	}
	if len(matched) == 0 {
		return BulkDeleteResponse{}, task.ErrNothingToDelete
	}

	ids := make([]uint, 0, len(matched))
	for _, t := range matched {
		s.deleteAttachments(ctx, t.Attachments)
		ids = append(ids, t.TaskID)
	}

	deleted, err := s.repo.DeleteByIDs(req.OwnerID, ids)
	if err != nil {
		return BulkDeleteResponse{}, err
	}

	s.invalidateStats(ctx, req.OwnerID)

	return BulkDeleteResponse{DeletedCount: deleted}, nil
}

// uploadAttachments stores each file, collecting the returned URLs. A failed
// upload is logged and skipped; it never fails the surrounding operation.
func (s *Service) uploadAttachments(ctx context.Context, ownerID uint, files []AttachmentUpload) ([]string, int) {
	if len(files) == 0 || s.store == nil {
		return nil, 0
	}

	urls := make([]string, 0, len(files))
	skipped := 0
	for _, f := range files {
		url, err := s.store.Store(ctx, ownerID, f.Name, f.Data, f.ContentType)
		if err != nil {
			log.Printf("[tasks] attachment upload failed for %q, skipping: %v", f.Name, err)
			skipped++
			continue
		}
		urls = append(urls, url)
	}
	return urls, skipped
}

// deleteAttachments removes stored objects best-effort.
func (s *Service) deleteAttachments(ctx context.Context, urls task.AttachmentList) {
	if len(urls) == 0 || s.store == nil {
		return
	}
	for _, url := range urls {
		if err := s.store.Delete(ctx, url); err != nil {
			log.Printf("[tasks] attachment delete failed for %s: %v", url, err)
		}
	}
}

// invalidateStats drops the owner's cached stats after any write.
func (s *Service) invalidateStats(ctx context.Context, ownerID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, statsKey(ownerID)); err != nil {
		log.Printf("[tasks] stats cache invalidation failed for owner %d: %v", ownerID, err)
	}
}

func statsKey(ownerID uint) string {
	return "stats:" + strconv.FormatUint(uint64(ownerID), 10)
}

func toViews(items []*task.Task) []task.View {
	now := time.Now().UTC()
	views := make([]task.View, 0, len(items))
	for _, t := range items {
		views = append(views, t.ToView(now))
	}
	return views
}
