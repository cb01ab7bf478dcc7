package tasks

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/taskflow/domain/task"
	"gorm.io/gorm"
)

// collectionOrder is the one ordering used by every collection read:
// earliest due date first, tasks without a due date last, ties broken by
// newest task id.
const collectionOrder = "due_date IS NULL, due_date ASC, task_id DESC"

// Filter holds the optional, AND-combined list filters. Status and Priority
// are already validated tokens.
type Filter struct {
	Status   task.Status
	Priority task.Priority
	Search   string
}

// Repository provides owner-scoped access to task storage. Every query
// carries the owner id; no cross-owner path exists.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new task repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// scoped starts a query restricted to the owner's tasks.
func (r *Repository) scoped(ownerID uint) *gorm.DB {
	return r.db.Model(&task.Task{}).Where("user_id = ?", ownerID)
}

// Create persists a new task.
func (r *Repository) Create(t *task.Task) error {
	if err := r.db.Create(t).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// FindByID retrieves one of the owner's tasks. A task belonging to another
// owner yields the same ErrNotFound as a missing one.
func (r *Repository) FindByID(ownerID, taskID uint) (*task.Task, error) {
	var t task.Task
	err := r.db.First(&t, "task_id = ? AND user_id = ?", taskID, ownerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, task.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &t, nil
}

// FindPage retrieves a page of the owner's tasks matching the filter,
// returning the page items and the total match count. Out-of-range pages
// yield an empty slice.
func (r *Repository) FindPage(ownerID uint, filter Filter, page, perPage int) ([]*task.Task, int64, error) {
	query := r.scoped(ownerID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.Search != "" {
		// SQLite LIKE is case-insensitive for ASCII; lower() both sides to
		// keep the behavior portable.
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			"lower(title) LIKE lower(?) OR lower(description) LIKE lower(?)",
			pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	var items []*task.Task
	err := query.
		Order(collectionOrder).
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return items, total, nil
}

// FindOverdue retrieves the owner's non-terminal tasks due strictly before
// now, soonest-overdue first.
func (r *Repository) FindOverdue(ownerID uint, now time.Time) ([]*task.Task, error) {
	var items []*task.Task
	err := r.scoped(ownerID).
		Where("due_date IS NOT NULL AND due_date < ?", now.UTC()).
		Where("status NOT IN ?", []task.Status{task.StatusCompleted, task.StatusCancelled}).
		Order("due_date ASC, task_id DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue tasks: %w", err)
	}
	return items, nil
}

// FindDueToday retrieves the owner's tasks due within the current UTC day,
// regardless of status.
func (r *Repository) FindDueToday(ownerID uint, now time.Time) ([]*task.Task, error) {
	var items []*task.Task
	err := r.scoped(ownerID).
		Where("due_date >= ? AND due_date < ?", task.StartOfDay(now), task.EndOfDay(now)).
		Order("due_date ASC, task_id DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list today's tasks: %w", err)
	}
	return items, nil
}

// FindUpcoming retrieves the owner's tasks due strictly after the end of the
// current UTC day. Tasks due today are excluded even if their timestamp is
// still ahead of now.
func (r *Repository) FindUpcoming(ownerID uint, now time.Time) ([]*task.Task, error) {
	var items []*task.Task
	err := r.scoped(ownerID).
		Where("due_date >= ?", task.EndOfDay(now)).
		Order("due_date ASC, task_id DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming tasks: %w", err)
	}
	return items, nil
}

// FindRecent retrieves the owner's most recently created tasks, newest
// first. Task ids are monotonic, so id order is creation order.
func (r *Repository) FindRecent(ownerID uint, limit int) ([]*task.Task, error) {
	var items []*task.Task
	err := r.scoped(ownerID).
		Order("task_id DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent tasks: %w", err)
	}
	return items, nil
}

// CountByStatus groups the owner's tasks by status. Statuses with no tasks
// are present with a zero count.
func (r *Repository) CountByStatus(ownerID uint) (map[task.Status]int64, error) {
	type row struct {
		Status task.Status
		Count  int64
	}
	var rows []row
	err := r.scoped(ownerID).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}

	counts := make(map[task.Status]int64, len(task.AllStatuses))
	for _, s := range task.AllStatuses {
		counts[s] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// CountOverdue counts the owner's overdue tasks with the same predicate as
// FindOverdue.
func (r *Repository) CountOverdue(ownerID uint, now time.Time) (int64, error) {
	var count int64
	err := r.scoped(ownerID).
		Where("due_date IS NOT NULL AND due_date < ?", now.UTC()).
		Where("status NOT IN ?", []task.Status{task.StatusCompleted, task.StatusCancelled}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue tasks: %w", err)
	}
	return count, nil
}

// Save writes all fields of the task back in a single statement.
func (r *Repository) Save(t *task.Task) error {
	if err := r.db.Save(t).Error; err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// Delete removes one of the owner's tasks.
func (r *Repository) Delete(ownerID, taskID uint) error {
	result := r.db.Delete(&task.Task{}, "task_id = ? AND user_id = ?", taskID, ownerID)
	if result.Error != nil {
		return fmt.Errorf("failed to delete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return task.ErrNotFound
	}
	return nil
}

// FindByIDs retrieves the owner's tasks among the given ids. Foreign and
// nonexistent ids are silently absent from the result.
func (r *Repository) FindByIDs(ownerID uint, taskIDs []uint) ([]*task.Task, error) {
	var items []*task.Task
	err := r.scoped(ownerID).
		Where("task_id IN ?", taskIDs).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	return items, nil
}

// DeleteByIDs removes the owner's tasks among the given ids and reports how
// many records were removed.
func (r *Repository) DeleteByIDs(ownerID uint, taskIDs []uint) (int64, error) {
	result := r.db.Delete(&task.Task{}, "task_id IN ? AND user_id = ?", taskIDs, ownerID)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete tasks: %w", result.Error)
	}
	return result.RowsAffected, nil
}
