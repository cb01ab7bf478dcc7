package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	domain "github.com/example/taskflow/domain/user"
	"github.com/example/taskflow/modules/attachments"
	"github.com/example/taskflow/modules/auth"
	"github.com/example/taskflow/modules/tasks"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/gofiber/fiber/v2"
)

// maxUploadBytes caps the size of a single attachment file.
const maxUploadBytes = 5 << 20

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	authContainer  mono.ServiceContainer
	tasksContainer mono.ServiceContainer
	authAdapter    auth.AuthPort
	downloads      *attachments.Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authContainer, tasksContainer mono.ServiceContainer, authAdapter auth.AuthPort, downloads *attachments.Service) *Handlers {
	return &Handlers{
		authContainer:  authContainer,
		tasksContainer: tasksContainer,
		authAdapter:    authAdapter,
		downloads:      downloads,
	}
}

// Register handles POST /api/v1/auth/register.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(failure("Invalid request body"))
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(failure("Email and password are required"))
	}

	authReq := auth.RegisterRequest{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		NotifyChannel: req.NotifyChannel,
	}
	var resp auth.RegisterResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"register",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return h.handleAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(success("User registered successfully", resp))
}

// Login handles POST /api/v1/auth/login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(failure("Invalid request body"))
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(failure("Email and password are required"))
	}

	authReq := auth.LoginRequest{Email: req.Email, Password: req.Password}
	var resp auth.LoginResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"login",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return h.handleAuthError(c, err)
	}

	return c.JSON(success("Login successful", TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		TokenType:    resp.TokenType,
	}))
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(failure("Invalid request body"))
	}

	if req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(failure("Refresh token is required"))
	}

	authReq := auth.RefreshRequest{RefreshToken: req.RefreshToken}
	var resp auth.RefreshResponse

	if err := helper.CallRequestReplyService(
		c.UserContext(),
		h.authContainer,
		"refresh-token",
		json.Marshal,
		json.Unmarshal,
		&authReq,
		&resp,
	); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(failure("Invalid or expired refresh token"))
	}

	return c.JSON(success("Token refreshed", TokenResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		TokenType:    resp.TokenType,
	}))
}

// Profile handles GET /api/v1/auth/me.
func (h *Handlers) Profile(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(failure("User not authenticated"))
	}

	user, err := h.authAdapter.GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(failure("Failed to retrieve user profile"))
	}

	return c.JSON(success("", fiber.Map{
		"user_id":        user.UserID,
		"name":           user.Name,
		"email":          user.Email,
		"notify_channel": user.NotifyChannel,
		"created_at":     user.CreatedAt,
	}))
}

// CreateTask handles POST /api/v1/tasks. Accepts JSON or multipart form
// data; attachment files ride in the multipart field "attachments".
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(failure("User not authenticated"))
	}

	req := tasks.CreateTaskRequest{OwnerID: claims.UserID}

	if isMultipart(c) {
		body, uploads, err := parseTaskForm(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(failure(err.Error()))
		}
		req.Title = deref(body.Title)
		req.Description = deref(body.Description)
		req.Status = deref(body.Status)
		req.Priority = deref(body.Priority)
		req.DueDate = deref(body.DueDate)
		req.Attachments = uploads
	} else {
		var body TaskBody
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(failure("Invalid request body"))
		}
		req.Title = deref(body.Title)
		req.Description = deref(body.Description)
		req.Status = deref(body.Status)
		req.Priority = deref(body.Priority)
		req.DueDate = deref(body.DueDate)
	}

	var resp tasks.CreateTaskResponse
	if err := h.callTasks(c, "create", &req, &resp); err != nil {
		return h.handleTaskError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(success("Task created successfully", resp))
}

// GetTask handles GET /api/v1/tasks/:id.
func (h *Handlers) GetTask(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(failure("User not authenticated"))
	}

	taskID, err := parseTaskID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(failure("Invalid task id"))
	}

	req := tasks.GetTaskRequest{OwnerID: claims.UserID, TaskID: taskID}
	var resp tasks.GetTaskResponse
	if err := h.callTasks(c, "get", &req, &resp); err != nil {
		return h.handleTaskError(c, err)
	}

	return c.JSON(success("", resp.Task))
}

// ListTasks handles GET /api/v1/tasks with filter and pagination query
// parameters.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(failure("User not authenticated"))
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	perPage, _ := strconv.Atoi(c.Query("per_page", "0"))

	req := tasks.ListTasksRequest{
		OwnerID:  claims.UserID,
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Search:   c.Query("search"),
		Page:     page,
		PerPage:  perPage,
	}
	var resp tasks.ListTasksResponse
	if err := h.callTasks(c, "list", &req, &resp); err != nil {
		return h.handleTaskError(c, err)
	}

	return c.JSON(success("", resp))
}

// TodayTasks handles GET /api/v1/tasks/today.
func (h *Handlers) TodayTasks(c *fiber.Ctx) error {
	return h.taskListView(c, "today")
}

// OverdueTasks handles GET /api/v1/tasks/overdue.
func (h *Handlers) OverdueTasks(c *fiber.Ctx) error {
	return h.taskListView(c, "overdue")
}

// UpcomingTasks handles GET /api/v1/tasks/upcoming.
func (h *Handlers) UpcomingTasks(c *fiber.Ctx) error {
	return h.taskListView(c, "upcoming")
}

func (h *Handlers) taskListView(c *fiber.Ctx, service string) error {
	claims, ok := currentClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(failure("User not authenticated"))
	}

	req := tasks.TaskListRequest{OwnerID: claims.UserID}
	var resp tasks.TaskListResponse
	if err := h.callTasks(c, service, &req, &resp); err != nil {
		return h.handleTaskError(c, err)
	}

	return c.JSON(success("", resp))
}

// RecentTasks handles GET /api/v1/tasks/recent.
func (h *Handlers) RecentTasks(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(failure("User not authenticated"))
	}

	limit, _ := strconv.Atoi(c.Query("limit", "0"))

	req := tasks.RecentTasksRequest{OwnerID: claims.UserID, Limit: limit}
	var resp tasks.TaskListResponse
	if err := h.callTasks(c, "recent", &req, &resp); err != nil {
		return h.handleTaskError(c, err)
	}

	return c.JSON(success("", resp))
}

// TaskStats handles GET /api/v1/tasks/stats.
func (h *Handlers) TaskStats(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(failure("User not authenticated"))
	}

	req := tasks.StatsRequest{OwnerID: claims.UserID}
	var resp tasks.StatsResponse
	if err := h.callTasks(c, "stats", &req, &resp); err != nil {
		return h.handleTaskError(c, err)
	}

	return c.JSON(success("", resp))
}

// UpdateTask handles PUT /api/v1/tasks/:id. Accepts JSON or multipart form
// data; absent fields leave the stored value unchanged, and uploaded files
// append to the attachment list.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(failure("User not authenticated"))
	}

	taskID, err := parseTaskID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(failure("Invalid task id"))
	}

	req := tasks.UpdateTaskRequest{OwnerID: claims.UserID, TaskID: taskID}

	if isMultipart(c) {
		body, uploads, err := parseTaskForm(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(failure(err.Error()))
		}
		req.Title = body.Title
		req.Description = body.Description
		req.Status = body.Status
		req.Priority = body.Priority
		req.DueDate = body.DueDate
		req.Attachments = uploads
	} else {
		var body TaskBody
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(failure("Invalid request body"))
		}
		req.Title = body.Title
		req.Description = body.Description
		req.Status = body.Status
		req.Priority = body.Priority
		req.DueDate = body.DueDate
	}

	var resp tasks.UpdateTaskResponse
	if err := h.callTasks(c, "update", &req, &resp); err != nil {
		return h.handleTaskError(c, err)
	}

	return c.JSON(success("Task updated successfully", resp))
}

// DeleteTask handles DELETE /api/v1/tasks/:id.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(failure("User not authenticated"))
	}

	taskID, err := parseTaskID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(failure("Invalid task id"))
	}

	req := tasks.DeleteTaskRequest{OwnerID: claims.UserID, TaskID: taskID}
	var resp tasks.DeleteTaskResponse
	if err := h.callTasks(c, "delete", &req, &resp); err != nil {
		return h.handleTaskError(c, err)
	}

	return c.JSON(success("Task deleted successfully", resp))
}

// BulkDeleteTasks handles DELETE /api/v1/tasks/bulk.
func (h *Handlers) BulkDeleteTasks(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(failure("User not authenticated"))
	}

	var body BulkDeleteBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(failure("Invalid request body"))
	}

	req := tasks.BulkDeleteRequest{OwnerID: claims.UserID, TaskIDs: body.TaskIDs}
	var resp tasks.BulkDeleteResponse
	if err := h.callTasks(c, "bulk-delete", &req, &resp); err != nil {
		return h.handleTaskError(c, err)
	}

	return c.JSON(success(fmt.Sprintf("Deleted %d task(s)", resp.DeletedCount), resp))
}

// DownloadAttachment handles GET /api/v1/attachments/*. Object keys are
// prefixed with the owner id, so foreign keys 404 without touching storage.
func (h *Handlers) DownloadAttachment(c *fiber.Ctx) error {
	claims, ok := currentClaims(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(failure("User not authenticated"))
	}

	if h.downloads == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(failure("Attachment storage is unavailable"))
	}

	key := c.Params("*")
	if !strings.HasPrefix(key, fmt.Sprintf("%d/", claims.UserID)) {
		return c.Status(fiber.StatusNotFound).JSON(failure("Attachment not found"))
	}

	data, contentType, err := h.downloads.Open(c.UserContext(), key)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(failure("Attachment not found"))
	}

	if contentType != "" {
		c.Set(fiber.HeaderContentType, contentType)
	}
	return c.Send(data)
}

// callTasks calls a tasks module service over the bus.
func (h *Handlers) callTasks(c *fiber.Ctx, service string, req, resp any) error {
	return helper.CallRequestReplyService(
		c.UserContext(),
		h.tasksContainer,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		&resp,
	)
}

// handleTaskError maps task service errors to HTTP statuses. Error types do
// not survive the bus boundary, so known errors are matched by message.
func (h *Handlers) handleTaskError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "validation failed"):
		return c.Status(fiber.StatusBadRequest).JSON(failure(trimBusError(errStr, "validation failed")))
	case strings.Contains(errStr, "no valid tasks found to delete"):
		return c.Status(fiber.StatusNotFound).JSON(failure("No valid tasks found to delete"))
	case strings.Contains(errStr, "task not found"):
		return c.Status(fiber.StatusNotFound).JSON(failure("Task not found"))
	default:
		log.Printf("[api] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(failure("An internal error occurred"))
	}
}

// handleAuthError maps auth service errors to HTTP statuses by matching
// known error messages.
func (h *Handlers) handleAuthError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "invalid email or password"):
		return c.Status(fiber.StatusUnauthorized).JSON(failure("Invalid email or password"))
	case strings.Contains(errStr, "user with this email already exists"):
		return c.Status(fiber.StatusConflict).JSON(failure("User with this email already exists"))
	case strings.Contains(errStr, "invalid email format"):
		return c.Status(fiber.StatusBadRequest).JSON(failure("Invalid email format"))
	case strings.Contains(errStr, "name is required"):
		return c.Status(fiber.StatusBadRequest).JSON(failure("Name is required"))
	case strings.Contains(errStr, "password must be at least"):
		return c.Status(fiber.StatusBadRequest).JSON(failure("Password must be at least 8 characters"))
	case strings.Contains(errStr, "password must be at most"):
		return c.Status(fiber.StatusBadRequest).JSON(failure("Password must be at most 72 characters"))
	default:
		log.Printf("[api] Internal error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(failure("An internal error occurred"))
	}
}

// trimBusError strips transport wrapping ahead of a known marker so clients
// see "validation failed: title: ..." rather than the full chain.
func trimBusError(errStr, marker string) string {
	if idx := strings.Index(errStr, marker); idx >= 0 {
		return errStr[idx:]
	}
	return errStr
}

func currentClaims(c *fiber.Ctx) (*domain.Claims, bool) {
	claims, ok := c.Locals(UserContextKey).(*domain.Claims)
	return claims, ok
}

func parseTaskID(c *fiber.Ctx) (uint, error) {
	raw := c.Params("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return uint(id), nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), "multipart/form-data")
}

// parseTaskForm extracts task fields and attachment files from a multipart
// form. A field absent from the form stays nil so updates can tell "not
// provided" from "set to empty". Files larger than maxUploadBytes are
// skipped with a log line.
func parseTaskForm(c *fiber.Ctx) (TaskBody, []tasks.AttachmentUpload, error) {
	var body TaskBody

	form, err := c.MultipartForm()
	if err != nil {
		return body, nil, fmt.Errorf("invalid multipart form")
	}

	field := func(name string) *string {
		values, ok := form.Value[name]
		if !ok || len(values) == 0 {
			return nil
		}
		return &values[0]
	}

	body.Title = field("title")
	body.Description = field("description")
	body.Status = field("status")
	body.Priority = field("priority")
	body.DueDate = field("due_date")

	var uploads []tasks.AttachmentUpload
	for _, header := range form.File["attachments"] {
		if header.Size > maxUploadBytes {
			log.Printf("[api] Skipping oversized attachment %q (%d bytes)", header.Filename, header.Size)
			continue
		}

		file, err := header.Open()
		if err != nil {
			log.Printf("[api] Failed to open attachment %q: %v", header.Filename, err)
			continue
		}

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		file.Close()
		if err != nil || len(data) > maxUploadBytes {
			log.Printf("[api] Failed to read attachment %q", header.Filename)
			continue
		}

		uploads = append(uploads, tasks.AttachmentUpload{
			Name:        header.Filename,
			Data:        data,
			ContentType: header.Header.Get("Content-Type"),
		})
	}

	return body, uploads, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
