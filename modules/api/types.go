package api

// Envelope is the standard success response shape.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse is the standard error response shape.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	NotifyChannel string `json:"notify_channel,omitempty"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse carries an issued token pair.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// TaskBody is the JSON request body for creating or updating a task.
// On update, absent fields leave the stored value unchanged.
type TaskBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"due_date"`
}

// BulkDeleteBody is the JSON request body for bulk task deletion.
type BulkDeleteBody struct {
	TaskIDs []uint `json:"task_ids"`
}

func success(message string, data any) Envelope {
	return Envelope{Success: true, Message: message, Data: data}
}

func failure(message string) ErrorResponse {
	return ErrorResponse{Success: false, Error: message}
}
