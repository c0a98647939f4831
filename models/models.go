// --- models/models.go ---
package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Task is a catalog entry from the "Tasks" table. JSON keys mirror the
// column names so /api/tasks returns rows exactly as stored.
type Task struct {
	ID               int64  `json:"id"`
	EmberType        string `json:"Ember Type"`
	TaskInstructions string `json:"Task Instructions"`
}

// CompletedTask records that a user finished a task at a given time.
type CompletedTask struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	TaskID      int64     `json:"task_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// CompletedTaskView is a completed record joined with its task.
// ID is the completed record's id, not the task's.
type CompletedTaskView struct {
	ID               int64  `json:"id"`
	EmberType        string `json:"emberType"`
	TaskInstructions string `json:"taskInstructions"`
}

// User represents a user in the system.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Omit from JSON output for security
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is an active sign-in. It is valid until ExpiresAt or until the
// row is deleted by a sign-out.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SignInRequest defines the structure for sign-in and sign-up requests.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Claims defines the information stored in the session token.
// RegisteredClaims.ID carries the session id, Subject the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}
