package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abefas/EmberTracker/database"
	"github.com/abefas/EmberTracker/history"
	"github.com/abefas/EmberTracker/middleware"
	"github.com/abefas/EmberTracker/models"
	"github.com/abefas/EmberTracker/relay"
	"github.com/abefas/EmberTracker/views"
)

const (
	signInPath      = "/auth/signin"
	taskHistoryPath = "/task-history"
)

// TaskLister reads the task catalog.
type TaskLister interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
}

// Authenticator covers the auth calls the handlers make.
type Authenticator interface {
	SignUp(ctx context.Context, email, password string) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (*models.Session, string, error)
	SignOut(ctx context.Context, sessionID string) error
}

// HistoryLoader produces the task-history list for a user.
type HistoryLoader interface {
	Load(ctx context.Context, userID string) history.Result
}

// Relay is the realtime socket server.
type Relay interface {
	Ensure() (bool, error)
	Serve(w http.ResponseWriter, r *http.Request) error
}

// Pinger reports backend reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers struct holds the shared dependencies, allowing methods to share them.
type Handlers struct {
	Tasks   TaskLister
	Auth    Authenticator
	History HistoryLoader
	Relay   Relay
	DB      Pinger
	Views   *views.Renderer
	Logger  *log.Logger
}

// NewHandlers wires every handler to the one backend client and relay server
// the process owns.
func NewHandlers(client *database.Client, rl *relay.Server, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{
		Tasks:   client,
		Auth:    client,
		History: history.NewService(client, logger),
		Relay:   rl,
		DB:      client,
		Views:   views.Must(),
		Logger:  logger,
	}
}

// respondWithJSON is a helper function to format and send JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// GetTasks returns every row of the task catalog. No session is required
// and there is no paging.
func (h *Handlers) GetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.ListTasks(r.Context())
	if err != nil {
		h.Logger.Printf("rid=%s task query failed: %v", middleware.RequestIDFromContext(r.Context()), err)
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{"error": "Query failed"})
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}

	if pretty, err := json.MarshalIndent(tasks, "", "  "); err == nil {
		h.Logger.Printf("tasks: %s", pretty)
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

// Socket upgrades websocket requests onto the relay. Plain requests just make
// sure the relay is running.
func (h *Handlers) Socket(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		if err := h.Relay.Serve(w, r); err != nil {
			h.Logger.Printf("socket: %v", err)
			if errors.Is(err, relay.ErrClosed) {
				http.Error(w, "Relay unavailable", http.StatusServiceUnavailable)
			}
		}
		return
	}

	if _, err := h.Relay.Ensure(); err != nil {
		h.Logger.Printf("socket: %v", err)
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

// TaskHistory renders the signed-in user's completed tasks. Anonymous
// visitors are sent to the sign-in page and never see the list.
func (h *Handlers) TaskHistory(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return
	}

	res := h.History.Load(r.Context(), sess.UserID)
	w.Header().Set("Cache-Control", "no-store")
	if err := h.Views.TaskHistory(w, http.StatusOK, views.TaskHistoryPage{
		Items:  res.Items,
		Failed: res.Outcome == history.Failed,
	}); err != nil {
		h.Logger.Printf("render task history: %v", err)
	}
}

// SignInForm shows the sign-in page, or skips it for signed-in users.
func (h *Handlers) SignInForm(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromContext(r.Context()) != nil {
		http.Redirect(w, r, taskHistoryPath, http.StatusSeeOther)
		return
	}
	if err := h.Views.SignIn(w, http.StatusOK, views.SignInPage{}); err != nil {
		h.Logger.Printf("render sign in: %v", err)
	}
}

// SignIn handles user authentication. Browsers post a form and get a cookie
// plus a redirect; JSON clients also get the token in the body.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	wantsJSON := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")

	var req models.SignInRequest
	if wantsJSON {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.Logger.Printf("JSON decode error in SignIn: %v", err)
			http.Error(w, "Invalid request payload", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()
	} else {
		req.Email = r.PostFormValue("email")
		req.Password = r.PostFormValue("password")
	}

	sess, token, err := h.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		status, msg := http.StatusInternalServerError, "Sign-in is unavailable right now"
		if errors.Is(err, database.ErrInvalidCredentials) {
			status, msg = http.StatusUnauthorized, "Invalid email or password"
		} else {
			h.Logger.Printf("sign in: %v", err)
		}
		if wantsJSON {
			http.Error(w, msg, status)
			return
		}
		if err := h.Views.SignIn(w, status, views.SignInPage{Email: req.Email, Error: msg}); err != nil {
			h.Logger.Printf("render sign in: %v", err)
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	if wantsJSON {
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Login successful!", "token": token})
		return
	}
	http.Redirect(w, r, taskHistoryPath, http.StatusSeeOther)
}

// SignUp handles a new user registration.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Printf("JSON decode error in SignUp: %v", err)
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.Auth.SignUp(r.Context(), req.Email, req.Password)
	if errors.Is(err, database.ErrEmailTaken) {
		http.Error(w, "Email already registered", http.StatusConflict)
		return
	} else if err != nil {
		h.Logger.Printf("Database error inserting new user: %v", err)
		http.Error(w, "Failed to register user", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusCreated, user)
}

// Logout ends the session. If the backend refuses, the user stays on the
// history page and the failure is only logged.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		clearSessionCookie(w)
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return
	}

	if err := h.Auth.SignOut(r.Context(), sess.ID); err != nil {
		h.Logger.Printf("Error signing out: %v", err)
		http.Redirect(w, r, taskHistoryPath, http.StatusSeeOther)
		return
	}

	clearSessionCookie(w)
	http.Redirect(w, r, signInPath, http.StatusSeeOther)
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Healthz reports that the process is up.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz reports whether the backend answers.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.DB.PingContext(r.Context()); err != nil {
		h.Logger.Printf("readyz: %v", err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
