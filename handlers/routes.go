package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/abefas/EmberTracker/middleware"
)

// Router builds the full HTTP surface. socketPath is where the relay lives.
func (h *Handlers) Router(sessions middleware.SessionResolver, socketPath string) http.Handler {
	if socketPath == "" {
		socketPath = "/api/socket"
	}

	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Logging(h.Logger))

	router.HandleFunc("/healthz", h.Healthz).Methods("GET")
	router.HandleFunc("/readyz", h.Readyz).Methods("GET")
	router.HandleFunc(socketPath, h.Socket).Methods("GET")
	router.HandleFunc("/api/tasks", h.GetTasks).Methods("GET")
	router.HandleFunc("/api/auth/signup", h.SignUp).Methods("POST")

	// Pages see the session; the API and the relay do not.
	pages := router.NewRoute().Subrouter()
	pages.Use(middleware.Session(sessions, h.Logger))
	pages.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, taskHistoryPath, http.StatusSeeOther)
	}).Methods("GET")
	pages.HandleFunc(taskHistoryPath, h.TaskHistory).Methods("GET")
	pages.HandleFunc(signInPath, h.SignInForm).Methods("GET")
	pages.HandleFunc(signInPath, h.SignIn).Methods("POST")
	pages.HandleFunc("/auth/logout", h.Logout).Methods("POST")

	return router
}
