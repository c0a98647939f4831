package middleware

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abefas/EmberTracker/models"
)

type fakeResolver struct {
	GetSessionFunc func(ctx context.Context, token string) (*models.Session, error)
	calls          int
}

func (f *fakeResolver) GetSession(ctx context.Context, token string) (*models.Session, error) {
	f.calls++
	return f.GetSessionFunc(ctx, token)
}

func captureSession(got **models.Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestSession_NoCookieIsAnonymous(t *testing.T) {
	res := &fakeResolver{GetSessionFunc: func(ctx context.Context, token string) (*models.Session, error) {
		t.Fatal("resolver should not be called without a cookie")
		return nil, nil
	}}
	var got *models.Session
	h := Session(res, log.New(&bytes.Buffer{}, "", 0))(captureSession(&got))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/task-history", nil))

	if got != nil {
		t.Fatalf("session = %+v, want nil", got)
	}
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSession_ValidCookie(t *testing.T) {
	want := &models.Session{ID: "s1", UserID: "u1"}
	res := &fakeResolver{GetSessionFunc: func(ctx context.Context, token string) (*models.Session, error) {
		if token != "tok" {
			t.Errorf("token = %q", token)
		}
		return want, nil
	}}
	var got *models.Session
	h := Session(res, nil)(captureSession(&got))

	req := httptest.NewRequest(http.MethodGet, "/task-history", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != want {
		t.Fatalf("session = %+v, want %+v", got, want)
	}
}

func TestSession_ErrorIsLoggedAndAnonymous(t *testing.T) {
	var logs bytes.Buffer
	res := &fakeResolver{GetSessionFunc: func(ctx context.Context, token string) (*models.Session, error) {
		return nil, errors.New("network down")
	}}
	var got *models.Session
	h := Session(res, log.New(&logs, "", 0))(captureSession(&got))

	req := httptest.NewRequest(http.MethodGet, "/task-history", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "tok"})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got != nil {
		t.Fatal("expected anonymous request after resolver error")
	}
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, request should continue", w.Code)
	}
	if !strings.Contains(logs.String(), "network down") {
		t.Fatalf("log = %q", logs.String())
	}
}

func TestRequestID_GeneratesAndEchoes(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || w.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("rid = %q header = %q", seen, w.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if seen != "abc" {
		t.Fatalf("rid = %q, want caller's id", seen)
	}
}

func TestLogging_RecordsStatus(t *testing.T) {
	var logs bytes.Buffer
	h := RequestID(Logging(log.New(&logs, "", 0))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	line := logs.String()
	for _, want := range []string{"method=GET", "path=/api/tasks", "status=418", "rid="} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}
