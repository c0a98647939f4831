package views

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abefas/EmberTracker/models"
)

func TestTaskHistory_RendersOneCardPerItem(t *testing.T) {
	r := Must()
	w := httptest.NewRecorder()

	err := r.TaskHistory(w, http.StatusOK, TaskHistoryPage{Items: []models.CompletedTaskView{
		{ID: 1, EmberType: "Mindset", TaskInstructions: "Breathe"},
		{ID: 2, EmberType: "Body", TaskInstructions: "Stretch <now>"},
	}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	body := w.Body.String()
	if got := strings.Count(body, `class="card"`); got != 2 {
		t.Fatalf("cards = %d, want 2", got)
	}
	for _, want := range []string{"Completed Tasks", "Mindset", "Breathe", "Stretch &lt;now&gt;", `action="/auth/logout"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestTaskHistory_EmptyAndFailedDiffer(t *testing.T) {
	r := Must()

	empty := httptest.NewRecorder()
	if err := r.TaskHistory(empty, http.StatusOK, TaskHistoryPage{}); err != nil {
		t.Fatal(err)
	}
	failed := httptest.NewRecorder()
	if err := r.TaskHistory(failed, http.StatusOK, TaskHistoryPage{Failed: true}); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(empty.Body.String(), "notice-empty") || strings.Contains(empty.Body.String(), "notice-error") {
		t.Error("empty page should show the empty notice only")
	}
	if !strings.Contains(failed.Body.String(), "notice-error") || strings.Contains(failed.Body.String(), "notice-empty") {
		t.Error("failed page should show the error notice only")
	}
}

func TestSignIn_ShowsError(t *testing.T) {
	w := httptest.NewRecorder()
	if err := Must().SignIn(w, http.StatusUnauthorized, SignInPage{Email: "a@b.c", Error: "Invalid email or password"}); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Invalid email or password") || !strings.Contains(body, `value="a@b.c"`) {
		t.Fatalf("body = %s", body)
	}
}
