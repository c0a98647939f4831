// Package history loads the completed-task history shown to a signed-in user.
package history

import (
	"context"
	"log"

	"github.com/abefas/EmberTracker/models"
)

// Store is the two-step read path: completion records first, then the
// tasks they reference.
type Store interface {
	CompletedTasks(ctx context.Context, userID string) ([]models.CompletedTask, error)
	TasksByIDs(ctx context.Context, ids []int64) ([]models.Task, error)
}

// ViewStore is implemented by stores that can join records to tasks in one
// query. Service prefers it when available.
type ViewStore interface {
	CompletedTaskViews(ctx context.Context, userID string) ([]models.CompletedTaskView, error)
}

// Outcome says how a load ended.
type Outcome int

const (
	Empty Outcome = iota
	Populated
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Empty:
		return "empty"
	case Populated:
		return "populated"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Result is what the page renders. Items is never nil; Err is set only when
// Outcome is Failed.
type Result struct {
	Outcome Outcome
	Items   []models.CompletedTaskView
	Err     error
}

func empty() Result { return Result{Outcome: Empty, Items: []models.CompletedTaskView{}} }

func failed(err error) Result {
	return Result{Outcome: Failed, Items: []models.CompletedTaskView{}, Err: err}
}

func populated(items []models.CompletedTaskView) Result {
	if len(items) == 0 {
		return empty()
	}
	return Result{Outcome: Populated, Items: items}
}

// Service loads history for one user at a time.
type Service struct {
	store  Store
	logger *log.Logger
}

func NewService(store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, logger: logger}
}

// Load returns the user's completed tasks, newest first.
func (s *Service) Load(ctx context.Context, userID string) Result {
	if vs, ok := s.store.(ViewStore); ok {
		items, err := vs.CompletedTaskViews(ctx, userID)
		if err != nil {
			s.logger.Printf("history: load views for %s: %v", userID, err)
			return failed(err)
		}
		return populated(items)
	}
	return s.loadTwoStep(ctx, userID)
}

func (s *Service) loadTwoStep(ctx context.Context, userID string) Result {
	completed, err := s.store.CompletedTasks(ctx, userID)
	if err != nil {
		s.logger.Printf("history: completed tasks for %s: %v", userID, err)
		return failed(err)
	}
	if len(completed) == 0 {
		return empty()
	}

	tasks, err := s.store.TasksByIDs(ctx, DistinctTaskIDs(completed))
	if err != nil {
		s.logger.Printf("history: tasks for %s: %v", userID, err)
		return failed(err)
	}
	if len(tasks) == 0 {
		return empty()
	}

	return populated(Join(completed, tasks))
}

// DistinctTaskIDs returns the referenced task ids in first-seen order.
func DistinctTaskIDs(completed []models.CompletedTask) []int64 {
	seen := make(map[int64]struct{}, len(completed))
	ids := make([]int64, 0, len(completed))
	for _, ct := range completed {
		if _, ok := seen[ct.TaskID]; ok {
			continue
		}
		seen[ct.TaskID] = struct{}{}
		ids = append(ids, ct.TaskID)
	}
	return ids
}

// Join pairs each completion record with its task. Output keeps the order of
// completed; records whose task is missing are dropped. If tasks holds the
// same id twice the first one wins.
func Join(completed []models.CompletedTask, tasks []models.Task) []models.CompletedTaskView {
	byID := make(map[int64]models.Task, len(tasks))
	for _, t := range tasks {
		if _, ok := byID[t.ID]; !ok {
			byID[t.ID] = t
		}
	}

	out := make([]models.CompletedTaskView, 0, len(completed))
	for _, ct := range completed {
		t, ok := byID[ct.TaskID]
		if !ok {
			continue
		}
		out = append(out, models.CompletedTaskView{
			ID:               ct.ID,
			EmberType:        t.EmberType,
			TaskInstructions: t.TaskInstructions,
		})
	}
	return out
}
