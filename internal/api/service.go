package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"tasklist/internal/model"
)

// MockTasks returns the tasks the app starts from when the API has never answered.
func MockTasks() []model.Task {
	return []model.Task{
		{
			ID:       1,
			Title:    "Primera tarea @team #urgent",
			RawText:  "Primera tarea @team #urgent",
			Status:   model.StatusOpen,
			Priority: model.PriorityNormal,
			IsPublic: false,
		},
		{
			ID:       2,
			Title:    "Revisar email user@example.com",
			RawText:  "Revisar email user@example.com",
			Status:   model.StatusOpen,
			Priority: model.PriorityHigh,
			IsPublic: true,
		},
	}
}

type bulkDeleter interface {
	BulkDelete(ctx context.Context, ids []int64) error
}

type replacer interface {
	Replace(ctx context.Context, id int64, in model.TaskInput) (model.Task, error)
}

type watcher interface {
	Watch(ctx context.Context) (<-chan model.TaskEvent, error)
}

// ErrNoLiveUpdates is returned by Watch when the source has no change feed.
var ErrNoLiveUpdates = errors.New("live updates need a task API with an event feed")

// Service answers every call, from the Source when it works and from the local task
// list when it is unreachable or failing. Those errors are logged, never returned.
// A request the API rejects (a 4xx, see Rejected) is returned as *Error and leaves
// the local list untouched, so nothing the server refused looks saved.
//
// A nil Source runs fully offline. Service is safe for concurrent use.
type Service struct {
	src    Source
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	local   []model.Task
	offline bool
	lastID  int64
}

func NewService(src Source, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		src:    src,
		logger: logger,
		now:    time.Now,
		local:  MockTasks(),
	}
}

// Offline reports whether the most recent call was answered locally.
func (s *Service) Offline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offline
}

func (s *Service) fallback(op string, err error) {
	s.offline = true
	if err != nil {
		s.logger.Printf("api unavailable (%s), using local data: %v", op, err)
	}
}

func (s *Service) List(ctx context.Context, opts ListOptions) ([]model.Task, error) {
	var (
		tasks []model.Task
		err   = errOffline
	)
	if s.src != nil {
		tasks, err = s.src.List(ctx, opts)
	}
	if Rejected(err) {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fallback("list", sourceErr(err))
		out := make([]model.Task, 0, len(s.local))
		for _, t := range s.local {
			if opts.Status == "" || t.Status == opts.Status {
				out = append(out, t)
			}
		}
		return out, nil
	}

	s.offline = false
	if opts.Status == "" {
		s.local = append([]model.Task(nil), tasks...)
	} else {
		for _, t := range tasks {
			s.upsertLocked(t)
		}
	}
	return tasks, nil
}

// Get returns the task with id. The bool is false when neither the source nor the
// local list knows it.
func (s *Service) Get(ctx context.Context, id int64) (model.Task, bool) {
	var (
		t   model.Task
		err = errOffline
	)
	if s.src != nil {
		t, err = s.src.Get(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.offline = false
		s.upsertLocked(t)
		return t, true
	}
	if IsNotFound(err) {
		s.offline = false
		s.removeLocked(id)
		return model.Task{}, false
	}
	if Rejected(err) {
		return model.Task{}, false
	}
	s.fallback("get", sourceErr(err))
	if i := s.indexLocked(id); i >= 0 {
		return s.local[i], true
	}
	return model.Task{}, false
}

func (s *Service) Create(ctx context.Context, in model.TaskInput) (model.Task, error) {
	var (
		t   model.Task
		err = errOffline
	)
	if s.src != nil {
		t, err = s.src.Create(ctx, in)
	}
	if Rejected(err) {
		return model.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fallback("create", sourceErr(err))
		t = in.Task(s.nextLocalIDLocked(), s.now())
		s.local = append(s.local, t)
		return t, nil
	}
	s.offline = false
	s.upsertLocked(t)
	return t, nil
}

// Update applies patch to task id. Offline, the patch is merged onto the local copy;
// an id the local list does not hold is reported as not found.
func (s *Service) Update(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	var (
		t   model.Task
		err = errOffline
	)
	if s.src != nil {
		t, err = s.src.Update(ctx, id, patch)
	}
	if Rejected(err) {
		if IsNotFound(err) {
			s.mu.Lock()
			s.removeLocked(id)
			s.mu.Unlock()
		}
		return model.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fallback("update", sourceErr(err))
		i := s.indexLocked(id)
		if i < 0 {
			return model.Task{}, &Error{Method: http.MethodPatch, Path: taskPath(id), StatusCode: http.StatusNotFound, Body: "not in local data"}
		}
		t = patch.Apply(s.local[i])
		now := s.now().UTC()
		t.UpdatedAt = &now
		s.local[i] = t
		return t, nil
	}
	s.offline = false
	s.upsertLocked(t)
	return t, nil
}

// Replace overwrites every writable field of task id (PUT). Offline, the local copy
// is rebuilt from in and keeps its creation time.
func (s *Service) Replace(ctx context.Context, id int64, in model.TaskInput) (model.Task, error) {
	var (
		t   model.Task
		err = errOffline
	)
	if r, ok := s.src.(replacer); ok {
		t, err = r.Replace(ctx, id, in)
	}
	if Rejected(err) {
		if IsNotFound(err) {
			s.mu.Lock()
			s.removeLocked(id)
			s.mu.Unlock()
		}
		return model.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fallback("replace", sourceErr(err))
		i := s.indexLocked(id)
		if i < 0 {
			return model.Task{}, &Error{Method: http.MethodPut, Path: taskPath(id), StatusCode: http.StatusNotFound, Body: "not in local data"}
		}
		created := s.local[i].CreatedAt
		t = in.Task(id, s.now())
		t.CreatedAt = created
		s.local[i] = t
		return t, nil
	}
	s.offline = false
	s.upsertLocked(t)
	return t, nil
}

// Delete removes task id. A task the API no longer has counts as deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := errOffline
	if s.src != nil {
		err = s.src.Delete(ctx, id)
	}
	if Rejected(err) && !IsNotFound(err) {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil && !IsNotFound(err) {
		s.fallback("delete", sourceErr(err))
	} else {
		s.offline = false
	}
	s.removeLocked(id)
	return nil
}

// BulkDelete removes every id, in one request when the source supports it.
func (s *Service) BulkDelete(ctx context.Context, ids []int64) error {
	bd, ok := s.src.(bulkDeleter)
	if !ok {
		for _, id := range ids {
			if err := s.Delete(ctx, id); err != nil {
				return err
			}
		}
		return nil
	}
	err := bd.BulkDelete(ctx, ids)
	if Rejected(err) {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.fallback("bulk delete", err)
	} else {
		s.offline = false
	}
	for _, id := range ids {
		s.removeLocked(id)
	}
	return nil
}

func (s *Service) indexLocked(id int64) int {
	for i := range s.local {
		if s.local[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) upsertLocked(t model.Task) {
	if i := s.indexLocked(t.ID); i >= 0 {
		s.local[i] = t
		return
	}
	s.local = append(s.local, t)
}

func (s *Service) removeLocked(id int64) {
	if i := s.indexLocked(id); i >= 0 {
		s.local = append(s.local[:i], s.local[i+1:]...)
	}
}

// nextLocalIDLocked uses the wall clock in milliseconds, bumped past any id already
// handed out so two offline creates in the same millisecond stay distinct.
func (s *Service) nextLocalIDLocked() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	for s.indexLocked(id) >= 0 {
		id++
	}
	s.lastID = id
	return id
}

// Watch streams live task changes from the source. There is no local stand-in for a
// change feed, so unlike the other calls it reports failure.
func (s *Service) Watch(ctx context.Context) (<-chan model.TaskEvent, error) {
	w, ok := s.src.(watcher)
	if !ok {
		return nil, ErrNoLiveUpdates
	}
	return w.Watch(ctx)
}
