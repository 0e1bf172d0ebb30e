// Package devserver is an in-memory implementation of the task REST API, for local
// development and tests. Nothing is persisted; restarting the server starts over.
package devserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"tasklist/internal/annotate"
	"tasklist/internal/model"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/cors"
	"github.com/sebest/xff"
)

// MaxTitleChars matches the backend's title column.
const MaxTitleChars = 500

type Server struct {
	tasks  *xsync.MapOf[int64, model.Task]
	nextID atomic.Int64
	now    func() time.Time
	logger *log.Logger
	feed   *feed
}

func New(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		tasks:  xsync.NewMapOf[int64, model.Task](),
		now:    time.Now,
		logger: logger,
		feed:   newFeed(),
	}
}

// Seed stores tasks as-is, keeping their ids, and moves the id counter past them.
func (s *Server) Seed(tasks ...model.Task) {
	for _, t := range tasks {
		if t.CreatedAt == nil {
			now := s.now().UTC()
			t.CreatedAt = &now
			t.UpdatedAt = &now
		}
		s.tasks.Store(t.ID, t)
		for {
			cur := s.nextID.Load()
			if t.ID <= cur || s.nextID.CompareAndSwap(cur, t.ID) {
				break
			}
		}
	}
}

// Len reports how many tasks are stored.
func (s *Server) Len() int { return s.tasks.Size() }

// Handler serves the API under /api with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health/{$}", s.handleHealth)
	mux.HandleFunc("GET /api/events/{$}", s.handleEvents)
	mux.HandleFunc("GET /api/tasks/{$}", s.handleList)
	mux.HandleFunc("POST /api/tasks/{$}", s.handleCreate)
	mux.HandleFunc("POST /api/tasks/bulk_delete/{$}", s.handleBulkDelete)
	mux.HandleFunc("GET /api/tasks/{id}/{$}", s.handleGet)
	mux.HandleFunc("PUT /api/tasks/{id}/{$}", s.handleReplace)
	mux.HandleFunc("PATCH /api/tasks/{id}/{$}", s.handlePatch)
	mux.HandleFunc("DELETE /api/tasks/{id}/{$}", s.handleDelete)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	})
	return s.logRequests(c.Handler(mux))
}

// NewHTTPServer wires the handler into an http.Server listening on addr.
func NewHTTPServer(addr string, s *Server) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	// Shutdown does not wait for hijacked websocket connections; end them here.
	srv.RegisterOnShutdown(s.Close)
	return srv
}

// Run serves until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *log.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Printf("task API running at http://%s/api/tasks/", srv.Addr)
	if strings.HasPrefix(srv.Addr, ":") || strings.Contains(srv.Addr, "0.0.0.0") {
		logger.Printf("WARNING: server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Println("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("devserver: response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Printf("%s %s %s %d %s", xff.GetRemoteAddr(r), r.Method, r.URL.RequestURI(), rec.status, time.Since(start).Round(time.Microsecond))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fieldErrors is the validation error body: field name -> messages.
type fieldErrors map[string][]string

func (fe fieldErrors) add(field, msg string) { fe[field] = append(fe[field], msg) }

func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "tasks": s.tasks.Size()})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	status := model.Status(strings.TrimSpace(r.URL.Query().Get("status")))

	out := make([]model.Task, 0, s.tasks.Size())
	s.tasks.Range(func(_ int64, t model.Task) bool {
		if status == "" || t.Status == status {
			out = append(out, serialize(t))
		}
		return true
	})
	// Newest first, like the backend's default ordering.
	sort.Slice(out, func(i, j int) bool {
		ci, cj := createdAt(out[i]), createdAt(out[j])
		if !ci.Equal(cj) {
			return ci.After(cj)
		}
		return out[i].ID > out[j].ID
	})
	writeJSON(w, http.StatusOK, out)
}

func createdAt(t model.Task) time.Time {
	if t.CreatedAt == nil {
		return time.Time{}
	}
	return *t.CreatedAt
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	t := in.Task(s.nextID.Add(1), s.now())
	s.tasks.Store(t.ID, t)
	out := serialize(t)
	s.feed.publish(model.TaskEvent{Kind: model.EventCreated, ID: t.ID, Task: &out})
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	t, ok := s.tasks.Load(id)
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, serialize(t))
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	if _, ok := s.tasks.Load(id); !ok {
		writeNotFound(w)
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	t, found := s.tasks.Compute(id, func(old model.Task, loaded bool) (model.Task, bool) {
		if !loaded {
			return old, true
		}
		next := in.Task(id, s.now())
		next.CreatedAt = old.CreatedAt
		return next, false
	})
	if !found {
		writeNotFound(w)
		return
	}
	out := serialize(t)
	s.feed.publish(model.TaskEvent{Kind: model.EventUpdated, ID: id, Task: &out})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	var patch model.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error - " + err.Error()})
		return
	}
	if fe := validatePatch(patch); len(fe) > 0 {
		writeJSON(w, http.StatusBadRequest, fe)
		return
	}
	t, found := s.tasks.Compute(id, func(old model.Task, loaded bool) (model.Task, bool) {
		if !loaded {
			return old, true
		}
		next := trimPatch(patch).Apply(old)
		now := s.now().UTC()
		next.UpdatedAt = &now
		return next, false
	})
	if !found {
		writeNotFound(w)
		return
	}
	out := serialize(t)
	s.feed.publish(model.TaskEvent{Kind: model.EventUpdated, ID: id, Task: &out})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	if _, loaded := s.tasks.LoadAndDelete(id); !loaded {
		writeNotFound(w)
		return
	}
	s.feed.publish(model.TaskEvent{Kind: model.EventDeleted, ID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error - " + err.Error()})
		return
	}
	for _, id := range body.IDs {
		if _, loaded := s.tasks.LoadAndDelete(id); loaded {
			s.feed.publish(model.TaskEvent{Kind: model.EventDeleted, ID: id})
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "tasks deleted"})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func decodeInput(w http.ResponseWriter, r *http.Request) (model.TaskInput, bool) {
	var in model.TaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error - " + err.Error()})
		return in, false
	}
	if in.Status == "" {
		in.Status = model.StatusOpen
	}
	if in.Priority == "" {
		in.Priority = model.PriorityNormal
	}
	fe := fieldErrors{}
	validateTitle(fe, in.Title)
	validateChoices(fe, &in.Status, &in.Priority)
	if len(fe) > 0 {
		writeJSON(w, http.StatusBadRequest, fe)
		return in, false
	}
	in.Title = strings.TrimSpace(in.Title)
	return in, true
}

func validateTitle(fe fieldErrors, title string) {
	switch {
	case strings.TrimSpace(title) == "":
		fe.add("title", "Title cannot be empty")
	case utf8.RuneCountInString(title) > MaxTitleChars:
		fe.add("title", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxTitleChars))
	}
}

func validateChoices(fe fieldErrors, status *model.Status, priority *model.Priority) {
	if status != nil && !status.Valid() {
		fe.add("status", fmt.Sprintf("%q is not a valid choice.", string(*status)))
	}
	if priority != nil && !priority.Valid() {
		fe.add("priority", fmt.Sprintf("%q is not a valid choice.", string(*priority)))
	}
}

func validatePatch(p model.TaskPatch) fieldErrors {
	fe := fieldErrors{}
	if p.Title != nil {
		validateTitle(fe, *p.Title)
	}
	validateChoices(fe, p.Status, p.Priority)
	return fe
}

func trimPatch(p model.TaskPatch) model.TaskPatch {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		p.Title = &t
	}
	return p
}

// serialize fills the read-only entity fields from the title.
func serialize(t model.Task) model.Task {
	ex := annotate.Extract(t.Title)
	t.Mentions = ex.Mentions
	t.Hashtags = ex.Hashtags
	t.Emails = ex.Emails
	t.Links = ex.Links
	return t
}
