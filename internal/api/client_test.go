package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tasklist/internal/devserver"
	"tasklist/internal/model"

	"github.com/stretchr/testify/require"
)

func newDevAPI(t *testing.T) (*devserver.Server, *Client) {
	t.Helper()
	srv := devserver.New(nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, NewClientWithHTTP(ts.URL+"/api/", ts.Client())
}

func TestClient_CRUDAgainstDevServer(t *testing.T) {
	ctx := context.Background()
	_, c := newDevAPI(t)
	require.False(t, strings.HasSuffix(c.baseURL, "/"))

	created, err := c.Create(ctx, model.NewTaskInput("call @bob #ops", time.Now()))
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, []string{"bob"}, created.Mentions)

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Title, got.Title)

	status := model.StatusToday
	updated, err := c.Update(ctx, created.ID, model.TaskPatch{Status: &status})
	require.NoError(t, err)
	require.Equal(t, model.StatusToday, updated.Status)
	require.Equal(t, "call @bob #ops", updated.Title)

	replaced, err := c.Replace(ctx, created.ID, model.TaskInput{Title: "rewritten", Status: model.StatusOpen, Priority: model.PriorityHigh})
	require.NoError(t, err)
	require.Equal(t, "rewritten", replaced.Title)
	require.Equal(t, model.PriorityHigh, replaced.Priority)

	today, err := c.List(ctx, ListOptions{Status: model.StatusToday})
	require.NoError(t, err)
	require.Empty(t, today)

	require.NoError(t, c.Delete(ctx, created.ID))
	_, err = c.Get(ctx, created.ID)
	require.True(t, IsNotFound(err), "expected 404, got %v", err)
}

func TestClient_BulkDelete(t *testing.T) {
	ctx := context.Background()
	srv, c := newDevAPI(t)

	var ids []int64
	for _, text := range []string{"a", "b", "c"} {
		task, err := c.Create(ctx, model.NewTaskInput(text, time.Now()))
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}
	require.NoError(t, c.BulkDelete(ctx, ids[:2]))
	require.Equal(t, 1, srv.Len())
}

func TestClient_ErrorCarriesStatusAndBody(t *testing.T) {
	ctx := context.Background()
	_, c := newDevAPI(t)

	_, err := c.Create(ctx, model.TaskInput{Title: " "})
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, StatusCode(err))
	require.Contains(t, err.Error(), "POST /tasks/: 400 Bad Request")
	require.Contains(t, err.Error(), "Title cannot be empty")
	require.False(t, IsNotFound(err))
}

func TestClient_ListAcceptsPaginatedPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tasks/", r.URL.Path)
		require.Equal(t, "open", r.URL.Query().Get("status"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"count":1,"next":null,"results":[{"id":9,"title":"paged","status":"open","priority":"normal","is_public":false}]}`)
	}))
	defer ts.Close()

	c := NewClientWithHTTP(ts.URL+"/api", ts.Client())
	tasks, err := c.List(context.Background(), ListOptions{Status: model.StatusOpen})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, int64(9), tasks[0].ID)
}

func TestDecodeTaskList(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{``, `null`, `[]`, `{"results":null}`} {
		tasks, err := decodeTaskList(json.RawMessage(raw))
		require.NoError(t, err, raw)
		require.NotNil(t, tasks, raw)
		require.Empty(t, tasks, raw)
	}

	_, err := decodeTaskList(json.RawMessage(`"nope"`))
	require.Error(t, err)
}

func TestClient_TransportErrorIsNotAPIError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := NewClient(url, time.Second)
	_, err := c.List(context.Background(), ListOptions{})
	require.Error(t, err)
	require.Zero(t, StatusCode(err))
}
