package api

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"testing"
	"time"

	"tasklist/internal/devserver"
	"tasklist/internal/model"

	"github.com/stretchr/testify/require"
)

// downSource fails every call the way an unreachable server would.
type downSource struct{ calls int }

var errDown = errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")

func (d *downSource) List(context.Context, ListOptions) ([]model.Task, error) {
	d.calls++
	return nil, errDown
}

func (d *downSource) Get(context.Context, int64) (model.Task, error) {
	d.calls++
	return model.Task{}, errDown
}

func (d *downSource) Create(context.Context, model.TaskInput) (model.Task, error) {
	d.calls++
	return model.Task{}, errDown
}

func (d *downSource) Update(context.Context, int64, model.TaskPatch) (model.Task, error) {
	d.calls++
	return model.Task{}, errDown
}

func (d *downSource) Delete(context.Context, int64) error {
	d.calls++
	return errDown
}

func newLoggedService(src Source) (*Service, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewService(src, log.New(&buf, "", 0)), &buf
}

// localTasks copies the service's local list.
func localTasks(svc *Service) []model.Task {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]model.Task(nil), svc.local...)
}

func TestService_ListFallsBackToMockTasks(t *testing.T) {
	src := &downSource{}
	svc, logs := newLoggedService(src)

	tasks, err := svc.List(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Equal(t, MockTasks(), tasks)
	require.True(t, svc.Offline())
	require.Equal(t, 1, src.calls)
	require.Contains(t, logs.String(), "api unavailable (list), using local data")
	require.Contains(t, logs.String(), "connection refused")
}

func TestService_NilSourceIsQuietlyOffline(t *testing.T) {
	svc, logs := newLoggedService(nil)

	tasks, err := svc.List(context.Background(), ListOptions{Status: model.StatusOpen})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.True(t, svc.Offline())
	require.Empty(t, logs.String())
}

func TestService_OfflineCreateUsesClockIDs(t *testing.T) {
	svc, _ := newLoggedService(&downSource{})
	fixed := time.UnixMilli(1_700_000_000_000)
	svc.now = func() time.Time { return fixed }

	a, err := svc.Create(context.Background(), model.NewTaskInput("one", fixed))
	require.NoError(t, err)
	b, err := svc.Create(context.Background(), model.NewTaskInput("two", fixed))
	require.NoError(t, err)
	require.Equal(t, fixed.UnixMilli(), a.ID)
	require.Equal(t, fixed.UnixMilli()+1, b.ID)
	require.Equal(t, model.StatusOpen, a.Status)

	local := localTasks(svc)
	require.Len(t, local, 4)
	require.Equal(t, "two", local[3].Title)
}

func TestService_OfflineUpdateMergesPatch(t *testing.T) {
	svc, _ := newLoggedService(&downSource{})

	got, err := svc.Update(context.Background(), 2, model.TextPatch("  Revisar email again  "))
	require.NoError(t, err)
	require.Equal(t, int64(2), got.ID)
	require.Equal(t, "Revisar email again", got.Title)
	require.Equal(t, model.PriorityHigh, got.Priority)
	require.True(t, got.IsPublic)
	require.NotNil(t, got.UpdatedAt)
}

func TestService_OfflineUpdateOfUnknownTaskAddsNothing(t *testing.T) {
	svc, _ := newLoggedService(&downSource{})

	_, err := svc.Update(context.Background(), 77, model.TextPatch("ghost"))
	require.True(t, IsNotFound(err), "got %v", err)
	require.Len(t, localTasks(svc), 2)
	for _, task := range localTasks(svc) {
		require.NotEqual(t, int64(77), task.ID)
	}
}

func TestService_OfflineReplaceKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLoggedService(nil)
	created, err := svc.Create(ctx, model.NewTaskInput("draft", time.Now()))
	require.NoError(t, err)

	got, err := svc.Replace(ctx, created.ID, model.TaskInput{Title: "final", Status: model.StatusToday, Priority: model.PriorityHigh})
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "final", got.Title)
	require.Equal(t, model.StatusToday, got.Status)
	require.Equal(t, created.CreatedAt, got.CreatedAt)

	_, err = svc.Replace(ctx, 404, model.TaskInput{Title: "nobody"})
	require.True(t, IsNotFound(err), "got %v", err)
}

func TestService_OfflineDeleteAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLoggedService(&downSource{})

	got, ok := svc.Get(ctx, 1)
	require.True(t, ok)
	require.Equal(t, "Primera tarea @team #urgent", got.Title)

	require.NoError(t, svc.Delete(ctx, 1))
	_, ok = svc.Get(ctx, 1)
	require.False(t, ok)

	require.NoError(t, svc.BulkDelete(ctx, []int64{2}))
	require.Empty(t, localTasks(svc))
}

func TestService_OnlineReplacesLocalAndRecovers(t *testing.T) {
	ctx := context.Background()
	srv, c := newDevAPI(t)
	svc, logs := newLoggedService(c)

	tasks, err := svc.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Empty(t, tasks)
	require.False(t, svc.Offline())
	require.Empty(t, localTasks(svc))

	created, err := svc.Create(ctx, model.NewTaskInput("ship #v2", time.Now()))
	require.NoError(t, err)
	require.Equal(t, []string{"v2"}, created.Hashtags)
	require.Equal(t, 1, srv.Len())

	replaced, err := svc.Replace(ctx, created.ID, model.TaskInput{Title: "ship #v3", Status: model.StatusOpen, Priority: model.PriorityNormal})
	require.NoError(t, err)
	require.Equal(t, []string{"v3"}, replaced.Hashtags)

	require.NoError(t, svc.BulkDelete(ctx, []int64{created.ID}))
	require.Zero(t, srv.Len())
	require.Empty(t, localTasks(svc))
	require.Empty(t, logs.String())
}

func TestService_GetNotFoundIsNotAFallback(t *testing.T) {
	_, c := newDevAPI(t)
	svc, logs := newLoggedService(c)

	_, ok := svc.Get(context.Background(), 1)
	require.False(t, ok)
	require.False(t, svc.Offline())
	require.Empty(t, logs.String())
	for _, task := range localTasks(svc) {
		require.NotEqual(t, int64(1), task.ID)
	}
}

func TestService_RejectedCreateIsReturnedNotSavedLocally(t *testing.T) {
	ctx := context.Background()
	srv, c := newDevAPI(t)
	svc, logs := newLoggedService(c)
	_, err := svc.List(ctx, ListOptions{})
	require.NoError(t, err)

	_, err = svc.Create(ctx, model.NewTaskInput(strings.Repeat("x", devserver.MaxTitleChars+100), time.Now()))
	require.Error(t, err)
	require.True(t, Rejected(err))
	require.Equal(t, http.StatusBadRequest, StatusCode(err))
	require.Contains(t, err.Error(), "no more than")
	require.False(t, svc.Offline())
	require.Empty(t, logs.String())
	require.Zero(t, srv.Len())
	require.Empty(t, localTasks(svc))

	tasks, err := svc.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Empty(t, tasks)
}

func TestService_RejectedUpdateKeepsLocalCopy(t *testing.T) {
	ctx := context.Background()
	_, c := newDevAPI(t)
	svc, _ := newLoggedService(c)

	created, err := svc.Create(ctx, model.NewTaskInput("keep me", time.Now()))
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, model.TextPatch("   "))
	require.True(t, Rejected(err), "got %v", err)
	got, ok := svc.Get(ctx, created.ID)
	require.True(t, ok)
	require.Equal(t, "keep me", got.Title)

	_, err = svc.Update(ctx, 999, model.TextPatch("ghost"))
	require.True(t, IsNotFound(err), "got %v", err)
	for _, task := range localTasks(svc) {
		require.NotEqual(t, int64(999), task.ID)
	}
}
