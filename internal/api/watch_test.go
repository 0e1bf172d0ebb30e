package api

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"tasklist/internal/model"

	"github.com/stretchr/testify/require"
)

func nextEvent(t *testing.T, ch <-chan model.TaskEvent) model.TaskEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "event stream closed early")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return model.TaskEvent{}
	}
}

func TestClient_WatchReceivesChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, c := newDevAPI(t)

	events, err := c.Watch(ctx)
	require.NoError(t, err)

	created, err := c.Create(ctx, model.NewTaskInput("watch #me", time.Now()))
	require.NoError(t, err)
	ev := nextEvent(t, events)
	require.Equal(t, model.EventCreated, ev.Kind)
	require.Equal(t, created.ID, ev.ID)
	require.Equal(t, []string{"me"}, ev.Task.Hashtags)

	require.NoError(t, c.Delete(ctx, created.ID))
	ev = nextEvent(t, events)
	require.Equal(t, model.EventDeleted, ev.Kind)
	require.Nil(t, ev.Task)

	cancel()
	select {
	case _, ok := <-events:
		require.False(t, ok, "expected the stream closed after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cancel")
	}
}

func TestClient_WatchWithoutFeed(t *testing.T) {
	ts := httptest.NewServer(nil)
	defer ts.Close()
	c := NewClientWithHTTP(ts.URL+"/api", ts.Client())

	_, err := c.Watch(context.Background())
	require.Error(t, err)
	require.Equal(t, 404, StatusCode(err))
}

func TestService_Watch(t *testing.T) {
	_, err := NewService(nil, nil).Watch(context.Background())
	require.ErrorIs(t, err, ErrNoLiveUpdates)

	_, c := newDevAPI(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := NewService(c, nil).Watch(ctx)
	require.NoError(t, err)
	require.NotNil(t, events)
}
