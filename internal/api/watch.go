package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"tasklist/internal/model"

	"github.com/gorilla/websocket"
)

const eventsPath = "/events/"

// Watch subscribes to the API's live change feed. The channel is closed when ctx
// ends or the connection drops.
func (c *Client) Watch(ctx context.Context) (<-chan model.TaskEvent, error) {
	u, err := url.Parse(c.baseURL + eventsPath)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}

	dialer := *websocket.DefaultDialer
	if c.http.Timeout > 0 {
		dialer.HandshakeTimeout = c.http.Timeout
	}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && errors.Is(err, websocket.ErrBadHandshake) {
			return nil, &Error{Method: "GET", Path: eventsPath, StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("GET %s: %w", eventsPath, err)
	}

	events := make(chan model.TaskEvent, 16)
	go func() {
		defer close(events)
		defer conn.Close()
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		defer stop()

		for {
			var ev model.TaskEvent
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}
