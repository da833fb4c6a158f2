package syncagent

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/events"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Notification tells an agent that something may have changed. Resync is
// set for notifications that do not come from a specific event, such as a
// (re)connect after which earlier events may have been missed.
type Notification struct {
	Kind     events.Kind
	ReportID uuid.UUID
	Resync   bool
}

// Source delivers notifications to out until ctx is done. Run returns
// ctx.Err() on cancellation.
type Source interface {
	Run(ctx context.Context, out chan<- Notification) error
}

// HubSource listens to an in-process hub.
type HubSource struct {
	Hub *events.Hub
}

func (s HubSource) Run(ctx context.Context, out chan<- Notification) error {
	sub := s.Hub.Subscribe()
	defer sub.Close()

	if !send(ctx, out, Notification{Resync: true}) {
		return ctx.Err()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-sub.C:
			if !ok {
				return events.ErrHubClosed
			}
			if !send(ctx, out, Notification{Kind: event.Kind, ReportID: event.ReportID}) {
				return ctx.Err()
			}
		}
	}
}

// WSSource reads events from the server's websocket endpoint, reconnecting
// with backoff. Every successful connect emits a Resync notification because
// events sent while disconnected are lost.
type WSSource struct {
	URL        string
	Token      string
	Dialer     *websocket.Dialer
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

func NewWSSource(url, token string) *WSSource {
	return &WSSource{
		URL:        url,
		Token:      token,
		Dialer:     websocket.DefaultDialer,
		MinBackoff: 500 * time.Millisecond,
		MaxBackoff: 30 * time.Second,
	}
}

func (s *WSSource) Run(ctx context.Context, out chan<- Notification) error {
	backoff := s.MinBackoff
	for {
		connected, err := s.session(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = s.MinBackoff
		}
		slog.Warn("event stream disconnected, reconnecting", "url", s.URL, "error", err, "backoff", backoff.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.MaxBackoff {
			backoff = s.MaxBackoff
		}
	}
}

// session runs one connection. connected reports whether the dial
// succeeded, so the caller can reset its backoff.
func (s *WSSource) session(ctx context.Context, out chan<- Notification) (connected bool, err error) {
	header := http.Header{}
	if s.Token != "" {
		header.Set("Authorization", "Bearer "+s.Token)
	}
	conn, _, err := s.Dialer.DialContext(ctx, s.URL, header)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	// Unblock ReadJSON when ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	slog.Info("event stream connected", "url", s.URL)
	if !send(ctx, out, Notification{Resync: true}) {
		return true, ctx.Err()
	}

	for {
		var event events.Event
		if err := conn.ReadJSON(&event); err != nil {
			return true, err
		}
		if !event.Kind.Valid() {
			slog.Warn("ignoring event with unknown kind", "kind", string(event.Kind))
			continue
		}
		if !send(ctx, out, Notification{Kind: event.Kind, ReportID: event.ReportID}) {
			return true, ctx.Err()
		}
	}
}

func send(ctx context.Context, out chan<- Notification, n Notification) bool {
	select {
	case out <- n:
		return true
	case <-ctx.Done():
		return false
	}
}
