// Package syncagent keeps a client view in step with the report store. On
// every notification it re-fetches authoritative state instead of applying
// the event payload, and re-renders only when the fetched state differs from
// what was last rendered.
package syncagent

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/google/uuid"
)

const retryDelay = 2 * time.Second

type digest [sha256.Size]byte

func digestOf(v interface{}) (digest, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return digest{}, err
	}
	return sha256.Sum256(b), nil
}

// ListAgent mirrors the full report list.
type ListAgent struct {
	fetcher Fetcher
	render  func([]models.Report)

	mu       sync.Mutex
	last     digest
	rendered bool
	renders  int
}

func NewListAgent(fetcher Fetcher, render func([]models.Report)) *ListAgent {
	return &ListAgent{fetcher: fetcher, render: render}
}

// Reconcile fetches the list and renders it if it changed since the last
// render. It reports whether a render happened.
func (a *ListAgent) Reconcile(ctx context.Context) (bool, error) {
	reports, err := a.fetcher.ListReports(ctx)
	if err != nil {
		return false, err
	}
	d, err := digestOf(reports)
	if err != nil {
		return false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rendered && d == a.last {
		return false, nil
	}
	a.last, a.rendered = d, true
	a.renders++
	a.render(reports)
	return true, nil
}

// Renders returns how many times the view has been drawn.
func (a *ListAgent) Renders() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.renders
}

// Run reconciles once per burst of notifications from src until ctx ends.
func (a *ListAgent) Run(ctx context.Context, src Source) error {
	return run(ctx, src, a.Reconcile)
}

// DetailAgent mirrors a single report. A deleted report renders once as nil.
type DetailAgent struct {
	fetcher Fetcher
	id      uuid.UUID
	render  func(*models.Report)

	mu       sync.Mutex
	last     digest
	rendered bool
	renders  int
}

func NewDetailAgent(fetcher Fetcher, id uuid.UUID, render func(*models.Report)) *DetailAgent {
	return &DetailAgent{fetcher: fetcher, id: id, render: render}
}

func (a *DetailAgent) Reconcile(ctx context.Context) (bool, error) {
	report, err := a.fetcher.GetReport(ctx, a.id)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return false, err
	}
	if err != nil {
		report = nil
	}
	d, err := digestOf(report)
	if err != nil {
		return false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rendered && d == a.last {
		return false, nil
	}
	a.last, a.rendered = d, true
	a.renders++
	a.render(report)
	return true, nil
}

func (a *DetailAgent) Renders() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.renders
}

func (a *DetailAgent) Run(ctx context.Context, src Source) error {
	return run(ctx, src, a.Reconcile)
}

// run drives reconcile from src. Notifications that pile up while a fetch is
// in flight collapse into one follow-up fetch. A failed fetch is retried
// after retryDelay even if no further notification arrives.
func run(ctx context.Context, src Source, reconcile func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notes := make(chan Notification, 64)
	srcErr := make(chan error, 1)
	go func() { srcErr <- src.Run(ctx, notes) }()

	var retry <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-srcErr:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		case <-retry:
		case <-notes:
		}
		drain(notes)

		retry = nil
		if _, err := reconcile(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("reconcile failed, will retry", "error", err, "retry_in", retryDelay.String())
			retry = time.After(retryDelay)
		}
	}
}

func drain(notes <-chan Notification) {
	for {
		select {
		case <-notes:
		default:
			return
		}
	}
}
