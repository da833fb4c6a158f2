package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.Validation("bad", nil), fiber.StatusBadRequest},
		{apperr.InvalidAsset("not an image"), fiber.StatusBadRequest},
		{apperr.Unauthorized("who"), fiber.StatusUnauthorized},
		{apperr.Forbidden("no"), fiber.StatusForbidden},
		{apperr.NotFound("gone"), fiber.StatusNotFound},
		{apperr.UploadFailed(errors.New("bucket")), fiber.StatusBadGateway},
		{apperr.StoreUnavailable(errors.New("db")), fiber.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", apperr.NotFound("gone")), fiber.StatusNotFound},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestParseReportDate(t *testing.T) {
	if d, err := parseReportDate(""); err != nil || !d.IsZero() {
		t.Errorf("empty: %v %v", d, err)
	}
	d, err := parseReportDate("2024-03-01")
	if err != nil || d.Day() != 1 || d.Month() != 3 {
		t.Errorf("date: %v %v", d, err)
	}
	if _, err := parseReportDate("2024-03-01T10:00:00+07:00"); err != nil {
		t.Errorf("rfc3339: %v", err)
	}
	if _, err := parseReportDate("01/03/2024"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad date err = %v", err)
	}
}

type capturingTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *capturingTransport) Configure(sentry.ClientOptions) {}
func (t *capturingTransport) Flush(time.Duration) bool { return true }
func (t *capturingTransport) FlushWithContext(context.Context) bool { return true }
func (t *capturingTransport) Close() {}
func (t *capturingTransport) SendEvent(e *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *capturingTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

func TestWriteErrorReportsServerErrorsToSentry(t *testing.T) {
	transport := &capturingTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Transport: transport})
	if err != nil {
		t.Fatalf("sentry client: %v", err)
	}
	hub := sentry.NewHub(client, sentry.NewScope())

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		sentryfiber.SetHubOnContext(c, hub)
		return c.Next()
	})
	app.Get("/unavailable", func(c *fiber.Ctx) error {
		return writeError(c, apperr.StoreUnavailable(errors.New("connection refused")))
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return writeError(c, apperr.NotFound("report not found"))
	})

	tests := []struct {
		path   string
		status int
		events int
	}{
		{"/missing", fiber.StatusNotFound, 0},
		{"/unavailable", fiber.StatusServiceUnavailable, 1},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
		if err != nil {
			t.Fatalf("%s: %v", tt.path, err)
		}
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.path, resp.StatusCode, tt.status)
		}
		if got := transport.count(); got != tt.events {
			t.Errorf("after %s: captured %d events, want %d", tt.path, got, tt.events)
		}
	}
}
