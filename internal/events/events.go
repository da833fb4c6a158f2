// Package events fans report change notifications out to connected clients.
// Delivery is fire-and-forget: at most once per connected subscriber, no
// replay for subscribers that were not connected at publish time.
package events

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/google/uuid"
)

type Kind string

const (
	Created Kind = "Created"
	Updated Kind = "Updated"
	Deleted Kind = "Deleted"
)

func (k Kind) Valid() bool {
	switch k {
	case Created, Updated, Deleted:
		return true
	}
	return false
}

// Event always carries the report id. Report is a convenience copy that
// clients must not treat as authoritative.
type Event struct {
	Kind     Kind           `json:"kind"`
	ReportID uuid.UUID      `json:"reportId"`
	Report   *models.Report `json:"report,omitempty"`
	At       time.Time      `json:"at"`
}

// Broadcaster is injected into the report service. Publish must not block on
// slow clients and its error never fails the originating mutation.
type Broadcaster interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
