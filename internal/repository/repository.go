// Package repository is the persistence boundary for reports. The service
// layer never touches *gorm.DB directly so it can run against memory in tests.
package repository

import (
	"context"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/google/uuid"
)

// ListFilter narrows List and Count. Zero values mean "no constraint".
// Results are always ordered newest first (created_at DESC, id DESC).
type ListFilter struct {
	Category         models.Category
	Status           models.Status
	CreatedBy        uuid.UUID
	ExcludeCreatedBy uuid.UUID
	Limit            int
	Offset           int
}

type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	Get(ctx context.Context, id uuid.UUID) (*models.Report, error)
	List(ctx context.Context, filter ListFilter) ([]models.Report, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	// UpdateColumns writes only the given columns (snake_case keys) so that
	// concurrent patches touching disjoint fields do not clobber each other.
	UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, actorID uuid.UUID) (*models.ReportStats, error)
}
