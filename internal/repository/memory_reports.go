package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/google/uuid"
)

// MemoryReportRepository keeps reports in a map. It backs tests and
// STORE_DRIVER=memory local runs; records are copied in and out so callers
// never share memory with the store.
type MemoryReportRepository struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]models.Report
	// Fail, when set, is returned by every call. Tests use it to simulate an
	// outage.
	Fail error
}

func NewMemoryReportRepository() *MemoryReportRepository {
	return &MemoryReportRepository{reports: make(map[uuid.UUID]models.Report)}
}

func (r *MemoryReportRepository) Create(_ context.Context, report *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return apperr.StoreUnavailable(r.Fail)
	}
	if _, exists := r.reports[report.ID]; exists {
		return apperr.StoreUnavailable(errDuplicateKey)
	}
	r.reports[report.ID] = cloneReport(*report)
	return nil
}

func (r *MemoryReportRepository) Get(_ context.Context, id uuid.UUID) (*models.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Fail != nil {
		return nil, apperr.StoreUnavailable(r.Fail)
	}
	report, ok := r.reports[id]
	if !ok {
		return nil, apperr.NotFound("report not found")
	}
	out := cloneReport(report)
	return &out, nil
}

func (r *MemoryReportRepository) List(_ context.Context, filter ListFilter) ([]models.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Fail != nil {
		return nil, apperr.StoreUnavailable(r.Fail)
	}
	matched := r.matching(filter)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []models.Report{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *MemoryReportRepository) Count(_ context.Context, filter ListFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Fail != nil {
		return 0, apperr.StoreUnavailable(r.Fail)
	}
	return int64(len(r.matching(filter))), nil
}

func (r *MemoryReportRepository) UpdateColumns(_ context.Context, id uuid.UUID, columns map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return apperr.StoreUnavailable(r.Fail)
	}
	report, ok := r.reports[id]
	if !ok {
		return apperr.NotFound("report not found")
	}
	if err := applyColumns(&report, columns); err != nil {
		return err
	}
	r.reports[id] = report
	return nil
}

func (r *MemoryReportRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail != nil {
		return apperr.StoreUnavailable(r.Fail)
	}
	if _, ok := r.reports[id]; !ok {
		return apperr.NotFound("report not found")
	}
	delete(r.reports, id)
	return nil
}

func (r *MemoryReportRepository) Stats(_ context.Context, actorID uuid.UUID) (*models.ReportStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Fail != nil {
		return nil, apperr.StoreUnavailable(r.Fail)
	}
	stats := &models.ReportStats{}
	for _, report := range r.reports {
		stats.Total++
		if actorID != uuid.Nil && report.CreatedBy == actorID {
			stats.Mine++
		}
		switch report.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusInProgress:
			stats.InProgress++
		case models.StatusCompleted:
			stats.Completed++
		}
	}
	return stats, nil
}

// matching returns filtered copies ordered created_at DESC, id DESC.
// Callers must hold r.mu.
func (r *MemoryReportRepository) matching(f ListFilter) []models.Report {
	out := make([]models.Report, 0, len(r.reports))
	for _, report := range r.reports {
		if f.Category != "" && report.Category != f.Category {
			continue
		}
		if f.Status != "" && report.Status != f.Status {
			continue
		}
		if f.CreatedBy != uuid.Nil && report.CreatedBy != f.CreatedBy {
			continue
		}
		if f.ExcludeCreatedBy != uuid.Nil && report.CreatedBy == f.ExcludeCreatedBy {
			continue
		}
		out = append(out, cloneReport(report))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return out
}

func cloneReport(r models.Report) models.Report {
	if r.ImageRef != nil {
		ref := *r.ImageRef
		r.ImageRef = &ref
	}
	return r
}
