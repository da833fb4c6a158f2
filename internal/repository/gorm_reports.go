package repository

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormReportRepository struct {
	db *gorm.DB
}

func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

func (r *GormReportRepository) Create(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *GormReportRepository) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &report, nil
}

func (r *GormReportRepository) List(ctx context.Context, filter ListFilter) ([]models.Report, error) {
	var reports []models.Report
	query := r.db.WithContext(ctx).Model(&models.Report{}).Scopes(withFilter(filter)).
		Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Find(&reports).Error; err != nil {
		return nil, translate(err)
	}
	return reports, nil
}

func (r *GormReportRepository) Count(ctx context.Context, filter ListFilter) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Report{}).Scopes(withFilter(filter)).Count(&total).Error; err != nil {
		return 0, translate(err)
	}
	return total, nil
}

func (r *GormReportRepository) UpdateColumns(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", id).UpdateColumns(columns)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("report not found")
	}
	return nil
}

func (r *GormReportRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Report{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("report not found")
	}
	return nil
}

func (r *GormReportRepository) Stats(ctx context.Context, actorID uuid.UUID) (*models.ReportStats, error) {
	var row struct {
		Total      int64
		Mine       int64
		Pending    int64
		InProgress int64
		Completed  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Report{}).Select(
		"COUNT(*) AS total, "+
			"COUNT(*) FILTER (WHERE created_by = ?) AS mine, "+
			"COUNT(*) FILTER (WHERE status = ?) AS pending, "+
			"COUNT(*) FILTER (WHERE status = ?) AS in_progress, "+
			"COUNT(*) FILTER (WHERE status = ?) AS completed",
		actorID, models.StatusPending, models.StatusInProgress, models.StatusCompleted,
	).Scan(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &models.ReportStats{
		Total:      row.Total,
		Mine:       row.Mine,
		Pending:    row.Pending,
		InProgress: row.InProgress,
		Completed:  row.Completed,
	}, nil
}

func withFilter(f ListFilter) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Category != "" {
			db = db.Where("category = ?", f.Category)
		}
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.CreatedBy != uuid.Nil {
			db = db.Where("created_by = ?", f.CreatedBy)
		}
		if f.ExcludeCreatedBy != uuid.Nil {
			db = db.Where("created_by <> ?", f.ExcludeCreatedBy)
		}
		return db
	}
}

// translate maps GORM/driver errors onto the apperr taxonomy. Anything that is
// not a missing row is treated as the store being unavailable.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("report not found")
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.StoreUnavailable(err)
}
