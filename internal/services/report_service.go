package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/access"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/events"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/locks"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var errNoAssetStore = errors.New("no asset store configured")

// AssetUploader stores a new image and returns its reference.
type AssetUploader interface {
	Upload(ctx context.Context, data []byte) (string, error)
}

// AssetCleaner schedules best-effort removal of an asset that is no longer
// referenced. It must not block.
type AssetCleaner interface {
	Enqueue(ref string)
}

type CreateReportInput struct {
	ReporterName string
	Building     string
	RoomNumber   string
	Category     models.Category
	Details      string
	// ReportDate defaults to the creation day when zero.
	ReportDate time.Time
	Image      []byte
}

// ReportPatch is a partial edit; nil fields are left untouched.
type ReportPatch struct {
	ReporterName *string
	Building     *string
	RoomNumber   *string
	Category     *models.Category
	Details      *string
	ReportDate   *time.Time
	// Note is accepted only from admins.
	Note  *string
	Image []byte
}

func (p ReportPatch) empty() bool {
	return p.ReporterName == nil && p.Building == nil && p.RoomNumber == nil &&
		p.Category == nil && p.Details == nil && p.ReportDate == nil &&
		p.Note == nil && len(p.Image) == 0
}

// ReportService is the authoritative store for reports: it validates input,
// enforces ownership, orders image writes and announces committed changes.
//
// Mutations of one report are serialized through the Locker and write only
// the columns they touch, so concurrent edits of disjoint fields all survive.
// There is no version check: overlapping fields are last-write-wins.
type ReportService struct {
	repo        repository.ReportRepository
	assets      AssetUploader
	cleaner     AssetCleaner
	broadcaster events.Broadcaster
	locker      locks.Locker
	validate    *validator.Validate
	clock       *monotonicClock
}

func NewReportService(
	repo repository.ReportRepository,
	assets AssetUploader,
	cleaner AssetCleaner,
	broadcaster events.Broadcaster,
	locker locks.Locker,
	buildings []string,
) *ReportService {
	if broadcaster == nil {
		broadcaster = events.Nop{}
	}
	if locker == nil {
		locker = locks.NewKeyedMutex()
	}
	return &ReportService{
		repo:        repo,
		assets:      assets,
		cleaner:     cleaner,
		broadcaster: broadcaster,
		locker:      locker,
		validate:    newReportValidator(buildings),
		clock:       &monotonicClock{now: time.Now},
	}
}

func (s *ReportService) Create(ctx context.Context, actor access.Actor, in CreateReportInput) (*models.Report, error) {
	if actor.ID == uuid.Nil {
		return nil, apperr.Unauthorized("authentication required")
	}
	ctx = context.WithoutCancel(ctx)

	fields := reportFields{
		ReporterName: in.ReporterName,
		Building:     in.Building,
		RoomNumber:   in.RoomNumber,
		Category:     in.Category,
		Details:      in.Details,
		ReportDate:   in.ReportDate,
	}
	fields.normalize()
	if err := validateFields(s.validate, fields, true); err != nil {
		return nil, err
	}

	var imageRef *string
	if len(in.Image) > 0 {
		ref, err := s.upload(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		imageRef = &ref
	}

	now := s.clock.Now()
	if fields.ReportDate.IsZero() {
		fields.ReportDate = now.Truncate(24 * time.Hour)
	}
	report := &models.Report{
		ID:           uuid.New(),
		ReporterName: fields.ReporterName,
		Building:     fields.Building,
		RoomNumber:   fields.RoomNumber,
		Category:     fields.Category,
		Details:      fields.Details,
		ReportDate:   fields.ReportDate.UTC(),
		Status:       models.StatusPending,
		ImageRef:     imageRef,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, report); err != nil {
		if imageRef != nil {
			s.discard(*imageRef)
		}
		return nil, err
	}

	slog.Info("report created", "report_id", report.ID.String(), "actor_id", actor.ID.String())
	s.publish(ctx, events.Created, report)
	return report, nil
}

func (s *ReportService) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	return s.repo.Get(ctx, id)
}

// List returns reports newest first. The order is stable across calls so
// clients can paginate.
func (s *ReportService) List(ctx context.Context, filter repository.ListFilter) ([]models.Report, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, apperr.Validation("invalid status filter", map[string]string{"status": "oneof"})
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, 0, apperr.Validation("invalid category filter", map[string]string{"category": "oneof"})
	}
	reports, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, repository.ListFilter{
		Category:         filter.Category,
		Status:           filter.Status,
		CreatedBy:        filter.CreatedBy,
		ExcludeCreatedBy: filter.ExcludeCreatedBy,
	})
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *ReportService) Stats(ctx context.Context, actorID uuid.UUID) (*models.ReportStats, error) {
	return s.repo.Stats(ctx, actorID)
}

// UpdateFields applies an owner (or admin) edit. When the patch carries an
// image the new asset is uploaded before the record write and the old one is
// scheduled for deletion only after the write succeeded, so a reader never
// sees an imageRef pointing at a deleted asset.
func (s *ReportService) UpdateFields(ctx context.Context, id uuid.UUID, actor access.Actor, patch ReportPatch) (*models.Report, error) {
	ctx = context.WithoutCancel(ctx)
	unlock, err := s.locker.Lock(ctx, id.String())
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	defer unlock()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanMutate(actor, current.CreatedBy, access.OpEdit); err != nil {
		return nil, err
	}
	if patch.empty() {
		return nil, apperr.Validation("nothing to update", nil)
	}
	if patch.Note != nil && !actor.IsAdmin() {
		return nil, apperr.Validation("note can only be set by an admin", map[string]string{"note": "admin_only"})
	}

	fields := fieldsOf(current)
	columns := make(map[string]interface{})
	if patch.ReporterName != nil {
		fields.ReporterName = *patch.ReporterName
	}
	if patch.Building != nil {
		fields.Building = *patch.Building
	}
	if patch.RoomNumber != nil {
		fields.RoomNumber = *patch.RoomNumber
	}
	if patch.Category != nil {
		fields.Category = *patch.Category
	}
	if patch.Details != nil {
		fields.Details = *patch.Details
	}
	if patch.ReportDate != nil {
		fields.ReportDate = patch.ReportDate.UTC()
	}
	fields.normalize()
	if err := validateFields(s.validate, fields, patch.Building != nil); err != nil {
		return nil, err
	}

	if patch.ReporterName != nil {
		columns[repository.ColReporterName] = fields.ReporterName
	}
	if patch.Building != nil {
		columns[repository.ColBuilding] = fields.Building
	}
	if patch.RoomNumber != nil {
		columns[repository.ColRoomNumber] = fields.RoomNumber
	}
	if patch.Category != nil {
		columns[repository.ColCategory] = fields.Category
	}
	if patch.Details != nil {
		columns[repository.ColDetails] = fields.Details
	}
	if patch.ReportDate != nil {
		columns[repository.ColReportDate] = fields.ReportDate
	}
	if patch.Note != nil {
		columns[repository.ColNote] = *patch.Note
	}

	var newRef string
	if len(patch.Image) > 0 {
		newRef, err = s.upload(ctx, patch.Image)
		if err != nil {
			return nil, err
		}
		columns[repository.ColImageRef] = &newRef
	}
	columns[repository.ColUpdatedAt] = s.clock.Now()

	if err := s.repo.UpdateColumns(ctx, id, columns); err != nil {
		if newRef != "" {
			s.discard(newRef)
		}
		return nil, err
	}
	if newRef != "" && current.ImageRef != nil && *current.ImageRef != newRef {
		s.discard(*current.ImageRef)
	}

	updated := s.reload(ctx, id, current, columns)
	slog.Info("report updated", "report_id", id.String(), "actor_id", actor.ID.String(), "fields", len(columns)-1)
	s.publish(ctx, events.Updated, updated)
	return updated, nil
}

// UpdateStatus is the admin override for status and note. Any status may be
// set from any other, including reopening a completed report. A nil note
// keeps the stored one.
func (s *ReportService) UpdateStatus(ctx context.Context, id uuid.UUID, actor access.Actor, status models.Status, note *string) (*models.Report, error) {
	ctx = context.WithoutCancel(ctx)
	unlock, err := s.locker.Lock(ctx, id.String())
	if err != nil {
		return nil, apperr.StoreUnavailable(err)
	}
	defer unlock()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanMutate(actor, current.CreatedBy, access.OpAdminUpdate); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation("status must be one of Pending, InProgress, Completed", map[string]string{"status": "oneof"})
	}

	columns := map[string]interface{}{
		repository.ColStatus:    status,
		repository.ColUpdatedAt: s.clock.Now(),
	}
	if note != nil {
		columns[repository.ColNote] = *note
	}
	if err := s.repo.UpdateColumns(ctx, id, columns); err != nil {
		return nil, err
	}

	updated := s.reload(ctx, id, current, columns)
	slog.Info("report status updated", "report_id", id.String(), "actor_id", actor.ID.String(), "status", string(status))
	s.publish(ctx, events.Updated, updated)
	return updated, nil
}

// Delete removes the record for good, then schedules removal of its image.
// The image cleanup never affects the result.
func (s *ReportService) Delete(ctx context.Context, id uuid.UUID, actor access.Actor) error {
	ctx = context.WithoutCancel(ctx)
	unlock, err := s.locker.Lock(ctx, id.String())
	if err != nil {
		return apperr.StoreUnavailable(err)
	}
	defer unlock()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := access.CanMutate(actor, current.CreatedBy, access.OpDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if current.ImageRef != nil {
		s.discard(*current.ImageRef)
	}

	slog.Info("report deleted", "report_id", id.String(), "actor_id", actor.ID.String())
	s.publish(ctx, events.Deleted, &models.Report{ID: id})
	return nil
}

func (s *ReportService) upload(ctx context.Context, data []byte) (string, error) {
	if s.assets == nil {
		return "", apperr.UploadFailed(errNoAssetStore)
	}
	return s.assets.Upload(ctx, data)
}

func (s *ReportService) discard(ref string) {
	if s.cleaner == nil {
		slog.Warn("no asset cleaner configured, asset orphaned", "ref", ref)
		return
	}
	s.cleaner.Enqueue(ref)
}

// reload re-reads the committed record. If that read fails the write has
// still happened, so fall back to the pre-write record with the written
// columns applied.
func (s *ReportService) reload(ctx context.Context, id uuid.UUID, before *models.Report, columns map[string]interface{}) *models.Report {
	fresh, err := s.repo.Get(ctx, id)
	if err == nil {
		return fresh
	}
	slog.Warn("failed to reload report after write", "report_id", id.String(), "error", err)
	out := *before
	if v, ok := columns[repository.ColReporterName].(string); ok {
		out.ReporterName = v
	}
	if v, ok := columns[repository.ColBuilding].(string); ok {
		out.Building = v
	}
	if v, ok := columns[repository.ColRoomNumber].(string); ok {
		out.RoomNumber = v
	}
	if v, ok := columns[repository.ColCategory].(models.Category); ok {
		out.Category = v
	}
	if v, ok := columns[repository.ColDetails].(string); ok {
		out.Details = v
	}
	if v, ok := columns[repository.ColReportDate].(time.Time); ok {
		out.ReportDate = v
	}
	if v, ok := columns[repository.ColStatus].(models.Status); ok {
		out.Status = v
	}
	if v, ok := columns[repository.ColNote].(string); ok {
		out.Note = v
	}
	if v, ok := columns[repository.ColImageRef].(*string); ok {
		out.ImageRef = v
	}
	if v, ok := columns[repository.ColUpdatedAt].(time.Time); ok {
		out.UpdatedAt = v
	}
	return &out
}

// publish runs only after a successful commit. Delivery problems are logged;
// they never fail the mutation.
func (s *ReportService) publish(ctx context.Context, kind events.Kind, report *models.Report) {
	event := events.Event{Kind: kind, ReportID: report.ID, At: s.clock.Now()}
	if kind != events.Deleted {
		event.Report = report
	}
	if err := s.broadcaster.Publish(ctx, event); err != nil {
		slog.Warn("event broadcast failed", "kind", string(kind), "report_id", report.ID.String(), "error", err)
	}
}

// monotonicClock hands out strictly increasing UTC timestamps at the
// store's microsecond resolution, keeping created_at ordering total for
// back-to-back creates.
type monotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
