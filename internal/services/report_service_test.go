package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/access"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/events"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/repository"
	"github.com/google/uuid"
)

type fakeUploader struct {
	mu   sync.Mutex
	n    int
	fail error
	refs []string
}

func (u *fakeUploader) Upload(_ context.Context, data []byte) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail != nil {
		return "", apperr.UploadFailed(u.fail)
	}
	if len(data) == 0 {
		return "", apperr.InvalidAsset("empty image")
	}
	u.n++
	ref := fmt.Sprintf("/api/assets/img-%d.png", u.n)
	u.refs = append(u.refs, ref)
	return ref, nil
}

type recordingCleaner struct {
	mu   sync.Mutex
	refs []string
}

func (c *recordingCleaner) Enqueue(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs = append(c.refs, ref)
}

func (c *recordingCleaner) enqueued() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.refs...)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []events.Event
	fail   error
}

func (b *recordingBroadcaster) Publish(_ context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return b.fail
}

func (b *recordingBroadcaster) published() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.events...)
}

type fixture struct {
	svc      *ReportService
	repo     *repository.MemoryReportRepository
	uploader *fakeUploader
	cleaner  *recordingCleaner
	bus      *recordingBroadcaster
}

func newFixture(t *testing.T, buildings ...string) *fixture {
	t.Helper()
	f := &fixture{
		repo:     repository.NewMemoryReportRepository(),
		uploader: &fakeUploader{},
		cleaner:  &recordingCleaner{},
		bus:      &recordingBroadcaster{},
	}
	f.svc = NewReportService(f.repo, f.uploader, f.cleaner, f.bus, nil, buildings)
	return f
}

func member() access.Actor { return access.Actor{ID: uuid.New(), Role: access.RoleMember} }
func admin() access.Actor  { return access.Actor{ID: uuid.New(), Role: access.RoleAdmin} }

func validInput() CreateReportInput {
	return CreateReportInput{
		ReporterName: "Alice",
		Building:     "ICT",
		RoomNumber:   "204",
		Category:     models.CategoryProjector,
		Details:      "Projector shows no signal",
		ReportDate:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func strPtr(s string) *string { return &s }

func mustCreate(t *testing.T, f *fixture, actor access.Actor, in CreateReportInput) *models.Report {
	t.Helper()
	r, err := f.svc.Create(context.Background(), actor, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return r
}

func TestCreateSetsServerFields(t *testing.T) {
	f := newFixture(t)
	alice := member()

	r := mustCreate(t, f, alice, validInput())
	if r.ID == uuid.Nil {
		t.Fatal("expected an id")
	}
	if r.Status != models.StatusPending {
		t.Errorf("status = %q, want Pending", r.Status)
	}
	if r.Note != "" {
		t.Errorf("note = %q, want empty", r.Note)
	}
	if r.CreatedBy != alice.ID {
		t.Errorf("createdBy = %s, want %s", r.CreatedBy, alice.ID)
	}
	if r.ImageRef != nil {
		t.Errorf("imageRef = %v, want nil", *r.ImageRef)
	}
	if r.CreatedAt.IsZero() || !r.CreatedAt.Equal(r.UpdatedAt) {
		t.Errorf("createdAt %v / updatedAt %v", r.CreatedAt, r.UpdatedAt)
	}

	stored, err := f.svc.Get(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Details != r.Details {
		t.Errorf("stored details = %q", stored.Details)
	}

	got := f.bus.published()
	if len(got) != 1 || got[0].Kind != events.Created || got[0].ReportID != r.ID {
		t.Fatalf("events = %+v", got)
	}
}

func TestCreateDefaultsReportDate(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.ReportDate = time.Time{}
	r := mustCreate(t, f, member(), in)
	if r.ReportDate.IsZero() {
		t.Fatal("expected report date to default to today")
	}
}

func TestCreateRequiresActor(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), access.Actor{}, validInput())
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
	if n, _ := f.repo.Count(context.Background(), repository.ListFilter{}); n != 0 {
		t.Errorf("stored %d reports", n)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateReportInput)
		field  string
	}{
		{"missing reporter", func(in *CreateReportInput) { in.ReporterName = "" }, "reporterName"},
		{"blank reporter", func(in *CreateReportInput) { in.ReporterName = "   " }, "reporterName"},
		{"missing building", func(in *CreateReportInput) { in.Building = "" }, "building"},
		{"missing room", func(in *CreateReportInput) { in.RoomNumber = "" }, "roomNumber"},
		{"missing details", func(in *CreateReportInput) { in.Details = "" }, "details"},
		{"unknown category", func(in *CreateReportInput) { in.Category = "Toaster" }, "category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validInput()
			tt.mutate(&in)
			_, err := f.svc.Create(context.Background(), member(), in)
			var ae *apperr.Error
			if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation {
				t.Fatalf("err = %v, want validation error", err)
			}
			if _, ok := ae.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %q", ae.Fields, tt.field)
			}
			if len(f.bus.published()) != 0 {
				t.Error("no event expected on failure")
			}
		})
	}
}

func TestCreateBuildingList(t *testing.T) {
	f := newFixture(t, "UB", "ICT")
	in := validInput()
	in.Building = "Library"
	if _, err := f.svc.Create(context.Background(), member(), in); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	in.Building = "UB"
	if _, err := f.svc.Create(context.Background(), member(), in); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestUpdateKeepsBuildingOutsideNarrowedList(t *testing.T) {
	f := newFixture(t)
	alice := member()
	r := mustCreate(t, f, alice, validInput())

	narrowed := NewReportService(f.repo, f.uploader, f.cleaner, f.bus, nil, []string{"UB"})
	updated, err := narrowed.UpdateFields(context.Background(), r.ID, alice, ReportPatch{Details: strPtr("still broken")})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if updated.Building != "ICT" || updated.Details != "still broken" {
		t.Errorf("updated = %+v", updated)
	}

	_, err = narrowed.UpdateFields(context.Background(), r.ID, alice, ReportPatch{Building: strPtr("ICT")})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Fields["building"] != "building" {
		t.Fatalf("err = %v, want building validation error", err)
	}
}

func TestCreateWithImage(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Image = []byte("png")
	r := mustCreate(t, f, member(), in)
	if r.ImageRef == nil || *r.ImageRef != f.uploader.refs[0] {
		t.Fatalf("imageRef = %v, want %v", r.ImageRef, f.uploader.refs)
	}
}

func TestCreateUploadFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.uploader.fail = errors.New("bucket offline")
	in := validInput()
	in.Image = []byte("png")

	_, err := f.svc.Create(context.Background(), member(), in)
	if !errors.Is(err, apperr.ErrUploadFailed) {
		t.Fatalf("err = %v, want upload failed", err)
	}
	if n, _ := f.repo.Count(context.Background(), repository.ListFilter{}); n != 0 {
		t.Errorf("stored %d reports", n)
	}
	if len(f.bus.published()) != 0 {
		t.Error("no event expected")
	}
}

func TestCreateStoreFailureCleansUpImage(t *testing.T) {
	f := newFixture(t)
	f.repo.Fail = errors.New("connection refused")
	in := validInput()
	in.Image = []byte("png")

	_, err := f.svc.Create(context.Background(), member(), in)
	if !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want store unavailable", err)
	}
	if got := f.cleaner.enqueued(); len(got) != 1 || got[0] != f.uploader.refs[0] {
		t.Errorf("cleaned = %v, want %v", got, f.uploader.refs)
	}
	if len(f.bus.published()) != 0 {
		t.Error("no event expected")
	}
}

func TestCreateSurvivesCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.svc.Create(ctx, member(), validInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestBroadcastFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.bus.fail = errors.New("redis down")
	if _, err := f.svc.Create(context.Background(), member(), validInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	f := newFixture(t)
	alice := member()
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, mustCreate(t, f, alice, validInput()).ID)
	}

	reports, total, err := f.svc.List(context.Background(), repository.ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 5 || len(reports) != 5 {
		t.Fatalf("total=%d len=%d", total, len(reports))
	}
	for i, r := range reports {
		if r.ID != ids[len(ids)-1-i] {
			t.Errorf("position %d: got %s, want %s", i, r.ID, ids[len(ids)-1-i])
		}
	}

	again, _, _ := f.svc.List(context.Background(), repository.ListFilter{})
	for i := range again {
		if again[i].ID != reports[i].ID {
			t.Fatal("list order is not stable between calls")
		}
	}
}

func TestListPaginationAndFilters(t *testing.T) {
	f := newFixture(t)
	alice, bob := member(), member()
	for i := 0; i < 3; i++ {
		mustCreate(t, f, alice, validInput())
	}
	in := validInput()
	in.Category = models.CategoryInternet
	mustCreate(t, f, bob, in)

	page, total, err := f.svc.List(context.Background(), repository.ListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 4 || len(page) != 2 {
		t.Errorf("total=%d len=%d, want 4/2", total, len(page))
	}

	mine, total, _ := f.svc.List(context.Background(), repository.ListFilter{CreatedBy: alice.ID})
	if total != 3 || len(mine) != 3 {
		t.Errorf("mine total=%d", total)
	}
	others, _, _ := f.svc.List(context.Background(), repository.ListFilter{ExcludeCreatedBy: alice.ID})
	if len(others) != 1 || others[0].CreatedBy != bob.ID {
		t.Errorf("others = %+v", others)
	}
	internet, _, _ := f.svc.List(context.Background(), repository.ListFilter{Category: models.CategoryInternet})
	if len(internet) != 1 {
		t.Errorf("internet = %d", len(internet))
	}

	if _, _, err := f.svc.List(context.Background(), repository.ListFilter{Status: "Lost"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestGetMissing(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Get(context.Background(), uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestUpdateFieldsByOwner(t *testing.T) {
	f := newFixture(t)
	alice := member()
	r := mustCreate(t, f, alice, validInput())

	updated, err := f.svc.UpdateFields(context.Background(), r.ID, alice, ReportPatch{Details: strPtr("Bulb replaced, still dim")})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if updated.Details != "Bulb replaced, still dim" {
		t.Errorf("details = %q", updated.Details)
	}
	if updated.RoomNumber != r.RoomNumber || updated.Status != models.StatusPending {
		t.Errorf("untouched fields changed: %+v", updated)
	}
	if !updated.UpdatedAt.After(r.UpdatedAt) {
		t.Errorf("updatedAt %v not after %v", updated.UpdatedAt, r.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(r.CreatedAt) || updated.CreatedBy != alice.ID {
		t.Error("immutable fields changed")
	}

	evs := f.bus.published()
	if last := evs[len(evs)-1]; last.Kind != events.Updated || last.Report == nil || last.Report.Details != updated.Details {
		t.Errorf("last event = %+v", last)
	}
}

func TestUpdateFieldsForbiddenForOthers(t *testing.T) {
	f := newFixture(t)
	alice, bob := member(), member()
	r := mustCreate(t, f, alice, validInput())
	before := len(f.bus.published())

	_, err := f.svc.UpdateFields(context.Background(), r.ID, bob, ReportPatch{Details: strPtr("hijack")})
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
	stored, _ := f.svc.Get(context.Background(), r.ID)
	if stored.Details != r.Details {
		t.Errorf("details changed to %q", stored.Details)
	}
	if len(f.bus.published()) != before {
		t.Error("no event expected for a rejected update")
	}
}

func TestUpdateFieldsByAdmin(t *testing.T) {
	f := newFixture(t)
	r := mustCreate(t, f, member(), validInput())
	updated, err := f.svc.UpdateFields(context.Background(), r.ID, admin(), ReportPatch{RoomNumber: strPtr("101"), Note: strPtr("checked")})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if updated.RoomNumber != "101" || updated.Note != "checked" {
		t.Errorf("updated = %+v", updated)
	}
}

func TestUpdateFieldsNoteIsAdminOnly(t *testing.T) {
	f := newFixture(t)
	alice := member()
	r := mustCreate(t, f, alice, validInput())
	_, err := f.svc.UpdateFields(context.Background(), r.ID, alice, ReportPatch{Note: strPtr("done!")})
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation || ae.Fields["note"] == "" {
		t.Fatalf("err = %v, want note validation error", err)
	}
}

func TestUpdateFieldsValidatesMergedRecord(t *testing.T) {
	f := newFixture(t)
	alice := member()
	r := mustCreate(t, f, alice, validInput())
	_, err := f.svc.UpdateFields(context.Background(), r.ID, alice, ReportPatch{Details: strPtr("  ")})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	_, err = f.svc.UpdateFields(context.Background(), r.ID, alice, ReportPatch{})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("empty patch err = %v, want validation", err)
	}
}

func TestUpdateFieldsMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateFields(context.Background(), uuid.New(), admin(), ReportPatch{Details: strPtr("x")})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestReplaceImageCleansOldAfterWrite(t *testing.T) {
	f := newFixture(t)
	alice := member()
	in := validInput()
	in.Image = []byte("first")
	r := mustCreate(t, f, alice, in)
	oldRef := *r.ImageRef

	updated, err := f.svc.UpdateFields(context.Background(), r.ID, alice, ReportPatch{Image: []byte("second")})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if updated.ImageRef == nil || *updated.ImageRef == oldRef {
		t.Fatalf("imageRef = %v, want a new ref", updated.ImageRef)
	}
	if got := f.cleaner.enqueued(); len(got) != 1 || got[0] != oldRef {
		t.Errorf("cleaned = %v, want [%s]", got, oldRef)
	}
}

func TestReplaceImageUploadFailureKeepsOld(t *testing.T) {
	f := newFixture(t)
	alice := member()
	in := validInput()
	in.Image = []byte("first")
	r := mustCreate(t, f, alice, in)

	f.uploader.fail = errors.New("quota")
	_, err := f.svc.UpdateFields(context.Background(), r.ID, alice, ReportPatch{Image: []byte("second")})
	if !errors.Is(err, apperr.ErrUploadFailed) {
		t.Fatalf("err = %v, want upload failed", err)
	}
	stored, _ := f.svc.Get(context.Background(), r.ID)
	if stored.ImageRef == nil || *stored.ImageRef != *r.ImageRef {
		t.Errorf("imageRef = %v, want %s", stored.ImageRef, *r.ImageRef)
	}
	if len(f.cleaner.enqueued()) != 0 {
		t.Error("old image must not be scheduled for deletion")
	}
}

func TestUpdateStatusAdminOnly(t *testing.T) {
	f := newFixture(t)
	alice := member()
	r := mustCreate(t, f, alice, validInput())

	_, err := f.svc.UpdateStatus(context.Background(), r.ID, alice, models.StatusCompleted, strPtr("fixed it myself"))
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("owner err = %v, want forbidden", err)
	}

	boss := admin()
	updated, err := f.svc.UpdateStatus(context.Background(), r.ID, boss, models.StatusInProgress, strPtr("technician assigned"))
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != models.StatusInProgress || updated.Note != "technician assigned" {
		t.Errorf("updated = %+v", updated)
	}
	if updated.Details != r.Details {
		t.Error("descriptive fields must not change")
	}

	// Completed may be reopened.
	if _, err := f.svc.UpdateStatus(context.Background(), r.ID, boss, models.StatusCompleted, nil); err != nil {
		t.Fatal(err)
	}
	reopened, err := f.svc.UpdateStatus(context.Background(), r.ID, boss, models.StatusPending, nil)
	if err != nil || reopened.Status != models.StatusPending {
		t.Fatalf("reopen: %v %+v", err, reopened)
	}
}

func TestUpdateStatusWithoutNoteKeepsNote(t *testing.T) {
	f := newFixture(t)
	boss := admin()
	r := mustCreate(t, f, member(), validInput())

	if _, err := f.svc.UpdateStatus(context.Background(), r.ID, boss, models.StatusInProgress, strPtr("ordered part")); err != nil {
		t.Fatal(err)
	}
	updated, err := f.svc.UpdateStatus(context.Background(), r.ID, boss, models.StatusCompleted, nil)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != models.StatusCompleted || updated.Note != "ordered part" {
		t.Errorf("updated = %+v, want Completed with note kept", updated)
	}

	cleared, err := f.svc.UpdateStatus(context.Background(), r.ID, boss, models.StatusCompleted, strPtr(""))
	if err != nil || cleared.Note != "" {
		t.Fatalf("clear note: %v %+v", err, cleared)
	}
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	f := newFixture(t)
	r := mustCreate(t, f, member(), validInput())
	_, err := f.svc.UpdateStatus(context.Background(), r.ID, admin(), "Archived", nil)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestDeleteByOwner(t *testing.T) {
	f := newFixture(t)
	alice := member()
	in := validInput()
	in.Image = []byte("img")
	r := mustCreate(t, f, alice, in)

	if err := f.svc.Delete(context.Background(), r.ID, alice); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
	if got := f.cleaner.enqueued(); len(got) != 1 || got[0] != *r.ImageRef {
		t.Errorf("cleaned = %v", got)
	}
	evs := f.bus.published()
	last := evs[len(evs)-1]
	if last.Kind != events.Deleted || last.ReportID != r.ID || last.Report != nil {
		t.Errorf("last event = %+v", last)
	}

	if err := f.svc.Delete(context.Background(), r.ID, alice); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want not found", err)
	}
}

func TestDeleteForbiddenForOthers(t *testing.T) {
	f := newFixture(t)
	r := mustCreate(t, f, member(), validInput())
	if err := f.svc.Delete(context.Background(), r.ID, member()); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
	if err := f.svc.Delete(context.Background(), r.ID, admin()); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestConcurrentDisjointPatchesBothSurvive(t *testing.T) {
	f := newFixture(t)
	alice := member()
	boss := admin()
	r := mustCreate(t, f, alice, validInput())

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.svc.UpdateFields(context.Background(), r.ID, alice, ReportPatch{Details: strPtr("new details")})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := f.svc.UpdateStatus(context.Background(), r.ID, boss, models.StatusInProgress, strPtr("on it"))
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent update: %v", err)
		}
	}

	stored, _ := f.svc.Get(context.Background(), r.ID)
	if stored.Details != "new details" || stored.Status != models.StatusInProgress || stored.Note != "on it" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestConcurrentDisjointFieldEditsBothSurvive(t *testing.T) {
	f := newFixture(t)
	alice := member()
	boss := admin()
	r := mustCreate(t, f, alice, validInput())

	for i := 0; i < 50; i++ {
		details := fmt.Sprintf("details %d", i)
		room := fmt.Sprintf("room %d", i)

		var wg sync.WaitGroup
		errs := make(chan error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.svc.UpdateFields(context.Background(), r.ID, alice, ReportPatch{Details: &details})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.svc.UpdateFields(context.Background(), r.ID, boss, ReportPatch{RoomNumber: &room})
			errs <- err
		}()
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("round %d: %v", i, err)
			}
		}

		stored, err := f.svc.Get(context.Background(), r.ID)
		if err != nil {
			t.Fatal(err)
		}
		if stored.Details != details || stored.RoomNumber != room {
			t.Fatalf("round %d: stored details=%q room=%q", i, stored.Details, stored.RoomNumber)
		}
		if stored.CreatedBy != alice.ID {
			t.Fatalf("round %d: createdBy changed to %v", i, stored.CreatedBy)
		}
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	alice, boss := member(), admin()
	a := mustCreate(t, f, alice, validInput())
	mustCreate(t, f, alice, validInput())
	mustCreate(t, f, member(), validInput())
	if _, err := f.svc.UpdateStatus(context.Background(), a.ID, boss, models.StatusCompleted, nil); err != nil {
		t.Fatal(err)
	}

	stats, err := f.svc.Stats(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := models.ReportStats{Total: 3, Mine: 2, Pending: 2, InProgress: 0, Completed: 1}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}
}

func TestMonotonicClock(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &monotonicClock{now: func() time.Time { return fixed }}
	a, b := c.Now(), c.Now()
	if !b.After(a) {
		t.Fatalf("%v is not after %v", b, a)
	}
	if b.Sub(a) != time.Microsecond {
		t.Errorf("step = %v", b.Sub(a))
	}
}
