package handlers

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/repository"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	imageField      = "image"
)

type ReportHandler struct {
	reportService *services.ReportService
	maxImageBytes int64
}

func NewReportHandler(reportService *services.ReportService, maxImageBytes int64) *ReportHandler {
	return &ReportHandler{reportService: reportService, maxImageBytes: maxImageBytes}
}

// List is public. Authenticated callers may narrow it with scope=mine or
// scope=others.
func (h *ReportHandler) List(c *fiber.Ctx) error {
	filter := repository.ListFilter{
		Category: models.Category(c.Query("category")),
		Limit:    c.QueryInt("limit", defaultPageSize),
		Offset:   c.QueryInt("offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return writeError(c, apperr.Validation(err.Error(), map[string]string{"status": "oneof"}))
		}
		filter.Status = status
	}
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if scope := c.Query("scope"); scope != "" {
		actor, ok := middleware.ActorFromContext(c)
		if !ok {
			return writeError(c, apperr.Unauthorized("scope requires authentication"))
		}
		switch scope {
		case "mine":
			filter.CreatedBy = actor.ID
		case "others":
			filter.ExcludeCreatedBy = actor.ID
		default:
			return writeError(c, apperr.Validation("scope must be mine or others", map[string]string{"scope": "oneof"}))
		}
	}

	reports, total, err := h.reportService.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReportListResponse{
		Reports: reports,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
}

func (h *ReportHandler) Stats(c *fiber.Ctx) error {
	actor, _ := middleware.ActorFromContext(c)
	stats, err := h.reportService.Stats(c.UserContext(), actor.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stats)
}

func (h *ReportHandler) Get(c *fiber.Ctx) error {
	id, err := reportID(c)
	if err != nil {
		return writeError(c, err)
	}
	report, err := h.reportService.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

func (h *ReportHandler) Create(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return writeError(c, apperr.Unauthorized("authentication required"))
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.Validation("Invalid request body", nil))
	}
	reportDate, err := parseReportDate(req.ReportDate)
	if err != nil {
		return writeError(c, err)
	}
	image, err := h.readImage(c)
	if err != nil {
		return writeError(c, err)
	}

	report, err := h.reportService.Create(c.UserContext(), actor, services.CreateReportInput{
		ReporterName: req.ReporterName,
		Building:     req.Building,
		RoomNumber:   req.RoomNumber,
		Category:     models.Category(strings.TrimSpace(req.Category)),
		Details:      req.Details,
		ReportDate:   reportDate,
		Image:        image,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ReportHandler) Update(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return writeError(c, apperr.Unauthorized("authentication required"))
	}
	id, err := reportID(c)
	if err != nil {
		return writeError(c, err)
	}

	req, err := parseUpdate(c)
	if err != nil {
		return writeError(c, err)
	}
	patch := services.ReportPatch{
		ReporterName: req.ReporterName,
		Building:     req.Building,
		RoomNumber:   req.RoomNumber,
		Details:      req.Details,
		Note:         req.Note,
	}
	if req.Category != nil {
		category := models.Category(strings.TrimSpace(*req.Category))
		patch.Category = &category
	}
	if req.ReportDate != nil {
		date, err := parseReportDate(*req.ReportDate)
		if err != nil {
			return writeError(c, err)
		}
		if date.IsZero() {
			return writeError(c, apperr.Validation("reportDate cannot be cleared", map[string]string{"reportDate": "required"}))
		}
		patch.ReportDate = &date
	}
	if patch.Image, err = h.readImage(c); err != nil {
		return writeError(c, err)
	}

	report, err := h.reportService.UpdateFields(c.UserContext(), id, actor, patch)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

func (h *ReportHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return writeError(c, apperr.Unauthorized("authentication required"))
	}
	id, err := reportID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.Validation("Invalid request body", nil))
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		return writeError(c, apperr.Validation(err.Error(), map[string]string{"status": "oneof"}))
	}

	report, err := h.reportService.UpdateStatus(c.UserContext(), id, actor, status, req.Note)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

func (h *ReportHandler) Delete(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return writeError(c, apperr.Unauthorized("authentication required"))
	}
	id, err := reportID(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.reportService.Delete(c.UserContext(), id, actor); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Report deleted successfully"})
}

func reportID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		// Not a well-formed id, so no such report can exist.
		return uuid.Nil, apperr.NotFound("report not found")
	}
	return id, nil
}

// parseUpdate reads a JSON body or multipart form fields. For forms, only
// the fields actually sent become part of the patch.
func parseUpdate(c *fiber.Ctx) (dto.UpdateReportRequest, error) {
	var req dto.UpdateReportRequest
	if !isMultipart(c) {
		if len(c.Body()) == 0 {
			return req, nil
		}
		if err := c.BodyParser(&req); err != nil {
			return req, apperr.Validation("Invalid request body", nil)
		}
		return req, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return req, apperr.Validation("Invalid multipart body", nil)
	}
	field := func(name string) *string {
		if vals, ok := form.Value[name]; ok && len(vals) > 0 {
			v := vals[0]
			return &v
		}
		return nil
	}
	req.ReporterName = field("reporterName")
	req.Building = field("building")
	req.RoomNumber = field("roomNumber")
	req.Category = field("category")
	req.Details = field("details")
	req.ReportDate = field("reportDate")
	req.Note = field("note")
	return req, nil
}

// readImage returns the optional image part, or nil when none was sent.
func (h *ReportHandler) readImage(c *fiber.Ctx) ([]byte, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	header, err := c.FormFile(imageField)
	if err != nil {
		return nil, nil
	}
	if h.maxImageBytes > 0 && header.Size > h.maxImageBytes {
		return nil, apperr.InvalidAsset("image exceeds " + strconv.FormatInt(h.maxImageBytes, 10) + " bytes")
	}
	f, err := header.Open()
	if err != nil {
		return nil, apperr.InvalidAsset("image part could not be read")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperr.InvalidAsset("image part could not be read")
	}
	if len(data) == 0 {
		return nil, apperr.InvalidAsset("image part is empty")
	}
	return data, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// parseReportDate accepts a calendar date or an RFC 3339 timestamp. Empty
// means "let the server decide".
func parseReportDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperr.Validation("reportDate must be YYYY-MM-DD or RFC 3339", map[string]string{"reportDate": "datetime"})
}
