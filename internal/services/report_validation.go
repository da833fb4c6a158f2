package services

import (
	"reflect"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/go-playground/validator/v10"
)

// reportFields holds the user-supplied descriptive fields. Create and
// full-record edits validate through the same struct so the rules cannot
// drift apart.
type reportFields struct {
	ReporterName string          `json:"reporterName" validate:"required,max=255"`
	Building     string          `json:"building" validate:"required,max=100"`
	RoomNumber   string          `json:"roomNumber" validate:"required,max=50"`
	Category     models.Category `json:"category" validate:"required,category"`
	Details      string          `json:"details" validate:"required,max=5000"`
	ReportDate   time.Time       `json:"reportDate"`
}

func fieldsOf(r *models.Report) reportFields {
	return reportFields{
		ReporterName: r.ReporterName,
		Building:     r.Building,
		RoomNumber:   r.RoomNumber,
		Category:     r.Category,
		Details:      r.Details,
		ReportDate:   r.ReportDate,
	}
}

func (f *reportFields) normalize() {
	f.ReporterName = strings.TrimSpace(f.ReporterName)
	f.Building = strings.TrimSpace(f.Building)
	f.RoomNumber = strings.TrimSpace(f.RoomNumber)
	f.Details = strings.TrimSpace(f.Details)
	f.Category = models.Category(strings.TrimSpace(string(f.Category)))
}

// newReportValidator builds a validator whose "building" rule accepts any
// value when buildings is empty.
func newReportValidator(buildings []string) *validator.Validate {
	allowed := make(map[string]bool, len(buildings))
	for _, b := range buildings {
		allowed[b] = true
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("building", func(fl validator.FieldLevel) bool {
		return len(allowed) == 0 || allowed[fl.Field().String()]
	})
	return v
}

// validateFields checks f against the struct rules. The configured building
// list is applied only when checkBuilding is set, so records filed before the
// list was narrowed stay editable.
func validateFields(v *validator.Validate, f reportFields, checkBuilding bool) error {
	fields := make(map[string]string)
	if err := v.Struct(f); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return apperr.Validation(err.Error(), nil)
		}
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	if _, failed := fields["building"]; checkBuilding && !failed {
		if err := v.Var(f.Building, "building"); err != nil {
			fields["building"] = "building"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return apperr.Validation("report is missing required fields or has invalid values", fields)
}
