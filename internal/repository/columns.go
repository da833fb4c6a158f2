package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
)

var errDuplicateKey = errors.New("duplicate primary key")

// Column names accepted by UpdateColumns. id, created_by and created_at are
// deliberately absent: they are immutable after insert.
const (
	ColReporterName = "reporter_name"
	ColBuilding     = "building"
	ColRoomNumber   = "room_number"
	ColCategory     = "category"
	ColDetails      = "details"
	ColReportDate   = "report_date"
	ColStatus       = "status"
	ColNote         = "note"
	ColImageRef     = "image_ref"
	ColUpdatedAt    = "updated_at"
)

func applyColumns(report *models.Report, columns map[string]interface{}) error {
	for col, val := range columns {
		var ok bool
		switch col {
		case ColReporterName:
			report.ReporterName, ok = val.(string)
		case ColBuilding:
			report.Building, ok = val.(string)
		case ColRoomNumber:
			report.RoomNumber, ok = val.(string)
		case ColCategory:
			report.Category, ok = val.(models.Category)
		case ColDetails:
			report.Details, ok = val.(string)
		case ColReportDate:
			report.ReportDate, ok = val.(time.Time)
		case ColStatus:
			report.Status, ok = val.(models.Status)
		case ColNote:
			report.Note, ok = val.(string)
		case ColImageRef:
			switch v := val.(type) {
			case *string:
				if v != nil {
					ref := *v
					report.ImageRef = &ref
				} else {
					report.ImageRef = nil
				}
				ok = true
			case nil:
				report.ImageRef, ok = nil, true
			}
		case ColUpdatedAt:
			report.UpdatedAt, ok = val.(time.Time)
		default:
			return fmt.Errorf("column %q is not updatable", col)
		}
		if !ok {
			return fmt.Errorf("column %q: unexpected value type %T", col, val)
		}
	}
	return nil
}
