package dto

import "github.com/ahmetcoskunkizilkaya/fixreport/internal/models"

// CreateReportRequest is the JSON form of a create. Multipart requests carry
// the same field names plus an optional "image" file part.
type CreateReportRequest struct {
	ReporterName string `json:"reporterName" form:"reporterName"`
	Building     string `json:"building" form:"building"`
	RoomNumber   string `json:"roomNumber" form:"roomNumber"`
	Category     string `json:"category" form:"category"`
	Details      string `json:"details" form:"details"`
	ReportDate   string `json:"reportDate" form:"reportDate"`
}

// UpdateReportRequest is a partial edit; absent fields are left untouched.
type UpdateReportRequest struct {
	ReporterName *string `json:"reporterName"`
	Building     *string `json:"building"`
	RoomNumber   *string `json:"roomNumber"`
	Category     *string `json:"category"`
	Details      *string `json:"details"`
	ReportDate   *string `json:"reportDate"`
	Note         *string `json:"note"`
}

type UpdateStatusRequest struct {
	Status string  `json:"status"`
	Note   *string `json:"note"`
}

type ReportListResponse struct {
	Reports []models.Report `json:"reports"`
	Total   int64           `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}
