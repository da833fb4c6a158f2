package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a report. Any state may move to any other;
// admins use it to correct mis-set statuses as well as to progress work.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
)

var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus accepts the canonical names case-insensitively, plus the
// spaced and snake_case spellings of InProgress that older clients send.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "inprogress", "in progress", "in_progress":
		return StatusInProgress, nil
	case "completed":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Category is the kind of equipment a report is about.
type Category string

const (
	CategoryMicrophone     Category = "Microphone"
	CategoryInternet       Category = "Internet"
	CategoryProjector      Category = "Projector"
	CategoryDisplay        Category = "Display"
	CategorySpeaker        Category = "Speaker"
	CategoryAirConditioner Category = "AirConditioner"
	CategoryOther          Category = "Other"
)

var Categories = []Category{
	CategoryMicrophone,
	CategoryInternet,
	CategoryProjector,
	CategoryDisplay,
	CategorySpeaker,
	CategoryAirConditioner,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Report is a filed equipment-fault ticket. CreatedBy is the ownership anchor
// and never changes after insert.
type Report struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReporterName string    `gorm:"size:255;not null" json:"reporterName"`
	Building     string    `gorm:"size:100;not null;index" json:"building"`
	RoomNumber   string    `gorm:"size:50;not null" json:"roomNumber"`
	Category     Category  `gorm:"size:50;not null;index" json:"category"`
	Details      string    `gorm:"type:text;not null" json:"details"`
	ReportDate   time.Time `gorm:"not null" json:"reportDate"`
	Status       Status    `gorm:"size:20;not null;default:'Pending';index" json:"status"`
	Note         string    `gorm:"type:text" json:"note"`
	ImageRef     *string   `gorm:"size:1024" json:"imageRef"`
	CreatedBy    uuid.UUID `gorm:"type:uuid;not null;index" json:"createdBy"`
	CreatedAt    time.Time `gorm:"not null;index:idx_reports_created_at,sort:desc" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}

// ReportStats mirrors the progress counters shown on the landing page.
type ReportStats struct {
	Total      int64 `json:"totalReports"`
	Mine       int64 `json:"userReports"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
}
