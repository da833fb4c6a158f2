package syncagent

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/google/uuid"
)

// PageSize is the number of reports shown per dashboard page.
const PageSize = 5

type DashboardFilter struct {
	Category models.Category
	Status   models.Status
}

func (f DashboardFilter) match(r models.Report) bool {
	return (f.Category == "" || r.Category == f.Category) &&
		(f.Status == "" || r.Status == f.Status)
}

// Section is one paginated list on the dashboard.
type Section struct {
	Reports []models.Report
	// Total counts filtered reports across all pages.
	Total int
	Page  int
	Pages int
}

// Dashboard splits the list into the viewer's own reports and everyone
// else's. Counts are over the unfiltered list.
type Dashboard struct {
	Mine   Section
	Others Section
	Counts models.ReportStats
}

// BuildDashboard keeps the input order (newest first). Pages are 1-based and
// clamped to the available range.
func BuildDashboard(reports []models.Report, viewer uuid.UUID, filter DashboardFilter, minePage, othersPage int) Dashboard {
	var mine, others []models.Report
	var d Dashboard
	for _, r := range reports {
		d.Counts.Total++
		switch r.Status {
		case models.StatusPending:
			d.Counts.Pending++
		case models.StatusInProgress:
			d.Counts.InProgress++
		case models.StatusCompleted:
			d.Counts.Completed++
		}
		if r.CreatedBy == viewer {
			d.Counts.Mine++
		}

		if !filter.match(r) {
			continue
		}
		if r.CreatedBy == viewer {
			mine = append(mine, r)
		} else {
			others = append(others, r)
		}
	}
	d.Mine = paginate(mine, minePage)
	d.Others = paginate(others, othersPage)
	return d
}

func paginate(reports []models.Report, page int) Section {
	pages := (len(reports) + PageSize - 1) / PageSize
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * PageSize
	end := start + PageSize
	if end > len(reports) {
		end = len(reports)
	}
	return Section{
		Reports: reports[start:end],
		Total:   len(reports),
		Page:    page,
		Pages:   pages,
	}
}

// WriteDashboard prints a plain-text rendering.
func WriteDashboard(w io.Writer, d Dashboard) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "total %d\tmine %d\tpending %d\tin progress %d\tcompleted %d\n",
		d.Counts.Total, d.Counts.Mine, d.Counts.Pending, d.Counts.InProgress, d.Counts.Completed)
	writeSection(tw, "My reports", d.Mine)
	writeSection(tw, "Other reports", d.Others)
	return tw.Flush()
}

func writeSection(w io.Writer, title string, s Section) {
	fmt.Fprintf(w, "\n%s (%d, page %d/%d)\n", title, s.Total, s.Page, s.Pages)
	if len(s.Reports) == 0 {
		fmt.Fprintln(w, "  no reports")
		return
	}
	for _, r := range s.Reports {
		fmt.Fprintf(w, "  %s\t%s\t%s %s\t%s\t%s\n",
			r.ReportDate.Format("2006-01-02"), r.Category, r.Building, r.RoomNumber, r.Status, r.ReporterName)
	}
}
