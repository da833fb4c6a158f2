package syncagent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/google/uuid"
)

const fetchPageSize = 200

// Fetcher reads authoritative state from the report store.
type Fetcher interface {
	ListReports(ctx context.Context) ([]models.Report, error)
	GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
}

// HTTPFetcher reads through the REST surface.
type HTTPFetcher struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPFetcher(baseURL, token string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ListReports follows offsets until every report has been read, newest
// first.
func (f *HTTPFetcher) ListReports(ctx context.Context) ([]models.Report, error) {
	var all []models.Report
	for offset := 0; ; {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(fetchPageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page dto.ReportListResponse
		if err := f.get(ctx, "/api/reports?"+q.Encode(), &page); err != nil {
			return nil, err
		}
		all = append(all, page.Reports...)
		offset += len(page.Reports)
		if len(page.Reports) == 0 || int64(offset) >= page.Total {
			return all, nil
		}
	}
}

func (f *HTTPFetcher) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := f.get(ctx, "/api/reports/"+id.String(), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (f *HTTPFetcher) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body dto.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&body)
		switch resp.StatusCode {
		case http.StatusNotFound:
			return apperr.NotFound(body.Message)
		case http.StatusUnauthorized:
			return apperr.Unauthorized(body.Message)
		case http.StatusForbidden:
			return apperr.Forbidden(body.Message)
		case http.StatusServiceUnavailable:
			return apperr.StoreUnavailable(fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, body.Message))
		}
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, body.Message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
