package syncagent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/ahmetcoskunkizilkaya/fixreport/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fixreport/internal/models"
	"github.com/google/uuid"
)

func TestHTTPFetcherPaginatesList(t *testing.T) {
	all := make([]models.Report, fetchPageSize+3)
	for i := range all {
		all[i] = models.Report{ID: uuid.New()}
	}
	var pages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		pages++
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		_ = json.NewEncoder(w).Encode(dto.ReportListResponse{Reports: all[offset:end], Total: int64(len(all)), Limit: limit, Offset: offset})
	}))
	defer srv.Close()

	got, err := NewHTTPFetcher(srv.URL+"/", "tok").ListReports(context.Background())
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(got) != len(all) || got[len(got)-1].ID != all[len(all)-1].ID {
		t.Errorf("got %d reports", len(got))
	}
	if pages != 2 {
		t.Errorf("fetched %d pages, want 2", pages)
	}
}

func TestHTTPFetcherMapsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: true, Kind: "not_found", Message: "report not found"})
	}))
	defer srv.Close()

	_, err := NewHTTPFetcher(srv.URL, "").GetReport(context.Background(), uuid.New())
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
