package handlers_test

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartmeals/smartmeals/internal/domain/meal"
	"github.com/smartmeals/smartmeals/internal/http/handlers"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestExportCSVHandler(t *testing.T) {
	// 23:30 local in UTC-3, stored as UTC
	utcMinus3 := time.FixedZone("UTC-3", -3*60*60)
	lateDinner := time.Date(2024, 3, 10, 23, 30, 0, 0, utcMinus3).UTC()

	repo := &fakeMealsRepo{
		listFn: func(ctx context.Context, userID string, filter meal.ListFilter) ([]meal.Meal, error) {
			return []meal.Meal{
				{
					ID:          primitive.NewObjectID(),
					UserID:      userID,
					Name:        "Late dinner",
					Description: "Soup, bread",
					Calories:    450,
					DateTime:    lateDinner,
					Type:        meal.TypeDinner,
					IsFavorite:  true,
				},
			}, nil
		},
	}

	h := handlers.NewExportHandler(repo, testLogger())
	r := setupAuthedRouter(http.MethodGet, "/meals/export", h.ExportCSV)

	req := authedRequest(http.MethodGet, "/meals/export?date=2024-03-10&tz=Etc/GMT%2B3", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("got content type %q", ct)
	}

	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, `meals_2024-03-10.csv`) {
		t.Fatalf("got content disposition %q", cd)
	}

	records, err := csv.NewReader(w.Body).ReadAll()

	if err != nil {
		t.Fatalf("response is not valid CSV: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("got %d records, want header + 1 row", len(records))
	}

	wantHeader := []string{"Name", "Description", "Calories", "DateTime", "Type", "Favorite"}

	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Fatalf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}

	row := records[1]

	if row[0] != "Late dinner" || row[2] != "450" || row[4] != "Dinner" || row[5] != "Yes" {
		t.Fatalf("unexpected row: %v", row)
	}

	// the timestamp is rendered in the requested zone, not UTC
	if row[3] != "2024-03-10 23:30" {
		t.Fatalf("got datetime %q, want local rendering", row[3])
	}
}

func TestExportCSVHandlerRequiresDate(t *testing.T) {
	h := handlers.NewExportHandler(&fakeMealsRepo{}, testLogger())
	r := setupAuthedRouter(http.MethodGet, "/meals/export", h.ExportCSV)

	req := authedRequest(http.MethodGet, "/meals/export", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}
}
