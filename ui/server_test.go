package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gridwatch/adapters/mgd"
	"gridwatch/app"
	"gridwatch/domain/anomaly"
	"gridwatch/domain/core"
	"gridwatch/domain/customer"
	"gridwatch/domain/reading"
	"gridwatch/internal"
	apperrors "gridwatch/internal/errors"
	"gridwatch/internal/testkit"
	"gridwatch/ports"

	"github.com/gin-gonic/gin"
)

func newTestServer(t *testing.T) (*Server, *testkit.InMemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := testkit.NewInMemoryStore()
	ctx := context.Background()

	var customers []customer.Customer
	var readings []reading.Consumption
	for i := 0; i < 30; i++ {
		id := fmt.Sprintf("C%04d", i)
		customers = append(customers, customer.Customer{
			ID: core.CustomerID(id), Stratum: 3, ZoneCode: "Z1", SanctionedLoad: 10,
		})
		readings = append(readings,
			monthReading(id, 2024, 3, 100+float64(i)),
			monthReading(id, 2023, 3, 95+float64((7*i)%13)),
		)
	}
	customers = append(customers, customer.Customer{
		ID: "C9999", Stratum: 3, ZoneCode: "Z1", SanctionedLoad: 10,
	})
	readings = append(readings,
		monthReading("C9999", 2024, 3, 1000),
		monthReading("C9999", 2023, 3, 100),
	)

	if err := store.Customers().Save(ctx, customers); err != nil {
		t.Fatalf("seed customers: %v", err)
	}
	if err := store.Readings().SaveConsumption(ctx, readings); err != nil {
		t.Fatalf("seed readings: %v", err)
	}

	svc := app.NewDetectionService(
		store.Customers(), store.Readings(), store.Runs(),
		func() ports.AnomalyDetector { return mgd.New() },
		internal.NewDefaultLogger(),
	)
	return NewServer(svc, store.Customers(), store.Readings(), internal.NewDefaultLogger()), store
}

func monthReading(id string, year, month int, consumed float64) reading.Consumption {
	return reading.Consumption{
		CustomerID: core.CustomerID(id),
		Date:       time.Date(year, time.Month(month), 28, 0, 0, 0, 0, time.UTC),
		Consumed:   consumed,
		Month:      month,
		Year:       year,
	}
}

func doRequest(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestMethodologyRendersHTML(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/methodology", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<h1") || !strings.Contains(body, "Mahalanobis") {
		t.Errorf("methodology page missing rendered content")
	}
}

func TestRunDetectionOverHTTP(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/runs", app.DetectionRequest{
		Month:           3,
		Year:            2024,
		ThresholdFactor: 2.0,
		Features:        []string{"consumption_current", "consumption_prev"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var run anomaly.Run
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.ID == "" {
		t.Error("run ID missing")
	}
	if len(run.Flagged) != 1 || run.Flagged[0].CustomerID != "C9999" {
		t.Errorf("flagged = %+v, want exactly C9999", run.Flagged)
	}

	// The persisted run is retrievable with its sub-resources.
	w = doRequest(s, http.MethodGet, "/api/runs/"+run.ID.String()+"/anomalies", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("anomalies status = %d", w.Code)
	}
	w = doRequest(s, http.MethodGet, "/api/runs/"+run.ID.String()+"/importance", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("importance status = %d", w.Code)
	}
}

func TestRunDetectionValidation(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/runs", app.DetectionRequest{
		Month: 3, Year: 2024, ThresholdFactor: 0.5,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("out-of-range factor status = %d, want 400", w.Code)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/api/runs/no-such-run", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if code := errorCodeOf(t, w); code != apperrors.CodeNotFound {
		t.Errorf("code = %q, want %q", code, apperrors.CodeNotFound)
	}
}

// errorCodeOf decodes the machine-readable code out of an error envelope.
func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return resp.Code
}

func TestErrorEnvelopeCarriesModelCode(t *testing.T) {
	s, _ := newTestServer(t)

	// Selecting the same feature twice makes two identical columns, so the
	// covariance cannot be inverted and the run fails as unprocessable.
	w := doRequest(s, http.MethodPost, "/api/runs", app.DetectionRequest{
		Month:           3,
		Year:            2024,
		ThresholdFactor: 2.0,
		Features:        []string{"consumption_current", "consumption_current"},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422, body %s", w.Code, w.Body.String())
	}
	if code := errorCodeOf(t, w); code != apperrors.CodeSingularCovariance {
		t.Errorf("code = %q, want %q", code, apperrors.CodeSingularCovariance)
	}

	// Bad feature selections report as invalid input, not missing resources.
	w = doRequest(s, http.MethodPost, "/api/runs", app.DetectionRequest{
		Month:           3,
		Year:            2024,
		ThresholdFactor: 2.0,
		Features:        []string{"no_such_feature"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body %s", w.Code, w.Body.String())
	}
	if code := errorCodeOf(t, w); code != apperrors.CodeInvalidInput {
		t.Errorf("code = %q, want %q", code, apperrors.CodeInvalidInput)
	}
}

func TestListCustomersByZone(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/api/customers?zone=Z1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Customers []customer.Customer `json:"customers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Customers) != 31 {
		t.Errorf("customers = %d, want 31", len(resp.Customers))
	}
}

func TestMonthlyStatsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/api/stats/monthly?group_by=zone", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	w = doRequest(s, http.MethodGet, "/api/stats/monthly?group_by=city", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown grouping status = %d, want 400", w.Code)
	}
}

func TestConsumptionChangesEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/api/screening/changes?threshold_pct=50&window=0", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero window status = %d, want 400", w.Code)
	}
	w = doRequest(s, http.MethodGet, "/api/screening/changes?threshold_pct=200&window=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
