package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"divcal/config"
	"divcal/internal/app"
	"divcal/models"
)

type fakeCatalog struct {
	catalog      *models.Catalog
	refreshCalls int
}

func (f *fakeCatalog) GetDividendData(ctx context.Context, symbols []string) (*models.Catalog, *models.BatchReport) {
	report := models.NewBatchReport(len(symbols))
	for _, p := range f.catalog.Profiles {
		report.Record(models.SymbolOutcome{Symbol: p.Symbol, Status: models.OutcomeSuccess})
	}
	report.Record(models.SymbolOutcome{Symbol: "BAD", Status: models.OutcomeFailed, Reason: "timeout"})
	return f.catalog, report
}

func (f *fakeCatalog) Refresh(ctx context.Context, symbols []string) (*models.Catalog, *models.BatchReport) {
	f.refreshCalls++
	return f.GetDividendData(ctx, symbols)
}

type fakeRates struct{}

func (fakeRates) GetRate(ctx context.Context, from, to string) models.ExchangeRate {
	return models.ExchangeRate{From: from, To: to, Value: decimal.NewFromInt(1), Source: models.RateSourceIdentity}
}

type fakeRepo struct {
	healthErr error
}

func (f *fakeRepo) Close()                           {}
func (f *fakeRepo) Health(ctx context.Context) error { return f.healthErr }
func (f *fakeRepo) SaveBatchReport(ctx context.Context, report *models.BatchReport) error {
	return nil
}
func (f *fakeRepo) GetLatestBatchReport(ctx context.Context) (*models.BatchReport, error) {
	return nil, nil
}
func (f *fakeRepo) GetBatchReportHistory(ctx context.Context, limit int) ([]models.BatchReport, error) {
	return []models.BatchReport{}, nil
}

// testConfig returns a test configuration
func testConfig() *config.Config {
	return config.NewTestConfig()
}

func testCatalog() *models.Catalog {
	c := models.NewCatalog(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	c.Add(models.DividendProfile{
		Symbol:             "KO",
		DisplayName:        "Coca-Cola",
		Currency:           "USD",
		Frequency:          models.FrequencyQuarterly,
		NextExDate:         time.Date(2024, 9, 12, 0, 0, 0, 0, time.UTC),
		NextPaymentDate:    time.Date(2024, 10, 3, 0, 0, 0, 0, time.UTC),
		LastDividendAmount: decimal.RequireFromString("0.485"),
		AnnualYieldPct:     decimal.RequireFromString("4"),
		ReliabilityStars:   5,
	})
	c.Add(models.DividendProfile{
		Symbol:             "T",
		DisplayName:        "AT&T",
		Currency:           "USD",
		Frequency:          models.FrequencyQuarterly,
		NextExDate:         time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC),
		NextPaymentDate:    time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC),
		LastDividendAmount: decimal.RequireFromString("0.2775"),
		AnnualYieldPct:     decimal.RequireFromString("6.12"),
		ReliabilityStars:   4,
	})
	return c
}

// testApp creates an App with test config for testing
func testApp(repo app.RepositoryInterface) (*app.App, *fakeCatalog) {
	cat := &fakeCatalog{catalog: testCatalog()}
	return app.New(testConfig(), cat, fakeRates{}, repo, []string{"KO", "T", "BAD"}), cat
}

// testRouter creates a Chi router with test config for testing
func testRouter(application *app.App) http.Handler {
	cfg := testConfig()
	handler := NewHandler(application, cfg)
	return NewRouter(handler, cfg)
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Index(t *testing.T) {
	t.Run("serves the calendar page at root", func(t *testing.T) {
		a, _ := testApp(nil)
		w := serve(testRouter(a), http.MethodGet, "/", "")

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
			t.Errorf("expected Content-Type text/html, got %s", ct)
		}
		body := w.Body.String()
		for _, want := range []string{"Dividend Calendar", "Coca-Cola", "AT&amp;T", "Glossary"} {
			if !strings.Contains(body, want) {
				t.Errorf("expected body to contain %q", want)
			}
		}
	})

	t.Run("HTMX request gets only the table", func(t *testing.T) {
		a, _ := testApp(nil)
		req := httptest.NewRequest(http.MethodGet, "/?q=cola", nil)
		req.Header.Set("HX-Request", "true")
		w := httptest.NewRecorder()
		testRouter(a).ServeHTTP(w, req)

		body := w.Body.String()
		if strings.Contains(body, "<html") {
			t.Error("partial response should not contain the page shell")
		}
		if !strings.Contains(body, "Coca-Cola") || strings.Contains(body, "AT&amp;T") {
			t.Errorf("unexpected partial body: %s", body)
		}
	})

	t.Run("invalid date", func(t *testing.T) {
		a, _ := testApp(nil)
		w := serve(testRouter(a), http.MethodGet, "/?min_ex_date=tomorrow", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}

func TestHandler_Health(t *testing.T) {
	t.Run("health check without database", func(t *testing.T) {
		a, _ := testApp(nil)
		w := serve(testRouter(a), http.MethodGet, "/api/health", "")

		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		services := response["services"].(map[string]interface{})
		if services["database"] != "not_configured" {
			t.Errorf("expected database 'not_configured', got %v", services["database"])
		}
	})

	t.Run("database down is degraded", func(t *testing.T) {
		a, _ := testApp(&fakeRepo{healthErr: errors.New("connection refused")})
		w := serve(testRouter(a), http.MethodGet, "/api/health", "")

		var response map[string]interface{}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "degraded" {
			t.Errorf("expected status 'degraded', got %v", response["status"])
		}
	})
}

func TestHandler_GetDividends(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		status    int
		wantCount int
	}{
		{"all profiles", "/api/dividends", http.StatusOK, 2},
		{"text filter", "/api/dividends?q=AT%26T", http.StatusOK, 1},
		{"symbol filter", "/api/dividends?q=ko", http.StatusOK, 1},
		{"ex-date filter", "/api/dividends?min_ex_date=2024-08-01", http.StatusOK, 1},
		{"no match", "/api/dividends?q=zzz", http.StatusOK, 0},
		{"invalid date", "/api/dividends?min_ex_date=01/08/2024", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := testApp(nil)
			w := serve(testRouter(a), http.MethodGet, tt.target, "")

			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}

			var resp CatalogResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(resp.Profiles) != tt.wantCount {
				t.Errorf("expected %d profiles, got %d", tt.wantCount, len(resp.Profiles))
			}
			if resp.Summary.Count != tt.wantCount {
				t.Errorf("expected summary count %d, got %d", tt.wantCount, resp.Summary.Count)
			}
		})
	}
}

func TestHandler_GetDividends_Refresh(t *testing.T) {
	a, cat := testApp(nil)
	serve(testRouter(a), http.MethodGet, "/api/dividends?refresh=true", "")
	if cat.refreshCalls != 1 {
		t.Errorf("expected 1 refresh, got %d", cat.refreshCalls)
	}
}

func TestHandler_GetSummary(t *testing.T) {
	a, _ := testApp(nil)
	w := serve(testRouter(a), http.MethodGet, "/api/dividends/summary", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var summary models.CatalogSummary
	if err := json.NewDecoder(w.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if summary.Count != 2 || summary.HighYieldCount != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if !summary.AverageYieldPct.Equal(decimal.RequireFromString("5.06")) {
		t.Errorf("expected average yield 5.06, got %v", summary.AverageYieldPct)
	}
}

func TestHandler_ExportCSV(t *testing.T) {
	a, _ := testApp(nil)
	w := serve(testRouter(a), http.MethodGet, "/api/dividends/export.csv", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv, got %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "dividend_calendar_") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "Company Name,Symbol") {
		t.Errorf("unexpected CSV body: %s", w.Body.String())
	}
}

func TestHandler_GetDividend(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		status int
	}{
		{"known symbol", "KO", http.StatusOK},
		{"lower case", "ko", http.StatusOK},
		{"unknown symbol", "MSFT", http.StatusNotFound},
		{"invalid symbol", "K$O", http.StatusBadRequest},
		{"too long", "ABCDEFGHIJKL", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := testApp(nil)
			w := serve(testRouter(a), http.MethodGet, "/api/dividends/"+tt.symbol, "")

			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if tt.status != http.StatusOK {
				return
			}
			var profile models.DividendProfile
			if err := json.NewDecoder(w.Body).Decode(&profile); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if profile.Symbol != "KO" || profile.Frequency != models.FrequencyQuarterly {
				t.Errorf("unexpected profile: %+v", profile)
			}
		})
	}
}

func TestHandler_Simulate(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"symbol":"ko","amount":9700,"currency":"USD"}`, http.StatusOK},
		{"amount as string", `{"symbol":"KO","amount":"9700.50","currency":"USD"}`, http.StatusOK},
		{"malformed body", `{"symbol":`, http.StatusBadRequest},
		{"amount not a number", `{"symbol":"KO","amount":"lots"}`, http.StatusBadRequest},
		{"amount too small", `{"symbol":"KO","amount":10}`, http.StatusBadRequest},
		{"bad currency", `{"symbol":"KO","amount":1000,"currency":"EURO"}`, http.StatusBadRequest},
		{"unknown symbol", `{"symbol":"MSFT","amount":1000}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := testApp(nil)
			w := serve(testRouter(a), http.MethodPost, "/api/simulate", tt.body)

			if w.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandler_Simulate_Response(t *testing.T) {
	a, _ := testApp(nil)
	w := serve(testRouter(a), http.MethodPost, "/api/simulate", `{"symbol":"KO","amount":9700,"currency":"USD"}`)

	var resp SimulateResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Disclaimer == "" {
		t.Error("expected a disclaimer")
	}
	p := resp.Projection
	if p == nil || len(p.Rows) != 5 {
		t.Fatalf("expected 5 projection rows, got %+v", p)
	}
	if !p.Shares.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected 200 shares, got %v", p.Shares)
	}
	if p.Rows[0].HorizonLabel != models.HorizonSinglePayment || !p.Rows[0].ProjectedEarnings.Equal(decimal.NewFromInt(97)) {
		t.Errorf("unexpected first row: %+v", p.Rows[0])
	}
}

func TestHandler_Simulate_ValidationFields(t *testing.T) {
	a, _ := testApp(nil)
	w := serve(testRouter(a), http.MethodPost, "/api/simulate", `{"amount":5000000}`)

	var resp struct {
		Error  string           `json:"error"`
		Fields []app.FieldError `json:"fields"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Fields) != 2 {
		t.Fatalf("expected 2 field errors, got %+v", resp.Fields)
	}
	if resp.Fields[0].Field != "symbol" || resp.Fields[1].Code != "ERR_LTE" {
		t.Errorf("unexpected fields: %+v", resp.Fields)
	}
}

func TestHandler_Report(t *testing.T) {
	t.Run("no build yet", func(t *testing.T) {
		a, _ := testApp(nil)
		w := serve(testRouter(a), http.MethodGet, "/api/report", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("after a build", func(t *testing.T) {
		a, _ := testApp(nil)
		router := testRouter(a)
		serve(router, http.MethodGet, "/api/dividends", "")

		w := serve(router, http.MethodGet, "/api/report", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var report models.BatchReport
		if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if report.Count(models.OutcomeFailed) != 1 {
			t.Errorf("expected 1 failure, got %+v", report.Outcomes)
		}
	})
}

func TestHandler_ReportHistory(t *testing.T) {
	t.Run("without database", func(t *testing.T) {
		a, _ := testApp(nil)
		w := serve(testRouter(a), http.MethodGet, "/api/report/history", "")
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", w.Code)
		}
	})

	t.Run("with database", func(t *testing.T) {
		a, _ := testApp(&fakeRepo{})
		w := serve(testRouter(a), http.MethodGet, "/api/report/history?limit=5", "")
		if w.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", w.Code)
		}
	})
}

func TestHandler_Glossary(t *testing.T) {
	a, _ := testApp(nil)
	w := serve(testRouter(a), http.MethodGet, "/api/glossary", "")

	var resp struct {
		Terms      []app.GlossaryEntry `json:"terms"`
		Disclaimer string              `json:"disclaimer"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Terms) == 0 || resp.Disclaimer != app.Disclaimer {
		t.Errorf("unexpected glossary response: %+v", resp)
	}
}

func TestHandler_ValidateSymbol(t *testing.T) {
	h := NewHandler(nil, testConfig())
	tests := []struct {
		symbol  string
		wantErr bool
	}{
		{"AAPL", false},
		{"BRK-B", false},
		{"BF.B", false},
		{"", true},
		{"TOOLONGSYMBOL", true},
		{"aapl", true},
		{"A B", true},
	}
	for _, tt := range tests {
		if err := h.ValidateSymbol(tt.symbol); (err != nil) != tt.wantErr {
			t.Errorf("ValidateSymbol(%q) error = %v, wantErr %v", tt.symbol, err, tt.wantErr)
		}
	}
}

func TestRouter_CORS(t *testing.T) {
	a, _ := testApp(nil)
	w := serve(testRouter(a), http.MethodOptions, "/api/dividends", "")

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected Access-Control-Allow-Origin *, got %q", got)
	}
}

func TestRouter_Metrics(t *testing.T) {
	a, _ := testApp(nil)
	w := serve(testRouter(a), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}
