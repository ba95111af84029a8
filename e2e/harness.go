// Package e2e provides end-to-end testing infrastructure for divcal.
package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"divcal/calendar"
	"divcal/config"
	"divcal/e2e/mocks"
	"divcal/internal/api"
	"divcal/internal/app"
	"divcal/repository"
	"divcal/services"
)

// TestHarness provides the infrastructure for running E2E tests.
type TestHarness struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	mockServer *mocks.MockServer
	repo       *repository.Repository
	calendar   *calendar.Calendar
	app        *app.App
	router     http.Handler
	config     *config.Config
	symbols    []string
}

// NewTestHarness creates a new test harness for the given symbol universe.
func NewTestHarness(t *testing.T, symbols ...string) *TestHarness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	h := &TestHarness{
		t:       t,
		ctx:     ctx,
		cancel:  cancel,
		symbols: symbols,
	}

	return h
}

// Setup initializes all test dependencies. The mock server is started
// first so fixtures can be configured before the first catalog build.
func (h *TestHarness) Setup() error {
	// Start mock server for external APIs
	h.mockServer = mocks.NewMockServer()

	// Create test configuration
	h.config = h.createTestConfig()

	// Isolate breaker state between tests
	services.SetGlobalRegistry(services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig))

	// Optional database
	if dbURL := os.Getenv("E2E_DATABASE_URL"); dbURL != "" {
		repo, err := repository.NewRepository(h.ctx, dbURL)
		if err != nil {
			return fmt.Errorf("failed to connect to test database: %w", err)
		}
		if err := repo.EnsureSchema(h.ctx); err != nil {
			repo.Close()
			return fmt.Errorf("failed to apply schema: %w", err)
		}
		h.repo = repo
		h.config.Database.URL = dbURL
		h.cleanupTestData()
	}

	timeout := time.Duration(h.config.Provider.TimeoutSeconds) * time.Second
	provider := services.NewFMPService(h.config.Provider.FMPAPIKey, timeout).WithBaseURL(h.config.Provider.FMPBaseURL)
	rates := services.NewExchangeRateService(h.config.Currency.ECBBaseURL, time.Duration(h.config.Currency.TimeoutSeconds)*time.Second)
	h.calendar = calendar.New(provider, h.config.Calendar.MaxConcurrent, time.Duration(h.config.Calendar.CacheTTLSeconds)*time.Second)

	// Create application
	if h.repo != nil {
		h.app = app.New(h.config, h.calendar, rates, h.repo, h.symbols)
	} else {
		h.app = app.New(h.config, h.calendar, rates, nil, h.symbols)
	}

	// Create router
	handler := api.NewHandler(h.app, h.config)
	h.router = api.NewRouter(handler, h.config)

	return nil
}

// Teardown cleans up all test resources.
func (h *TestHarness) Teardown() {
	if h.cancel != nil {
		h.cancel()
	}

	if h.app != nil {
		h.app.Shutdown(context.Background())
	}

	if h.repo != nil {
		h.cleanupTestData()
		h.repo.Close()
	}

	if h.mockServer != nil {
		h.mockServer.Close()
	}
}

// Context returns the test context.
func (h *TestHarness) Context() context.Context {
	return h.ctx
}

// MockServer returns the mock server for configuring responses.
func (h *TestHarness) MockServer() *mocks.MockServer {
	return h.mockServer
}

// Repository returns the test database repository, nil without E2E_DATABASE_URL.
func (h *TestHarness) Repository() *repository.Repository {
	return h.repo
}

// App returns the application instance.
func (h *TestHarness) App() *app.App {
	return h.app
}

// Router returns the HTTP router for making requests.
func (h *TestHarness) Router() http.Handler {
	return h.router
}

// Config returns the test configuration.
func (h *TestHarness) Config() *config.Config {
	return h.config
}

// DoRequest performs an HTTP request and returns the response.
func (h *TestHarness) DoRequest(method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// DoHTMXRequest performs an HTMX request and returns the response.
func (h *TestHarness) DoHTMXRequest(method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("HX-Request", "true")

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *TestHarness) createTestConfig() *config.Config {
	mockURL := h.mockServer.URL()

	// Point every external source at the mock server
	cfg := config.NewTestConfig()
	cfg.Provider.Name = config.ProviderFMP
	cfg.Provider.FMPAPIKey = "e2e-key"
	cfg.Provider.FMPBaseURL = mockURL
	cfg.Provider.TimeoutSeconds = 5
	cfg.Currency.ECBBaseURL = mockURL
	cfg.Currency.TimeoutSeconds = 5
	cfg.Calendar.Symbols = strings.Join(h.symbols, ",")

	return cfg
}

func (h *TestHarness) cleanupTestData() {
	for _, symbol := range h.symbols {
		if err := h.repo.InvalidateAllCacheForSymbol(h.ctx, symbol); err != nil {
			h.t.Logf("cache cleanup for %s failed: %v", symbol, err)
		}
	}
}
