// Package mocks provides HTTP mock servers for external APIs used in E2E tests.
package mocks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// MockServer serves Financial Modeling Prep and ECB responses from
// configurable fixtures.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	// Response configurations
	dividends map[string][]FMPDividend // newest first, as FMP returns them
	profiles  map[string]FMPProfile
	ratios    map[string]FMPRatios
	ecbRates  map[string][]ECBObservation // currency units per EUR

	// Error injection
	fmpStatus map[string]int // symbol -> HTTP status
	ecbStatus int

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Method string
	Path   string
	Query  string
}

// NewMockServer creates a new mock server with default responses.
func NewMockServer() *MockServer {
	m := &MockServer{
		dividends:  make(map[string][]FMPDividend),
		profiles:   make(map[string]FMPProfile),
		ratios:     make(map[string]FMPRatios),
		ecbRates:   make(map[string][]ECBObservation),
		fmpStatus:  make(map[string]int),
		requestLog: make([]RequestLog, 0),
	}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the mock server's base URL.
func (m *MockServer) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// ServeHTTP implements http.Handler to route requests to appropriate mock handlers.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
	})
	m.mu.Unlock()

	path := r.URL.Path

	// Route to appropriate handler based on path
	switch {
	case strings.HasPrefix(path, "/historical-price-full/stock_dividend/"):
		m.handleFMPDividends(w, strings.TrimPrefix(path, "/historical-price-full/stock_dividend/"))
	case strings.HasPrefix(path, "/profile/"):
		m.handleFMPProfile(w, strings.TrimPrefix(path, "/profile/"))
	case strings.HasPrefix(path, "/ratios-ttm/"):
		m.handleFMPRatios(w, strings.TrimPrefix(path, "/ratios-ttm/"))
	case strings.Contains(path, "/D.") && strings.HasSuffix(path, ".EUR.SP00.A"):
		m.handleECB(w, path)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GetRequestLog returns all logged requests for assertions.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// CountRequests returns how many requests had a path starting with prefix.
func (m *MockServer) CountRequests(prefix string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.requestLog {
		if strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = make([]RequestLog, 0)
}

// SetDividends configures the dividend history of a symbol, newest first.
func (m *MockServer) SetDividends(symbol string, rows []FMPDividend) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dividends[symbol] = rows
}

// SetProfile configures the company profile of a symbol.
func (m *MockServer) SetProfile(p FMPProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.Symbol] = p
}

// SetRatios configures the trailing ratios of a symbol.
func (m *MockServer) SetRatios(r FMPRatios) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ratios[r.Symbol] = r
}

// SetFMPStatus makes every FMP endpoint answer status for symbol.
func (m *MockServer) SetFMPStatus(symbol string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fmpStatus[symbol] = status
}

// SetECBRate configures the latest reference rate of currency against EUR.
func (m *MockServer) SetECBRate(currency string, perEuro float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ecbRates[currency] = []ECBObservation{{Index: 0, Value: Float(perEuro)}}
}

// SetECBStatus makes the ECB endpoint answer status. Zero restores normal responses.
func (m *MockServer) SetECBStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ecbStatus = status
}

func (m *MockServer) setDefaults() {
	m.ecbRates["USD"] = []ECBObservation{
		{Index: 0, Value: Float(1.0700)},
		{Index: 1, Value: Float(1.0705)},
		{Index: 2, Value: nil},
	}
	m.ecbRates["GBP"] = []ECBObservation{{Index: 0, Value: Float(0.8450)}}
}

func (m *MockServer) injectedStatus(symbol string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fmpStatus[symbol]
}

func (m *MockServer) handleFMPDividends(w http.ResponseWriter, symbol string) {
	if status := m.injectedStatus(symbol); status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	m.mu.RLock()
	rows, ok := m.dividends[symbol]
	m.mu.RUnlock()

	if !ok {
		// FMP answers unknown symbols with an empty object
		writeJSON(w, map[string]interface{}{})
		return
	}
	writeJSON(w, FMPDividendHistory{Symbol: symbol, Historical: rows})
}

func (m *MockServer) handleFMPProfile(w http.ResponseWriter, symbol string) {
	if status := m.injectedStatus(symbol); status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	m.mu.RLock()
	p, ok := m.profiles[symbol]
	m.mu.RUnlock()

	if !ok {
		writeJSON(w, []FMPProfile{})
		return
	}
	writeJSON(w, []FMPProfile{p})
}

func (m *MockServer) handleFMPRatios(w http.ResponseWriter, symbol string) {
	m.mu.RLock()
	r, ok := m.ratios[symbol]
	m.mu.RUnlock()

	if !ok {
		writeJSON(w, []FMPRatios{})
		return
	}
	writeJSON(w, []FMPRatios{r})
}

func (m *MockServer) handleECB(w http.ResponseWriter, path string) {
	m.mu.RLock()
	status := m.ecbStatus
	m.mu.RUnlock()
	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	key := path[strings.LastIndex(path, "/D.")+len("/D."):]
	currency := strings.TrimSuffix(key, ".EUR.SP00.A")

	m.mu.RLock()
	obs, ok := m.ecbRates[currency]
	m.mu.RUnlock()
	if !ok {
		http.Error(w, "No results found.", http.StatusNotFound)
		return
	}

	observations := make(map[string][]*float64, len(obs))
	for _, o := range obs {
		observations[strconv.Itoa(o.Index)] = []*float64{o.Value}
	}
	writeJSON(w, map[string]interface{}{
		"dataSets": []interface{}{
			map[string]interface{}{
				"series": map[string]interface{}{
					fmt.Sprintf("0:%s:0:0:0", currency): map[string]interface{}{
						"observations": observations,
					},
				},
			},
		},
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
