package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"divcal/models"
)

// mockMarketDataProvider serves canned data per symbol and counts calls
type mockMarketDataProvider struct {
	mu           sync.Mutex
	histories    map[string][]models.DividendEvent
	fundamentals map[string]*models.FundamentalsSnapshot
	historyErr   map[string]error
	fundamentErr map[string]error
	historyCalls int
	delay        time.Duration
	inFlight     int
	maxInFlight  int
}

func newMockProvider() *mockMarketDataProvider {
	return &mockMarketDataProvider{
		histories:    make(map[string][]models.DividendEvent),
		fundamentals: make(map[string]*models.FundamentalsSnapshot),
		historyErr:   make(map[string]error),
		fundamentErr: make(map[string]error),
	}
}

func (m *mockMarketDataProvider) GetDividendHistory(ctx context.Context, symbol string) ([]models.DividendEvent, error) {
	m.mu.Lock()
	m.historyCalls++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight--
	if err := m.historyErr[symbol]; err != nil {
		return nil, err
	}
	return m.histories[symbol], nil
}

func (m *mockMarketDataProvider) GetFundamentals(ctx context.Context, symbol string) (*models.FundamentalsSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fundamentErr[symbol]; err != nil {
		return nil, err
	}
	return m.fundamentals[symbol], nil
}

func (m *mockMarketDataProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyCalls
}

// quarterly returns n quarterly events of amount ending 2024-06-14
func quarterly(n int, amount string) []models.DividendEvent {
	last := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)
	events := make([]models.DividendEvent, n)
	for i := 0; i < n; i++ {
		events[i] = models.DividendEvent{
			PaymentDate: last.AddDate(0, 0, -91*(n-1-i)),
			Amount:      decimal.RequireFromString(amount),
		}
	}
	return events
}

func snapshot(name, price string) *models.FundamentalsSnapshot {
	p := decimal.RequireFromString(price)
	return &models.FundamentalsSnapshot{DisplayName: name, Currency: "USD", CurrentPrice: &p}
}
