package mocks

// FMPDividend is one row of the FMP stock_dividend history.
type FMPDividend struct {
	Date        string  `json:"date"`
	Label       string  `json:"label,omitempty"`
	AdjDividend float64 `json:"adjDividend"`
	Dividend    float64 `json:"dividend"`
	RecordDate  string  `json:"recordDate,omitempty"`
	PaymentDate string  `json:"paymentDate,omitempty"`
}

// FMPDividendHistory is the stock_dividend payload.
type FMPDividendHistory struct {
	Symbol     string        `json:"symbol"`
	Historical []FMPDividend `json:"historical"`
}

// FMPProfile is the company profile subset returned by /profile.
type FMPProfile struct {
	Symbol      string   `json:"symbol"`
	CompanyName string   `json:"companyName"`
	Price       *float64 `json:"price"`
	MktCap      *float64 `json:"mktCap"`
	LastDiv     float64  `json:"lastDiv"`
	Currency    string   `json:"currency"`
	Exchange    string   `json:"exchangeShortName"`
}

// FMPRatios is the trailing ratios subset returned by /ratios-ttm.
type FMPRatios struct {
	Symbol         string   `json:"symbol"`
	PayoutRatioTTM *float64 `json:"payoutRatioTTM"`
}

// ECBObservation is a single daily reference rate.
type ECBObservation struct {
	Index int
	Value *float64
}

// Float returns a pointer to v for optional JSON numbers.
func Float(v float64) *float64 {
	return &v
}
