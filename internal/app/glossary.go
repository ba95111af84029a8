package app

// Disclaimer accompanies every simulation result.
const Disclaimer = "This simulation is based on historical data. Future dividends are not guaranteed and may change. " +
	"The share price is estimated and may differ from the real market value. " +
	"Always consult a financial advisor before investing."

// GlossaryEntry is one explained term
type GlossaryEntry struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

var glossary = []GlossaryEntry{
	{"Symbol (Ticker)", "Short code that uniquely identifies a listed share, e.g. AAPL for Apple."},
	{"Dividend", "Cash payment a company distributes to its shareholders, usually out of profits."},
	{"Ex-Dividend Date", "Shares bought on or after this date do not receive the next dividend. Holders before it do."},
	{"Payment Date", "Date the dividend is actually credited to the shareholder's account."},
	{"Dividend Yield", "Annual dividend as a percentage of the current share price: (annual dividend / price) x 100."},
	{"Dividend Frequency", "Quarterly pays 4 times a year, semi-annual twice, annual once. Irregular payers have no fixed cadence."},
	{"Reliability", "Zero to five stars summarizing payment history depth, company size (market cap) and payout ratio sustainability."},
	{"Estimated Price per Share", "Approximate share price implied by the dividend yield and the last dividend amount."},
	{"Shares Purchasable", "Number of shares the invested amount buys at the estimated price. May be fractional."},
	{"Yield on Capital", "Dividend earnings as a percentage of the invested capital."},
	{"Earnings Projection", "Estimated dividends received over several periods, assuming the last payment repeats."},
}

// Glossary returns the explained terms shown next to the calendar
func (a *App) Glossary() []GlossaryEntry {
	out := make([]GlossaryEntry, len(glossary))
	copy(out, glossary)
	return out
}
