// Package universe provides the symbol lists the calendar is built over.
package universe

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sector groups symbols for display and for file-based universes.
type Sector struct {
	Name    string   `yaml:"name" json:"name"`
	Symbols []string `yaml:"symbols" json:"symbols"`
}

// defaultSectors is the built-in universe of well-known dividend payers.
var defaultSectors = []Sector{
	{"Tech Giants", []string{
		"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA", "META", "ORCL", "CRM", "ADBE",
		"INTC", "IBM", "CSCO", "PYPL", "NFLX", "AMD", "QCOM", "TXN", "AVGO", "NOW",
	}},
	{"Healthcare & Pharma", []string{
		"JNJ", "PFE", "MRK", "ABBV", "UNH", "CVS", "WBA", "BMY", "LLY", "TMO",
		"ABT", "MDT", "GILD", "AMGN", "DHR", "SYK", "ZTS", "BDX", "BSX", "EW",
	}},
	{"Financial Services", []string{
		"JPM", "BAC", "WFC", "GS", "MS", "C", "USB", "PNC", "TFC", "COF",
		"AXP", "BLK", "SCHW", "CB", "MMC", "AIG", "PRU", "MET", "AFL", "ALL",
	}},
	{"Consumer Goods & Retail", []string{
		"PG", "KO", "PEP", "WMT", "COST", "TGT", "HD", "LOW", "MCD", "SBUX",
		"NKE", "DIS", "CL", "KMB", "GIS", "K", "HSY", "MKC", "CPB", "CAG",
	}},
	{"Energy", []string{
		"XOM", "CVX", "COP", "EOG", "SLB", "PSX", "VLO", "MPC", "KMI", "OKE",
		"EPD", "ET", "WMB", "ENB", "TRP", "SU", "CNQ", "IMO", "CVE", "HES",
	}},
	{"Utilities", []string{
		"NEE", "DUK", "SO", "D", "EXC", "SRE", "AEP", "XEL", "PEG", "ED",
		"ES", "FE", "ETR", "WEC", "DTE", "PPL", "CMS", "NI", "LNT", "ATO",
	}},
	{"Industrial & Manufacturing", []string{
		"GE", "MMM", "HON", "UPS", "CAT", "DE", "BA", "LMT", "RTX", "GD",
		"NOC", "EMR", "ITW", "PH", "ROK", "DOV", "ETN", "CMI", "IR", "JCI",
	}},
	{"Telecom", []string{"T", "VZ", "TMUS", "CHTR", "CMCSA"}},
	{"Payment & FinTech", []string{"V", "MA", "PYPL", "SQ", "FIS", "FISV"}},
	{"REITs", []string{"AMT", "PLD", "CCI", "EQIX", "SPG", "O", "WELL", "EXR", "AVB", "EQR"}},
	{"Materials & Chemicals", []string{"LIN", "APD", "ECL", "SHW", "DD", "DOW", "PPG", "NEM", "FCX", "NUE"}},
	// Share classes use the dash form the quote APIs expect.
	{"Food & Beverage", []string{"MDLZ", "KHC", "STZ", "TAP", "TSN", "HRL", "SJM", "BF-B"}},
	{"Aerospace & Defense", []string{"LHX", "TDG", "HWM", "TXT", "CW", "WWD"}},
}

// ErrEmpty is returned when a source yields no symbols.
var ErrEmpty = errors.New("universe has no symbols")

// Default returns the built-in universe in sector order without duplicates.
func Default() []string {
	var all []string
	for _, s := range defaultSectors {
		all = append(all, s.Symbols...)
	}
	return Normalize(all)
}

// Sectors returns a copy of the built-in sector grouping.
func Sectors() []Sector {
	out := make([]Sector, len(defaultSectors))
	for i, s := range defaultSectors {
		out[i] = Sector{Name: s.Name, Symbols: append([]string(nil), s.Symbols...)}
	}
	return out
}

// Parse splits a comma or whitespace separated list such as "AAPL, msft".
func Parse(list string) []string {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == ';'
	})
	return Normalize(fields)
}

// Normalize upper-cases and trims symbols, dropping blanks and repeats.
func Normalize(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// fileUniverse is the accepted document shape. A bare top-level list is
// accepted too.
type fileUniverse struct {
	Symbols []string `yaml:"symbols"`
	Sectors []Sector `yaml:"sectors"`
}

// LoadYAML reads a universe file with a `symbols:` list, a `sectors:` list,
// or a top-level sequence of symbols.
func LoadYAML(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes a universe document.
func ParseYAML(data []byte) ([]string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse universe: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, ErrEmpty
	}

	var symbols []string
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&symbols); err != nil {
			return nil, fmt.Errorf("failed to decode symbol list: %w", err)
		}
	case yaml.MappingNode:
		var doc fileUniverse
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode universe: %w", err)
		}
		symbols = append(symbols, doc.Symbols...)
		for _, s := range doc.Sectors {
			symbols = append(symbols, s.Symbols...)
		}
	default:
		return nil, fmt.Errorf("unexpected universe document kind %d", root.Kind)
	}

	symbols = Normalize(symbols)
	if len(symbols) == 0 {
		return nil, ErrEmpty
	}
	return symbols, nil
}

// Resolve picks the universe from a file, then an inline list, then the
// built-in default.
func Resolve(file, list string) ([]string, error) {
	if file != "" {
		return LoadYAML(file)
	}
	if symbols := Parse(list); len(symbols) > 0 {
		return symbols, nil
	}
	return Default(), nil
}
