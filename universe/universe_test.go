package universe

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	symbols := Default()

	if len(symbols) != 184 {
		t.Errorf("len(Default()) = %d, want 184", len(symbols))
	}
	if symbols[0] != "AAPL" {
		t.Errorf("first symbol = %v, want AAPL", symbols[0])
	}

	seen := make(map[string]bool)
	for _, s := range symbols {
		if seen[s] {
			t.Errorf("duplicate symbol %v", s)
		}
		seen[s] = true
	}
	for _, want := range []string{"KO", "O", "BF-B", "WWD"} {
		if !seen[want] {
			t.Errorf("expected %v in default universe", want)
		}
	}
}

func TestSectors_ReturnsCopy(t *testing.T) {
	sectors := Sectors()
	sectors[0].Symbols[0] = "CHANGED"

	if Sectors()[0].Symbols[0] != "AAPL" {
		t.Error("Sectors() should not expose the built-in slices")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"commas", "AAPL,MSFT", []string{"AAPL", "MSFT"}},
		{"spaces and case", " aapl,  msft ko ", []string{"AAPL", "MSFT", "KO"}},
		{"duplicates", "KO,ko,KO", []string{"KO"}},
		{"semicolons", "T;VZ", []string{"T", "VZ"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Parse(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseYAML(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    []string
		wantErr bool
	}{
		{"symbols key", "symbols: [ko, pep]\n", []string{"KO", "PEP"}, false},
		{"top-level list", "- JNJ\n- PG\n- jnj\n", []string{"JNJ", "PG"}, false},
		{"sectors", "sectors:\n  - name: Utilities\n    symbols: [NEE, DUK]\n", []string{"NEE", "DUK"}, false},
		{"symbols and sectors", "symbols: [KO]\nsectors:\n  - name: X\n    symbols: [KO, O]\n", []string{"KO", "O"}, false},
		{"empty list", "symbols: []\n", nil, true},
		{"empty document", "", nil, true},
		{"scalar", "just-a-string\n", nil, true},
		{"malformed", "symbols: [KO\n", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseYAML([]byte(tt.doc))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseYAML() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseYAML()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseYAML_EmptyIsErrEmpty(t *testing.T) {
	if _, err := ParseYAML([]byte("symbols: []\n")); !errors.Is(err, ErrEmpty) {
		t.Errorf("error = %v, want ErrEmpty", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.yaml")
	if err := os.WriteFile(path, []byte("symbols:\n  - KO\n  - PEP\n"), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	got, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "KO" {
		t.Errorf("LoadYAML() = %v", got)
	}

	if _, err := LoadYAML(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolve(t *testing.T) {
	got, err := Resolve("", "ko,pep")
	if err != nil || len(got) != 2 {
		t.Errorf("Resolve(list) = %v, %v", got, err)
	}

	got, err = Resolve("", " , ")
	if err != nil || len(got) != len(Default()) {
		t.Errorf("Resolve(blank) should fall back to Default, got %d symbols, %v", len(got), err)
	}

	if _, err := Resolve(filepath.Join(t.TempDir(), "missing.yaml"), "KO"); err == nil {
		t.Error("expected error when the file is missing")
	}
}
