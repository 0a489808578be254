package ingest

import "testing"

func TestParseDateLayouts(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"2026-02-10 14:30", "2026-02-10T14:30:00", true},
		{"02/10/2026 14:30", "2026-02-10T14:30:00", true},
		{"2026-02-10T14:30:00", "2026-02-10T14:30:00", true},
		{"10-02-2026 14:30", "2026-02-10T14:30:00", true},
		{"2026-02-10", "2026-02-10T00:00:00", true},
		{"  2026-02-10 14:30  ", "2026-02-10T14:30:00", true},
		{"vorige week dinsdag", "vorige week dinsdag", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("ParseDate(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCoerceInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1,234", 1234},
		{"", 0},
		{"abc", 0},
		{"85", 85},
		{"3400.7", 3400},
		{" 12 ", 12},
		{"1,234,567", 1234567},
	}
	for _, tt := range tests {
		if got := coerceInt(tt.in); got != tt.want {
			t.Fatalf("coerceInt(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeRowScenario(t *testing.T) {
	cfg := DefaultMappingConfig()
	header := []string{
		"Publicatietijdstip", "Berichttype", "Titel", "Bereik", "Weergaven",
		"Reacties", "Opmerkingen", "Deelacties", "Totaal aantal klikken",
	}
	mapping := cfg.ResolveColumns(header)
	row := map[string]string{
		"Publicatietijdstip":    "2026-02-10 14:30",
		"Berichttype":           "Foto",
		"Titel":                 "Nieuwe Prins lijn!",
		"Bereik":                "1200",
		"Weergaven":             "3400",
		"Reacties":              "85",
		"Opmerkingen":           "12",
		"Deelacties":            "8",
		"Totaal aantal klikken": "45",
	}
	post, ok := NormalizeRow(row, mapping, "Post", "prins_fb.csv")
	if !ok {
		t.Fatalf("expected row to normalize")
	}
	if post.Date != "2026-02-10T14:30:00" {
		t.Fatalf("date = %q", post.Date)
	}
	if post.Type != "Foto" || post.Text != "Nieuwe Prins lijn!" {
		t.Fatalf("type/text = %q/%q", post.Type, post.Text)
	}
	if post.Reach != 1200 || post.Impressions != 3400 || post.Likes != 85 ||
		post.Comments != 12 || post.Shares != 8 || post.Clicks != 45 {
		t.Fatalf("metrics = %+v", post)
	}
	if post.SourceFile != "prins_fb.csv" {
		t.Fatalf("source file = %q", post.SourceFile)
	}
}

func TestNormalizeRowMissingDateDiscarded(t *testing.T) {
	cfg := DefaultMappingConfig()
	mapping := cfg.ResolveColumns([]string{"Datum", "Titel"})

	if _, ok := NormalizeRow(map[string]string{"Datum": "   ", "Titel": "x"}, mapping, "Post", "f.csv"); ok {
		t.Fatalf("expected whitespace date row to be discarded")
	}

	noDate := cfg.ResolveColumns([]string{"Titel"})
	if _, ok := NormalizeRow(map[string]string{"Titel": "x"}, noDate, "Post", "f.csv"); ok {
		t.Fatalf("expected row without date column to be discarded")
	}
}

func TestNormalizeRowDefaults(t *testing.T) {
	cfg := DefaultMappingConfig()
	mapping := cfg.ResolveColumns([]string{"Datum", "Type"})
	post, ok := NormalizeRow(map[string]string{"Datum": "2026-02-10", "Type": "  "}, mapping, "Post", "f.csv")
	if !ok {
		t.Fatalf("expected row to normalize")
	}
	if post.Type != "Post" {
		t.Fatalf("expected type fallback Post, got %q", post.Type)
	}
	if post.Text != "" {
		t.Fatalf("expected empty text, got %q", post.Text)
	}
	if post.Reach != 0 || post.Likes != 0 || post.Clicks != 0 {
		t.Fatalf("expected zero metrics, got %+v", post)
	}
}

func TestNormalizeRowUnparsableDatePassedThrough(t *testing.T) {
	cfg := DefaultMappingConfig()
	mapping := cfg.ResolveColumns([]string{"Datum"})
	post, ok := NormalizeRow(map[string]string{"Datum": "februari"}, mapping, "Post", "f.csv")
	if !ok {
		t.Fatalf("expected lenient pass-through, not a discard")
	}
	if post.Date != "februari" {
		t.Fatalf("expected raw date kept, got %q", post.Date)
	}
}
