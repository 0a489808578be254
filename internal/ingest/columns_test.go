package ingest

import "testing"

func TestResolveColumnsDutchHeader(t *testing.T) {
	cfg := DefaultMappingConfig()
	header := []string{
		"Publicatietijdstip", "Berichttype", "Titel", "Bereik", "Weergaven",
		"Reacties", "Opmerkingen", "Deelacties", "Totaal aantal klikken",
	}
	mapping := cfg.ResolveColumns(header)

	expected := map[string]string{
		FieldDate:     "Publicatietijdstip",
		FieldType:     "Berichttype",
		FieldText:     "Titel",
		FieldReach:    "Bereik",
		FieldViews:    "Weergaven",
		FieldLikes:    "Reacties",
		FieldComments: "Opmerkingen",
		FieldShares:   "Deelacties",
		FieldClicks:   "Totaal aantal klikken",
	}
	for field, want := range expected {
		if got := mapping[field]; got != want {
			t.Fatalf("field %s resolved to %q, want %q", field, got, want)
		}
	}
}

func TestResolveColumnsCaseInsensitiveTrimmed(t *testing.T) {
	cfg := DefaultMappingConfig()
	mapping := cfg.ResolveColumns([]string{"  DATE  ", "reach"})
	if got := mapping[FieldDate]; got != "  DATE  " {
		t.Fatalf("expected date to resolve to original header string, got %q", got)
	}
	if got := mapping[FieldReach]; got != "reach" {
		t.Fatalf("expected reach to resolve, got %q", got)
	}
}

func TestResolveColumnsSynonymOrderWins(t *testing.T) {
	// "Date" appears before "Publicatietijdstip" in the header, but
	// "Publicatietijdstip" comes first in the synonym table, so it wins.
	cfg := DefaultMappingConfig()
	mapping := cfg.ResolveColumns([]string{"Date", "Publicatietijdstip"})
	if got := mapping[FieldDate]; got != "Publicatietijdstip" {
		t.Fatalf("expected synonym table order to take priority, got %q", got)
	}
}

func TestResolveColumnsAbsentField(t *testing.T) {
	cfg := DefaultMappingConfig()
	mapping := cfg.ResolveColumns([]string{"Datum", "Titel"})
	if _, ok := mapping[FieldClicks]; ok {
		t.Fatalf("expected clicks to be absent, got %q", mapping[FieldClicks])
	}
	if _, ok := mapping[FieldDate]; !ok {
		t.Fatalf("expected date to be present")
	}
}
