package ingest

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

const fbCSV = `Publicatietijdstip,Berichttype,Titel,Bereik,Weergaven,Reacties,Opmerkingen,Deelacties,Totaal aantal klikken
2026-02-10 14:30,Foto,Nieuwe Prins lijn!,1200,3400,85,12,8,45
2026-02-12 09:00,Link,Winactie!,800,2100,40,5,3,30
2026-02-14 17:15,Video,Achter de schermen,1500,5000,120,20,15,60
`

const igCSV = `Datum,Media type,Beschrijving,Bereik,Weergaven,Vind-ik-leuks,Opmerkingen
2026-02-11 10:00,IMAGE,Puppy love,900,1800,110,9
2026-02-13 12:30,VIDEO,Reel: brokjes,1300,4200,95,14
2026-02-15 08:45,CAROUSEL_ALBUM,Nieuwe smaken,700,1500,60,7
`

func newTestScanner() *Scanner {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewScanner(DefaultMappingConfig(), logger)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseFileFacebookExport(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prins_fb.csv", fbCSV)

	records, err := newTestScanner().ParseFile(path)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if records.Platform != "facebook" {
		t.Fatalf("platform = %q, want facebook", records.Platform)
	}
	if records.Page != "prins" {
		t.Fatalf("page = %q, want prins", records.Page)
	}
	if len(records.Posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(records.Posts))
	}
	first := records.Posts[0]
	if first.Date != "2026-02-10T14:30:00" || first.Type != "Foto" || first.Text != "Nieuwe Prins lijn!" {
		t.Fatalf("first post = %+v", first)
	}
	if first.Reach != 1200 || first.Impressions != 3400 || first.Likes != 85 ||
		first.Comments != 12 || first.Shares != 8 || first.Clicks != 45 {
		t.Fatalf("first post metrics = %+v", first)
	}
	if first.SourceFile != "prins_fb.csv" {
		t.Fatalf("source file = %q", first.SourceFile)
	}
}

func TestParseFileInstagramExport(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prins_ig.csv", igCSV)

	records, err := newTestScanner().ParseFile(path)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if records.Platform != "instagram" {
		t.Fatalf("platform = %q, want instagram", records.Platform)
	}
	if len(records.Posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(records.Posts))
	}
	first := records.Posts[0]
	if first.Likes != 110 || first.Type != "IMAGE" {
		t.Fatalf("first post = %+v", first)
	}
	// Instagram exports carry no shares or clicks columns.
	if first.Shares != 0 || first.Clicks != 0 {
		t.Fatalf("expected zero shares/clicks, got %+v", first)
	}
}

func TestParseFileToleratesBOM(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bom_fb.csv", "\xEF\xBB\xBF"+fbCSV)

	records, err := newTestScanner().ParseFile(path)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records.Posts) != 3 {
		t.Fatalf("expected 3 posts from BOM file, got %d", len(records.Posts))
	}
	if records.Platform != "facebook" {
		t.Fatalf("platform = %q, want facebook", records.Platform)
	}
}

func TestParseFileSkipsRowsWithoutDate(t *testing.T) {
	dir := t.TempDir()
	content := `Datum,Titel,Reacties
2026-02-10,eerste,10
,tweede,20
2026-02-12,derde,30
`
	path := writeFile(t, dir, "gaps.csv", content)
	records, err := newTestScanner().ParseFile(path)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(records.Posts) != 2 {
		t.Fatalf("expected 2 posts (dateless row dropped), got %d", len(records.Posts))
	}
}

func TestScanFolderGroupsByPlatform(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "prins_fb.csv", fbCSV)
	writeFile(t, dir, "prins_ig.csv", igCSV)
	// Zero valid rows: silently excluded, not an error.
	writeFile(t, dir, "empty.csv", "Datum,Titel\n,\n,\n")
	// Not a CSV: ignored entirely.
	writeFile(t, dir, "notes.txt", "geen export")
	// Unreadable "file": skipped, batch continues.
	if err := os.Mkdir(filepath.Join(dir, "broken.csv"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	grouped, err := newTestScanner().ScanFolder(dir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(grouped) != 2 {
		t.Fatalf("expected 2 platform groups, got %d (%v)", len(grouped), grouped)
	}
	fb := grouped["facebook"]
	if len(fb) != 1 || fb[0].File != "prins_fb.csv" || len(fb[0].Posts) != 3 {
		t.Fatalf("facebook group = %+v", fb)
	}
	ig := grouped["instagram"]
	if len(ig) != 1 || ig[0].File != "prins_ig.csv" || len(ig[0].Posts) != 3 {
		t.Fatalf("instagram group = %+v", ig)
	}
}

func TestScanFolderMissingDirectory(t *testing.T) {
	if _, err := newTestScanner().ScanFolder(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
