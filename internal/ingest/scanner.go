package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/socialtracker/socialtracker/internal/tracker"
)

// FileRecords is the normalized output of one export file.
type FileRecords struct {
	File     string         `json:"file"`
	Platform string         `json:"platform"`
	Page     string         `json:"page"`
	Posts    []tracker.Post `json:"posts"`
}

// Scanner turns a folder of heterogeneous export files into normalized
// records grouped by platform.
type Scanner struct {
	cfg *MappingConfig
	log *logrus.Logger
}

func NewScanner(cfg *MappingConfig, logger *logrus.Logger) *Scanner {
	if cfg == nil {
		cfg = DefaultMappingConfig()
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Scanner{cfg: cfg, log: logger}
}

// ParseFile classifies one CSV export and normalizes every row. Rows without
// a date are dropped; everything else is coerced, never rejected.
func (s *Scanner) ParseFile(path string) (FileRecords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileRecords{}, err
	}
	// Meta exports are UTF-8 with a byte-order mark.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return FileRecords{}, fmt.Errorf("read header of %s: %w", path, err)
	}

	base := filepath.Base(path)
	mapping := s.cfg.ResolveColumns(header)
	platform := s.cfg.ClassifyPlatform(header, base)
	page := s.cfg.ClassifyPage(base)
	fallback := s.cfg.typeFallback(platform)

	posts := make([]tracker.Post, 0)
	line := 1
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			s.log.WithFields(logrus.Fields{"file": base, "line": line}).
				WithError(err).Warn("malformed csv row skipped")
			continue
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(fields) {
				row[h] = fields[i]
			}
		}
		post, ok := NormalizeRow(row, mapping, fallback, base)
		if !ok {
			continue
		}
		if !isCanonicalTimestamp(post.Date) {
			s.log.WithFields(logrus.Fields{"file": base, "line": line, "date": post.Date}).
				Warn("timestamp kept as raw text, no known layout matched")
		}
		posts = append(posts, post)
	}

	return FileRecords{File: base, Platform: platform, Page: page, Posts: posts}, nil
}

// ScanFolder enumerates CSV files in lexicographic order and groups their
// normalized records by platform. Files yielding zero valid rows are
// excluded silently; unreadable or malformed files are logged and skipped so
// one bad file never aborts the batch.
func (s *Scanner) ScanFolder(dir string) (map[string][]FileRecords, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	result := make(map[string][]FileRecords)
	for _, name := range names {
		records, err := s.ParseFile(filepath.Join(dir, name))
		if err != nil {
			s.log.WithField("file", name).WithError(err).Warn("file skipped")
			continue
		}
		if len(records.Posts) == 0 {
			continue
		}
		result[records.Platform] = append(result[records.Platform], records)
	}
	return result, nil
}
