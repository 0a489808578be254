package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/socialtracker/socialtracker/internal/tracker"
)

const canonicalDateLayout = "2006-01-02T15:04:05"

// Accepted export timestamp layouts, tried in order. Mixed because Meta
// exports switch format with the account's locale.
var dateLayouts = []string{
	"01/02/2006 15:04",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"02-01-2006 15:04",
	"02/01/2006 15:04",
	"2006-01-02",
}

// ParseDate renders an export timestamp as canonical ISO-8601. Unparsable
// values are passed through trimmed rather than rejected; ok reports whether
// a layout matched so callers can surface a soft warning.
func ParseDate(value string) (iso string, ok bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(canonicalDateLayout), true
		}
	}
	return value, false
}

// coerceInt turns a raw export value into an int: thousands separators are
// stripped, decimals truncated, anything unparsable or empty becomes 0.
func coerceInt(value string) int {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// NormalizeRow turns one raw CSV row into a canonical post using the file's
// resolved column mapping. Rows without a usable date cannot be deduplicated
// or aggregated and are discarded (ok = false).
func NormalizeRow(row map[string]string, mapping ColumnMapping, typeFallback, sourceFile string) (tracker.Post, bool) {
	dateCol, ok := mapping[FieldDate]
	if !ok || strings.TrimSpace(row[dateCol]) == "" {
		return tracker.Post{}, false
	}
	date, _ := ParseDate(row[dateCol])

	postType := strings.TrimSpace(lookup(row, mapping, FieldType))
	if postType == "" {
		postType = typeFallback
	}

	return tracker.Post{
		Date:        date,
		Type:        postType,
		Text:        strings.TrimSpace(lookup(row, mapping, FieldText)),
		Reach:       coerceInt(lookup(row, mapping, FieldReach)),
		Impressions: coerceInt(lookup(row, mapping, FieldViews)),
		Likes:       coerceInt(lookup(row, mapping, FieldLikes)),
		Comments:    coerceInt(lookup(row, mapping, FieldComments)),
		Shares:      coerceInt(lookup(row, mapping, FieldShares)),
		Clicks:      coerceInt(lookup(row, mapping, FieldClicks)),
		SourceFile:  sourceFile,
	}, true
}

func lookup(row map[string]string, mapping ColumnMapping, field string) string {
	col, ok := mapping[field]
	if !ok {
		return ""
	}
	return row[col]
}

// isCanonicalTimestamp reports whether a normalized date round-trips through
// the canonical layouts; false means the raw value was passed through.
func isCanonicalTimestamp(date string) bool {
	_, err := time.Parse(canonicalDateLayout, date)
	return err == nil
}
