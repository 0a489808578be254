package ingest

import "strings"

// ColumnMapping maps a canonical field name to the actual header string
// present in one file. Fields with no matching header are absent from the
// map.
type ColumnMapping map[string]string

// ResolveColumns matches a file's header row against the synonym table.
// Synonyms are tried in table order and the first one with a
// case-insensitive, trimmed exact match wins, so earlier synonyms take
// priority over the file's own column order.
func (c *MappingConfig) ResolveColumns(header []string) ColumnMapping {
	mapping := make(ColumnMapping, len(c.Fields))
	for field, synonyms := range c.Fields {
		for _, synonym := range synonyms {
			matched := ""
			for _, h := range header {
				if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(synonym)) {
					matched = h
					break
				}
			}
			if matched != "" {
				mapping[field] = matched
				break
			}
		}
	}
	return mapping
}
