package ingest

import (
	"path/filepath"
	"strings"
)

// ClassifyPlatform decides which platform a file belongs to. Exclusive marker
// columns win; rule order breaks the tie if a header set improbably
// intersects more than one marker set. Without any marker match the filename
// stem is checked against platform aliases, and without that the default
// platform applies. Pure function of (header set, filename).
func (c *MappingConfig) ClassifyPlatform(header []string, filename string) string {
	headerSet := make(map[string]struct{}, len(header))
	for _, h := range header {
		headerSet[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	for _, rule := range c.Platforms {
		for _, marker := range rule.Markers {
			if _, ok := headerSet[strings.ToLower(strings.TrimSpace(marker))]; ok {
				return rule.Name
			}
		}
	}

	stem := filenameStem(filename)
	for _, rule := range c.Platforms {
		for _, alias := range rule.Aliases {
			if alias != "" && strings.Contains(stem, strings.ToLower(alias)) {
				return rule.Name
			}
		}
	}
	return c.DefaultPlatform
}

// ClassifyPage decides the tenant page from the filename stem. Unknown
// filenames get the default page.
func (c *MappingConfig) ClassifyPage(filename string) string {
	stem := filenameStem(filename)
	for _, rule := range c.Pages {
		for _, alias := range rule.Aliases {
			if alias != "" && strings.Contains(stem, strings.ToLower(alias)) {
				return rule.Name
			}
		}
	}
	return c.DefaultPage
}

func filenameStem(filename string) string {
	base := filepath.Base(filename)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}
