package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Canonical field names. Every export column a file may carry resolves to one
// of these, or to nothing.
const (
	FieldDate     = "date"
	FieldType     = "type"
	FieldText     = "text"
	FieldReach    = "reach"
	FieldViews    = "views"
	FieldLikes    = "likes"
	FieldComments = "comments"
	FieldShares   = "shares"
	FieldClicks   = "clicks"
)

// PlatformRule classifies a file onto one platform. Markers are header names
// that never appear in other platforms' exports; aliases match the filename
// stem when no marker column is present. Rule order is the tie-break
// priority when a file improbably intersects more than one marker set.
type PlatformRule struct {
	Name         string   `json:"name"`
	Markers      []string `json:"markers,omitempty"`
	Aliases      []string `json:"aliases,omitempty"`
	TypeFallback string   `json:"typeFallback,omitempty"`
}

// PageRule maps filename-stem aliases to a tenant page.
type PageRule struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// MappingConfig is the data-driven vocabulary of the ingestion pipeline:
// the synonym table, platform classification rules and tenant aliases.
// It is built once at startup and never mutated; new export formats are
// supported by extending the config, not the code.
type MappingConfig struct {
	Fields          map[string][]string `json:"fields"`
	Platforms       []PlatformRule      `json:"platforms"`
	DefaultPlatform string              `json:"defaultPlatform"`
	Pages           []PageRule          `json:"pages"`
	DefaultPage     string              `json:"defaultPage"`
}

// DefaultMappingConfig covers the Meta Business Suite export vocabulary, both
// the Dutch and English column sets.
func DefaultMappingConfig() *MappingConfig {
	return &MappingConfig{
		Fields: map[string][]string{
			FieldDate:     {"Publicatietijdstip", "Datum", "Date", "Created", "Aangemaakt"},
			FieldType:     {"Berichttype", "Type", "Media type", "Post Type", "Content type"},
			FieldText:     {"Titel", "Bericht", "Caption", "Message", "Beschrijving", "Omschrijving", "Post Message"},
			FieldReach:    {"Bereik", "Reach", "Lifetime Post Total Reach"},
			FieldViews:    {"Weergaven", "Impressions", "Views", "Lifetime Post Total Impressions"},
			FieldLikes:    {"Reacties", "Likes", "Vind-ik-leuks", "Lifetime Post Like Reactions"},
			FieldComments: {"Opmerkingen", "Comments", "Lifetime Post Comments"},
			FieldShares:   {"Deelacties", "Shares", "Lifetime Post Shares"},
			FieldClicks:   {"Totaal aantal klikken", "Clicks", "Link Clicks", "Lifetime Post Total Clicks"},
		},
		Platforms: []PlatformRule{
			{
				Name:    "instagram",
				Markers: []string{"Vind-ik-leuks", "Media type"},
				Aliases: []string{"instagram", "insta", "ig"},
			},
			{
				Name:    "facebook",
				Markers: []string{"Deelacties", "Berichttype", "Totaal aantal klikken"},
				Aliases: []string{"facebook", "fb"},
			},
		},
		DefaultPlatform: "facebook",
		Pages: []PageRule{
			{Name: "prins", Aliases: []string{"prins"}},
			{Name: "edupet", Aliases: []string{"edupet"}},
		},
		DefaultPage: "prins",
	}
}

const mappingSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"fields": {
			"type": "object",
			"required": ["date"],
			"additionalProperties": {
				"type": "array",
				"items": {"type": "string", "minLength": 1},
				"minItems": 1
			}
		},
		"platforms": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"markers": {"type": "array", "items": {"type": "string"}},
					"aliases": {"type": "array", "items": {"type": "string"}},
					"typeFallback": {"type": "string"}
				}
			}
		},
		"defaultPlatform": {"type": "string", "minLength": 1},
		"pages": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "aliases"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"aliases": {"type": "array", "items": {"type": "string"}}
				}
			}
		},
		"defaultPage": {"type": "string"}
	},
	"required": ["fields", "platforms", "defaultPlatform"]
}`

// LoadMappingConfig reads a JSON mapping config and validates it against the
// embedded schema before use, so a malformed config fails at startup rather
// than mid-ingest.
func LoadMappingConfig(path string) (*MappingConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(mappingSchema))
	if err != nil {
		return nil, fmt.Errorf("mapping schema: %w", err)
	}
	if err := compiler.AddResource("mapping.schema.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("mapping schema: %w", err)
	}
	schema, err := compiler.Compile("mapping.schema.json")
	if err != nil {
		return nil, fmt.Errorf("mapping schema: %w", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("mapping config %s: %w", path, err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("mapping config %s: %w", path, err)
	}

	var cfg MappingConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("mapping config %s: %w", path, err)
	}
	if cfg.DefaultPage == "" {
		cfg.DefaultPage = DefaultMappingConfig().DefaultPage
	}
	return &cfg, nil
}

func (c *MappingConfig) typeFallback(platform string) string {
	for _, rule := range c.Platforms {
		if rule.Name == platform && rule.TypeFallback != "" {
			return rule.TypeFallback
		}
	}
	return "Post"
}
