package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ErrChartNotFound is returned by Catalog.Lookup for unknown slugs.
var ErrChartNotFound = errors.New("chart not found")

var chartSlugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Chart maps an export slug to the DOM container that renders it.
type Chart struct {
	Slug      string `yaml:"slug" json:"slug"`
	ElementID string `yaml:"element_id" json:"element_id"`
	Title     string `yaml:"title" json:"title,omitempty"`
}

// Catalog is the top-level YAML configuration for exportable charts.
type Catalog struct {
	Charts []Chart `yaml:"charts"`
}

// LoadCatalog reads and validates a chart catalog file.
// Returns an os.ErrNotExist-wrapped error if the file is absent.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chart catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("chart catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks slugs are well-formed and unique and every chart names an element.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Charts))
	for i, ch := range c.Charts {
		if !chartSlugRe.MatchString(ch.Slug) {
			return fmt.Errorf("chart catalog: charts[%d] invalid slug %q", i, ch.Slug)
		}
		if ch.ElementID == "" {
			return fmt.Errorf("chart catalog: charts[%d] missing element_id", i)
		}
		if _, dup := seen[ch.Slug]; dup {
			return fmt.Errorf("chart catalog: duplicate slug %q", ch.Slug)
		}
		seen[ch.Slug] = struct{}{}
	}
	return nil
}

// Lookup returns the chart registered under slug.
func (c *Catalog) Lookup(slug string) (Chart, error) {
	if c != nil {
		for _, ch := range c.Charts {
			if ch.Slug == slug {
				return ch, nil
			}
		}
	}
	return Chart{}, fmt.Errorf("%w: %s", ErrChartNotFound, slug)
}
