package selector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Table holds the per-field rule lists for one site. Title must have at
// least one rule; price and description may legitimately be empty, in which
// case the field stays unset rather than failing the run.
type Table struct {
	Title       []Rule `yaml:"title"`
	Price       []Rule `yaml:"price"`
	Description []Rule `yaml:"description"`
}

// Validate enforces the required-field invariant.
func (t *Table) Validate() error {
	if len(t.Title) == 0 {
		return fmt.Errorf("title rule list must contain at least one entry")
	}
	return nil
}

// Overrides maps a site name (amazon, wayfair, generic) to a replacement
// rule table. Sites keep their built-in tables until an override names them.
type Overrides map[string]Table

// LoadOverrides reads per-site rule tables from a YAML file. A missing file
// yields no overrides.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Overrides{}, nil
		}
		return nil, fmt.Errorf("failed to read selector overrides: %w", err)
	}

	var overrides Overrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse selector overrides: %w", err)
	}

	for site, table := range overrides {
		if err := table.Validate(); err != nil {
			return nil, fmt.Errorf("override for %s: %w", site, err)
		}
	}

	return overrides, nil
}
