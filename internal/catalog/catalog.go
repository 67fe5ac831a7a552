// Package catalog holds the model alias table that maps client-facing model
// names to the model each provider actually serves.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Model is one client-facing model and its per-provider upstream names.
type Model struct {
	ID        string            `yaml:"id"`
	OwnedBy   string            `yaml:"owned_by"`
	Providers map[string]string `yaml:"providers"`
}

// ProviderNames returns the providers serving m in sorted order.
func (m Model) ProviderNames() []string {
	names := make([]string, 0, len(m.Providers))
	for name := range m.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog is an immutable, validated model table.
type Catalog struct {
	models []Model
}

type file struct {
	Models []Model `yaml:"models"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog at path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse model catalog: %w", err)
	}

	var errs []error
	seen := make(map[string]bool, len(f.Models))
	for i, m := range f.Models {
		switch {
		case m.ID == "":
			errs = append(errs, fmt.Errorf("models[%d]: id is required", i))
		case seen[m.ID]:
			errs = append(errs, fmt.Errorf("models[%d]: duplicate id %q", i, m.ID))
		}
		seen[m.ID] = true

		for provider, upstream := range m.Providers {
			if upstream == "" {
				errs = append(errs, fmt.Errorf("models[%d]: provider %q has an empty model name", i, provider))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.Slice(f.Models, func(i, j int) bool { return f.Models[i].ID < f.Models[j].ID })
	return &Catalog{models: f.Models}, nil
}

// Aliases returns the client-to-upstream model map for provider. Models the
// provider does not list are absent and pass through unchanged.
func (c *Catalog) Aliases(provider string) map[string]string {
	out := make(map[string]string)
	for _, m := range c.models {
		if upstream, ok := m.Providers[provider]; ok {
			out[m.ID] = upstream
		}
	}
	return out
}

// Models returns every catalog entry sorted by id.
func (c *Catalog) Models() []Model {
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}
