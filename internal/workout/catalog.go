package workout

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// catalogFile is the on-disk catalog format.
type catalogFile struct {
	Plans []Plan `yaml:"plans"`
}

// Catalog resolves a focus label to its plan. It is safe for concurrent use
// and may be swapped wholesale when a custom catalog file changes.
type Catalog struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(bytes.NewReader(defaultCatalog))
}

// LoadCatalogFile reads a catalog from path. A leading ~ is expanded.
func LoadCatalogFile(path string) (*Catalog, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("unable to expand catalog path: %w", err)
	}
	f, err := os.Open(expanded)
	if err != nil {
		return nil, fmt.Errorf("unable to open catalog: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return LoadCatalog(f)
}

// LoadCatalog decodes and validates a YAML catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("unable to decode catalog: %w", err)
	}

	plans := make(map[string]Plan, len(file.Plans))
	for _, p := range file.Plans {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := plans[p.Focus]; dup {
			return nil, fmt.Errorf("%w: duplicate focus %q", ErrInvalidPlan, p.Focus)
		}
		plans[p.Focus] = p
	}
	return &Catalog{plans: plans}, nil
}

// Resolve returns a copy of the plan for focus.
func (c *Catalog) Resolve(focus string) (*Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.plans[focus]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, focus)
	}
	clone := p.Clone()
	return &clone, nil
}

// Focuses returns the sorted focus labels the catalog knows about.
func (c *Catalog) Focuses() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.plans))
	for focus := range c.plans {
		out = append(out, focus)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of plans.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.plans)
}

// Replace swaps in the plans of other.
func (c *Catalog) Replace(other *Catalog) {
	other.mu.RLock()
	plans := other.plans
	other.mu.RUnlock()

	c.mu.Lock()
	c.plans = plans
	c.mu.Unlock()
}
