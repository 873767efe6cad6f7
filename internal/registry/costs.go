package registry

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"ORBLab/internal/domain/models"
	"ORBLab/internal/engine"
)

type costFile struct {
	Costs []models.CostSpec `yaml:"costs"`
}

// Costs is the read-only per-instrument cost registry.
type Costs struct {
	specs      map[string]models.CostSpec
	conflicted map[string]bool
}

func NewCosts(specs []models.CostSpec) *Costs {
	c := &Costs{
		specs:      make(map[string]models.CostSpec, len(specs)),
		conflicted: make(map[string]bool),
	}
	for _, s := range specs {
		if _, dup := c.specs[s.Instrument]; dup {
			c.conflicted[s.Instrument] = true
		}
		c.specs[s.Instrument] = s
	}
	return c
}

// LoadCosts reads a cost registry YAML file.
func LoadCosts(path string) (*Costs, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read costs: %w", err)
	}
	return ParseCosts(b)
}

func ParseCosts(b []byte) (*Costs, error) {
	var f costFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse costs: %w", err)
	}
	return NewCosts(f.Costs), nil
}

// Lookup returns the cost spec for instrument. A missing or invalid spec is a
// configuration error: a trade without friction is never priced.
func (c *Costs) Lookup(instrument string) (models.CostSpec, error) {
	fail := func(reason string) (models.CostSpec, error) {
		return models.CostSpec{}, &engine.ConfigurationError{Instrument: instrument, Reason: reason}
	}
	s, ok := c.specs[instrument]
	if !ok {
		return fail("no cost spec")
	}
	if c.conflicted[instrument] {
		return fail("duplicate cost specs")
	}
	if err := validate.Struct(s); err != nil {
		return fail(describe(err))
	}
	return s, nil
}

// Instruments lists instruments with a cost spec, sorted.
func (c *Costs) Instruments() []string {
	out := make([]string, 0, len(c.specs))
	for k := range c.specs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
