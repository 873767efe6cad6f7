package registry

import (
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"ORBLab/internal/domain/models"
	"ORBLab/internal/engine"
	"ORBLab/pkg/util"
)

var validate = newValidator()

// newValidator reports fields by their yaml names so errors read like the registry file.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// StrategyRecord is one row of the strategy registry file. RRTarget is a
// pointer so that a missing or null value is distinguishable from zero.
type StrategyRecord struct {
	Instrument string          `yaml:"instrument" json:"instrument" validate:"required"`
	Anchor     string          `yaml:"anchor" json:"anchor" validate:"required,datetime=15:04"`
	RRTarget   *float64        `yaml:"rr_target" json:"rr_target" validate:"required,gt=0"`
	StopMode   models.StopMode `yaml:"stop_mode" json:"stop_mode" validate:"required,oneof=full half"`
	SizeFilter *float64        `yaml:"size_filter,omitempty" json:"size_filter,omitempty" validate:"omitempty,gt=0"`
}

type strategyFile struct {
	Strategies []StrategyRecord `yaml:"strategies"`
}

// Strategies is the read-only strategy registry. Records are validated on
// Resolve, so one malformed record only fails its own units.
type Strategies struct {
	records    map[models.StrategyKey]StrategyRecord
	conflicted map[models.StrategyKey]bool
}

// NewStrategies indexes records by (instrument, anchor). A key that appears
// more than once is marked conflicted and never resolves.
func NewStrategies(records []StrategyRecord) *Strategies {
	s := &Strategies{
		records:    make(map[models.StrategyKey]StrategyRecord, len(records)),
		conflicted: make(map[models.StrategyKey]bool),
	}
	for _, r := range records {
		r.Anchor = canonicalAnchor(r.Anchor)
		k := models.StrategyKey{Instrument: r.Instrument, Anchor: r.Anchor}
		if _, dup := s.records[k]; dup {
			s.conflicted[k] = true
		}
		s.records[k] = r
	}
	return s
}

// LoadStrategies reads a strategy registry YAML file.
func LoadStrategies(path string) (*Strategies, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategies: %w", err)
	}
	return ParseStrategies(b)
}

// ParseStrategies parses registry YAML of the form `strategies: [...]`.
func ParseStrategies(b []byte) (*Strategies, error) {
	var f strategyFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse strategies: %w", err)
	}
	return NewStrategies(f.Strategies), nil
}

// Resolve returns the authoritative config for (instrument, anchor).
// Every failure is a *engine.ConfigurationError; no field is ever defaulted.
func (s *Strategies) Resolve(instrument, anchor string) (models.StrategyConfig, error) {
	anchor = canonicalAnchor(anchor)
	k := models.StrategyKey{Instrument: instrument, Anchor: anchor}
	fail := func(reason string) (models.StrategyConfig, error) {
		return models.StrategyConfig{}, &engine.ConfigurationError{Instrument: instrument, Anchor: anchor, Reason: reason}
	}

	r, ok := s.records[k]
	if !ok {
		return fail("no strategy record")
	}
	if s.conflicted[k] {
		return fail("duplicate strategy records")
	}
	if err := validate.Struct(r); err != nil {
		return fail(describe(err))
	}
	if math.IsInf(*r.RRTarget, 0) {
		return fail("rr_target must be finite")
	}

	return models.StrategyConfig{
		Instrument: r.Instrument,
		Anchor:     r.Anchor,
		RRTarget:   *r.RRTarget,
		StopMode:   r.StopMode,
		SizeFilter: r.SizeFilter,
	}, nil
}

// canonicalAnchor zero-pads a parseable clock. Anything else is kept as is
// and fails validation on Resolve.
func canonicalAnchor(a string) string {
	if c, err := util.CanonicalClock(a); err == nil {
		return c
	}
	return a
}

// Keys lists every registered key, sorted by instrument then anchor.
func (s *Strategies) Keys() []models.StrategyKey {
	keys := make([]models.StrategyKey, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Instrument != keys[j].Instrument {
			return keys[i].Instrument < keys[j].Instrument
		}
		return keys[i].Anchor < keys[j].Anchor
	})
	return keys
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
	}
}
