package factors

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Set bundles the lookup tables used by one calculation.
type Set struct {
	Regions    *RegionTable
	Industries *IndustryTable
	Incentives *Catalog
}

// Defaults returns the built-in tables.
func Defaults() *Set {
	return &Set{
		Regions:    DefaultRegions(),
		Industries: DefaultIndustries(),
		Incentives: DefaultIncentives(),
	}
}

type regionDoc struct {
	Key             string   `yaml:"key"`
	Aliases         []string `yaml:"aliases"`
	RegionalFactors `yaml:",inline"`
}

type industryDoc struct {
	Key             string   `yaml:"key"`
	Aliases         []string `yaml:"aliases"`
	IndustryProfile `yaml:",inline"`
}

type incentiveDoc struct {
	Region    string `yaml:"region"`
	Incentive `yaml:",inline"`
}

// overrides is the on-disk shape of a factors file.
type overrides struct {
	Regions    []regionDoc    `yaml:"regions"`
	Industries []industryDoc  `yaml:"industries"`
	Incentives []incentiveDoc `yaml:"incentives"`
}

// Parse applies YAML overrides on top of base and returns a new Set. Entries
// with an existing key replace that record in place; new keys are appended to
// the match order; incentives are added to their region ("federal" for all).
func Parse(data []byte, base *Set) (*Set, error) {
	var doc overrides
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFactors, err)
	}
	if base == nil {
		base = Defaults()
	}

	regions := make([]Entry[RegionalFactors], 0, len(doc.Regions))
	for _, r := range doc.Regions {
		if r.Key == "" {
			return nil, fmt.Errorf("%w: region without key", ErrInvalidFactors)
		}
		regions = append(regions, Entry[RegionalFactors]{Key: r.Key, Aliases: r.Aliases, Value: r.RegionalFactors})
	}

	industries := make([]Entry[IndustryProfile], 0, len(doc.Industries))
	for _, ind := range doc.Industries {
		if ind.Key == "" {
			return nil, fmt.Errorf("%w: industry without key", ErrInvalidFactors)
		}
		if err := ind.IndustryProfile.Validate(); err != nil {
			return nil, fmt.Errorf("industry %q: %w", ind.Key, err)
		}
		industries = append(industries, Entry[IndustryProfile]{Key: ind.Key, Aliases: ind.Aliases, Value: ind.IndustryProfile})
	}

	extra := make(map[string][]Incentive)
	for _, inc := range doc.Incentives {
		if err := inc.Incentive.Validate(); err != nil {
			return nil, err
		}
		region := inc.Region
		if region == "" {
			region = FederalKey
		}
		extra[region] = append(extra[region], inc.Incentive)
	}

	return &Set{
		Regions:    base.Regions.With(regions...),
		Industries: base.Industries.With(industries...),
		Incentives: base.Incentives.With(extra),
	}, nil
}

// LoadFile reads a factors file and applies it on top of the defaults.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read factors file: %w", err)
	}
	return Parse(data, Defaults())
}

// Registry holds the active Set. Readers always see a complete Set; Reload
// swaps it in one step.
type Registry struct {
	current atomic.Pointer[Set]
	path    string
}

// NewRegistry returns a registry serving the defaults, or the file at path
// when path is not empty.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if path == "" {
		r.current.Store(Defaults())
		return r, nil
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewStaticRegistry returns a registry that always serves s.
func NewStaticRegistry(s *Set) *Registry {
	r := &Registry{}
	r.current.Store(s)
	return r
}

// Current returns the active Set.
func (r *Registry) Current() *Set {
	return r.current.Load()
}

// Reload re-reads the configured file. On error the active Set is kept.
func (r *Registry) Reload() error {
	if r.path == "" {
		return nil
	}
	set, err := LoadFile(r.path)
	if err != nil {
		return err
	}
	r.current.Store(set)
	log.Info().
		Str("path", r.path).
		Strs("regions", set.Regions.Priority()).
		Msg("factors: loaded")
	return nil
}
