// Package strategy wires named pair configurations to the pairs simulation:
// it resolves presets, fetches prices, runs the backtest, and persists the
// outcome.
package strategy

import (
	"fmt"
	"sort"
	"strings"

	"pairlab/internal/config"
	"pairlab/internal/gather"
	"pairlab/internal/strategy/pairs"
)

// PairSpec fully describes one backtest: which legs, over which dates, with
// which parameters. SymbolA is the regressor leg and SymbolB the dependent.
type PairSpec struct {
	Name    string
	SymbolA string
	SymbolB string
	Span    gather.DateRange
	Params  pairs.Params
}

// Label is the spec name, or "B/A" when unnamed.
func (s PairSpec) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.SymbolB + "/" + s.SymbolA
}

// Validate checks the spec can be run.
func (s PairSpec) Validate() error {
	if s.SymbolA == "" || s.SymbolB == "" {
		return fmt.Errorf("pair %q: both legs are required", s.Label())
	}
	if strings.EqualFold(s.SymbolA, s.SymbolB) {
		return fmt.Errorf("pair %q: legs must differ", s.Label())
	}
	if err := s.Span.Validate(); err != nil {
		return fmt.Errorf("pair %q: %w", s.Label(), err)
	}
	return s.Params.Validate()
}

// Registry holds a named collection of pair specs for lookup and
// enumeration.
type Registry struct {
	specs map[string]PairSpec
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]PairSpec),
	}
}

// NewRegistryFromConfig registers every configured preset with the
// configured backtest parameters. Presets without dates use the fetch
// range.
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	r := NewRegistry()
	for _, p := range cfg.Pairs {
		start, end := p.Start, p.End
		if start == "" {
			start = cfg.Fetch.StartDate
		}
		if end == "" {
			end = cfg.Fetch.EndDate
		}
		span, err := gather.ParseDateRange(start, end)
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.Name, err)
		}
		r.Register(PairSpec{
			Name:    p.Name,
			SymbolA: strings.ToUpper(p.SymbolA),
			SymbolB: strings.ToUpper(p.SymbolB),
			Span:    span,
			Params:  cfg.Backtest,
		})
	}
	return r, nil
}

// Register adds a spec to the registry, keyed by its Label().
func (r *Registry) Register(s PairSpec) {
	r.specs[s.Label()] = s
}

// Get retrieves a spec by name. The second return value indicates whether
// the spec was found.
func (r *Registry) Get(name string) (PairSpec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// List returns a sorted slice of all registered spec names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
