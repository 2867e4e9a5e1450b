package binder

import "github.com/leapstack-labs/leapdash/internal/rules"

// applicableMetric reports whether every dimension the metric references
// has a non-empty binding.
func (c *Context) applicableMetric(def *rules.MetricDef) bool {
	return c.dimensionsBound(def.DimensionRefs())
}

// applicableFilter reports whether every dimension the filter references
// has a non-empty binding.
func (c *Context) applicableFilter(def *rules.FilterDef) bool {
	return c.dimensionsBound(def.DimensionRefs())
}

func (c *Context) dimensionsBound(refs []string) bool {
	for _, ref := range refs {
		bound, ok := c.Dimensions[ref]
		if !ok || len(bound.Matches) == 0 {
			return false
		}
	}
	return true
}

// scored is implemented by metric and filter definitions.
type scored interface {
	*rules.MetricDef | *rules.FilterDef
}

// resolveOverloads picks one definition per identifier: among applicable
// definitions the highest score wins; when none is applicable the
// highest score overall acts as the fallback. Ties keep the first-seen
// definition so resolution stays deterministic.
func resolveOverloads[D scored](overloads map[string][]D, applicable func(D) bool) map[string]D {
	resolved := make(map[string]D, len(overloads))
	for id, defs := range overloads {
		resolved[id] = pick(defs, applicable)
	}
	return resolved
}

func pick[D scored](defs []D, applicable func(D) bool) D {
	best := defs[0]
	bestApplicable := applicable(best)
	for _, def := range defs[1:] {
		defApplicable := applicable(def)
		switch {
		case defApplicable && !bestApplicable:
			best, bestApplicable = def, true
		case defApplicable == bestApplicable && score(def) > score(best):
			best = def
		}
	}
	return best
}

func score[D scored](def D) int {
	switch def := any(def).(type) {
	case *rules.MetricDef:
		return def.Score
	case *rules.FilterDef:
		return def.Score
	}
	return 0
}
