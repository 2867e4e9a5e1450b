package rules

import (
	"fmt"

	"github.com/leapstack-labs/leapdash/internal/semtype"
)

// Problem is a single validation finding for a rule.
type Problem struct {
	Rule    string
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Rule, p.Message)
}

// Validate checks a rule against the type lattice and its own internal
// references. The generator assumes rules are well-formed; this is the
// upstream check that earns that assumption.
func Validate(r *Rule, types *semtype.Registry, isGA func(string) bool) []Problem {
	var problems []Problem
	report := func(format string, args ...any) {
		problems = append(problems, Problem{Rule: r.Name, Message: fmt.Sprintf(format, args...)})
	}

	if !types.Known(r.TableType) {
		report("unknown table_type %q", r.TableType)
	}
	if r.MaxScore <= 0 {
		report("max_score must be positive, got %d", r.MaxScore)
	}

	dims := make(map[string]struct{})
	for _, d := range r.Dimensions {
		dims[d.ID] = struct{}{}

		def := d.Def
		if len(def.FieldType) == 2 && !types.Known(semtype.Type(def.FieldType[0])) {
			report("dimension %s: unknown table type %q", d.ID, def.FieldType[0])
		}
		fieldSpec := def.FieldType[len(def.FieldType)-1]
		if !isGA(fieldSpec) && !types.Known(semtype.Type(fieldSpec)) {
			report("dimension %s: unknown field type %q", d.ID, fieldSpec)
		}
		if def.LinksTo != "" && !types.Known(def.LinksTo) {
			report("dimension %s: unknown links_to type %q", d.ID, def.LinksTo)
		}
		if def.Score < 0 || def.Score > r.MaxScore {
			report("dimension %s: score %d outside [0, %d]", d.ID, def.Score, r.MaxScore)
		}
	}

	checkRefs := func(kind, id string, refs []string) {
		for _, ref := range refs {
			if _, ok := dims[ref]; !ok {
				report("%s %s references unknown dimension %q", kind, id, ref)
			}
		}
	}

	for id, defs := range r.Metrics {
		for _, def := range defs {
			checkRefs("metric", id, def.DimensionRefs())
			if def.Score < 0 || def.Score > r.MaxScore {
				report("metric %s: score %d outside [0, %d]", id, def.Score, r.MaxScore)
			}
		}
	}
	for id, defs := range r.Filters {
		for _, def := range defs {
			checkRefs("filter", id, def.DimensionRefs())
			if def.Score < 0 || def.Score > r.MaxScore {
				report("filter %s: score %d outside [0, %d]", id, def.Score, r.MaxScore)
			}
		}
	}

	for _, c := range r.Cards {
		spec := c.Spec
		checkRefs("card", c.ID, spec.Dimensions)
		for _, m := range spec.Metrics {
			if _, ok := r.Metrics[m]; !ok {
				report("card %s references unknown metric %q", c.ID, m)
			}
		}
		for _, f := range spec.Filters {
			if _, ok := r.Filters[f]; !ok {
				report("card %s references unknown filter %q", c.ID, f)
			}
		}
		for _, ob := range spec.OrderBy {
			if _, isDim := dims[ob.ID]; isDim {
				continue
			}
			if !contains(spec.Metrics, ob.ID) {
				report("card %s orders by %q, which is neither a card dimension nor a card metric", c.ID, ob.ID)
			}
		}
		if spec.Score < 0 || spec.Score > r.MaxScore {
			report("card %s: score %d outside [0, %d]", c.ID, spec.Score, r.MaxScore)
		}
	}

	return problems
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
