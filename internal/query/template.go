package query

import (
	"fmt"
	"regexp"

	"github.com/leapstack-labs/leapdash/internal/semtype"
)

// placeholderPattern matches [[identifier]] tokens in rule strings.
var placeholderPattern = regexp.MustCompile(`\[\[([A-Za-z0-9_.\-]+)\]\]`)

// EntityLookup resolves an identifier that is not in the bindings map,
// typically an entity reference such as "this" or a table-type name.
// It reports whether the identifier resolved.
type EntityLookup func(id string) (any, bool)

// SubstituteString replaces every [[identifier]] token in s. Identifiers
// resolve against the bindings map first, then through lookup; both
// results are rendered with Reference. Identifiers that resolve neither
// way are spliced in as-is.
func SubstituteString(types *semtype.Registry, tt TemplateType, s string, bindings map[string]any, lookup EntityLookup) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		id := placeholderPattern.FindStringSubmatch(match)[1]

		var target any
		if v, ok := bindings[id]; ok {
			target = v
		} else if lookup != nil {
			if v, ok := lookup(id); ok {
				target = v
			} else {
				return id
			}
		} else {
			return id
		}

		rendered := Reference(types, tt, target)
		if s, ok := rendered.(string); ok {
			return s
		}
		return fmt.Sprint(rendered)
	})
}

// SubstituteExpr rewrites the expression tree post-order, replacing every
// Dimension node whose identifier is bound with the structured reference
// of its binding. Unbound dimensions and all other nodes pass through.
func SubstituteExpr(types *semtype.Registry, e Expr, bindings map[string]any) Expr {
	if e == nil {
		return nil
	}
	switch e := e.(type) {
	case *Dimension:
		target, ok := bindings[e.ID]
		if !ok {
			return e
		}
		if ref, ok := Reference(types, TemplateStructured, target).(Expr); ok {
			return ref
		}
		return e

	case *DatetimeField:
		return &DatetimeField{
			Field: SubstituteExpr(types, e.Field, bindings),
			Unit:  e.Unit,
		}

	case *And:
		clauses := make([]Expr, len(e.Clauses))
		for i, c := range e.Clauses {
			clauses[i] = SubstituteExpr(types, c, bindings)
		}
		return &And{Clauses: clauses}

	case *Sexp:
		args := make([]Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = SubstituteExpr(types, a, bindings)
		}
		return &Sexp{Op: e.Op, Args: args}

	default:
		return e
	}
}

// Placeholders returns the identifiers of all [[identifier]] tokens in s,
// in first-appearance order.
func Placeholders(s string) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := seen[m[1]]; !ok {
			seen[m[1]] = struct{}{}
			ids = append(ids, m[1])
		}
	}
	return ids
}
