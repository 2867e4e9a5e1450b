// Package query defines the analytical query tree produced by dashboard
// generation, the reference resolver that renders bound schema entities
// into it, and the template substitution that instantiates rule
// placeholders.
package query

import "fmt"

// Expr is a node in a query expression tree. Expressions are loaded from
// rule files as nested lists with a string head and serialized back to
// the same shape with Form.
type Expr interface {
	// Form returns the serializable list form of the expression.
	Form() any
	exprNode()
}

// FieldRef references a concrete field by id. Form: ["field-id", id].
type FieldRef struct {
	FieldID int64
}

// FKRef references a field on a linked table through a foreign key on the
// source table. Form: ["fk->", link, id].
type FKRef struct {
	LinkFieldID int64
	FieldID     int64
}

// DatetimeField wraps a temporal field reference with an aggregation
// unit. Form: ["datetime-field", field, unit].
type DatetimeField struct {
	Field Expr
	Unit  string
}

// Dimension is an unbound placeholder naming a rule dimension. It is
// replaced by a concrete reference during card expansion.
// Form: ["dimension", id].
type Dimension struct {
	ID string
}

// AggregateField references an aggregation clause by position, used in
// order-by targets. Form: ["aggregate-field", index].
type AggregateField struct {
	Index int
}

// And combines filter clauses. Form: ["and", f1, f2, ...].
type And struct {
	Clauses []Expr
}

// Literal is a scalar leaf: a number, string or bool from the rule file.
type Literal struct {
	Value any
}

// Sexp is any operation form the engine has no special handling for, e.g.
// ["count"] or ["sum", ["dimension", "Income"]]. It passes through
// substitution with only its arguments rewritten.
type Sexp struct {
	Op   string
	Args []Expr
}

func (*FieldRef) exprNode()       {}
func (*FKRef) exprNode()          {}
func (*DatetimeField) exprNode()  {}
func (*Dimension) exprNode()      {}
func (*AggregateField) exprNode() {}
func (*And) exprNode()            {}
func (*Literal) exprNode()        {}
func (*Sexp) exprNode()           {}

// Form implementations.

func (e *FieldRef) Form() any { return []any{"field-id", e.FieldID} }

func (e *FKRef) Form() any { return []any{"fk->", e.LinkFieldID, e.FieldID} }

func (e *DatetimeField) Form() any {
	return []any{"datetime-field", e.Field.Form(), e.Unit}
}

func (e *Dimension) Form() any { return []any{"dimension", e.ID} }

func (e *AggregateField) Form() any { return []any{"aggregate-field", e.Index} }

func (e *And) Form() any {
	form := make([]any, 0, len(e.Clauses)+1)
	form = append(form, "and")
	for _, c := range e.Clauses {
		form = append(form, c.Form())
	}
	return form
}

func (e *Literal) Form() any { return e.Value }

func (e *Sexp) Form() any {
	form := make([]any, 0, len(e.Args)+1)
	form = append(form, e.Op)
	for _, a := range e.Args {
		form = append(form, a.Form())
	}
	return form
}

// ParseForm parses a value loaded from YAML or JSON into an expression
// tree. Lists with a string head become operation nodes; recognized heads
// get dedicated node types, everything else becomes a Sexp. Scalars
// become literals.
func ParseForm(v any) (Expr, error) {
	switch v := v.(type) {
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty expression form")
		}
		head, ok := v[0].(string)
		if !ok {
			return nil, fmt.Errorf("expression head must be a string, got %T", v[0])
		}
		return parseOp(head, v[1:])
	case nil:
		return nil, fmt.Errorf("nil expression form")
	default:
		return &Literal{Value: v}, nil
	}
}

func parseOp(head string, args []any) (Expr, error) {
	switch head {
	case "dimension":
		if len(args) != 1 {
			return nil, fmt.Errorf("dimension form takes one argument, got %d", len(args))
		}
		id, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("dimension identifier must be a string, got %T", args[0])
		}
		return &Dimension{ID: id}, nil

	case "field-id":
		if len(args) != 1 {
			return nil, fmt.Errorf("field-id form takes one argument, got %d", len(args))
		}
		id, err := asInt64(args[0])
		if err != nil {
			return nil, fmt.Errorf("field-id: %w", err)
		}
		return &FieldRef{FieldID: id}, nil

	case "fk->":
		if len(args) != 2 {
			return nil, fmt.Errorf("fk-> form takes two arguments, got %d", len(args))
		}
		link, err := asInt64(args[0])
		if err != nil {
			return nil, fmt.Errorf("fk->: %w", err)
		}
		id, err := asInt64(args[1])
		if err != nil {
			return nil, fmt.Errorf("fk->: %w", err)
		}
		return &FKRef{LinkFieldID: link, FieldID: id}, nil

	case "datetime-field":
		if len(args) != 2 {
			return nil, fmt.Errorf("datetime-field form takes two arguments, got %d", len(args))
		}
		field, err := ParseForm(args[0])
		if err != nil {
			return nil, err
		}
		unit, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("datetime-field unit must be a string, got %T", args[1])
		}
		return &DatetimeField{Field: field, Unit: unit}, nil

	case "aggregate-field":
		if len(args) != 1 {
			return nil, fmt.Errorf("aggregate-field form takes one argument, got %d", len(args))
		}
		idx, err := asInt64(args[0])
		if err != nil {
			return nil, fmt.Errorf("aggregate-field: %w", err)
		}
		return &AggregateField{Index: int(idx)}, nil

	case "and":
		clauses, err := parseArgs(args)
		if err != nil {
			return nil, err
		}
		return &And{Clauses: clauses}, nil

	default:
		parsed, err := parseArgs(args)
		if err != nil {
			return nil, err
		}
		return &Sexp{Op: head, Args: parsed}, nil
	}
}

func parseArgs(args []any) ([]Expr, error) {
	parsed := make([]Expr, 0, len(args))
	for _, a := range args {
		e, err := ParseForm(a)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, e)
	}
	return parsed, nil
}

func asInt64(v any) (int64, error) {
	switch v := v.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

// DimensionRefs returns the distinct dimension identifiers referenced
// anywhere in the expression, in first-appearance order.
func DimensionRefs(e Expr) []string {
	var refs []string
	seen := make(map[string]struct{})

	var walk func(Expr)
	walk = func(e Expr) {
		switch e := e.(type) {
		case *Dimension:
			if _, ok := seen[e.ID]; !ok {
				seen[e.ID] = struct{}{}
				refs = append(refs, e.ID)
			}
		case *DatetimeField:
			walk(e.Field)
		case *And:
			for _, c := range e.Clauses {
				walk(c)
			}
		case *Sexp:
			for _, a := range e.Args {
				walk(a)
			}
		}
	}
	if e != nil {
		walk(e)
	}
	return refs
}
