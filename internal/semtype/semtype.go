// Package semtype implements the semantic type lattice that dashboard
// rules are written against. Types form a single-inheritance hierarchy;
// rule matching is driven by the reflexive transitive is-a relation.
package semtype

// Type is a semantic type identifier, e.g. "Number" or "CreationTimestamp".
// Semantic types classify the meaning of fields and tables, not their
// storage representation.
type Type string

// Field type roots and descendants.
const (
	Number  Type = "Number"
	Integer Type = "Integer"
	Float   Type = "Float"
	Decimal Type = "Decimal"

	Quantity  Type = "Quantity"
	Income    Type = "Income"
	Discount  Type = "Discount"
	Latitude  Type = "Latitude"
	Longitude Type = "Longitude"

	Temporal          Type = "Temporal"
	Date              Type = "Date"
	Time              Type = "Time"
	DateTime          Type = "DateTime"
	CreationTimestamp Type = "CreationTimestamp"
	JoinTimestamp     Type = "JoinTimestamp"

	Text        Type = "Text"
	Name        Type = "Name"
	Title       Type = "Title"
	Description Type = "Description"
	Category    Type = "Category"
	City        Type = "City"
	State       Type = "State"
	Country     Type = "Country"
	ZipCode     Type = "ZipCode"
	URL         Type = "URL"
	Email       Type = "Email"

	Boolean Type = "Boolean"

	// Structural markers for key fields.
	PK Type = "PK"
	FK Type = "FK"
)

// Table entity types.
const (
	GenericTable     Type = "GenericTable"
	TransactionTable Type = "TransactionTable"
	EventTable       Type = "EventTable"
	UserTable        Type = "UserTable"
	ProductTable     Type = "ProductTable"
	CompanyTable     Type = "CompanyTable"
)

// Registry holds the declared parent edges of the lattice. The lattice is
// closed-world: every type referenced by a rule must be registered.
type Registry struct {
	parents map[Type]Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{parents: make(map[Type]Type)}
}

// Register declares a type and its parent. Root types are registered with
// an empty parent.
func (r *Registry) Register(child, parent Type) {
	r.parents[child] = parent
}

// Known reports whether t has been registered.
func (r *Registry) Known(t Type) bool {
	_, ok := r.parents[t]
	return ok
}

// IsA reports whether child is ancestor or a descendant of it. Unknown
// types are only is-a themselves when registered; the empty type is never
// is-a anything.
func (r *Registry) IsA(child, ancestor Type) bool {
	if child == "" || ancestor == "" {
		return false
	}
	if !r.Known(child) {
		return false
	}
	for t := child; t != ""; {
		if t == ancestor {
			return true
		}
		parent, ok := r.parents[t]
		if !ok {
			return false
		}
		t = parent
	}
	return false
}

// AncestorChain returns the chain from t up to its root, t first.
// Unknown types yield a single-element chain.
func (r *Registry) AncestorChain(t Type) []Type {
	chain := []Type{t}
	for {
		parent, ok := r.parents[t]
		if !ok || parent == "" {
			return chain
		}
		chain = append(chain, parent)
		t = parent
	}
}

// AncestorCount returns the length of AncestorChain(t). More specific
// types have longer chains; rule selection prefers the longest.
func (r *Registry) AncestorCount(t Type) int {
	return len(r.AncestorChain(t))
}

// Builtin returns a registry populated with the built-in field and table
// type lattices.
func Builtin() *Registry {
	r := NewRegistry()

	roots := []Type{Number, Temporal, Text, Boolean, PK, FK, GenericTable}
	for _, t := range roots {
		r.Register(t, "")
	}

	edges := map[Type]Type{
		Integer: Number,
		Float:   Number,
		Decimal: Number,

		Quantity:  Integer,
		Income:    Float,
		Discount:  Float,
		Latitude:  Float,
		Longitude: Float,

		Date:              Temporal,
		Time:              Temporal,
		DateTime:          Temporal,
		CreationTimestamp: DateTime,
		JoinTimestamp:     DateTime,

		Name:        Text,
		Title:       Text,
		Description: Text,
		Category:    Text,
		City:        Text,
		State:       Text,
		Country:     Text,
		ZipCode:     Text,
		URL:         Text,
		Email:       Text,

		TransactionTable: GenericTable,
		EventTable:       GenericTable,
		UserTable:        GenericTable,
		ProductTable:     GenericTable,
		CompanyTable:     GenericTable,
	}
	for child, parent := range edges {
		r.Register(child, parent)
	}

	return r
}
