package ast

// Field references a column, optionally on an embedded relation (a
// "table.column" filter key, spec §3 invariant), optionally followed by a
// sequence of JSON path accessors.
type Field struct {
	Table string // empty means "this node's own relation"
	Name  string
	Path  []JSONStep
}

// JSONStep is one `->key` / `->>key` / `->index` accessor in a chain. Text
// is true only on the terminal `->>` step; every non-terminal step (and
// every `->` step regardless of position) yields json, per spec §9.
type JSONStep struct {
	Key   string // set when indexing by object key
	Index *int   // set when indexing by array position (supports negative)
	Text  bool   // true for ->>, false for ->
}

// SelectItemKind discriminates the four shapes a select/returning entry
// can take (spec §3).
type SelectItemKind uint8

const (
	SimpleItem SelectItemKind = iota
	JSONPathItem
	FunctionItem
	LiteralItem
)

// SelectItem is one entry of a node's select (or returning) list, or — when
// nested inside another SelectItem's Args — one argument of a function
// application (spec §3: "a field, literal, or another application").
//
// Kind == SimpleItem:   FieldRef is set, Args/Name/Window are zero.
// Kind == JSONPathItem: FieldRef.Path is non-empty.
// Kind == FunctionItem: Name and Args are set; Window is set iff the
//
//	caller supplied -p(...)/-o(...) suffixes, turning it into a window
//	expression rather than a plain aggregate.
//
// Kind == LiteralItem:  Literal holds the parsed Go value (string or
//
//	float64); only ever appears as a function argument, never as a
//	top-level select/returning entry.
type SelectItem struct {
	Kind     SelectItemKind
	FieldRef Field
	Alias    string
	Cast     string // dialect-validated cast target name, empty if none

	Name   string       // function name, without the leading "$"
	Args   []SelectItem // each arg is itself a field, literal, or nested application
	Window *WindowSpec

	Literal any // set when Kind == LiteralItem
}

// WindowSpec turns a FunctionItem into a window expression.
type WindowSpec struct {
	PartitionBy []Field
	OrderBy     []OrderItem
}

// OrderDirection and OrderNulls are the two optional qualifiers on an
// ordering field (spec §4.3 "Ordering syntax").
type OrderDirection uint8

const (
	OrderDefault OrderDirection = iota
	Asc
	Desc
)

type OrderNulls uint8

const (
	NullsDefault OrderNulls = iota
	NullsFirst
	NullsLast
)

// OrderItem is one comma-separated entry of an `order=` value.
type OrderItem struct {
	Field     Field
	Direction OrderDirection
	Nulls     OrderNulls
}
