// Package ast defines the Abstract Request (AR): the intermediate tree the
// parser produces, the permission layer mutates in place, and the
// formatter consumes exactly once. See spec §3.
//
// Grounded on syssam/velox's schema/doc.go description of the
// Query/Mutation vocabulary (Fields/Edges/Indexes) generalized from a
// compile-time typed client to a runtime tree shaped by request input, and
// on subzero's src/postgrest.rs ApiRequest/QueryNode shape.
package ast

// NodeKind identifies which of the four request shapes a Node represents.
type NodeKind uint8

const (
	Select NodeKind = iota
	Insert
	Update
	Delete
	FunctionCall
)

func (k NodeKind) String() string {
	switch k {
	case Select:
		return "select"
	case Insert:
		return "insert"
	case Update:
		return "update"
	case Delete:
		return "delete"
	case FunctionCall:
		return "function_call"
	default:
		return "unknown"
	}
}

// TableRef names a relation, optionally schema-qualified and aliased.
type TableRef struct {
	Schema string
	Table  string
	Alias  string
}

// Name returns the alias if set, else the bare table name — the identifier
// other nodes use to qualify columns belonging to this relation.
func (t TableRef) Name() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Table
}

// Node is one level of the Abstract Request tree. Exactly one of the
// kind-specific fields is populated, selected by Kind.
type Node struct {
	Kind NodeKind
	From TableRef

	// Select fields (also used for the read-back half of a mutation).
	Select  []SelectItem
	Where   *Filter
	Order   []OrderItem
	Limit   *int
	Offset  *int
	GroupBy []string
	MaxRows *int

	// Insert/Update/Delete fields.
	Payload    *Payload
	Filter     *Filter // alias of Where for mutations; kept distinct per spec §3
	Returning  []SelectItem
	OnConflict *OnConflictSpec
	Resolution Resolution

	// FunctionCall fields.
	Function *FunctionCallSpec

	// SubSelects holds every nested resource embedding requested on this
	// node, each resolved to a concrete Join by the catalog.
	SubSelects []SubSelect
}

// SubSelect pairs a resolved relationship Join with the nested AR node
// that will be embedded under it.
type SubSelect struct {
	Join Join
	Node *Node
}

// JoinKind is the shape of a resolved relationship (spec §3).
type JoinKind uint8

const (
	// Parent: FK lives on this node's table, referencing one row of Node.
	Parent JoinKind = iota
	// Child: FK lives on the embedded table, referencing many rows.
	Child
	// Many: relationship mediated by a junction table with two FKs.
	Many
)

func (k JoinKind) String() string {
	switch k {
	case Parent:
		return "parent"
	case Child:
		return "child"
	case Many:
		return "many"
	default:
		return "unknown"
	}
}

// Join describes how a sub-select's relation connects back to its parent.
type Join struct {
	Kind JoinKind
	Name string // the FK constraint name (or synthesized name) that resolved this join

	// Columns on "this" side and "that" side of a direct FK, in matching
	// order. For both Parent and Child, "this" is the parent (outer) node
	// and "that" is the embedded node.
	ThisColumns []string
	ThatColumns []string

	// Junction is populated only for Kind == Many.
	Junction        *TableRef
	JunctionThisFK  []string // junction columns referencing the parent
	JunctionThatFK  []string // junction columns referencing the embedded relation
}

// Resolution names the conflict-handling strategy for an insert (spec §4.4
// step 5, "Prefer: resolution=...").
type Resolution uint8

const (
	ResolutionNone Resolution = iota
	MergeDuplicates
	IgnoreDuplicates
)

// OnConflictSpec carries the target columns and chosen resolution for an
// upsert (spec §4.6 "on_conflict").
type OnConflictSpec struct {
	Columns    []string
	Resolution Resolution
}

// Payload is the decoded request body for a mutation: either the exact
// rows supplied (JSON object, JSON array of objects with identical keys,
// or CSV rows), plus the optional ?columns= whitelist.
type Payload struct {
	Rows    []map[string]any
	Columns []string // whitelist from ?columns=, empty when absent
}

// FunctionCallSpec is a stored-procedure invocation (POST/GET /rpc/<fn>).
type FunctionCallSpec struct {
	Schema        string
	Name          string
	Args          map[string]any
	SingleObject  bool // Prefer: params=single-object
	ReturnsScalar bool
}
