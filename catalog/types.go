// Package catalog is the in-memory typed view of the introspected database
// schema: objects, columns, foreign keys, derived relationships and
// per-role permissions. It is built once from the JSON introspection
// document (spec §6) and is immutable thereafter; see store.go for the
// swappable-pointer reload path from spec §5.
//
// Grounded on syssam/velox's schema/doc.go (Field/Edge/Index/Mixin
// vocabulary) and compiler/load/schema.go's loader shape, redesigned per
// SPEC_FULL §4.2: loading is a JSON decode, not a Go-package load, since
// restql has no compile/codegen step.
package catalog

import "github.com/restql/restql/ast"

// ObjectKind distinguishes a table from a (typically read-only) view.
type ObjectKind uint8

const (
	Table ObjectKind = iota
	View
)

// Column describes one column of an Object, in catalog declaration order
// (spec §3 "ordered columns").
type Column struct {
	Name       string
	DataType   string
	PrimaryKey bool
	Nullable   bool
	Default    *string
	// IsUUID is true for a "uuid" data_type column, so callers that need
	// to fabricate an example value for one (e.g. a test payload) know to
	// generate a real UUID rather than guess at the column's shape from
	// its name.
	IsUUID bool
}

// ForeignKeyRef describes one outgoing foreign key of an Object.
type ForeignKeyRef struct {
	Name        string // constraint name, used for "!fkname" hints
	Columns     []string
	RefSchema   string
	RefTable    string
	RefColumns  []string
}

// ActionKind is one of the four permitted operations a role may perform on
// a relation.
type ActionKind uint8

const (
	ActionSelect ActionKind = iota
	ActionInsert
	ActionUpdate
	ActionDelete
)

// Grant is one role's permission entry for one relation: the column set
// allowed for that action, plus any policy filter trees to AND into every
// matching node's where clause (spec §3 "declared permissions").
type Grant struct {
	Columns map[ActionKind]map[string]bool
	Policy  map[ActionKind][]*ast.Filter
}

// Allowed reports whether column is permitted for action. An object with
// no Grant entry for a role denies everything — permissions are opt-in.
func (g *Grant) Allowed(action ActionKind, column string) bool {
	if g == nil {
		return false
	}
	cols, ok := g.Columns[action]
	if !ok {
		return false
	}
	return cols[column]
}

// Object is one table or view: its columns, outgoing foreign keys, and the
// per-role grants declared for it.
type Object struct {
	Schema      string
	Name        string
	Kind        ObjectKind
	Columns     []Column
	ForeignKeys []ForeignKeyRef
	Grants      map[string]*Grant // role -> grant

	byColumn map[string]*Column
}

// Column looks up a column by name, O(1) after the first index build.
func (o *Object) Column(name string) (*Column, bool) {
	if o.byColumn == nil {
		o.indexColumns()
	}
	c, ok := o.byColumn[name]
	return c, ok
}

func (o *Object) indexColumns() {
	o.byColumn = make(map[string]*Column, len(o.Columns))
	for i := range o.Columns {
		o.byColumn[o.Columns[i].Name] = &o.Columns[i]
	}
}

// PrimaryKey returns the ordered primary-key column names.
func (o *Object) PrimaryKey() []string {
	var pk []string
	for _, c := range o.Columns {
		if c.PrimaryKey {
			pk = append(pk, c.Name)
		}
	}
	return pk
}

// Schema is a named group of objects, matching a SQL schema/namespace.
type Schema struct {
	Name    string
	Objects map[string]*Object
}

// Catalog is the full, immutable, process-wide schema view. Construction
// never mutates the JSON it was decoded from, except the ClickHouse
// embedded-JSON-as-string pre-pass described in load.go.
type Catalog struct {
	Schemas map[string]*Schema

	// relIndex caches resolved relationships per (schema, object) pair;
	// built once at load time since relationships are pure functions of
	// the catalog's foreign keys.
	relIndex map[relKey][]Relationship
}

// Object resolves (schema, name) to an object handle, or ok=false if the
// relation doesn't exist — the Not Found failure mode of spec §4.4.
func (c *Catalog) Object(schema, name string) (*Object, bool) {
	s, ok := c.Schemas[schema]
	if !ok {
		return nil, false
	}
	o, ok := s.Objects[name]
	return o, ok
}

// HasSchema reports whether profile names an exposed schema, for
// Accept-Profile/Content-Profile validation (spec §6, §7 Unacceptable
// Schema).
func (c *Catalog) HasSchema(profile string) bool {
	_, ok := c.Schemas[profile]
	return ok
}
