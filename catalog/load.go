package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/restql/restql/ast"
)

// doc mirrors the JSON introspection document from spec §6: schemas,
// objects, columns, foreign keys and (optionally) permissions.
type doc struct {
	Schemas []docSchema `json:"schemas"`
}

type docSchema struct {
	Name    string       `json:"name"`
	Objects []docObject  `json:"objects"`
}

type docObject struct {
	Name        string          `json:"name"`
	Kind        string          `json:"kind"` // "table" | "view"
	Columns     []docColumn     `json:"columns"`
	ForeignKeys []docForeignKey `json:"foreign_keys"`
	Permissions []docPermission `json:"permissions"`
}

type docColumn struct {
	Name       string  `json:"name"`
	DataType   string  `json:"data_type"`
	PrimaryKey bool    `json:"primary_key"`
	Nullable   bool    `json:"nullable"`
	Default    *string `json:"default"`
}

type docForeignKey struct {
	Name              string   `json:"name"`
	Table             []string `json:"table"` // [schema, name] of the owning table, usually redundant with enclosing object
	Columns           []string `json:"columns"`
	ReferencedTable   []string `json:"referenced_table"`
	ReferencedColumns []string `json:"referenced_columns"`
}

type docPermission struct {
	Role   string              `json:"role"`
	Select *docActionGrant     `json:"select,omitempty"`
	Insert *docActionGrant     `json:"insert,omitempty"`
	Update *docActionGrant     `json:"update,omitempty"`
	Delete *docActionGrant     `json:"delete,omitempty"`
}

type docActionGrant struct {
	Columns []string        `json:"columns"`
	Policy  json.RawMessage `json:"policy,omitempty"` // decoded lazily; see policyFromJSON
}

// Load decodes the JSON introspection document described in spec §6 and
// builds an immutable Catalog, deriving Parent/Child/Many relationships
// from the declared foreign keys.
//
// dialect selects a pre-pass: ClickHouse's system tables round-trip some
// nested structures (notably "policy") as a JSON-encoded string rather
// than nested JSON, so for that one dialect Load first re-parses any
// string-typed "policy" field into real JSON before the normal decode
// (spec §4.2: "construction never modifies the JSON content except, for
// one dialect, a pre-pass that parses embedded JSON-as-string fields").
func Load(raw []byte, dialect string) (*Catalog, error) {
	if dialect == "clickhouse" {
		var err error
		raw, err = unwrapEmbeddedJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("catalog: clickhouse pre-pass: %w", err)
		}
	}

	var d doc
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("catalog: decode introspection document: %w", err)
	}

	c := &Catalog{Schemas: make(map[string]*Schema, len(d.Schemas))}
	for _, ds := range d.Schemas {
		s := &Schema{Name: ds.Name, Objects: make(map[string]*Object, len(ds.Objects))}
		for _, do := range ds.Objects {
			obj, err := buildObject(ds.Name, do)
			if err != nil {
				return nil, err
			}
			s.Objects[do.Name] = obj
		}
		c.Schemas[ds.Name] = s
	}
	c.buildRelationships()
	return c, nil
}

func buildObject(schemaName string, do docObject) (*Object, error) {
	kind := Table
	if do.Kind == "view" {
		kind = View
	}
	obj := &Object{
		Schema: schemaName,
		Name:   do.Name,
		Kind:   kind,
		Grants: make(map[string]*Grant, len(do.Permissions)),
	}
	for _, dc := range do.Columns {
		obj.Columns = append(obj.Columns, Column{
			Name:       dc.Name,
			DataType:   dc.DataType,
			PrimaryKey: dc.PrimaryKey,
			Nullable:   dc.Nullable,
			Default:    dc.Default,
			IsUUID:     dc.DataType == "uuid",
		})
	}
	for _, dfk := range do.ForeignKeys {
		fk := ForeignKeyRef{
			Name:       dfk.Name,
			Columns:    dfk.Columns,
			RefColumns: dfk.ReferencedColumns,
		}
		if len(dfk.ReferencedTable) == 2 {
			fk.RefSchema, fk.RefTable = dfk.ReferencedTable[0], dfk.ReferencedTable[1]
		} else if len(dfk.ReferencedTable) == 1 {
			fk.RefSchema, fk.RefTable = schemaName, dfk.ReferencedTable[0]
		}
		obj.ForeignKeys = append(obj.ForeignKeys, fk)
	}
	for _, dp := range do.Permissions {
		grant := &Grant{
			Columns: make(map[ActionKind]map[string]bool),
			Policy:  make(map[ActionKind][]*ast.Filter),
		}
		if err := applyGrant(grant, ActionSelect, dp.Select); err != nil {
			return nil, err
		}
		if err := applyGrant(grant, ActionInsert, dp.Insert); err != nil {
			return nil, err
		}
		if err := applyGrant(grant, ActionUpdate, dp.Update); err != nil {
			return nil, err
		}
		if err := applyGrant(grant, ActionDelete, dp.Delete); err != nil {
			return nil, err
		}
		obj.Grants[dp.Role] = grant
	}
	obj.indexColumns()
	return obj, nil
}

func applyGrant(g *Grant, action ActionKind, dg *docActionGrant) error {
	if dg == nil {
		return nil
	}
	cols := make(map[string]bool, len(dg.Columns))
	for _, c := range dg.Columns {
		cols[c] = true
	}
	g.Columns[action] = cols
	if len(dg.Policy) > 0 {
		filters, err := policyFromJSON(dg.Policy)
		if err != nil {
			return err
		}
		g.Policy[action] = filters
	}
	return nil
}

// policyPayload is the on-the-wire shape of one policy filter tree; it
// reuses the filter grammar's own JSON encoding so policies authored
// server-side use the same vocabulary as client-supplied filters.
type policyPayload struct {
	Field string          `json:"field,omitempty"`
	Op    string          `json:"op,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`

	Connective string           `json:"connective,omitempty"`
	Children   []*policyPayload `json:"children,omitempty"`
	Negated    bool             `json:"negated,omitempty"`
}

func policyFromJSON(raw json.RawMessage) ([]*ast.Filter, error) {
	var payloads []*policyPayload
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return nil, fmt.Errorf("catalog: decode policy: %w", err)
	}
	filters := make([]*ast.Filter, 0, len(payloads))
	for _, p := range payloads {
		f, err := policyPayloadToFilter(p)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

func policyPayloadToFilter(p *policyPayload) (*ast.Filter, error) {
	if p.Connective != "" {
		children := make([]*ast.Filter, 0, len(p.Children))
		for _, c := range p.Children {
			cf, err := policyPayloadToFilter(c)
			if err != nil {
				return nil, err
			}
			children = append(children, cf)
		}
		conn := ast.And
		if p.Connective == "or" {
			conn = ast.Or
		}
		return &ast.Filter{Connective: conn, Children: children, Negated: p.Negated}, nil
	}
	var v any
	if len(p.Value) > 0 {
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return nil, fmt.Errorf("catalog: decode policy value: %w", err)
		}
	}
	return &ast.Filter{
		Field:   ast.Field{Name: p.Field},
		Op:      operatorFromString(p.Op),
		Value:   v,
		Negated: p.Negated,
	}, nil
}

func operatorFromString(s string) ast.Operator {
	switch s {
	case "neq":
		return ast.Neq
	case "lt":
		return ast.Lt
	case "lte":
		return ast.Lte
	case "gt":
		return ast.Gt
	case "gte":
		return ast.Gte
	case "like":
		return ast.Like
	case "ilike":
		return ast.ILike
	case "in":
		return ast.In
	case "is":
		return ast.Is
	default:
		return ast.Eq
	}
}

// unwrapEmbeddedJSON re-parses any "policy" value, at any depth, that was
// delivered as a JSON-encoded string (ClickHouse system tables quirk)
// back into a real JSON value, leaving everything else untouched.
func unwrapEmbeddedJSON(raw []byte) ([]byte, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	walkUnwrap(generic)
	return json.Marshal(generic)
}

func walkUnwrap(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if k == "policy" {
				if s, ok := val.(string); ok {
					var nested any
					if json.Unmarshal([]byte(s), &nested) == nil {
						t[k] = nested
						continue
					}
				}
			}
			walkUnwrap(val)
		}
	case []any:
		for _, e := range t {
			walkUnwrap(e)
		}
	}
}
