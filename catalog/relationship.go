package catalog

import (
	"fmt"

	"github.com/restql/restql/apperr"
	"github.com/restql/restql/ast"
)

// ObjectRef names a schema-qualified object without holding a pointer to
// it, so Relationship values stay cheap to copy and compare.
type ObjectRef struct {
	Schema string
	Name   string
}

// Relationship is one resolved (or candidate) connection between two
// objects, derived from foreign keys at load time. FindRelationship
// returns exactly one of these, or an *apperr.Error (Ambiguous/NotFound).
type Relationship struct {
	Kind   ast.JoinKind
	Name   string // FK constraint name, or the junction table name for Many
	From   ObjectRef
	To     ObjectRef

	ThisColumns []string
	ThatColumns []string

	Junction       *ObjectRef
	JunctionThisFK []string
	JunctionThatFK []string
}

// Join converts a resolved Relationship into the ast.Join the parser
// attaches to a SubSelect.
func (r Relationship) Join() ast.Join {
	return ast.Join{
		Kind:           r.Kind,
		Name:           r.Name,
		ThisColumns:    r.ThisColumns,
		ThatColumns:    r.ThatColumns,
		Junction:       junctionTableRef(r.Junction),
		JunctionThisFK: r.JunctionThisFK,
		JunctionThatFK: r.JunctionThatFK,
	}
}

func junctionTableRef(r *ObjectRef) *ast.TableRef {
	if r == nil {
		return nil
	}
	return &ast.TableRef{Schema: r.Schema, Table: r.Name}
}

type relKey struct {
	schema, name string
}

// buildRelationships derives every Parent/Child/Many relationship implied
// by the catalog's foreign keys and indexes them by (schema, object) so
// FindRelationship never re-scans the whole catalog per request.
func (c *Catalog) buildRelationships() {
	c.relIndex = make(map[relKey][]Relationship)

	type fkOwner struct {
		ref ObjectRef
		fk  ForeignKeyRef
	}
	var allFKs []fkOwner
	for schemaName, schema := range c.Schemas {
		for objName, obj := range schema.Objects {
			for _, fk := range obj.ForeignKeys {
				allFKs = append(allFKs, fkOwner{ref: ObjectRef{Schema: schemaName, Name: objName}, fk: fk})
			}
		}
	}

	// Parent relationships: for each FK on an object, the object is a
	// "child" pointing at a single parent row.
	for _, o := range allFKs {
		to := ObjectRef{Schema: o.fk.RefSchema, Name: o.fk.RefTable}
		rel := Relationship{
			Kind:        ast.Parent,
			Name:        o.fk.Name,
			From:        o.ref,
			To:          to,
			ThisColumns: o.fk.Columns,
			ThatColumns: o.fk.RefColumns,
		}
		c.addRel(o.ref, rel)

		// Child relationship, symmetric: from the parent's perspective,
		// the FK owner is a many-row child collection.
		childRel := Relationship{
			Kind:        ast.Child,
			Name:        o.fk.Name,
			From:        to,
			To:          o.ref,
			ThisColumns: o.fk.RefColumns,
			ThatColumns: o.fk.Columns,
		}
		c.addRel(to, childRel)
	}

	// Many-to-many: two distinct FKs on the same junction object pointing
	// at two distinct endpoints.
	byJunction := map[ObjectRef][]fkOwner{}
	for _, o := range allFKs {
		byJunction[o.ref] = append(byJunction[o.ref], o)
	}
	for junction, fks := range byJunction {
		for i := range fks {
			for j := range fks {
				if i == j {
					continue
				}
				a, b := fks[i], fks[j]
				aTo := ObjectRef{Schema: a.fk.RefSchema, Name: a.fk.RefTable}
				bTo := ObjectRef{Schema: b.fk.RefSchema, Name: b.fk.RefTable}
				if aTo == bTo {
					continue // self-junction on the same endpoint, not a useful M2M
				}
				jref := junction
				rel := Relationship{
					Kind:           ast.Many,
					Name:           junction.Name,
					From:           aTo,
					To:             bTo,
					Junction:       &jref,
					JunctionThisFK: a.fk.Columns,
					JunctionThatFK: b.fk.Columns,
				}
				c.addRel(aTo, rel)
			}
		}
	}
}

func (c *Catalog) addRel(owner ObjectRef, rel Relationship) {
	k := relKey{owner.Schema, owner.Name}
	c.relIndex[k] = append(c.relIndex[k], rel)
}

// FindRelationship resolves a user embed hint against from's relationships
// toward (toSchema, toName), using the five-tier priority from spec §4.2:
//
//	(a) explicit "!fkname"
//	(b) explicit "!junction_table" for many-to-many
//	(c) single child FK pointing at to_object
//	(d) single parent column matching to_object PK
//	(e) single junction
//
// Ambiguity at the lowest tier reached is reported rather than guessed.
func (c *Catalog) FindRelationship(from ObjectRef, toSchema, toName, hint string) (Relationship, error) {
	candidates := c.relIndex[relKey{from.Schema, from.Name}]
	var toward []Relationship
	for _, r := range candidates {
		if r.To.Name == toName && (toSchema == "" || r.To.Schema == toSchema) {
			toward = append(toward, r)
		}
	}

	if hint != "" {
		var named []Relationship
		for _, r := range toward {
			if r.Name == hint {
				named = append(named, r)
			}
		}
		switch len(named) {
		case 0:
			return Relationship{}, &apperr.Error{
				Kind:    apperr.KindNotFound,
				Message: "Not Found",
				Details: fmt.Sprintf("no relationship named %q between %q and %q", hint, from.Name, toName),
			}
		case 1:
			return named[0], nil
		default:
			return Relationship{}, ambiguousError(from.Name, toName, named)
		}
	}

	tiers := [][]Relationship{
		filterKind(toward, ast.Child),
		filterKind(toward, ast.Parent),
		filterKind(toward, ast.Many),
	}
	for _, tier := range tiers {
		switch len(tier) {
		case 0:
			continue
		case 1:
			return tier[0], nil
		default:
			return Relationship{}, ambiguousError(from.Name, toName, tier)
		}
	}

	return Relationship{}, &apperr.Error{
		Kind:    apperr.KindNotFound,
		Message: "Not Found",
		Details: fmt.Sprintf("no relationship found between %q and %q", from.Name, toName),
	}
}

func filterKind(rels []Relationship, k ast.JoinKind) []Relationship {
	var out []Relationship
	for _, r := range rels {
		if r.Kind == k {
			out = append(out, r)
		}
	}
	return out
}

func ambiguousError(from, to string, candidates []Relationship) *apperr.Error {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = fmt.Sprintf("%s!%s", to, c.Name)
	}
	return apperr.Ambiguous(fmt.Sprintf("%s->%s", from, to), names)
}
