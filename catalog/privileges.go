package catalog

import "github.com/restql/restql/ast"

// GrantFor looks up the (role, relation) permission entry, returning
// ok=false when the role has no grant at all on that relation (which
// denies every action, per spec §3 "permissions are opt-in").
func (c *Catalog) GrantFor(role, schema, object string) (*Grant, bool) {
	obj, ok := c.Object(schema, object)
	if !ok {
		return nil, false
	}
	g, ok := obj.Grants[role]
	return g, ok
}

// AllowedColumns returns the full column-name set a role may use for
// action on (schema, object); a nil map from a missing grant behaves as
// empty under map indexing, so callers don't need a second existence
// check.
func (c *Catalog) AllowedColumns(role string, action ActionKind, schema, object string) map[string]bool {
	g, ok := c.GrantFor(role, schema, object)
	if !ok {
		return nil
	}
	return g.Columns[action]
}

// PolicyConditions returns the policy filter trees declared for (role,
// action, relation), to be AND-conjoined into the node's where clause by
// the permission layer (spec §4.2 policy_conditions / §4.5 step 3).
func (c *Catalog) PolicyConditions(role string, action ActionKind, schema, object string) []*ast.Filter {
	g, ok := c.GrantFor(role, schema, object)
	if !ok {
		return nil
	}
	return g.Policy[action]
}
