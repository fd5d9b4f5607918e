// Package permission is the layer that walks an already-parsed Abstract
// Request and mutates it in place: expanding `select *`, checking every
// referenced column against the resolved role's grants, rejecting unsafe
// function calls, and injecting policy filters at the front of each node's
// where clause (spec §4.5).
//
// Grounded on privacy/privacy.go's Allow/Deny/Skip rule vocabulary,
// generalized here from a compile-time typed rule chain into a single
// catalog-driven column/policy check, since restql resolves permissions
// from the introspected grant table rather than from Go-level rule
// functions.
package permission

import (
	"github.com/restql/restql/apperr"
	"github.com/restql/restql/ast"
	"github.com/restql/restql/catalog"
)

// DefaultSafeFunctions is the select-time function allow-list used when
// Check is called with a nil safeFunctions map (spec §9: "configurable,
// defaulting to a list the implementation should document rather than
// hard-wire").
var DefaultSafeFunctions = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"upper": true, "lower": true, "length": true, "coalesce": true,
	"row_number": true, "rank": true, "dense_rank": true,
}

// Check walks node and every sub-select, enforcing column permissions and
// function safety, and rewrites each node's where clause to AND-prepend
// its policy conditions (spec §4.5 steps 1-5). It mutates node in place;
// on any violation it returns a *apperr.Error and leaves node partially
// rewritten — callers must discard the AR and fail the request, never
// build SQL from it.
func Check(node *ast.Node, role string, cat *catalog.Catalog, safeFunctions map[string]bool) error {
	if safeFunctions == nil {
		safeFunctions = DefaultSafeFunctions
	}
	return checkNode(node, role, cat, safeFunctions)
}

func checkNode(node *ast.Node, role string, cat *catalog.Catalog, safe map[string]bool) error {
	if node.Kind == ast.FunctionCall {
		return nil // rpc argument shape isn't a column-access concern
	}

	relation := node.From.Table
	schema := node.From.Schema
	obj, ok := cat.Object(schema, relation)
	if !ok {
		return apperr.NotFound(relation)
	}

	action := actionFor(node.Kind)
	writeAllowed := cat.AllowedColumns(role, action, schema, relation)
	readAllowed := cat.AllowedColumns(role, catalog.ActionSelect, schema, relation)

	expandSelectStar(node, obj, readAllowed)

	if err := checkSelectItems(node.Select, readAllowed, relation, safe); err != nil {
		return err
	}
	if err := checkSelectItems(node.Returning, readAllowed, relation, safe); err != nil {
		return err
	}
	if err := checkFilterColumns(node.Where, readAllowed, relation); err != nil {
		return err
	}
	for _, o := range node.Order {
		if o.Field.Table == "" && !readAllowed[o.Field.Name] {
			return apperr.PermissionDenied(relation, o.Field.Name, "column not permitted for select")
		}
	}

	if node.Payload != nil {
		for _, row := range node.Payload.Rows {
			for col := range row {
				if !writeAllowed[col] {
					return apperr.PermissionDenied(relation, col, "column not permitted for "+actionName(action))
				}
			}
		}
	}

	policies := cat.PolicyConditions(role, action, schema, relation)
	node.Where = ast.PrependAnd(node.Where, policies...)
	if node.Kind != ast.Select {
		node.Filter = node.Where
	}

	for _, sub := range node.SubSelects {
		if err := checkNode(sub.Node, role, cat, safe); err != nil {
			return err
		}
	}
	return nil
}

func actionFor(k ast.NodeKind) catalog.ActionKind {
	switch k {
	case ast.Insert:
		return catalog.ActionInsert
	case ast.Update:
		return catalog.ActionUpdate
	case ast.Delete:
		return catalog.ActionDelete
	default:
		return catalog.ActionSelect
	}
}

func actionName(a catalog.ActionKind) string {
	switch a {
	case catalog.ActionInsert:
		return "insert"
	case catalog.ActionUpdate:
		return "update"
	case catalog.ActionDelete:
		return "delete"
	default:
		return "select"
	}
}

// expandSelectStar replaces a bare "*" select item with the intersection
// of obj's declared columns and the role's allowed-select columns, so
// unauthorized columns are invisible rather than a permission error (spec
// §4.5 step 2, "replace_select_star").
func expandSelectStar(node *ast.Node, obj *catalog.Object, allowed map[string]bool) {
	var expanded []ast.SelectItem
	replaced := false
	for _, item := range node.Select {
		if item.Kind == ast.SimpleItem && item.FieldRef.Table == "" && item.FieldRef.Name == "*" {
			replaced = true
			for _, col := range obj.Columns {
				if allowed[col.Name] {
					expanded = append(expanded, ast.SelectItem{Kind: ast.SimpleItem, FieldRef: ast.Field{Name: col.Name}})
				}
			}
			continue
		}
		expanded = append(expanded, item)
	}
	if replaced {
		node.Select = expanded
	}
}

func checkSelectItems(items []ast.SelectItem, allowed map[string]bool, relation string, safe map[string]bool) error {
	for _, item := range items {
		switch item.Kind {
		case ast.SimpleItem, ast.JSONPathItem:
			if item.FieldRef.Table == "" && !allowed[item.FieldRef.Name] {
				return apperr.PermissionDenied(relation, item.FieldRef.Name, "column not permitted for select")
			}
		case ast.FunctionItem:
			if !safe[item.Name] {
				return apperr.UnsafeFunction(item.Name)
			}
			if err := checkSelectItems(item.Args, allowed, relation, safe); err != nil {
				return err
			}
			if item.Window != nil {
				for _, p := range item.Window.PartitionBy {
					if p.Table == "" && !allowed[p.Name] {
						return apperr.PermissionDenied(relation, p.Name, "column not permitted for select")
					}
				}
				for _, o := range item.Window.OrderBy {
					if o.Field.Table == "" && !allowed[o.Field.Name] {
						return apperr.PermissionDenied(relation, o.Field.Name, "column not permitted for select")
					}
				}
			}
		}
	}
	return nil
}

func checkFilterColumns(f *ast.Filter, allowed map[string]bool, relation string) error {
	if f == nil {
		return nil
	}
	if f.IsLogic() {
		for _, c := range f.Children {
			if err := checkFilterColumns(c, allowed, relation); err != nil {
				return err
			}
		}
		return nil
	}
	if f.Field.Table == "" && !allowed[f.Field.Name] {
		return apperr.PermissionDenied(relation, f.Field.Name, "column not permitted for select")
	}
	return nil
}
