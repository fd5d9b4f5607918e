package catalog

import (
	"testing"

	"github.com/restql/restql/ast"
	"github.com/stretchr/testify/require"
)

func fk(name string, cols []string, refTable string, refCols []string) docForeignKey {
	return docForeignKey{Name: name, Columns: cols, ReferencedTable: []string{refTable}, ReferencedColumns: refCols}
}

func loadTestDoc(t *testing.T, d doc) *Catalog {
	t.Helper()
	c := &Catalog{Schemas: map[string]*Schema{}}
	for _, ds := range d.Schemas {
		s := &Schema{Name: ds.Name, Objects: map[string]*Object{}}
		for _, do := range ds.Objects {
			obj, err := buildObject(ds.Name, do)
			require.NoError(t, err)
			s.Objects[do.Name] = obj
		}
		c.Schemas[ds.Name] = s
	}
	c.buildRelationships()
	return c
}

// Two FKs on the same table pointing at the same target: ambiguous
// unless disambiguated with !fkname.
func TestFindRelationship_TwoFKsSameTarget(t *testing.T) {
	c := loadTestDoc(t, doc{Schemas: []docSchema{{
		Name: "public",
		Objects: []docObject{
			{Name: "users", Columns: []docColumn{{Name: "id", PrimaryKey: true}}},
			{Name: "messages", Columns: []docColumn{{Name: "id", PrimaryKey: true}}, ForeignKeys: []docForeignKey{
				fk("messages_sender_fkey", []string{"sender_id"}, "users", []string{"id"}),
				fk("messages_recipient_fkey", []string{"recipient_id"}, "users", []string{"id"}),
			}},
		},
	}}})

	_, err := c.FindRelationship(ObjectRef{Schema: "public", Name: "messages"}, "", "users", "")
	require.Error(t, err)

	rel, err := c.FindRelationship(ObjectRef{Schema: "public", Name: "messages"}, "", "users", "messages_sender_fkey")
	require.NoError(t, err)
	require.Equal(t, "messages_sender_fkey", rel.Name)
}

// A direct FK from friend_requests to users, plus a group_members junction
// between users and groups: users -> friend_requests resolves through the
// child-FK tier, where it is the lone candidate, and users -> groups
// resolves to the many-to-many relationship when the junction name is
// given as the hint.
func TestFindRelationship_DirectFKPlusJunction(t *testing.T) {
	c := loadTestDoc(t, doc{Schemas: []docSchema{{
		Name: "public",
		Objects: []docObject{
			{Name: "users", Columns: []docColumn{{Name: "id", PrimaryKey: true}}},
			{Name: "groups", Columns: []docColumn{{Name: "id", PrimaryKey: true}}},
			{Name: "friend_requests", Columns: []docColumn{{Name: "id", PrimaryKey: true}}, ForeignKeys: []docForeignKey{
				fk("friend_requests_user_fkey", []string{"user_id"}, "users", []string{"id"}),
			}},
			{Name: "group_members", Columns: []docColumn{{Name: "id", PrimaryKey: true}}, ForeignKeys: []docForeignKey{
				fk("group_members_user_fkey", []string{"user_id"}, "users", []string{"id"}),
				fk("group_members_group_fkey", []string{"group_id"}, "groups", []string{"id"}),
			}},
		},
	}}})

	rel, err := c.FindRelationship(ObjectRef{Schema: "public", Name: "users"}, "", "friend_requests", "")
	require.NoError(t, err)
	require.Equal(t, "friend_requests_user_fkey", rel.Name)

	rel, err = c.FindRelationship(ObjectRef{Schema: "public", Name: "users"}, "", "groups", "group_members")
	require.NoError(t, err)
	require.Equal(t, "group_members", rel.Name)
}

// Two junction tables between the same pair of endpoints: ambiguous, both
// candidates listed.
func TestFindRelationship_TwoJunctionsSamePair(t *testing.T) {
	c := loadTestDoc(t, doc{Schemas: []docSchema{{
		Name: "public",
		Objects: []docObject{
			{Name: "users", Columns: []docColumn{{Name: "id", PrimaryKey: true}}},
			{Name: "tags", Columns: []docColumn{{Name: "id", PrimaryKey: true}}},
			{Name: "favorite_tags", Columns: []docColumn{{Name: "id", PrimaryKey: true}}, ForeignKeys: []docForeignKey{
				fk("favorite_tags_user_fkey", []string{"user_id"}, "users", []string{"id"}),
				fk("favorite_tags_tag_fkey", []string{"tag_id"}, "tags", []string{"id"}),
			}},
			{Name: "blocked_tags", Columns: []docColumn{{Name: "id", PrimaryKey: true}}, ForeignKeys: []docForeignKey{
				fk("blocked_tags_user_fkey", []string{"user_id"}, "users", []string{"id"}),
				fk("blocked_tags_tag_fkey", []string{"tag_id"}, "tags", []string{"id"}),
			}},
		},
	}}})

	_, err := c.FindRelationship(ObjectRef{Schema: "public", Name: "users"}, "", "tags", "")
	require.Error(t, err)

	rel, err := c.FindRelationship(ObjectRef{Schema: "public", Name: "users"}, "", "tags", "favorite_tags")
	require.NoError(t, err)
	require.Equal(t, ast.Many, rel.Kind)
}

// Self-referential FK (e.g. employees.manager_id -> employees.id) plus the
// implied reverse child collection: resolving "employees" embedded under
// "employees" must not guess between the parent-manager and child-reports
// directions when neither hint nor tier disambiguates to one candidate.
func TestFindRelationship_SelfReferentialFKAndChildCollection(t *testing.T) {
	c := loadTestDoc(t, doc{Schemas: []docSchema{{
		Name: "public",
		Objects: []docObject{
			{Name: "employees", Columns: []docColumn{{Name: "id", PrimaryKey: true}}, ForeignKeys: []docForeignKey{
				fk("employees_manager_fkey", []string{"manager_id"}, "employees", []string{"id"}),
			}},
		},
	}}})

	// Child tier (reports) and Parent tier (manager) are different tiers,
	// so the lowest non-empty tier (child) wins without ambiguity here —
	// unless a hint is given, which must be honored verbatim.
	rel, err := c.FindRelationship(ObjectRef{Schema: "public", Name: "employees"}, "", "employees", "")
	require.NoError(t, err)
	require.Equal(t, ast.Child, rel.Kind)

	rel, err = c.FindRelationship(ObjectRef{Schema: "public", Name: "employees"}, "", "employees", "employees_manager_fkey")
	require.NoError(t, err)
	require.Equal(t, ast.Parent, rel.Kind)
}
