package selectplan

import "smf/internal/catalog"

// Resolve walks every relation in tree against cat, starting from
// currentTable, filling in each RelationNode's Resolved/Cardinality/
// FKColumn/FKRefColumn fields, and recursing into each relation's Child
// tree using the relation's target as the new current table.
//
// A relation whose target has no foreign key to currentTable is left with
// Resolved=false and is not an error: the compiler emits the documented
// literal-null fallback for it instead of failing the whole request.
func Resolve(tree *Tree, cat *catalog.Catalog, currentTable string) error {
	if tree == nil {
		return nil
	}
	for i := range tree.Relations {
		rel := &tree.Relations[i]

		fk, ownedByCurrent, err := cat.ForeignKeyBetween(currentTable, rel.Target, rel.Hint)
		if err != nil {
			rel.Resolved = false
			continue
		}

		rel.Resolved = true
		rel.FKColumn = fk.Column
		rel.FKRefColumn = fk.RefColumn
		if ownedByCurrent {
			// currentTable holds the FK column pointing at rel.Target: each
			// parent row embeds exactly one related row.
			rel.Cardinality = ManyToOne
		} else {
			// rel.Target holds the FK column pointing back at currentTable:
			// each parent row embeds many related rows.
			rel.Cardinality = OneToMany
		}

		if err := Resolve(rel.Child, cat, rel.Target); err != nil {
			return err
		}
	}
	return nil
}
