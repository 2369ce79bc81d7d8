package compiler

import (
	"fmt"
	"strings"

	"smf/internal/catalog"
	"smf/internal/selectplan"
)

// CompileColumnList renders the SELECT list for table's rows per tree: when
// tree is empty or carries a "*", every catalog column (minus exclusions)
// is listed; each explicit column follows; each relation becomes a
// correlated JSON subquery aliased to the relation's target name. An
// unresolved relation (no matching foreign key at plan time) degrades to a
// literal NULL column rather than failing the whole query.
func CompileColumnList(cat *catalog.Catalog, table *catalog.Table, tree *selectplan.Tree) (string, error) {
	names, err := plainColumnNames(table, tree)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(names)+relationCount(tree))
	for _, c := range names {
		parts = append(parts, QuoteIdentifier(table.Name)+"."+QuoteIdentifier(c))
	}

	if tree != nil {
		for _, rel := range tree.Relations {
			expr, err := compileRelationExpr(cat, table, rel)
			if err != nil {
				return "", err
			}
			parts = append(parts, expr+" AS "+QuoteIdentifier(rel.Target))
		}
	}

	if len(parts) == 0 {
		return "*", nil
	}
	return strings.Join(parts, ", "), nil
}

func relationCount(tree *selectplan.Tree) int {
	if tree == nil {
		return 0
	}
	return len(tree.Relations)
}

// plainColumnNames resolves the non-relation column names tree projects
// against table, applying the star/exclusion/explicit-column rules. Unknown
// explicit column names are silently dropped.
func plainColumnNames(table *catalog.Table, tree *selectplan.Tree) ([]string, error) {
	if tree.Empty() || tree.HasStar() {
		excluded := make(map[string]bool)
		if tree != nil {
			for _, c := range tree.Columns {
				if c.Exclude {
					excluded[c.Name] = true
				}
			}
		}
		var names []string
		for _, c := range table.Columns {
			if excluded[c.Name] {
				continue
			}
			names = append(names, c.Name)
		}
		return names, nil
	}

	var names []string
	for _, c := range tree.Columns {
		if c.Exclude || c.Star {
			continue
		}
		if table.Column(c.Name) == nil {
			continue
		}
		names = append(names, c.Name)
	}
	return names, nil
}

// compileRelationExpr emits the correlated JSON subquery for one relation
// node, or a literal NULL if the relation never resolved to a foreign key or
// names a table the catalog no longer carries.
func compileRelationExpr(cat *catalog.Catalog, parent *catalog.Table, rel selectplan.RelationNode) (string, error) {
	if !rel.Resolved {
		return "NULL", nil
	}
	child, ok := cat.Table(rel.Target)
	if !ok {
		return "NULL", nil
	}

	pairs, err := compileJSONPairs(cat, child, rel.Child)
	if err != nil {
		return "", err
	}

	childName := QuoteIdentifier(child.Name)
	parentName := QuoteIdentifier(parent.Name)

	if rel.Cardinality == selectplan.OneToMany {
		return fmt.Sprintf(
			"(SELECT CAST(COALESCE(JSON_ARRAYAGG(JSON_OBJECT(%s)), '[]') AS JSON) FROM %s WHERE %s.%s = %s.%s)",
			pairs, childName,
			childName, QuoteIdentifier(rel.FKColumn),
			parentName, QuoteIdentifier(rel.FKRefColumn),
		), nil
	}

	return fmt.Sprintf(
		"(SELECT JSON_OBJECT(%s) FROM %s WHERE %s.%s = %s.%s)",
		pairs, childName,
		childName, QuoteIdentifier(rel.FKRefColumn),
		parentName, QuoteIdentifier(rel.FKColumn),
	), nil
}

// compileJSONPairs builds the comma-separated "'col', `t`.`col`, ..." pair
// list passed to JSON_OBJECT, recursing into nested relations the same way
// CompileColumnList does for the top-level SELECT list.
func compileJSONPairs(cat *catalog.Catalog, table *catalog.Table, tree *selectplan.Tree) (string, error) {
	names, err := plainColumnNames(table, tree)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(names)+relationCount(tree))
	for _, c := range names {
		parts = append(parts, QuoteStringLiteral(c)+", "+QuoteIdentifier(table.Name)+"."+QuoteIdentifier(c))
	}

	if tree != nil {
		for _, rel := range tree.Relations {
			expr, err := compileRelationExpr(cat, table, rel)
			if err != nil {
				return "", err
			}
			parts = append(parts, QuoteStringLiteral(rel.Target)+", "+expr)
		}
	}

	return strings.Join(parts, ", "), nil
}
