package compiler

import (
	"smf/internal/catalog"
	"smf/internal/sqlfrag"
)

// ForeignKeyPredicate builds `<child-fk> = <typed parent-id>` for a nested
// list request (GET /<parent>/:id/<child>): fk is the single foreign key
// connecting parent and child, and parentID is the raw id path segment for
// the parent row (always a single scalar — nested-list parents are never
// addressed by a composite key in this contract).
func ForeignKeyPredicate(fk catalog.ForeignKey, parentID string) (sqlfrag.Fragment, error) {
	v, err := typedValue(fk.ColumnType, parentID)
	if err != nil {
		return sqlfrag.Fragment{}, err
	}
	return sqlfrag.Fragment{Clause: QuoteIdentifier(fk.Column) + " = ?", Args: []any{v}}, nil
}
