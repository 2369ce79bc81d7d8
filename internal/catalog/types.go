// Package catalog holds the read-only, process-wide picture of a live
// MySQL/MariaDB database, built once at startup by introspecting
// information_schema. The catalog is the authoritative source every other
// component (query-param parser, select planner, compiler, RLS engine)
// consults to resolve table and column names, primary keys, foreign keys,
// and stored routines.
package catalog

import (
	"fmt"
	"strings"
)

// DataType is a portable classification of a column's raw SQL type, used by
// the compiler to decide how to serialize bound values (e.g. JSON columns
// are pre-encoded before binding) and by the primary-key predicate builder
// to decide how to parse an id path segment.
type DataType string

const (
	DataTypeString   DataType = "string"
	DataTypeInt      DataType = "int"
	DataTypeFloat    DataType = "float"
	DataTypeBoolean  DataType = "boolean"
	DataTypeDatetime DataType = "datetime"
	DataTypeJSON     DataType = "json"
	DataTypeBinary   DataType = "binary"
	DataTypeEnum     DataType = "enum"
	DataTypeUnknown  DataType = "unknown"
)

type normalizeRule struct {
	dataType   DataType
	substrings []string
}

// normalizeRules is evaluated in order; the first matching substring wins.
// "enum" comes first since an ENUM's value list can itself contain a
// substring another rule matches, and "tinyint(1)" must precede the generic "int"
// rule since MySQL represents BOOLEAN as TINYINT(1).
var normalizeRules = []normalizeRule{
	{DataTypeEnum, []string{"enum"}},
	{DataTypeBoolean, []string{"tinyint(1)", "bool"}},
	{DataTypeJSON, []string{"json"}},
	{DataTypeBinary, []string{"blob", "binary", "varbinary", "bit"}},
	{DataTypeString, []string{"char", "text", "set"}},
	{DataTypeInt, []string{"int", "year"}},
	{DataTypeFloat, []string{"float", "double", "decimal", "numeric", "real"}},
	{DataTypeDatetime, []string{"timestamp", "date", "time"}},
}

// NormalizeDataType maps a raw information_schema column_type string (e.g.
// "varchar(255)", "int(11) unsigned", "json") to a portable DataType. The
// match is case-insensitive substring containment, evaluated in the fixed
// order above.
func NormalizeDataType(rawType string) DataType {
	lower := strings.ToLower(rawType)
	for _, rule := range normalizeRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.dataType
			}
		}
	}
	return DataTypeUnknown
}

// Column describes one column of a Table as introspected from
// information_schema.columns.
type Column struct {
	Name       string
	Ordinal    int
	Type       DataType
	RawType    string
	IsPK       bool
	Nullable   bool
	Default    *string
}

// ForeignKey describes a single-column foreign key relationship as
// introspected from information_schema.key_column_usage.
type ForeignKey struct {
	Table      string
	Column     string
	RefTable   string
	RefColumn  string
	ColumnType DataType
}

// Table is the catalog's picture of one base table or view.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  []Column
	ForeignKeys []ForeignKey
}

// Column looks up a column by name. Returns nil if not found.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ForeignKeysWith returns the foreign keys owned by this table that
// reference target.
func (t *Table) ForeignKeysWith(target string) []ForeignKey {
	var out []ForeignKey
	for _, fk := range t.ForeignKeys {
		if fk.Table == t.Name && fk.RefTable == target {
			out = append(out, fk)
		}
	}
	return out
}

// RoutineKind distinguishes stored procedures from stored functions.
type RoutineKind string

const (
	RoutineProcedure RoutineKind = "procedure"
	RoutineFunction  RoutineKind = "function"
)

// ParamMode is the calling convention of a routine parameter.
type ParamMode string

const (
	ParamIn    ParamMode = "in"
	ParamOut   ParamMode = "out"
	ParamInOut ParamMode = "inout"
)

// RoutineParam is one parameter of a stored routine, in declared order.
type RoutineParam struct {
	Name     string
	SQLType  string
	Mode     ParamMode
	Position int
}

// Routine describes a stored procedure or function.
type Routine struct {
	Name       string
	Kind       RoutineKind
	Parameters []RoutineParam
}

// Catalog is the frozen, read-only, process-wide view of the database
// schema after LoadCatalog succeeds. It is safe for concurrent read access
// from any number of goroutines without synchronization, since it is never
// mutated after construction; a reload (if ever introduced) would replace
// the whole *Catalog pointer rather than mutate fields in place.
type Catalog struct {
	DatabaseName string
	tables       map[string]*Table
	tableNames   []string
	routines     map[string]*Routine
}

// Table looks up a table by name. Returns nil, false if the table is not in
// the catalog.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// TableNames returns every table name known to the catalog, in the order
// the catalog was built with (alphabetical for a catalog from LoadCatalog,
// which sorts them).
func (c *Catalog) TableNames() []string {
	out := make([]string, len(c.tableNames))
	copy(out, c.tableNames)
	return out
}

// Routine looks up a stored procedure or function by name.
func (c *Catalog) Routine(name string) (*Routine, bool) {
	r, ok := c.routines[name]
	return r, ok
}

// ForeignKeyBetween finds the single foreign key connecting two tables,
// honoring an optional hint column that must match the FK's owning-side
// column name. Returns an error if no such foreign key exists, or if hint
// is non-empty and matches none of the candidate foreign keys.
func (c *Catalog) ForeignKeyBetween(a, b, hint string) (fk ForeignKey, ownedByA bool, err error) {
	ta, ok := c.tables[a]
	if !ok {
		return ForeignKey{}, false, fmt.Errorf("catalog: unknown table %q", a)
	}
	tb, ok := c.tables[b]
	if !ok {
		return ForeignKey{}, false, fmt.Errorf("catalog: unknown table %q", b)
	}

	var candidates []ForeignKey
	var owned []bool
	for _, f := range ta.ForeignKeys {
		if f.RefTable == b {
			candidates = append(candidates, f)
			owned = append(owned, true)
		}
	}
	for _, f := range tb.ForeignKeys {
		if f.RefTable == a {
			candidates = append(candidates, f)
			owned = append(owned, false)
		}
	}

	if hint != "" {
		for i, f := range candidates {
			if f.Column == hint {
				return f, owned[i], nil
			}
		}
		return ForeignKey{}, false, fmt.Errorf("catalog: hint column %q does not match any foreign key between %q and %q", hint, a, b)
	}

	switch len(candidates) {
	case 0:
		return ForeignKey{}, false, fmt.Errorf("catalog: no foreign key between %q and %q", a, b)
	case 1:
		return candidates[0], owned[0], nil
	default:
		return ForeignKey{}, false, fmt.Errorf("catalog: ambiguous foreign key between %q and %q; disambiguate with a hint", a, b)
	}
}

