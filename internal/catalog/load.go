package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// CatalogError reports a failure to build the catalog at startup: the
// database is unreachable, or information_schema reports no base tables for
// the configured database. It is always fatal — LoadCatalog must succeed
// before any HTTP handler serves traffic.
type CatalogError struct {
	Op  string
	Err error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog: %s: %v", e.Op, e.Err)
}

func (e *CatalogError) Unwrap() error { return e.Err }

type columnRow struct {
	table      string
	name       string
	ordinal    int
	rawType    string
	nullable   bool
	colDefault sql.NullString
	colKey     string
}

type fkRow struct {
	table     string
	column    string
	refTable  string
	refColumn string
}

// LoadCatalog introspects databaseName on db and returns the frozen,
// read-only Catalog. It runs one query joining information_schema.columns
// to information_schema.tables for tables/columns/primary keys, one query on
// information_schema.key_column_usage for foreign keys, and one query
// joining information_schema.routines to information_schema.parameters for
// stored routines.
//
// A failure to reach the database, or an empty result set for the
// tables/columns query, is reported as a *CatalogError and is fatal to
// startup. A failure of the routines query is logged and treated as
// non-fatal: the catalog is still returned, with no routines registered, so
// the gateway degrades gracefully rather than refusing all traffic over an
// rpc-only misconfiguration.
func LoadCatalog(ctx context.Context, db *sql.DB, databaseName string, log *zap.SugaredLogger) (*Catalog, error) {
	cols, err := loadColumns(ctx, db, databaseName)
	if err != nil {
		return nil, &CatalogError{Op: "load columns", Err: err}
	}
	if len(cols) == 0 {
		return nil, &CatalogError{Op: "load columns", Err: fmt.Errorf("database %q has no base tables", databaseName)}
	}

	fks, err := loadForeignKeys(ctx, db, databaseName)
	if err != nil {
		return nil, &CatalogError{Op: "load foreign keys", Err: err}
	}

	tables := buildTables(cols, fks)

	routines, err := loadRoutines(ctx, db, databaseName)
	if err != nil {
		if log != nil {
			log.Warnw("catalog: routine introspection failed; continuing with no routines", "error", err)
		}
		routines = map[string]*Routine{}
	}

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Catalog{
		DatabaseName: databaseName,
		tables:       tables,
		tableNames:   names,
		routines:     routines,
	}, nil
}

func loadColumns(ctx context.Context, db *sql.DB, databaseName string) ([]columnRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			c.table_name,
			c.column_name,
			c.ordinal_position,
			c.column_type,
			c.is_nullable,
			c.column_default,
			c.column_key
		FROM information_schema.columns c
		JOIN information_schema.tables t
			ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema = ?
			AND t.table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY c.table_name, c.ordinal_position
	`, databaseName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []columnRow
	for rows.Next() {
		var r columnRow
		var nullable string
		if err := rows.Scan(&r.table, &r.name, &r.ordinal, &r.rawType, &nullable, &r.colDefault, &r.colKey); err != nil {
			return nil, err
		}
		r.nullable = nullable == "YES"
		out = append(out, r)
	}
	return out, rows.Err()
}

func loadForeignKeys(ctx context.Context, db *sql.DB, databaseName string) ([]fkRow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name, column_name, referenced_table_name, referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND referenced_table_name IS NOT NULL
	`, databaseName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []fkRow
	for rows.Next() {
		var r fkRow
		if err := rows.Scan(&r.table, &r.column, &r.refTable, &r.refColumn); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func buildTables(cols []columnRow, fks []fkRow) map[string]*Table {
	tables := make(map[string]*Table)
	order := make(map[string][]string) // table -> pk column names, in ordinal order

	for _, c := range cols {
		t, ok := tables[c.table]
		if !ok {
			t = &Table{Name: c.table}
			tables[c.table] = t
		}
		col := Column{
			Name:     c.name,
			Ordinal:  c.ordinal,
			Type:     NormalizeDataType(c.rawType),
			RawType:  c.rawType,
			IsPK:     c.colKey == "PRI",
			Nullable: c.nullable,
		}
		if c.colDefault.Valid {
			v := c.colDefault.String
			col.Default = &v
		}
		t.Columns = append(t.Columns, col)
		if col.IsPK {
			order[c.table] = append(order[c.table], col.Name)
		}
	}

	for name, t := range tables {
		for _, pkName := range order[name] {
			if pc := t.Column(pkName); pc != nil {
				t.PrimaryKey = append(t.PrimaryKey, *pc)
			}
		}
	}

	for _, fk := range fks {
		t, ok := tables[fk.table]
		if !ok {
			continue
		}
		colType := DataTypeUnknown
		if c := t.Column(fk.column); c != nil {
			colType = c.Type
		}
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
			Table:      fk.table,
			Column:     fk.column,
			RefTable:   fk.refTable,
			RefColumn:  fk.refColumn,
			ColumnType: colType,
		})
	}

	return tables
}

func loadRoutines(ctx context.Context, db *sql.DB, databaseName string) (map[string]*Routine, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			r.routine_name,
			r.routine_type,
			COALESCE(p.parameter_name, ''),
			COALESCE(p.dtd_identifier, ''),
			COALESCE(p.parameter_mode, ''),
			COALESCE(p.ordinal_position, 0)
		FROM information_schema.routines r
		LEFT JOIN information_schema.parameters p
			ON p.specific_schema = r.routine_schema
			AND p.specific_name = r.specific_name
			AND p.parameter_name IS NOT NULL
		WHERE r.routine_schema = ?
		ORDER BY r.routine_name, p.ordinal_position
	`, databaseName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	routines := make(map[string]*Routine)
	for rows.Next() {
		var name, routineType, paramName, sqlType, mode string
		var position int
		if err := rows.Scan(&name, &routineType, &paramName, &sqlType, &mode, &position); err != nil {
			return nil, err
		}

		r, ok := routines[name]
		if !ok {
			kind := RoutineProcedure
			if routineType == "FUNCTION" {
				kind = RoutineFunction
			}
			r = &Routine{Name: name, Kind: kind}
			routines[name] = r
		}

		if paramName == "" {
			continue
		}
		pm := ParamIn
		switch mode {
		case "OUT":
			pm = ParamOut
		case "INOUT":
			pm = ParamInOut
		}
		r.Parameters = append(r.Parameters, RoutineParam{
			Name:     paramName,
			SQLType:  sqlType,
			Mode:     pm,
			Position: position,
		})
	}
	return routines, rows.Err()
}
