package catalog

// NewForTest builds a Catalog directly from tables and routines, bypassing
// LoadCatalog's information_schema queries. It exists so packages that
// consume a *Catalog (selectplan, compiler, rls) can construct fixtures
// without a live database.
func NewForTest(tables map[string]*Table, routines map[string]*Routine) *Catalog {
	if routines == nil {
		routines = map[string]*Routine{}
	}
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	return &Catalog{
		DatabaseName: "test",
		tables:       tables,
		tableNames:   names,
		routines:     routines,
	}
}
