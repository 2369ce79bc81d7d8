package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smf/internal/catalog"
	"smf/internal/queryparam"
	"smf/internal/selectplan"
	"smf/internal/sqlfrag"
)

func testCatalog() *catalog.Catalog {
	customers := &catalog.Table{
		Name: "customers",
		Columns: []catalog.Column{
			{Name: "customerNumber", Type: catalog.DataTypeInt, IsPK: true},
			{Name: "customerName", Type: catalog.DataTypeString},
			{Name: "metadata", Type: catalog.DataTypeJSON},
		},
		PrimaryKey: []catalog.Column{{Name: "customerNumber", Type: catalog.DataTypeInt, IsPK: true}},
	}
	orders := &catalog.Table{
		Name: "orders",
		Columns: []catalog.Column{
			{Name: "orderNumber", Type: catalog.DataTypeInt, IsPK: true},
			{Name: "status", Type: catalog.DataTypeString},
			{Name: "customerNumber", Type: catalog.DataTypeInt},
		},
		PrimaryKey: []catalog.Column{{Name: "orderNumber", Type: catalog.DataTypeInt, IsPK: true}},
		ForeignKeys: []catalog.ForeignKey{
			{Table: "orders", Column: "customerNumber", RefTable: "customers", RefColumn: "customerNumber", ColumnType: catalog.DataTypeInt},
		},
	}
	return catalog.NewForTest(map[string]*catalog.Table{
		"customers": customers,
		"orders":    orders,
	}, nil)
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`customers`", QuoteIdentifier("customers"))
	assert.Equal(t, "`a``b`", QuoteIdentifier("a`b"))
}

func TestCompileFiltersEqAndUnknownColumnDropped(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	preds := []queryparam.Predicate{
		{Column: "status", Operator: queryparam.OpEq, Value: "Shipped"},
		{Column: "doesNotExist", Operator: queryparam.OpEq, Value: "x"},
	}
	frag := CompileFilters(orders, preds)
	assert.Equal(t, "`status` = ?", frag.Clause)
	assert.Equal(t, []any{"Shipped"}, frag.Args)
}

func TestCompileFiltersIsNull(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	preds := []queryparam.Predicate{{Column: "status", Operator: queryparam.OpIs, Value: queryparam.Null}}
	frag := CompileFilters(orders, preds)
	assert.Equal(t, "`status` IS NULL", frag.Clause)
	assert.Empty(t, frag.Args)
}

func TestCompileFiltersIsTrueEmitsLiteral(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	preds := []queryparam.Predicate{{Column: "status", Operator: queryparam.OpIs, Value: 1}}
	frag := CompileFilters(orders, preds)
	assert.Equal(t, "`status` IS TRUE", frag.Clause)
	assert.Empty(t, frag.Args)
}

func TestCompileFiltersIsFalseEmitsLiteral(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	preds := []queryparam.Predicate{{Column: "status", Operator: queryparam.OpIs, Value: 0}}
	frag := CompileFilters(orders, preds)
	assert.Equal(t, "`status` IS FALSE", frag.Clause)
	assert.Empty(t, frag.Args)
}

func TestCompileFiltersIsUnrecognizedValueDropped(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	preds := []queryparam.Predicate{{Column: "status", Operator: queryparam.OpIs, Value: "bogus"}}
	frag := CompileFilters(orders, preds)
	assert.Empty(t, frag.Clause)
}

func TestCompileFiltersIn(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	preds := []queryparam.Predicate{{Column: "orderNumber", Operator: queryparam.OpIn, Value: []any{"1", "2"}}}
	frag := CompileFilters(orders, preds)
	assert.Equal(t, "`orderNumber` IN (?,?)", frag.Clause)
	assert.Equal(t, []any{"1", "2"}, frag.Args)
}

func TestCompileOrderDropsUnknown(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	terms := []queryparam.OrderTerm{{Column: "status", Desc: true}, {Column: "bogus"}}
	assert.Equal(t, "`status` DESC", CompileOrder(orders, terms))
}

func TestParsePrimaryKeySingle(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	frag, err := ParsePrimaryKey(orders, "10100")
	require.NoError(t, err)
	assert.Equal(t, "`orderNumber` = ?", frag.Clause)
	assert.Equal(t, []any{int64(10100)}, frag.Args)
}

func TestParsePrimaryKeyArityMismatch(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	_, err := ParsePrimaryKey(orders, "10100___extra")
	require.Error(t, err)
	var keyErr *CompositeKeyError
	assert.ErrorAs(t, err, &keyErr)
}

func TestForeignKeyPredicate(t *testing.T) {
	cat := testCatalog()
	fk, _, err := cat.ForeignKeyBetween("orders", "customers", "")
	require.NoError(t, err)
	frag, err := ForeignKeyPredicate(fk, "103")
	require.NoError(t, err)
	assert.Equal(t, "`customerNumber` = ?", frag.Clause)
	assert.Equal(t, []any{int64(103)}, frag.Args)
}

func TestCompileColumnListStar(t *testing.T) {
	cat := testCatalog()
	customers, _ := cat.Table("customers")
	sql, err := CompileColumnList(cat, customers, &selectplan.Tree{})
	require.NoError(t, err)
	assert.Contains(t, sql, "`customers`.`customerNumber`")
	assert.Contains(t, sql, "`customers`.`metadata`")
}

func TestCompileColumnListExclusion(t *testing.T) {
	cat := testCatalog()
	customers, _ := cat.Table("customers")
	tree, err := selectplan.Parse("*,-metadata")
	require.NoError(t, err)
	sql, err := CompileColumnList(cat, customers, tree)
	require.NoError(t, err)
	assert.NotContains(t, sql, "metadata")
	assert.Contains(t, sql, "customerNumber")
}

func TestCompileColumnListOneToManyRelation(t *testing.T) {
	cat := testCatalog()
	customers, _ := cat.Table("customers")
	tree, err := selectplan.Parse("customerNumber,orders(orderNumber)")
	require.NoError(t, err)
	require.NoError(t, selectplan.Resolve(tree, cat, "customers"))

	sql, err := CompileColumnList(cat, customers, tree)
	require.NoError(t, err)
	assert.Contains(t, sql, "JSON_ARRAYAGG")
	assert.Contains(t, sql, "AS `orders`")
	assert.Contains(t, sql, "`orders`.`customerNumber` = `customers`.`customerNumber`")
}

func TestCompileColumnListManyToOneRelation(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	tree, err := selectplan.Parse("orderNumber,customers(customerName)")
	require.NoError(t, err)
	require.NoError(t, selectplan.Resolve(tree, cat, "orders"))

	sql, err := CompileColumnList(cat, orders, tree)
	require.NoError(t, err)
	assert.NotContains(t, sql, "JSON_ARRAYAGG")
	assert.Contains(t, sql, "JSON_OBJECT")
	assert.Contains(t, sql, "`customers`.`customerNumber` = `orders`.`customerNumber`")
}

func TestCompileColumnListUnresolvedRelationIsNull(t *testing.T) {
	cat := testCatalog()
	customers, _ := cat.Table("customers")
	tree, err := selectplan.Parse("nope:orders(orderNumber)")
	require.NoError(t, err)
	require.NoError(t, selectplan.Resolve(tree, cat, "customers"))

	sql, err := CompileColumnList(cat, customers, tree)
	require.NoError(t, err)
	assert.Contains(t, sql, "NULL AS `orders`")
}

func TestCompileSelectWithLimit(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	where := sqlfrag.Fragment{Clause: "`status` = ?", Args: []any{"Shipped"}}
	stmt, err := CompileSelect(cat, orders, &selectplan.Tree{}, where, "`orderNumber` ASC", 20, 0)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "WHERE `status` = ?")
	assert.Contains(t, stmt.SQL, "ORDER BY `orderNumber` ASC")
	assert.Contains(t, stmt.SQL, "LIMIT ? OFFSET ?")
	assert.Equal(t, []any{"Shipped", 20, 0}, stmt.Args)
}

func TestCompileCount(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	stmt := CompileCount(orders, sqlfrag.Fragment{})
	assert.Equal(t, "SELECT COUNT(1) AS no_of_rows FROM `orders`", stmt.SQL)
}

func TestCompileInsertJSONColumn(t *testing.T) {
	cat := testCatalog()
	customers, _ := cat.Table("customers")
	rows := []map[string]any{{"customerNumber": 1, "customerName": "Acme", "metadata": map[string]any{"tier": "gold"}}}
	stmt, err := CompileInsert(customers, rows, UpsertNone)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "INSERT INTO `customers`")
	assert.Contains(t, stmt.SQL, "VALUES (?,?,?)")
	require.Len(t, stmt.Args, 3)
	assert.IsType(t, "", stmt.Args[2])
}

func TestCompileInsertMergeDuplicates(t *testing.T) {
	cat := testCatalog()
	customers, _ := cat.Table("customers")
	rows := []map[string]any{{"customerNumber": 1, "customerName": "Acme"}}
	stmt, err := CompileInsert(customers, rows, UpsertMergeDuplicates)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "ON DUPLICATE KEY UPDATE")
}

func TestCompileInsertIgnoreDuplicates(t *testing.T) {
	cat := testCatalog()
	customers, _ := cat.Table("customers")
	rows := []map[string]any{{"customerNumber": 1}}
	stmt, err := CompileInsert(customers, rows, UpsertIgnoreDuplicates)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "INSERT IGNORE INTO")
}

func TestCompileInsertReturningSingleColumnPK(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	stmt, err := CompileInsertReturning(orders, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(100), int64(102)}, stmt.Args)
}

func TestCompileUpdate(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	where := sqlfrag.Fragment{Clause: "`orderNumber` = ?", Args: []any{int64(1)}}
	stmt, err := CompileUpdate(orders, map[string]any{"status": "Shipped"}, where)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "UPDATE `orders` SET `status` = ? WHERE `orderNumber` = ?")
	assert.Equal(t, []any{"Shipped", int64(1)}, stmt.Args)
}

func TestCompileDeleteEmptyFilterDeletesAll(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	stmt := CompileDelete(orders, sqlfrag.Fragment{})
	assert.Equal(t, "DELETE FROM `orders`", stmt.SQL)
}

func TestCompileGroupBy(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	stmt, err := CompileGroupBy(orders, []string{"status"}, sqlfrag.Fragment{}, "")
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "GROUP BY `status`")
	assert.Contains(t, stmt.SQL, "ORDER BY `count` DESC")
}

func TestCompileAggregate(t *testing.T) {
	cat := testCatalog()
	orders, _ := cat.Table("orders")
	stmt, err := CompileAggregate(orders, []string{"orderNumber"}, sqlfrag.Fragment{})
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "MIN(`orderNumber`) AS `min_of_orderNumber`")
	assert.Contains(t, stmt.SQL, "STDDEV(`orderNumber`) AS `stddev_of_orderNumber`")
}

func TestCompileRPCFunction(t *testing.T) {
	routine := &catalog.Routine{
		Name: "getTotal",
		Kind: catalog.RoutineFunction,
		Parameters: []catalog.RoutineParam{
			{Name: "customerId", Mode: catalog.ParamIn, Position: 1},
		},
	}
	stmt := CompileRPC(routine, []any{int64(1)})
	assert.Equal(t, "SELECT `getTotal`(?) AS result", stmt.SQL)
}

func TestCompileRPCProcedure(t *testing.T) {
	routine := &catalog.Routine{Name: "doThing", Kind: catalog.RoutineProcedure}
	stmt := CompileRPC(routine, nil)
	assert.Equal(t, "CALL `doThing`()", stmt.SQL)
}
