package catalog

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"smf/internal/applog"
)

type testMySQLContainer struct {
	container *mysql.MySQLContainer
	dsn       string
	db        *sql.DB
}

func setupMySQL(t *testing.T) *testMySQLContainer {
	t.Helper()
	ctx := context.Background()

	mysqlContainer, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(mysqlContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := mysqlContainer.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err, "failed to get connection string")

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err, "failed to open direct DB connection")
	require.NoError(t, db.PingContext(ctx), "failed to ping database")
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})

	return &testMySQLContainer{container: mysqlContainer, dsn: dsn, db: db}
}

func TestLoadCatalogIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := setupMySQL(t)
	ctx := context.Background()

	_, err := tc.db.ExecContext(ctx, `
		CREATE TABLE customers (
			customerNumber INT NOT NULL AUTO_INCREMENT,
			customerName VARCHAR(255) NOT NULL,
			PRIMARY KEY (customerNumber)
		)`)
	require.NoError(t, err)

	_, err = tc.db.ExecContext(ctx, `
		CREATE TABLE orders (
			orderNumber INT NOT NULL AUTO_INCREMENT,
			status VARCHAR(50) NOT NULL,
			customerNumber INT NOT NULL,
			PRIMARY KEY (orderNumber),
			FOREIGN KEY (customerNumber) REFERENCES customers(customerNumber)
		)`)
	require.NoError(t, err)

	cat, err := LoadCatalog(ctx, tc.db, "testdb", applog.Noop())
	require.NoError(t, err)

	customers, ok := cat.Table("customers")
	require.True(t, ok)
	require.Len(t, customers.PrimaryKey, 1)
	assert.Equal(t, "customerNumber", customers.PrimaryKey[0].Name)

	orders, ok := cat.Table("orders")
	require.True(t, ok)
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, "customers", orders.ForeignKeys[0].RefTable)
	assert.Equal(t, "customerNumber", orders.ForeignKeys[0].RefColumn)

	assert.ElementsMatch(t, []string{"customers", "orders"}, cat.TableNames())
}
