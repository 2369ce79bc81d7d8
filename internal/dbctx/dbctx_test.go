package dbctx

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeClaimKey(t *testing.T) {
	assert.Equal(t, "sub", sanitizeClaimKey("sub"))
	assert.Equal(t, "app_metadata_role", sanitizeClaimKey("app_metadata.role"))
	assert.Equal(t, "x_y_z", sanitizeClaimKey("x-y z"))
}

func TestSerializeClaimValueScalarsPassThrough(t *testing.T) {
	v, err := serializeClaimValue("admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", v)

	v, err = serializeClaimValue(int64(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestSerializeClaimValueObjectEncodesJSON(t *testing.T) {
	v, err := serializeClaimValue(map[string]any{"role": "admin"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"admin"}`, v.(string))
}

func TestBuildSetStatementSortedAndPositional(t *testing.T) {
	sqlText, args, err := buildSetStatement(Claims{"sub": "u1", "role": "admin"})
	require.NoError(t, err)
	assert.Equal(t, "SET @request_jwt_claim_role = ?, @request_jwt_claim_sub = ?", sqlText)
	assert.Equal(t, []any{"admin", "u1"}, args)
}

func TestExecWithClaimsSetsThenExecutesOnSameConnection(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("SET @request_jwt_claim_sub = ?").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE `orders`").WithArgs("Shipped").WillReturnResult(sqlmock.NewResult(0, 1))

	pool := &Pool{db: db}
	_, err = pool.Exec(context.Background(), Claims{"sub": "u1"}, Statement{SQL: "UPDATE `orders` SET status = ?", Args: []any{"Shipped"}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecWithoutClaimsDispatchesDirectlyOnPool(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM `orders`").WillReturnResult(sqlmock.NewResult(0, 3))

	pool := &Pool{db: db}
	res, err := pool.Exec(context.Background(), nil, Statement{SQL: "DELETE FROM `orders`"})
	require.NoError(t, err)
	affected, _ := res.RowsAffected()
	assert.Equal(t, int64(3), affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanRowsDecodesAndClosesRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"orderNumber", "customerName"}).
		AddRow(1, []byte("Atelier graphique"))
	mock.ExpectQuery("SELECT \\* FROM `orders`").WillReturnRows(rows)

	pool := &Pool{db: db}
	result, err := pool.Query(context.Background(), nil, Statement{SQL: "SELECT * FROM `orders`"})
	require.NoError(t, err)

	decoded, err := ScanRows(result)
	require.NoError(t, err)
	require.Len(t, decoded, 1)
	assert.Equal(t, int64(1), decoded[0]["orderNumber"])
	assert.Equal(t, "Atelier graphique", decoded[0]["customerName"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryWithClaimsReleasesConnectionOnRowsClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("SET @request_jwt_claim_sub = ?").WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"orderNumber"}).AddRow(1)
	mock.ExpectQuery("SELECT \\* FROM `orders`").WillReturnRows(rows)

	pool := &Pool{db: db}
	result, err := pool.Query(context.Background(), Claims{"sub": "u1"}, Statement{SQL: "SELECT * FROM `orders`"})
	require.NoError(t, err)
	require.True(t, result.Next())
	require.NoError(t, result.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}
