package apperr

import (
	"net/http"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDriverErrorClassifiesMySQLError(t *testing.T) {
	driverErr := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	err := FromDriverError(driverErr)
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err.Kind))
	assert.Contains(t, err.Error(), "1062")
}

func TestFromDriverErrorFallsBackToInternal(t *testing.T) {
	err := FromDriverError(assert.AnError)
	assert.Equal(t, KindInternal, err.Kind)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err.Kind))
	assert.NotContains(t, err.Message, assert.AnError.Error())
}

func TestStatusCodeMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusCode(KindValidation))
	assert.Equal(t, http.StatusUnauthorized, StatusCode(KindUnauthorized))
	assert.Equal(t, http.StatusForbidden, StatusCode(KindForbidden))
	assert.Equal(t, http.StatusNotFound, StatusCode(KindNotFound))
	assert.Equal(t, http.StatusConflict, StatusCode(KindConflict))
	assert.Equal(t, http.StatusNotAcceptable, StatusCode(KindNotAcceptable))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(KindInternal))
}

func TestAsUnwrapsTypedError(t *testing.T) {
	wrapped := Validation("bad id", assert.AnError)
	var target *Error
	require.True(t, As(wrapped, &target))
	assert.Equal(t, KindValidation, target.Kind)
}
