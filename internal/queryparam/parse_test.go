package queryparam

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEqFilter(t *testing.T) {
	v := url.Values{"customerNumber": {"eq.103"}}
	r := Parse(v)
	require.Len(t, r.Filters, 1)
	assert.Equal(t, "customerNumber", r.Filters[0].Column)
	assert.Equal(t, OpEq, r.Filters[0].Operator)
	assert.Equal(t, "103", r.Filters[0].Value)
}

func TestParseReservedKeysSkipped(t *testing.T) {
	v := url.Values{
		"select":      {"a,b"},
		"order":       {"a.asc"},
		"limit":       {"5"},
		"offset":      {"1"},
		"on_conflict": {"id"},
		"columns":     {"a,b"},
		"_size":       {"10"},
	}
	r := Parse(v)
	assert.Empty(t, r.Filters)
	assert.Equal(t, "a,b", r.Select)
}

func TestParseRepeatedKeyAND(t *testing.T) {
	v := url.Values{"value": {"gt.10", "lt.20"}}
	r := Parse(v)
	require.Len(t, r.Filters, 2)
}

func TestParseInList(t *testing.T) {
	v := url.Values{"id": {"in.(1,2,3)"}}
	r := Parse(v)
	require.Len(t, r.Filters, 1)
	assert.Equal(t, OpIn, r.Filters[0].Operator)
	assert.Equal(t, []any{"1", "2", "3"}, r.Filters[0].Value)
}

func TestParseInListMissingParensDropped(t *testing.T) {
	v := url.Values{"id": {"in.1,2,3"}}
	r := Parse(v)
	assert.Empty(t, r.Filters)
}

func TestParseIsNull(t *testing.T) {
	v := url.Values{"deleted_at": {"is.null"}}
	r := Parse(v)
	require.Len(t, r.Filters, 1)
	assert.Equal(t, Null, r.Filters[0].Value)
}

func TestParseBooleanLiterals(t *testing.T) {
	v := url.Values{"active": {"eq.true"}}
	r := Parse(v)
	require.Len(t, r.Filters, 1)
	assert.Equal(t, 1, r.Filters[0].Value)
}

func TestParseUnknownOperatorDropped(t *testing.T) {
	v := url.Values{"name": {"bogus.value"}}
	r := Parse(v)
	assert.Empty(t, r.Filters)
}

func TestParseValueWithDots(t *testing.T) {
	v := url.Values{"ip": {"eq.192.168.1.1"}}
	r := Parse(v)
	require.Len(t, r.Filters, 1)
	assert.Equal(t, "192.168.1.1", r.Filters[0].Value)
}

func TestParseLegacySort(t *testing.T) {
	v := url.Values{"_sort": {"a,-b"}}
	r := Parse(v)
	require.Len(t, r.Order, 2)
	assert.Equal(t, OrderTerm{Column: "a", Desc: false}, r.Order[0])
	assert.Equal(t, OrderTerm{Column: "b", Desc: true}, r.Order[1])
}

func TestParsePostgRESTOrderTakesPrecedence(t *testing.T) {
	v := url.Values{"order": {"a.asc,b.desc"}, "_sort": {"z"}}
	r := Parse(v)
	require.Len(t, r.Order, 2)
	assert.False(t, r.Order[0].Desc)
	assert.True(t, r.Order[1].Desc)
}

func TestPaginationDefaults(t *testing.T) {
	r := Parse(url.Values{})
	assert.Equal(t, Pagination{Limit: 20, Offset: 0}, r.Pagination)
}

func TestPaginationLegacyPAndSize(t *testing.T) {
	v := url.Values{"_size": {"10"}, "_p": {"3"}}
	r := Parse(v)
	assert.Equal(t, 10, r.Pagination.Limit)
	assert.Equal(t, 21, r.Pagination.Offset) // (3-1)*10 + 1
}

func TestPaginationSizeCappedAt100(t *testing.T) {
	v := url.Values{"_size": {"500"}}
	r := Parse(v)
	assert.Equal(t, 100, r.Pagination.Limit)
}

func TestPaginationLimitOffsetOverrideLegacy(t *testing.T) {
	v := url.Values{"_size": {"10"}, "_p": {"3"}, "limit": {"5"}, "offset": {"5"}}
	r := Parse(v)
	assert.Equal(t, Pagination{Limit: 5, Offset: 5}, r.Pagination)
}

func TestParseLegacyWhere(t *testing.T) {
	v := url.Values{"_where": {`{"status":"active","deleted_at":null}`}}
	r := Parse(v)
	require.Len(t, r.Filters, 2)
}
