// Package respond shapes HTTP responses and PostgREST-specific headers:
// Content-Range, the singular-object Accept contract, and the
// return=representation body/status contract. It never touches SQL —
// the operation handlers hand it already-fetched rows.
package respond

import (
	"fmt"
	"net/http"
	"strconv"

	gojson "github.com/goccy/go-json"
)

// SingularAccept is the Accept header value that requests the singular
// object contract instead of a JSON array.
const SingularAccept = "application/vnd.pgrst.object+json"

// ContentRange renders the `<start>-<end>/<total>` text for the
// Content-Range header. total < 0 renders "*" (unknown/not requested); an
// empty page (count == 0) renders PostgREST's "*/<total>" form regardless
// of start/end.
func ContentRange(start, end, count int, total int) string {
	totalText := "*"
	if total >= 0 {
		totalText = strconv.Itoa(total)
	}
	if count == 0 {
		return fmt.Sprintf("*/%s", totalText)
	}
	return fmt.Sprintf("%d-%d/%s", start, end, totalText)
}

// WriteJSON encodes body as JSON and writes it with status, setting
// Content-Type. The status line is written before the body is encoded, so
// an encoding error returned to the caller can no longer change the
// status; callers log it.
func WriteJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return gojson.NewEncoder(w).Encode(body)
}

// Rows is the handler-facing decoded result set: column-keyed rows in the
// order the database returned them.
type Rows = []map[string]any

// SingularError is returned by Singular when the Accept header requests
// exactly one object but the result set doesn't have exactly one row.
type SingularError struct {
	Count int
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("respond: singular object requested but result set has %d rows", e.Count)
}

// Singular applies the Accept: application/vnd.pgrst.object+json contract:
// when accept is SingularAccept, rows must carry exactly one row, which is
// returned unwrapped; otherwise *SingularError (the caller responds 406).
// Any other Accept value passes rows through as a JSON array unchanged.
func Singular(accept string, rows Rows) (any, error) {
	if accept != SingularAccept {
		return rows, nil
	}
	if len(rows) != 1 {
		return nil, &SingularError{Count: len(rows)}
	}
	return rows[0], nil
}

// ListResponse is everything WriteList needs to shape a list/relational
// response: the fetched page, whether the client asked for an exact count
// (Prefer: count=exact), the total row count when known, and pagination
// bounds for Content-Range.
type ListResponse struct {
	Rows      Rows
	Accept    string
	WantCount bool
	Total     int // only meaningful when WantCount is true
	Offset    int
}

// WriteList shapes and writes a list/relational response: Content-Range
// when applicable, and the singular-object contract when requested.
func WriteList(w http.ResponseWriter, lr ListResponse) error {
	total := -1
	if lr.WantCount {
		total = lr.Total
	}
	if lr.WantCount {
		start := lr.Offset
		end := lr.Offset + len(lr.Rows) - 1
		if len(lr.Rows) == 0 {
			end = lr.Offset - 1
		}
		w.Header().Set("Content-Range", ContentRange(start, end, len(lr.Rows), total))
	}

	body, err := Singular(lr.Accept, lr.Rows)
	if err != nil {
		if _, ok := err.(*SingularError); ok {
			http.Error(w, err.Error(), http.StatusNotAcceptable)
			return nil
		}
		return err
	}
	return WriteJSON(w, http.StatusOK, body)
}

// CreateResponse shapes a create (POST) response: 201 with the inserted
// rows when return=representation was requested, otherwise 200 with
// driver metadata only.
func CreateResponse(w http.ResponseWriter, representation bool, rows Rows, lastInsertID, affected int64) error {
	if representation {
		return WriteJSON(w, http.StatusCreated, rows)
	}
	return WriteJSON(w, http.StatusOK, map[string]any{
		"lastInsertId": lastInsertID,
		"affectedRows": affected,
	})
}

// MutationResponse shapes a patch/update/delete response: the
// pre-captured affected rows when return=representation was requested,
// otherwise just an affected-row count.
func MutationResponse(w http.ResponseWriter, representation bool, rows Rows, affected int64) error {
	if representation {
		return WriteJSON(w, http.StatusOK, rows)
	}
	return WriteJSON(w, http.StatusOK, map[string]any{"affectedRows": affected})
}
