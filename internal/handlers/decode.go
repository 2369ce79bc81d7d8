package handlers

import (
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"

	"smf/internal/selectplan"
)

// toInt coerces a scanned scalar (int64, float64, string, or []byte
// already normalized to string by dbctx.ScanRows) to an int, defaulting to
// 0 for anything it can't parse.
func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	case string:
		parsed, _ := strconv.Atoi(n)
		return parsed
	default:
		return 0
	}
}

// splitFields parses a comma-separated _fields query parameter.
func splitFields(raw string) []string {
	var out []string
	for _, f := range strings.Split(raw, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// decodeRelationColumns JSON-decodes each embedded-relation column the
// compiler emitted as a JSON_OBJECT/JSON_ARRAYAGG text value, so the
// response shaper serializes it back out as nested JSON rather than as an
// escaped string. The compiler nests multi-level embeds entirely in SQL,
// so decoding only the tree's immediate relation aliases is sufficient —
// their text already carries any deeper nesting pre-expanded.
func decodeRelationColumns(tree *selectplan.Tree, rows []map[string]any) {
	if tree == nil || len(tree.Relations) == 0 {
		return
	}
	for _, rel := range tree.Relations {
		for _, row := range rows {
			raw, ok := row[rel.Target].(string)
			if !ok {
				continue
			}
			var decoded any
			if err := gojson.Unmarshal([]byte(raw), &decoded); err == nil {
				row[rel.Target] = decoded
			}
		}
	}
}
