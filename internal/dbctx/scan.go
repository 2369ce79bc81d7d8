package dbctx

// ScanRows drains rows into a slice of column-keyed maps, closing rows
// before returning (on both success and error) so the caller never has to
// remember to release the connection itself. []byte values are converted
// to string, matching the driver's common text-protocol result shape for
// everything that isn't a native numeric/time type.
func ScanRows(rows *Rows) ([]map[string]any, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, name := range cols {
			row[name] = normalizeScanned(raw[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeScanned(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
