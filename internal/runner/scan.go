package runner

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/sqlunit/internal/tabledata"
	"github.com/leapstack-labs/sqlunit/pkg/adapter"
)

// scanTable drains a result set into a table, normalizing driver values to
// the cell types the comparator understands: integers widen to int64, floats
// to float64, []byte becomes string, and timestamps collapse to their
// YYYY-MM-DD date form.
func scanTable(rows *adapter.Rows) (*tabledata.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	tbl := &tabledata.Table{
		Columns: append([]string(nil), cols...),
		Types:   make(map[string]string, len(cols)),
	}

	for rows.Next() {
		values := make([]any, len(cols))
		valuePtrs := make([]any, len(cols))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}

		row := make(tabledata.Row, len(cols))
		for i, col := range cols {
			cell, err := normalizeCell(values[i])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", col, err)
			}
			row[col] = cell
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}
	return tbl, nil
}

func normalizeCell(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool, int64, float64, string:
		return val, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return int64(val), nil
	case float32:
		return float64(val), nil
	case []byte:
		return string(val), nil
	case time.Time:
		return val.Format("2006-01-02"), nil
	default:
		return fmt.Sprintf("%v", val), nil
	}
}
