package query

import (
	"encoding/json"
	"strings"

	"github.com/lib/pq"

	"github.com/ostinato-db/ostinato/dialect"
	"github.com/ostinato-db/ostinato/engine"
	"github.com/ostinato-db/ostinato/schema"
	"github.com/ostinato-db/ostinato/schema/column"
)

// processRows normalises raw result rows by the selected columns'
// kinds: aggregated relationship columns become real lists, array
// columns revive from their wire form, JSON columns optionally decode,
// and flat traversal keys optionally nest. Values of keys with no
// known kind pass through untouched.
func processRows(rows []engine.Row, dialectName string, kinds map[string]column.Kind, loadJSON, nested bool) ([]engine.Row, error) {
	for _, row := range rows {
		for key, val := range row {
			if strings.HasSuffix(key, schema.M2MSuffix) {
				delete(row, key)
				row[strings.TrimSuffix(key, schema.M2MSuffix)] = splitConcat(val)
				continue
			}
			switch kinds[key] {
			case column.TypeArray:
				if dialect.NativeArrays(dialectName) {
					if decoded, ok := decodeArray(val); ok {
						row[key] = decoded
					}
				}
			case column.TypeJSON, column.TypeJSONB:
				if loadJSON {
					if decoded, ok := decodeJSON(val); ok {
						row[key] = decoded
					}
				}
			}
		}
	}
	if nested {
		for i, row := range rows {
			rows[i] = nestRow(row)
		}
	}
	return rows, nil
}

// splitConcat turns a group_concat readout into a list of strings. A
// NULL aggregate means no related rows.
func splitConcat(val any) []string {
	var s string
	switch v := val.(type) {
	case nil:
		return []string{}
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return []string{}
	}
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

// decodeArray revives a Postgres array wire value ("{a,b}") into a
// string slice. Values without the wire shape pass through.
func decodeArray(val any) ([]string, bool) {
	var raw string
	switch v := val.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return nil, false
	}
	if len(raw) < 2 || raw[0] != '{' || raw[len(raw)-1] != '}' {
		return nil, false
	}
	var arr pq.StringArray
	if err := arr.Scan(raw); err != nil {
		return nil, false
	}
	return []string(arr), true
}

func decodeJSON(val any) (any, bool) {
	var raw []byte
	switch v := val.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return nil, false
	}
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) == 0 {
		return nil, false
	}
	switch trimmed[0] {
	case '{', '[':
	default:
		return nil, false
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// nestRow splits "manager$name" keys into nested maps, so a traversed
// readout hydrates as {"manager": {"name": ...}}.
func nestRow(row engine.Row) engine.Row {
	out := engine.Row{}
	for key, val := range row {
		parts := strings.Split(key, "$")
		cur := out
		for i, part := range parts {
			if i == len(parts)-1 {
				cur[part] = val
				break
			}
			next, ok := cur[part].(engine.Row)
			if !ok {
				next = engine.Row{}
				cur[part] = next
			}
			cur = next
		}
	}
	return out
}
