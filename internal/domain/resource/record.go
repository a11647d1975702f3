// Package resource models the records served by the inventory API. Records
// are opaque: the console only relies on the numeric id and a display label.
package resource

import (
	"encoding/json"
	"math"
	"strconv"
)

// Record is one entity as returned by the API.
type Record map[string]any

// labelFields are tried in order by Label.
var labelFields = []string{"nombre", "name", "descripcion", "razonSocial", "codigo"}

// ID returns the record's numeric id.
func (r Record) ID() (int64, bool) {
	return toInt64(r["id"])
}

// Label returns a human readable name for the record, falling back to the id.
func (r Record) Label() string {
	for _, f := range labelFields {
		if s, ok := r[f].(string); ok && s != "" {
			return s
		}
	}
	if id, ok := r.ID(); ok {
		return strconv.FormatInt(id, 10)
	}
	return ""
}

// Int returns the named field as an integer.
func (r Record) Int(field string) (int64, bool) {
	return toInt64(r[field])
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case float64:
		return floatToInt(n)
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
