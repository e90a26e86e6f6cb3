// Package query builds the filter, ordering and paging expressions the
// backend accepts on document listings.
package query

import (
	"encoding/json"
	"fmt"
)

// Method names understood by the backend
const (
	MethodEqual     = "equal"
	MethodNotEqual  = "notEqual"
	MethodSearch    = "search"
	MethodOrderAsc  = "orderAsc"
	MethodOrderDesc = "orderDesc"
	MethodLimit     = "limit"
	MethodOffset    = "offset"
	MethodOr        = "or"
	MethodAnd       = "and"
)

// Query is one expression. Logical methods (or/and) carry their operands in Values.
type Query struct {
	Method    string        `json:"method"`
	Attribute string        `json:"attribute,omitempty"`
	Values    []interface{} `json:"values,omitempty"`
}

// Equal matches documents whose attribute equals any of values.
func Equal(attribute string, values ...interface{}) Query {
	return Query{Method: MethodEqual, Attribute: attribute, Values: values}
}

// NotEqual matches documents whose attribute differs from value.
func NotEqual(attribute string, value interface{}) Query {
	return Query{Method: MethodNotEqual, Attribute: attribute, Values: []interface{}{value}}
}

// Search runs a full-text search on attribute.
func Search(attribute, value string) Query {
	return Query{Method: MethodSearch, Attribute: attribute, Values: []interface{}{value}}
}

// OrderAsc sorts ascending by attribute.
func OrderAsc(attribute string) Query {
	return Query{Method: MethodOrderAsc, Attribute: attribute}
}

// OrderDesc sorts descending by attribute.
func OrderDesc(attribute string) Query {
	return Query{Method: MethodOrderDesc, Attribute: attribute}
}

// Limit caps the number of results.
func Limit(n int) Query {
	return Query{Method: MethodLimit, Values: []interface{}{n}}
}

// Offset skips the first n results.
func Offset(n int) Query {
	return Query{Method: MethodOffset, Values: []interface{}{n}}
}

// Or matches documents satisfying any of queries.
func Or(queries ...Query) Query {
	return Query{Method: MethodOr, Values: toValues(queries)}
}

func toValues(queries []Query) []interface{} {
	values := make([]interface{}, len(queries))
	for i, q := range queries {
		values[i] = q
	}
	return values
}

// IsLogical reports whether q combines nested queries.
func (q Query) IsLogical() bool {
	return q.Method == MethodOr || q.Method == MethodAnd
}

// Operands returns the nested queries of a logical query.
func (q Query) Operands() []Query {
	if !q.IsLogical() {
		return nil
	}
	out := make([]Query, 0, len(q.Values))
	for _, v := range q.Values {
		if nested, ok := v.(Query); ok {
			out = append(out, nested)
		}
	}
	return out
}

// IntValue returns the first value as an int (limit/offset).
func (q Query) IntValue() (int, error) {
	if len(q.Values) == 0 {
		return 0, fmt.Errorf("%s: missing value", q.Method)
	}
	switch v := q.Values[0].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%s: value %v is not a number", q.Method, v)
	}
}

// String encodes q the way the backend expects it in a queries[] parameter.
func (q Query) String() string {
	b, err := json.Marshal(q)
	if err != nil {
		return ""
	}
	return string(b)
}

// UnmarshalJSON decodes nested operands of logical queries back into Query values.
func (q *Query) UnmarshalJSON(b []byte) error {
	var raw struct {
		Method    string            `json:"method"`
		Attribute string            `json:"attribute"`
		Values    []json.RawMessage `json:"values"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	out := Query{Method: raw.Method, Attribute: raw.Attribute}
	for _, rv := range raw.Values {
		if out.IsLogical() {
			var nested Query
			if err := json.Unmarshal(rv, &nested); err != nil {
				return err
			}
			out.Values = append(out.Values, nested)
			continue
		}
		var v interface{}
		if err := json.Unmarshal(rv, &v); err != nil {
			return err
		}
		out.Values = append(out.Values, v)
	}
	*q = out
	return nil
}

// Parse decodes a queries[] parameter value.
func Parse(s string) (Query, error) {
	var q Query
	if err := json.Unmarshal([]byte(s), &q); err != nil {
		return Query{}, fmt.Errorf("invalid query %q: %w", s, err)
	}
	if q.Method == "" {
		return Query{}, fmt.Errorf("invalid query %q: missing method", s)
	}
	return q, nil
}

// Strings encodes a list of queries.
func Strings(queries []Query) []string {
	out := make([]string, len(queries))
	for i, q := range queries {
		out[i] = q.String()
	}
	return out
}
