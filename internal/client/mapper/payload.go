// Package mapper translates between the remote store's wire rows and the
// domain models. Every function here is pure.
package mapper

import (
	"bytes"
	"encoding/json"
)

// Assignment is a single column/value pair of a write payload. A nil Value
// is written as NULL.
type Assignment struct {
	Column string
	Value  any
}

// Payload is an ordered column set used for inserts and partial updates.
// It marshals to a JSON object with keys in declaration order.
type Payload []Assignment

func (p Payload) Columns() []string {
	out := make([]string, len(p))
	for i, a := range p {
		out[i] = a.Column
	}
	return out
}

func (p Payload) Values() []any {
	out := make([]any, len(p))
	for i, a := range p {
		out[i] = a.Value
	}
	return out
}

func (p Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(a.Column)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
