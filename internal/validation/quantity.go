package validation

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Quantity holds the raw "quantidade" value exactly as the client sent it,
// so a non-numeric value becomes a validation error instead of a parse error.
type Quantity struct {
	raw    string
	set    bool
	number bool
}

// NewQuantity builds a Quantity from a form or query value.
func NewQuantity(raw string) Quantity {
	return Quantity{raw: raw, set: raw != ""}
}

// UnmarshalJSON accepts numbers, numeric strings and null. Anything else is
// kept as-is and rejected later by Int.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*q = Quantity{}
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*q = NewQuantity(s)
	default:
		*q = Quantity{raw: string(b), set: true, number: true}
	}
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler for form decoding.
func (q *Quantity) UnmarshalText(text []byte) error {
	*q = NewQuantity(string(text))
	return nil
}

// IsSet reports whether a value was supplied at all.
func (q Quantity) IsSet() bool { return q.set }

// Int returns the value as an int. ok is false when the value is missing, is
// not an integer or does not fit in 32 bits.
func (q Quantity) Int() (n int, ok bool) {
	if !q.set {
		return 0, false
	}
	s := strings.TrimSpace(q.raw)
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int(n), true
	}
	if !q.number {
		return 0, false
	}
	// JSON numbers such as 3.0 or 1e2 are integers too.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}
