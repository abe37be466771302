// internal/domain/models/values.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Number holds a numeric API field that the backend sends either as a JSON
// number or as a decimal string ("15200.00"). Raw keeps the text exactly as
// received so amounts round-trip without float formatting drift.
type Number struct {
	Raw   string
	Valid bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = Number{}
			return nil
		}
		*n = Number{Raw: s, Valid: true}
		return nil
	}
	var f json.Number
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("number: %w", err)
	}
	*n = Number{Raw: f.String(), Valid: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Raw)
}

// Float returns the parsed value, or 0 when the field is null or unparsable.
func (n Number) Float() float64 {
	if !n.Valid {
		return 0
	}
	f, err := strconv.ParseFloat(n.Raw, 64)
	if err != nil {
		return 0
	}
	return f
}

// Display renders the value for tables: "N/A" for null.
func (n Number) Display() string {
	if !n.Valid {
		return NotAvailable
	}
	return n.Raw
}

// Flag is a boolean the backend encodes as 0/1, true/false, or "1"/"0".
// Any other number counts as true when non-zero.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	v := strings.ToLower(strings.Trim(string(bytes.TrimSpace(b)), `"`))
	switch v {
	case "1", "true":
		*f = true
	case "0", "false", "null", "":
		*f = false
	default:
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("flag: unexpected value %s", b)
		}
		*f = n != 0
	}
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// YesNo renders the flag the way detail panels show it.
func (f Flag) YesNo() string {
	if f {
		return "Yes"
	}
	return "No"
}

// NotAvailable is shown in place of null fields.
const NotAvailable = "N/A"

// Show returns the string or "N/A" when s is nil or empty.
func Show(s *string) string {
	if s == nil || *s == "" {
		return NotAvailable
	}
	return *s
}
