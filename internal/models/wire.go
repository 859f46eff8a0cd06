package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// WireNumber holds a numeric field exactly as the backend sent it.
// The backend encodes decimals as strings ("12.50") and aggregates as plain
// numbers; both land here. Decoding never fails: unexpected tokens are kept
// raw and simply fail to parse later in the mappers.
type WireNumber struct {
	Raw     string
	Present bool
}

// NewWireNumber wraps a raw value as if it had been received as a JSON string.
func NewWireNumber(raw string) WireNumber {
	return WireNumber{Raw: raw, Present: true}
}

func (n *WireNumber) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*n = WireNumber{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			*n = WireNumber{Raw: string(trimmed), Present: true}
			return nil
		}
		*n = WireNumber{Raw: s, Present: true}
		return nil
	}
	*n = WireNumber{Raw: string(trimmed), Present: true}
	return nil
}

func (n WireNumber) MarshalJSON() ([]byte, error) {
	if !n.Present {
		return []byte("null"), nil
	}
	return json.Marshal(n.Raw)
}

// Date is a parsed backend timestamp.
// A zero Raw means the field was not set; a non-empty Raw with Valid=false
// means the backend sent something unparseable. Callers must check Valid
// before formatting Time.
type Date struct {
	Raw   string
	Time  time.Time
	Valid bool
}

// IsSet reports whether the backend sent any value at all.
func (d Date) IsSet() bool {
	return d.Raw != ""
}

func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339))
}
