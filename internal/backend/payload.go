package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var errNotObject = errors.New("payload is not a JSON object")

// Payload is the backend's response body, kept verbatim. Its shape belongs
// to the backend and is never interpreted here.
type Payload []byte

// MarshalJSON emits the stored bytes unchanged.
func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

// UnmarshalJSON stores a copy of data.
func (p *Payload) UnmarshalJSON(data []byte) error {
	*p = append((*p)[:0], data...)
	return nil
}

// Empty reports whether no payload has been stored.
func (p Payload) Empty() bool { return len(p) == 0 }

// Map decodes the payload as a single JSON object. null, other JSON values
// and trailing data are errors.
func (p Payload) Map() (map[string]any, error) {
	var m map[string]any
	dec := json.NewDecoder(bytes.NewReader(p))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %w", errNotObject, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: null", errNotObject)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", errNotObject)
	}
	return m, nil
}

// Indent returns the payload pretty-printed with two-space indentation.
// Invalid payloads are returned as-is.
func (p Payload) Indent() string {
	if len(p) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, p, "", "  "); err != nil {
		return string(p)
	}
	return buf.String()
}

func (p Payload) String() string { return string(p) }
