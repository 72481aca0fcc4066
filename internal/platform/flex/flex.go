// Package flex holds JSON field types that never fail to decode. Upstream
// market feeds are loose about types: ids arrive as strings or numbers,
// volume as "1234.5" or 1234.5, booleans as true or "true". A value of the
// wrong shape, or null, decodes to an absent domain.Optional.
package flex

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alanyoungcy/deadlinewatch/internal/domain"
)

// Bool unmarshals from JSON bool or string ("true"/"false"/"1"/"0").
type Bool struct {
	v   bool
	set bool
}

func (f *Bool) UnmarshalJSON(data []byte) error {
	if IsNull(data) {
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Bool{v: b, set: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		*f = Bool{v: true, set: true}
	case "false", "0":
		*f = Bool{v: false, set: true}
	}
	return nil
}

// Optional returns the decoded value.
func (f Bool) Optional() domain.Optional[bool] {
	if !f.set {
		return domain.None[bool]()
	}
	return domain.Some(f.v)
}

// ID accepts a non-empty JSON string or a JSON number, kept in its literal
// form so large ids keep every digit.
type ID struct {
	v   string
	set bool
}

func (f *ID) UnmarshalJSON(data []byte) error {
	if IsNull(data) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "" {
			*f = ID{v: s, set: true}
		}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = ID{v: n.String(), set: true}
	}
	return nil
}

// Optional returns the decoded value.
func (f ID) Optional() domain.Optional[string] {
	if !f.set {
		return domain.None[string]()
	}
	return domain.Some(f.v)
}

// Text accepts only a non-empty JSON string. Timestamps use it so a stray
// number is never mistaken for a date.
type Text struct {
	v   string
	set bool
}

func (f *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		*f = Text{v: s, set: true}
	}
	return nil
}

// Optional returns the decoded value.
func (f Text) Optional() domain.Optional[string] {
	if !f.set {
		return domain.None[string]()
	}
	return domain.Some(f.v)
}

// Float accepts a JSON number or a numeric string.
type Float struct {
	v   float64
	set bool
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if IsNull(data) {
		return nil
	}
	var x float64
	if err := json.Unmarshal(data, &x); err == nil {
		*f = Float{v: x, set: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if x, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		*f = Float{v: x, set: true}
	}
	return nil
}

// Optional returns the decoded value.
func (f Float) Optional() domain.Optional[float64] {
	if !f.set {
		return domain.None[float64]()
	}
	return domain.Some(f.v)
}

// IsNull reports whether data is the JSON null literal.
func IsNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

// IsObject reports whether data is a JSON object.
func IsObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}
