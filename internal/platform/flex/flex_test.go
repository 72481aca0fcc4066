package flex

import (
	"encoding/json"
	"testing"
)

func TestFloat(t *testing.T) {
	cases := map[string]struct {
		v  float64
		ok bool
	}{
		`12.5`:     {12.5, true},
		`"12.5"`:   {12.5, true},
		`" 7 "`:    {7, true},
		`"abc"`:    {0, false},
		`null`:     {0, false},
		`true`:     {0, false},
		`{"a": 1}`: {0, false},
	}
	for in, want := range cases {
		var f Float
		if err := json.Unmarshal([]byte(in), &f); err != nil {
			t.Errorf("%s: unexpected error %v", in, err)
		}
		v, ok := f.Optional().Get()
		if ok != want.ok || v != want.v {
			t.Errorf("%s: got (%v, %v), want (%v, %v)", in, v, ok, want.v, want.ok)
		}
	}
}

func TestBool(t *testing.T) {
	cases := map[string]struct {
		v  bool
		ok bool
	}{
		`true`:    {true, true},
		`false`:   {false, true},
		`"TRUE"`:  {true, true},
		`"0"`:     {false, true},
		`"maybe"`: {false, false},
		`null`:    {false, false},
		`1`:       {false, false},
	}
	for in, want := range cases {
		var f Bool
		_ = json.Unmarshal([]byte(in), &f)
		v, ok := f.Optional().Get()
		if ok != want.ok || v != want.v {
			t.Errorf("%s: got (%v, %v), want (%v, %v)", in, v, ok, want.v, want.ok)
		}
	}
}

func TestIDAndText(t *testing.T) {
	var id ID
	_ = json.Unmarshal([]byte(`123456789012345678901234567890`), &id)
	if v, _ := id.Optional().Get(); v != "123456789012345678901234567890" {
		t.Errorf("large numeric id lost digits: %q", v)
	}

	var empty ID
	_ = json.Unmarshal([]byte(`""`), &empty)
	if empty.Optional().Present() {
		t.Error("empty string id should be absent")
	}

	var txt Text
	_ = json.Unmarshal([]byte(`42`), &txt)
	if txt.Optional().Present() {
		t.Error("numeric text should be absent")
	}
	_ = json.Unmarshal([]byte(`"2025-01-01T00:00:00Z"`), &txt)
	if v, ok := txt.Optional().Get(); !ok || v != "2025-01-01T00:00:00Z" {
		t.Errorf("text = %q, %v", v, ok)
	}
}

func TestIsObject(t *testing.T) {
	if !IsObject([]byte(` {"a":1}`)) {
		t.Error("object not detected")
	}
	for _, in := range []string{`[]`, `42`, `"x"`, `null`, ``} {
		if IsObject([]byte(in)) {
			t.Errorf("%q detected as object", in)
		}
	}
}
