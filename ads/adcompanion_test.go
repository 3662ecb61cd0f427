package ads

import (
	"encoding/json"
	"reflect"
	"testing"
)

const companionJSON = `{
	"width": 300,
	"height": 250,
	"type": "image/png",
	"source": "https://ads.example.com/banner.png",
	"trackers": {
		"creativeView": ["https://t.example.com/a", "https://t.example.com/b"],
		"click": ["https://t.example.com/c"]
	},
	"clickthrough": "https://brand.example.com"
}`

func jsonEquivalent(t *testing.T, a, b []byte) bool {
	t.Helper()
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		t.Fatalf("invalid json %s: %v", a, err)
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		t.Fatalf("invalid json %s: %v", b, err)
	}
	return reflect.DeepEqual(va, vb)
}

func TestParseAdCompanion(t *testing.T) {
	c, err := ParseAdCompanion([]byte(companionJSON))
	if err != nil {
		t.Fatalf("ParseAdCompanion() err = %v", err)
	}

	want := &AdCompanion{
		Width:  300,
		Height: 250,
		Type:   "image/png",
		Source: "https://ads.example.com/banner.png",
		Trackers: map[string][]string{
			"creativeView": {"https://t.example.com/a", "https://t.example.com/b"},
			"click":        {"https://t.example.com/c"},
		},
		ClickThrough: "https://brand.example.com",
	}
	if !c.Equal(want) {
		t.Fatalf("got: %+v, want: %+v", c, want)
	}
}

func TestParseAdCompanionDefaults(t *testing.T) {
	tt := []struct {
		name  string
		input string
		want  AdCompanion
	}{
		{
			name:  "empty object",
			input: `{}`,
			want:  AdCompanion{Trackers: map[string][]string{}},
		},
		{
			name:  "numeric strings and string coercion",
			input: `{"width":"640","height":480.9,"type":5}`,
			want:  AdCompanion{Width: 640, Height: 480, Type: "5", Trackers: map[string][]string{}},
		},
		{
			name:  "malformed trackers skipped",
			input: `{"trackers":{"ok":["u1",2],"bad":"nope","worse":{"x":1}}}`,
			want:  AdCompanion{Trackers: map[string][]string{"ok": {"u1", "2"}}},
		},
		{
			name:  "trackers not an object",
			input: `{"trackers":["u1"]}`,
			want:  AdCompanion{Trackers: map[string][]string{}},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAdCompanion([]byte(tc.input))
			if err != nil {
				t.Fatalf("%s: err = %v", tc.name, err)
			}
			if !got.Equal(&tc.want) {
				t.Fatalf("%s: got: %+v, want: %+v", tc.name, got, tc.want)
			}
		})
	}
}

func TestParseAdCompanionNotObject(t *testing.T) {
	for _, input := range []string{
		`[]`, `"x"`, `42`, ``, `{"width":`,
		`{"width":}`,
		`{"trackers":{"a":["x",}}`,
		`{"width":1} garbage`,
	} {
		if _, err := ParseAdCompanion([]byte(input)); err == nil {
			t.Errorf("ParseAdCompanion(%q) err = nil, want error", input)
		}
	}
}

func TestAdCompanionRoundTrip(t *testing.T) {
	c, err := ParseAdCompanion([]byte(companionJSON))
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() err = %v", err)
	}
	if !jsonEquivalent(t, out, []byte(companionJSON)) {
		t.Fatalf("round trip mismatch: got: %s", out)
	}
}

func TestAdCompanionEqualAndHash(t *testing.T) {
	a, err := ParseAdCompanion([]byte(companionJSON))
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseAdCompanion([]byte(companionJSON))
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Fatal("identical companions are not equal")
	}
	if a.Hash() != b.Hash() {
		t.Fatal("identical companions hash differently")
	}

	b.Trackers["click"] = []string{"https://t.example.com/other"}
	if a.Equal(b) {
		t.Fatal("companions with different trackers are equal")
	}

	var nilCompanion *AdCompanion
	if a.Equal(nilCompanion) {
		t.Fatal("companion equals nil")
	}
}

func TestParseAdCompanions(t *testing.T) {
	input := `[` + companionJSON + `,{"width":1,"height":2}]`
	got, err := ParseAdCompanions([]byte(input))
	if err != nil {
		t.Fatalf("ParseAdCompanions() err = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Width != 300 || got[1].Width != 1 || got[1].Height != 2 {
		t.Fatalf("order not preserved: %+v", got)
	}
}

func TestParseAdCompanionsMalformedElement(t *testing.T) {
	tt := []struct {
		name  string
		input string
	}{
		{"string element", `[{"width":1}, "oops"]`},
		{"null element", `[null]`},
		{"nested array", `[{"width":1},[1,2]]`},
		{"not an array", `{"width":1}`},
		{"malformed element", `[{"width":1},{"width":}]`},
		{"trailing data", `[{"width":1}] trailing`},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAdCompanions([]byte(tc.input))
			if err == nil {
				t.Fatalf("%s: err = nil, want error", tc.name)
			}
			if got != nil {
				t.Fatalf("%s: got: %+v, want nil", tc.name, got)
			}
		})
	}
}

func TestCompanionsToJSON(t *testing.T) {
	if got := string(CompanionsToJSON(nil)); got != "[]" {
		t.Fatalf("CompanionsToJSON(nil) = %s, want []", got)
	}

	companions := []AdCompanion{
		{Width: 1, Type: "a"},
		{Width: 2, Type: "b"},
	}
	out := CompanionsToJSON(companions)
	back, err := ParseAdCompanions(out)
	if err != nil {
		t.Fatalf("ParseAdCompanions() err = %v", err)
	}
	if !companionsEqual(companions, back) {
		t.Fatalf("got: %+v, want: %+v", back, companions)
	}
}
