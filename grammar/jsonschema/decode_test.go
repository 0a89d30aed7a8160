package jsonschema

import (
	"encoding/json"
	"testing"
)

const testSchemaBasic = `
{
	"properties": {
		"tulips": { "type": "string" },
		"roses": { "type": "integer" },
		"asters": {
			"properties": {
				"color": { "enum": ["purple", "white"] }
			}
		}
	}
}
`

func TestSchemaUnmarshal(t *testing.T) {
	var got *Schema
	if err := json.Unmarshal([]byte(testSchemaBasic), &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	// Properties preserve declaration order.
	wantNames := []string{"tulips", "roses", "asters"}
	if len(got.Properties) != len(wantNames) {
		t.Fatalf("len(Properties) = %d, want %d", len(got.Properties), len(wantNames))
	}
	for i, name := range wantNames {
		if got.Properties[i].Name != name {
			t.Errorf("Properties[%d].Name = %q, want %q", i, got.Properties[i].Name, name)
		}
	}

	if got.Properties[1].Type != "integer" {
		t.Errorf("roses type = %q, want %q", got.Properties[1].Type, "integer")
	}
	nested := got.Properties[2]
	if len(nested.Properties) != 1 || nested.Properties[0].Name != "color" {
		t.Fatalf("nested properties = %#v", nested.Properties)
	}
	if n := len(nested.Properties[0].Enum); n != 2 {
		t.Errorf("len(color.Enum) = %d, want 2", n)
	}
}

func TestSchemaItems(t *testing.T) {
	cases := []struct {
		name     string
		data     string
		wantNil  bool
		wantType string
	}{
		{"absent", `{}`, true, ""},
		{"false", `{"items": false}`, true, ""},
		{"null", `{"items": null}`, true, ""},
		{"true", `{"items": true}`, false, ""},
		{"object", `{"items": {"type": "number"}}`, false, "number"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			var s *Schema
			if err := json.Unmarshal([]byte(tt.data), &s); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if (s.Items == nil) != tt.wantNil {
				t.Fatalf("Items = %#v, want nil = %v", s.Items, tt.wantNil)
			}
			if s.Items != nil && s.Items.Type != tt.wantType {
				t.Errorf("Items.Type = %q, want %q", s.Items.Type, tt.wantType)
			}
		})
	}
}

func TestEffectiveType(t *testing.T) {
	cases := []struct {
		data string
		want string
	}{
		{`{}`, "value"},
		{`{"type": "string"}`, "string"},
		{`{"properties": {"a": {}}}`, "object"},
		{`{"items": {}}`, "array"},
		{`{"prefixItems": [{}]}`, "array"},
		{`{"items": true}`, "array"},
	}

	for _, tt := range cases {
		t.Run(tt.want+"/"+tt.data, func(t *testing.T) {
			var s *Schema
			if err := json.Unmarshal([]byte(tt.data), &s); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if got := s.EffectiveType(); got != tt.want {
				t.Errorf("EffectiveType(%s) = %q, want %q", tt.data, got, tt.want)
			}
		})
	}
}
