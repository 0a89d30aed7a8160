package grammar

import (
	"reflect"
	"testing"
)

func rootRule(t *testing.T, schema string) Node {
	t.Helper()
	g, err := FromSchema([]byte(schema))
	if err != nil {
		t.Fatalf("FromSchema(%s): %v", schema, err)
	}
	if g.Start != "root" {
		t.Fatalf("Start = %q, want %q", g.Start, "root")
	}
	return g.Rules["root"]
}

func TestFromSchemaScalars(t *testing.T) {
	cases := []struct {
		name   string
		schema string
		want   Node
	}{
		{"boolean", `{"type":"boolean"}`, Ref("boolean")},
		{"null", `{"type":"null"}`, Literal("null")},
		{"integer", `{"type":"integer"}`, Concat{opt(Literal("-")), Ref("integer")}},
		{"number", `{"type":"number"}`, Ref("number")},
		{"string", `{"type":"string"}`, Ref("string")},
		{"any", `{}`, Ref("value")},
		{"const", `{"const": {"a": 1 }}`, Literal(`{"a":1}`)},
		{"enum", `{"enum":[1, "two", true]}`, Alt{Literal("1"), Literal(`"two"`), Literal("true")}},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := rootRule(t, tt.schema); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("root rule:\n got %#v\nwant %#v", got, tt.want)
			}
		})
	}
}

func TestFromSchemaObject(t *testing.T) {
	got := rootRule(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "integer"}
		}
	}`)
	want := Concat{
		Literal("{"),
		Literal(`"name":`), Ref("string"),
		Literal(","),
		Literal(`"age":`), Concat{opt(Literal("-")), Ref("integer")},
		Literal("}"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("root rule:\n got %#v\nwant %#v", got, want)
	}
}

func TestFromSchemaArray(t *testing.T) {
	cases := []struct {
		name   string
		schema string
		want   Node
	}{
		{
			name:   "open array",
			schema: `{"type":"array"}`,
			want:   Ref("array"),
		},
		{
			name:   "items",
			schema: `{"items":{"type":"boolean"}}`,
			want: Concat{
				Literal("["),
				opt(Concat{Ref("boolean"), Repeat{Body: Concat{Literal(","), Ref("boolean")}, Min: 0, Max: -1}}),
				Literal("]"),
			},
		},
		{
			name:   "items with bounds",
			schema: `{"items":{"type":"boolean"},"minItems":1,"maxItems":3}`,
			want: Concat{
				Literal("["),
				Concat{Ref("boolean"), Repeat{Body: Concat{Literal(","), Ref("boolean")}, Min: 0, Max: 2}},
				Literal("]"),
			},
		},
		{
			name:   "tuple",
			schema: `{"prefixItems":[{"type":"boolean"},{"type":"null"}]}`,
			want: Concat{
				Literal("["), Ref("boolean"), Literal(","), Literal("null"), Literal("]"),
			},
		},
		{
			name:   "bounds without items",
			schema: `{"type":"array","minItems":2}`,
			want: Concat{
				Literal("["),
				Concat{Ref("value"), Repeat{Body: Concat{Literal(","), Ref("value")}, Min: 1, Max: -1}},
				Literal("]"),
			},
		},
		{
			name:   "max bound without items",
			schema: `{"type":"array","maxItems":2}`,
			want: Concat{
				Literal("["),
				opt(Concat{Ref("value"), Repeat{Body: Concat{Literal(","), Ref("value")}, Min: 0, Max: 1}}),
				Literal("]"),
			},
		},
		{
			name:   "tuple exactly filling the max",
			schema: `{"prefixItems":[{"type":"null"}],"items":{"type":"boolean"},"maxItems":1}`,
			want:   Concat{Literal("["), Literal("null"), Literal("]")},
		},
		{
			name:   "tuple with rest",
			schema: `{"prefixItems":[{"type":"boolean"}],"items":{"type":"null"}}`,
			want: Concat{
				Literal("["), Ref("boolean"),
				Repeat{Body: Concat{Literal(","), Literal("null")}, Min: 0, Max: -1},
				Literal("]"),
			},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := rootRule(t, tt.schema); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("root rule:\n got %#v\nwant %#v", got, tt.want)
			}
		})
	}
}

func TestFromSchemaPattern(t *testing.T) {
	got := rootRule(t, `{"type":"string","pattern":"ab"}`)
	want := Concat{Literal(`"`), Literal("ab"), Literal(`"`)}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("root rule:\n got %#v\nwant %#v", got, want)
	}
}

func TestFromSchemaErrors(t *testing.T) {
	cases := []struct {
		name   string
		schema string
	}{
		{"not json", `{`},
		{"unknown type", `{"type":"quaternion"}`},
		{"bad pattern", `{"type":"string","pattern":"["}`},
		{"bad nested type", `{"properties":{"x":{"type":"quaternion"}}}`},
		{"max below tuple prefix", `{"prefixItems":[{},{}],"maxItems":1}`},
		{"min beyond closed tuple", `{"prefixItems":[{"type":"null"}],"minItems":3}`},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromSchema([]byte(tt.schema)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
