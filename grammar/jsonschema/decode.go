// Package jsonschema decodes JSON Schema documents while preserving the
// order in which object properties were declared, which keeps the generated
// grammar deterministic.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Schema holds a decoded JSON schema.
type Schema struct {
	// Name is the name of the property. For the root schema this is
	// "root"; for child properties it is the property name.
	Name string `json:"-"`

	// Type is the type of the property.
	//
	// TODO: union types (e.g. make this a []string).
	Type string

	// PrefixItems is a list of schemas for each item in a tuple. The
	// tuple is "closed" unless Items is also set.
	PrefixItems []*Schema

	// Items is the schema for each item in a list.
	//
	// If it is missing, or its JSON value is "null" or "false", it is
	// nil. If the JSON value is "true", it is the empty Schema. If the
	// JSON value is an object, it is decoded as a Schema.
	Items *Schema

	// MinItems and MaxItems bound the number of items in a list.
	// MaxItems of zero means unbounded.
	MinItems int
	MaxItems int

	// Properties is the schema for each property of an object, in
	// declaration order.
	Properties []*Schema

	// Pattern is a regular expression the (decoded) string value must
	// match in full.
	Pattern string

	// Format is the format of the property. It is the caller's
	// responsibility to validate values against the format.
	Format string

	// Enum is a list of valid values for the property, as raw JSON.
	Enum []json.RawMessage

	// Const pins the property to a single value, as raw JSON.
	Const json.RawMessage
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	type S Schema
	w := struct {
		Properties props
		Items      items
		*S
	}{
		S: (*S)(s),
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Items.set {
		s.Items = &w.Items.Schema
	}
	s.Properties = w.Properties
	return nil
}

type items struct {
	Schema
	set bool
}

func (s *items) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return errors.New("empty Items")
	}
	switch b := data[0]; b {
	case 't':
		*s = items{set: true}
	case '{':
		type I items
		if err := json.Unmarshal(data, (*I)(s)); err != nil {
			return err
		}
		s.set = true
	case 'n', 'f':
	default:
		return errors.New("invalid Items")
	}
	return nil
}

// EffectiveType returns the effective type of the schema. If the Type field
// is not empty, it is returned; otherwise:
//
//   - If the schema has Properties, it returns "object".
//   - If the schema has Items or PrefixItems, it returns "array".
//   - Otherwise it returns "value".
//
// The returned string is never empty.
func (s *Schema) EffectiveType() string {
	if s.Type == "" {
		if len(s.Properties) > 0 {
			return "object"
		}
		if len(s.PrefixItems) > 0 || s.Items != nil {
			return "array"
		}
		return "value"
	}
	return s.Type
}

// props is an ordered list of properties. The order of the properties is
// the order in which they were defined in the schema document.
type props []*Schema

var _ json.Unmarshaler = (*props)(nil)

func (v *props) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] != '{' {
		return errors.New("expected object")
	}

	// Unknown fields are ignored, matching the common behavior of schema
	// consumers in sampling stacks.
	d := json.NewDecoder(bytes.NewReader(data))

	t, err := d.Token()
	if err != nil {
		return err
	}
	if t != json.Delim('{') {
		return errors.New("expected object")
	}
	for d.More() {
		// The first token is the map key; use it as the property name,
		// then decode the value into a Schema.
		t, err := d.Token()
		if err != nil {
			return err
		}
		if t == json.Delim('}') {
			return nil
		}
		s := &Schema{
			Name: t.(string),
		}
		if err := d.Decode(s); err != nil {
			return err
		}
		*v = append(*v, s)
	}
	return nil
}
