package model

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

const schemaLogPrefix = "model:schema"

// Field describes one keyed field of a model, derived from struct tags.
//
//	Key   string   `json:"key" model:"required,nonempty" msg:"key is blank"`
//	Limit *float64 `json:"limit" model:"min=0"`
//	Mode  string   `json:"mode" model:"oneof=a|b" default:"a"`
type Field struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Required bool     `json:"required"`
	NonEmpty bool     `json:"nonEmpty,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	OneOf    []string `json:"oneOf,omitempty"`
	Default  string   `json:"default,omitempty"`

	index        int
	defaultValue interface{}
	// message replaces the nonempty violation message when set.
	message string
}

type schema struct {
	fields []Field
	err    error
}

var schemaCache sync.Map // reflect.Type -> *schema

// Describe returns the field schema of a struct model type. Non-struct types
// have no fields.
func Describe(t reflect.Type) []Field {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	s := schemaFor(t)
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

func schemaFor(t reflect.Type) *schema {
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(*schema)
	}
	s := buildSchema(t)
	actual, _ := schemaCache.LoadOrStore(t, s)
	return actual.(*schema)
}

func buildSchema(t reflect.Type) *schema {
	s := &schema{}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}

		f := Field{Name: name, Kind: kindName(sf.Type), index: i, message: sf.Tag.Get("msg")}
		if err := parseConstraints(&f, sf.Tag.Get("model")); err != nil {
			s.err = fmt.Errorf("%s - %s.%s: %w", schemaLogPrefix, t.Name(), sf.Name, err)
			return s
		}
		if def, ok := sf.Tag.Lookup("default"); ok {
			v, err := parseDefault(sf.Type, def)
			if err != nil {
				s.err = fmt.Errorf("%s - %s.%s: bad default %q: %w", schemaLogPrefix, t.Name(), sf.Name, def, err)
				return s
			}
			f.Default = def
			f.defaultValue = v
		}
		s.fields = append(s.fields, f)
	}
	return s
}

func parseConstraints(f *Field, tag string) error {
	if tag == "" {
		return nil
	}
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case part == "required":
			f.Required = true
		case part == "nonempty":
			f.NonEmpty = true
		case strings.HasPrefix(part, "min="):
			n, err := strconv.ParseFloat(strings.TrimPrefix(part, "min="), 64)
			if err != nil {
				return fmt.Errorf("invalid min constraint %q", part)
			}
			f.Min = &n
		case strings.HasPrefix(part, "oneof="):
			f.OneOf = strings.Split(strings.TrimPrefix(part, "oneof="), "|")
		default:
			return fmt.Errorf("unknown constraint %q", part)
		}
	}
	return nil
}

func parseDefault(t reflect.Type, raw string) (interface{}, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return raw, nil
	case reflect.Bool:
		return strconv.ParseBool(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(raw, 10, 64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.ParseUint(raw, 10, 64)
	case reflect.Float32, reflect.Float64:
		return strconv.ParseFloat(raw, 64)
	default:
		return nil, fmt.Errorf("defaults are not supported for %s", t.Kind())
	}
}

func kindName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "any"
	}
}
