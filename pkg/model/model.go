// Package model implements the keyed parameter/result contract exchanged across
// the bridge. A model is a plain Go struct; its wire keys come from json tags,
// its constraints from model tags and its optional-field defaults from default
// tags. Decoding a raw map either yields a fully validated value or a
// *ValidationError naming the violated constraint. Unknown keys are ignored.
package model

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

const logPrefix = "model:model"

// Validator is implemented by models that need checks spanning several fields.
// It runs after tag constraints have passed.
type Validator interface {
	Validate() error
}

// ValidationError is returned when a raw map does not satisfy a model.
type ValidationError struct {
	Field      string `json:"field,omitempty"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Decode builds a T from raw. T must be a struct type.
func Decode[T any](raw map[string]interface{}) (T, error) {
	var out T
	if raw == nil {
		return out, &ValidationError{Constraint: "present", Message: "empty params"}
	}

	t := reflect.TypeOf(out)
	if t == nil || t.Kind() != reflect.Struct {
		return out, fmt.Errorf("%s - model must be a struct type, got %v", logPrefix, t)
	}
	s := schemaFor(t)
	if s.err != nil {
		return out, s.err
	}

	input := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		input[k] = v
	}

	var missing []string
	for _, f := range s.fields {
		if _, ok := raw[f.Name]; ok {
			continue
		}
		if f.Required {
			missing = append(missing, f.Name)
			continue
		}
		if f.defaultValue != nil {
			input[f.Name] = f.defaultValue
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return out, &ValidationError{
			Field:      missing[0],
			Constraint: "required",
			Message:    fmt.Sprintf("Missing required parameter(s): %s", strings.Join(missing, ", ")),
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &out,
	})
	if err != nil {
		return out, fmt.Errorf("%s - failed to build decoder: %w", logPrefix, err)
	}
	if err := dec.Decode(input); err != nil {
		return out, &ValidationError{
			Constraint: "type",
			Message:    fmt.Sprintf("Invalid parameter type: %v", err),
		}
	}

	if err := checkConstraints(reflect.ValueOf(out), s.fields, raw); err != nil {
		return out, err
	}

	if v, ok := interface{}(out).(Validator); ok {
		if err := v.Validate(); err != nil {
			if IsValidationError(err) {
				return out, err
			}
			return out, &ValidationError{Constraint: "custom", Message: err.Error()}
		}
	}
	return out, nil
}

func checkConstraints(v reflect.Value, fields []Field, raw map[string]interface{}) error {
	for _, f := range fields {
		if _, present := raw[f.Name]; !present {
			continue
		}
		fv := v.Field(f.index)
		for fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				break
			}
			fv = fv.Elem()
		}
		if fv.Kind() == reflect.Ptr {
			continue
		}

		if f.NonEmpty && fv.Kind() == reflect.String && strings.TrimSpace(fv.String()) == "" {
			msg := f.message
			if msg == "" {
				msg = fmt.Sprintf("%s must be a non-empty string", f.Name)
			}
			return &ValidationError{Field: f.Name, Constraint: "nonempty", Message: msg}
		}

		if f.Min != nil {
			n, ok := numeric(fv)
			if ok && n < *f.Min {
				msg := fmt.Sprintf("%s must be >= %g", f.Name, *f.Min)
				if *f.Min == 0 {
					msg = fmt.Sprintf("%s must be a non-negative number", f.Name)
				}
				return &ValidationError{Field: f.Name, Constraint: "min", Message: msg}
			}
		}

		if len(f.OneOf) > 0 && fv.Kind() == reflect.String && fv.String() != "" {
			found := false
			for _, allowed := range f.OneOf {
				if fv.String() == allowed {
					found = true
					break
				}
			}
			if !found {
				return &ValidationError{
					Field:      f.Name,
					Constraint: "oneof",
					Message:    fmt.Sprintf("%s must be one of %v", f.Name, f.OneOf),
				}
			}
		}
	}
	return nil
}

func numeric(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}

// ToMap converts a result model into its wire map. A nil result yields a nil
// map. Maps are copied; anything other than a struct or string-keyed map is an
// error.
func ToMap(v interface{}) (map[string]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		m, ok := rv.Interface().(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s - result map must be keyed by string, got %T", logPrefix, v)
		}
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, nil
	case reflect.Struct:
	default:
		return nil, fmt.Errorf("%s - result must be a struct or map, got %T", logPrefix, v)
	}

	out := make(map[string]interface{})
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &out,
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to build encoder: %w", logPrefix, err)
	}
	if err := dec.Decode(rv.Interface()); err != nil {
		return nil, fmt.Errorf("%s - failed to convert result: %w", logPrefix, err)
	}
	return out, nil
}
