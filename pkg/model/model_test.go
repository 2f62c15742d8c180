package model

import (
	"reflect"
	"strings"
	"testing"
)

const modelTestPrefix = "model:model_test"

type openParams struct {
	Scheme      string                 `json:"scheme" model:"required,nonempty"`
	Replace     bool                   `json:"replace"`
	ReplaceType string                 `json:"replaceType" model:"oneof=alwaysCloseBeforeOpen|alwaysCloseAfterOpen"`
	Animated    bool                   `json:"animated" default:"true"`
	Retries     int                    `json:"retries" default:"3"`
	Extra       map[string]interface{} `json:"extra"`
}

type ttlParams struct {
	Key           string      `json:"key" model:"required,nonempty"`
	Data          interface{} `json:"data" model:"required"`
	ValidDuration *float64    `json:"validDuration" model:"min=0"`
}

type pairParams struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (p pairParams) Validate() error {
	if p.To < p.From {
		return &ValidationError{Field: "to", Constraint: "range", Message: "to must not be before from"}
	}
	return nil
}

func TestDecode_RequiredAndDefaults(t *testing.T) {
	tests := []struct {
		name        string
		raw         map[string]interface{}
		wantErr     string
		wantScheme  string
		wantAnim    bool
		wantRetries int
	}{
		{
			name:        "defaults applied for absent optional keys",
			raw:         map[string]interface{}{"scheme": "hybrid://page"},
			wantScheme:  "hybrid://page",
			wantAnim:    true,
			wantRetries: 3,
		},
		{
			name:        "explicit values override defaults",
			raw:         map[string]interface{}{"scheme": "hybrid://page", "animated": false, "retries": float64(1)},
			wantScheme:  "hybrid://page",
			wantAnim:    false,
			wantRetries: 1,
		},
		{
			name:        "unknown keys are ignored",
			raw:         map[string]interface{}{"scheme": "x://y", "whatever": 12, "nested": map[string]interface{}{"a": 1}},
			wantScheme:  "x://y",
			wantAnim:    true,
			wantRetries: 3,
		},
		{
			name:    "missing required key",
			raw:     map[string]interface{}{"replace": true},
			wantErr: "Missing required parameter(s): scheme",
		},
		{
			name:    "whitespace-only required string",
			raw:     map[string]interface{}{"scheme": "   "},
			wantErr: "scheme must be a non-empty string",
		},
		{
			name:    "value outside oneof set",
			raw:     map[string]interface{}{"scheme": "x://y", "replaceType": "sometimes"},
			wantErr: "replaceType must be one of",
		},
		{
			name:    "wrong type",
			raw:     map[string]interface{}{"scheme": 42},
			wantErr: "Invalid parameter type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode[openParams](tt.raw)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("%s - expected error containing %q, got nil", modelTestPrefix, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("%s - error = %q, want it to contain %q", modelTestPrefix, err.Error(), tt.wantErr)
				}
				if !IsValidationError(err) {
					t.Errorf("%s - expected *ValidationError, got %T", modelTestPrefix, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s - unexpected error: %v", modelTestPrefix, err)
			}
			if got.Scheme != tt.wantScheme {
				t.Errorf("%s - Scheme = %q, want %q", modelTestPrefix, got.Scheme, tt.wantScheme)
			}
			if got.Animated != tt.wantAnim {
				t.Errorf("%s - Animated = %v, want %v", modelTestPrefix, got.Animated, tt.wantAnim)
			}
			if got.Retries != tt.wantRetries {
				t.Errorf("%s - Retries = %d, want %d", modelTestPrefix, got.Retries, tt.wantRetries)
			}
		})
	}
}

func TestDecode_MissingKeysAreSortedInMessage(t *testing.T) {
	_, err := Decode[ttlParams](map[string]interface{}{})
	if err == nil {
		t.Fatalf("%s - expected error", modelTestPrefix)
	}
	want := "Missing required parameter(s): data, key"
	if err.Error() != want {
		t.Errorf("%s - error = %q, want %q", modelTestPrefix, err.Error(), want)
	}
}

func TestDecode_NilMap(t *testing.T) {
	_, err := Decode[openParams](nil)
	if err == nil || err.Error() != "empty params" {
		t.Errorf("%s - expected empty params error, got %v", modelTestPrefix, err)
	}
}

func TestDecode_MinConstraint(t *testing.T) {
	_, err := Decode[ttlParams](map[string]interface{}{"key": "k", "data": "v", "validDuration": float64(-1)})
	if err == nil {
		t.Fatalf("%s - expected min violation", modelTestPrefix)
	}
	if err.Error() != "validDuration must be a non-negative number" {
		t.Errorf("%s - error = %q", modelTestPrefix, err.Error())
	}

	got, err := Decode[ttlParams](map[string]interface{}{"key": "k", "data": "v", "validDuration": float64(0)})
	if err != nil {
		t.Fatalf("%s - zero duration should pass: %v", modelTestPrefix, err)
	}
	if got.ValidDuration == nil || *got.ValidDuration != 0 {
		t.Errorf("%s - ValidDuration = %v, want 0", modelTestPrefix, got.ValidDuration)
	}

	got, err = Decode[ttlParams](map[string]interface{}{"key": "k", "data": "v"})
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", modelTestPrefix, err)
	}
	if got.ValidDuration != nil {
		t.Errorf("%s - absent ValidDuration should stay nil", modelTestPrefix)
	}
}

func TestDecode_RequiredAllowsNullValue(t *testing.T) {
	got, err := Decode[ttlParams](map[string]interface{}{"key": "k", "data": nil})
	if err != nil {
		t.Fatalf("%s - present null should satisfy required: %v", modelTestPrefix, err)
	}
	if got.Data != nil {
		t.Errorf("%s - Data = %v, want nil", modelTestPrefix, got.Data)
	}
}

func TestDecode_Validator(t *testing.T) {
	if _, err := Decode[pairParams](map[string]interface{}{"from": 2, "to": 1}); err == nil {
		t.Errorf("%s - expected Validate failure", modelTestPrefix)
	}
	got, err := Decode[pairParams](map[string]interface{}{"from": 1, "to": 2})
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", modelTestPrefix, err)
	}
	if got.From != 1 || got.To != 2 {
		t.Errorf("%s - got %+v", modelTestPrefix, got)
	}
}

func TestDecode_DoesNotMutateInput(t *testing.T) {
	raw := map[string]interface{}{"scheme": "x://y"}
	if _, err := Decode[openParams](raw); err != nil {
		t.Fatalf("%s - unexpected error: %v", modelTestPrefix, err)
	}
	if len(raw) != 1 {
		t.Errorf("%s - defaults leaked into caller map: %v", modelTestPrefix, raw)
	}
}

func TestDecode_NonStructModel(t *testing.T) {
	if _, err := Decode[string](map[string]interface{}{}); err == nil {
		t.Errorf("%s - expected error for non-struct model", modelTestPrefix)
	}
}

func TestDescribe(t *testing.T) {
	fields := Describe(reflect.TypeOf(openParams{}))
	if len(fields) != 6 {
		t.Fatalf("%s - got %d fields, want 6", modelTestPrefix, len(fields))
	}
	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		byName[f.Name] = f
	}
	if !byName["scheme"].Required || !byName["scheme"].NonEmpty {
		t.Errorf("%s - scheme should be required and nonempty: %+v", modelTestPrefix, byName["scheme"])
	}
	if byName["animated"].Default != "true" {
		t.Errorf("%s - animated default = %q, want true", modelTestPrefix, byName["animated"].Default)
	}
	if byName["retries"].Kind != "number" {
		t.Errorf("%s - retries kind = %q, want number", modelTestPrefix, byName["retries"].Kind)
	}
	if Describe(reflect.TypeOf(0)) != nil {
		t.Errorf("%s - non-struct types should have no fields", modelTestPrefix)
	}
}

func TestToMap(t *testing.T) {
	type result struct {
		Data  interface{} `json:"data,omitempty"`
		Count int         `json:"count"`
	}

	tests := []struct {
		name    string
		in      interface{}
		want    map[string]interface{}
		wantErr bool
	}{
		{name: "nil", in: nil, want: nil},
		{name: "nil pointer", in: (*result)(nil), want: nil},
		{name: "struct", in: result{Data: "v", Count: 2}, want: map[string]interface{}{"data": "v", "count": 2}},
		{name: "omitempty drops nil data", in: &result{Count: 1}, want: map[string]interface{}{"count": 1}},
		{name: "map copied", in: map[string]interface{}{"a": 1}, want: map[string]interface{}{"a": 1}},
		{name: "int rejected", in: 5, wantErr: true},
		{name: "int-keyed map rejected", in: map[int]string{1: "a"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMap(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("%s - expected error", modelTestPrefix)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s - unexpected error: %v", modelTestPrefix, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s - ToMap = %#v, want %#v", modelTestPrefix, got, tt.want)
			}
		})
	}
}

type blankKeyParams struct {
	Key string `json:"key" model:"required,nonempty" msg:"Key in the params is empty"`
}

func TestDecode_NonEmptyMessage(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]interface{}
		wantMsg string
	}{
		{name: "tag message", raw: map[string]interface{}{"key": "  "}, wantMsg: "Key in the params is empty"},
		{name: "missing stays required", raw: map[string]interface{}{}, wantMsg: "Missing required parameter(s): key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode[blankKeyParams](tt.raw)
			if err == nil || err.Error() != tt.wantMsg {
				t.Errorf("%s - err = %v, want %q", modelTestPrefix, err, tt.wantMsg)
			}
		})
	}

	if _, err := Decode[ttlParams](map[string]interface{}{"key": "", "data": 1.0}); err == nil || err.Error() != "key must be a non-empty string" {
		t.Errorf("%s - default nonempty message = %v", modelTestPrefix, err)
	}
}
