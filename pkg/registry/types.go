// Package registry implements the Method Registry: an explicitly constructed
// name to Method mapping with lazy factories, manifest auto-registration and
// last-registration-wins semantics.
package registry

import "github.com/morezero/method-pipe/pkg/method"

// ScopeGlobal tags methods every pipe sees.
const ScopeGlobal = "global"

// Error codes carried by RegistryError.
const (
	ErrCodeInvalidMethod = "INVALID_METHOD"
	ErrCodeEmptyManifest = "EMPTY_MANIFEST"
)

// Entry is one manifest line: a method name, the scope it belongs to and the
// constructor building it.
type Entry struct {
	Name  string
	Scope string
	New   func() method.Method
}

// Manifest is an ordered list of entries. Later entries win over earlier ones
// with the same name.
type Manifest []Entry

// Scoped returns the entries tagged with scope, in manifest order.
func (m Manifest) Scoped(scope string) Manifest {
	var out Manifest
	for _, e := range m {
		if e.Scope == scope {
			out = append(out, e)
		}
	}
	return out
}

// HealthOutput holds the result of the health method.
type HealthOutput struct {
	Status    string          `json:"status"`
	Methods   int             `json:"methods"`
	Checks    map[string]bool `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// RegistryError is a structured error from the registry.
type RegistryError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *RegistryError) Error() string {
	return e.Code + ": " + e.Message
}

// NewRegistryError creates a new RegistryError.
func NewRegistryError(code, message string) *RegistryError {
	return &RegistryError{Code: code, Message: message}
}
