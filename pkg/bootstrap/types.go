// Package bootstrap loads the startup configuration of a pipe: which manifest
// scopes are registered, which methods stay disabled and which alternative
// method names resolve to which method.
package bootstrap

import (
	"sort"

	"github.com/morezero/method-pipe/pkg/registry"
)

// BootstrapConfig is the root bootstrap document.
type BootstrapConfig struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Scopes lists the manifest scopes registered into the global registry.
	Scopes []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
	// Disabled lists method names skipped during auto-registration.
	Disabled []string `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	// Aliases maps an alternative name to a method name.
	Aliases map[string]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// ResolvedBootstrap provides fast lookups over a BootstrapConfig.
type ResolvedBootstrap struct {
	name     string
	version  string
	scopes   []string
	disabled map[string]bool
	aliases  map[string]string
}

// Name returns the bootstrap config name.
func (rb *ResolvedBootstrap) Name() string {
	return rb.name
}

// Version returns the bootstrap config version.
func (rb *ResolvedBootstrap) Version() string {
	return rb.version
}

// Scopes returns the registered manifest scopes.
func (rb *ResolvedBootstrap) Scopes() []string {
	out := make([]string, len(rb.scopes))
	copy(out, rb.scopes)
	return out
}

// IsDisabled reports whether name must not be registered.
func (rb *ResolvedBootstrap) IsDisabled(name string) bool {
	return rb.disabled[name]
}

// ResolveAlias resolves an alias to its method name. Unknown names are
// returned unchanged.
func (rb *ResolvedBootstrap) ResolveAlias(alias string) string {
	if resolved, ok := rb.aliases[alias]; ok {
		return resolved
	}
	return alias
}

// Aliases returns the alias names, sorted.
func (rb *ResolvedBootstrap) Aliases() []string {
	names := make([]string, 0, len(rb.aliases))
	for a := range rb.aliases {
		names = append(names, a)
	}
	sort.Strings(names)
	return names
}

// Filter returns the entries of manifest in scope that are not disabled.
func (rb *ResolvedBootstrap) Filter(manifest registry.Manifest, scope string) registry.Manifest {
	var out registry.Manifest
	for _, e := range manifest.Scoped(scope) {
		if rb.IsDisabled(e.Name) {
			continue
		}
		out = append(out, e)
	}
	return out
}
