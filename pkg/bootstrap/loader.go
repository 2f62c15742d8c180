package bootstrap

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/morezero/method-pipe/pkg/methods/storage"
	"github.com/morezero/method-pipe/pkg/registry"
)

const logPrefix = "bootstrap:loader"

// EnvBootstrapFile names the environment variable holding a bootstrap path.
const EnvBootstrapFile = "PIPE_BOOTSTRAP_FILE"

// DefaultPaths are tried after explicit paths and EnvBootstrapFile.
var DefaultPaths = []string{"config/bootstrap.json", "config/bootstrap.yaml", "bootstrap.json"}

// LoadBootstrapConfig loads the first readable and parseable bootstrap file.
// Explicit paths come first, then EnvBootstrapFile, then DefaultPaths. The
// default config is returned when none loads.
func LoadBootstrapConfig(paths ...string) (*BootstrapConfig, error) {
	all := make([]string, 0, len(paths)+len(DefaultPaths)+1)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv(EnvBootstrapFile); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, DefaultPaths...)

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		cfg, err := ParseBootstrapConfig(p, data)
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse bootstrap file %s: %v", logPrefix, p, err))
			continue
		}
		slog.Info(fmt.Sprintf("%s - Loaded bootstrap config from %s", logPrefix, p))
		return cfg, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default bootstrap config", logPrefix))
	return GetDefaultBootstrapConfig(), nil
}

// ParseBootstrapConfig decodes data as YAML when path ends in .yaml or .yml
// and as JSON otherwise.
func ParseBootstrapConfig(path string, data []byte) (*BootstrapConfig, error) {
	var cfg BootstrapConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%s - invalid YAML: %w", logPrefix, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%s - invalid JSON: %w", logPrefix, err)
		}
	}
	return &cfg, nil
}

// GetDefaultBootstrapConfig returns the built-in bootstrap configuration.
func GetDefaultBootstrapConfig() *BootstrapConfig {
	return &BootstrapConfig{
		Name:        "method-pipe-bootstrap",
		Version:     "1.0.0",
		Description: "Default method pipe bootstrap configuration",
		Scopes:      []string{registry.ScopeGlobal},
		Aliases: map[string]string{
			"getStorageItem": storage.MethodGetItem,
			"setStorageItem": storage.MethodSetItem,
		},
	}
}

// CreateResolvedBootstrap builds a ResolvedBootstrap. A config without scopes
// registers the global scope.
func CreateResolvedBootstrap(cfg *BootstrapConfig) *ResolvedBootstrap {
	scopes := make([]string, 0, len(cfg.Scopes))
	seen := make(map[string]bool, len(cfg.Scopes))
	for _, s := range cfg.Scopes {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		scopes = append(scopes, s)
	}
	if len(scopes) == 0 {
		scopes = []string{registry.ScopeGlobal}
	}

	disabled := make(map[string]bool, len(cfg.Disabled))
	for _, name := range cfg.Disabled {
		disabled[strings.TrimSpace(name)] = true
	}

	aliases := make(map[string]string, len(cfg.Aliases))
	for alias, target := range cfg.Aliases {
		if alias == "" || target == "" || alias == target {
			slog.Warn(fmt.Sprintf("%s - ignoring alias %q -> %q", logPrefix, alias, target))
			continue
		}
		aliases[alias] = target
	}

	return &ResolvedBootstrap{
		name:     cfg.Name,
		version:  cfg.Version,
		scopes:   scopes,
		disabled: disabled,
		aliases:  aliases,
	}
}

// MergeBootstrapConfigs merges override into a copy of base. Scopes and
// Disabled are unions; aliases in override win.
func MergeBootstrapConfigs(base, override *BootstrapConfig) *BootstrapConfig {
	merged := *base

	if override.Name != "" {
		merged.Name = override.Name
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	if override.Description != "" {
		merged.Description = override.Description
	}

	merged.Scopes = union(base.Scopes, override.Scopes)
	merged.Disabled = union(base.Disabled, override.Disabled)

	merged.Aliases = make(map[string]string, len(base.Aliases)+len(override.Aliases))
	for alias, target := range base.Aliases {
		merged.Aliases[alias] = target
	}
	for alias, target := range override.Aliases {
		merged.Aliases[alias] = target
	}

	return &merged
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
