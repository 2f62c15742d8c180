package bootstrap

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/morezero/method-pipe/pkg/method"
	"github.com/morezero/method-pipe/pkg/registry"
)

const loaderTestPrefix = "bootstrap:loader_test"

func TestGetDefaultBootstrapConfig(t *testing.T) {
	cfg := GetDefaultBootstrapConfig()
	if cfg.Version != "1.0.0" {
		t.Errorf("%s - version = %s", loaderTestPrefix, cfg.Version)
	}
	if !reflect.DeepEqual(cfg.Scopes, []string{"global"}) {
		t.Errorf("%s - scopes = %v", loaderTestPrefix, cfg.Scopes)
	}
	if cfg.Aliases["getStorageItem"] != "storage.getItem" || cfg.Aliases["setStorageItem"] != "storage.setItem" {
		t.Errorf("%s - aliases = %v", loaderTestPrefix, cfg.Aliases)
	}
}

func TestCreateResolvedBootstrap(t *testing.T) {
	rb := CreateResolvedBootstrap(&BootstrapConfig{
		Name:     "test",
		Version:  "2.0.0",
		Scopes:   []string{" app ", "global", "app", ""},
		Disabled: []string{"router.close"},
		Aliases:  map[string]string{"close": "router.close", "self": "self", "": "x"},
	})

	if rb.Name() != "test" || rb.Version() != "2.0.0" {
		t.Errorf("%s - name/version = %s/%s", loaderTestPrefix, rb.Name(), rb.Version())
	}
	if !reflect.DeepEqual(rb.Scopes(), []string{"app", "global"}) {
		t.Errorf("%s - scopes = %v", loaderTestPrefix, rb.Scopes())
	}
	if !rb.IsDisabled("router.close") || rb.IsDisabled("router.open") {
		t.Errorf("%s - disabled set is wrong", loaderTestPrefix)
	}

	tests := []struct {
		in   string
		want string
	}{
		{in: "close", want: "router.close"},
		{in: "self", want: "self"},
		{in: "storage.getItem", want: "storage.getItem"},
	}
	for _, tt := range tests {
		if got := rb.ResolveAlias(tt.in); got != tt.want {
			t.Errorf("%s - ResolveAlias(%q) = %q, want %q", loaderTestPrefix, tt.in, got, tt.want)
		}
	}
	if !reflect.DeepEqual(rb.Aliases(), []string{"close"}) {
		t.Errorf("%s - aliases = %v", loaderTestPrefix, rb.Aliases())
	}

	if got := CreateResolvedBootstrap(&BootstrapConfig{}).Scopes(); !reflect.DeepEqual(got, []string{"global"}) {
		t.Errorf("%s - empty config scopes = %v", loaderTestPrefix, got)
	}
}

func TestFilter(t *testing.T) {
	newNil := func() method.Method { return nil }
	manifest := registry.Manifest{
		{Name: "a.one", Scope: "global", New: newNil},
		{Name: "a.two", Scope: "global", New: newNil},
		{Name: "b.one", Scope: "app", New: newNil},
	}
	rb := CreateResolvedBootstrap(&BootstrapConfig{Disabled: []string{"a.two"}})

	got := rb.Filter(manifest, "global")
	if len(got) != 1 || got[0].Name != "a.one" {
		t.Errorf("%s - Filter(global) = %+v", loaderTestPrefix, got)
	}
	if got := rb.Filter(manifest, "app"); len(got) != 1 || got[0].Name != "b.one" {
		t.Errorf("%s - Filter(app) = %+v", loaderTestPrefix, got)
	}
}

func TestLoadBootstrapConfig(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "boot.json")
	yamlPath := filepath.Join(dir, "boot.yaml")
	badPath := filepath.Join(dir, "bad.json")

	if err := os.WriteFile(jsonPath, []byte(`{"name":"from-json","version":"1.2.0","disabled":["router.open"]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	yamlDoc := "name: from-yaml\nversion: 1.3.0\nscopes: [global, app]\naliases:\n  open: router.open\n"
	if err := os.WriteFile(yamlPath, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(badPath, []byte(`{not json`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		paths    []string
		env      string
		wantName string
	}{
		{name: "json", paths: []string{jsonPath}, wantName: "from-json"},
		{name: "yaml", paths: []string{yamlPath}, wantName: "from-yaml"},
		{name: "skips unparseable", paths: []string{badPath, yamlPath}, wantName: "from-yaml"},
		{name: "skips missing", paths: []string{filepath.Join(dir, "missing.json"), jsonPath}, wantName: "from-json"},
		{name: "env", env: yamlPath, wantName: "from-yaml"},
		{name: "explicit before env", paths: []string{jsonPath}, env: yamlPath, wantName: "from-json"},
		{name: "default", paths: []string{filepath.Join(dir, "missing.json")}, wantName: "method-pipe-bootstrap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvBootstrapFile, tt.env)
			cfg, err := LoadBootstrapConfig(tt.paths...)
			if err != nil {
				t.Fatalf("%s - LoadBootstrapConfig: %v", loaderTestPrefix, err)
			}
			if cfg.Name != tt.wantName {
				t.Errorf("%s - name = %q, want %q", loaderTestPrefix, cfg.Name, tt.wantName)
			}
		})
	}

	cfg, _ := LoadBootstrapConfig(yamlPath)
	if cfg.Aliases["open"] != "router.open" || !reflect.DeepEqual(cfg.Scopes, []string{"global", "app"}) {
		t.Errorf("%s - yaml content = %+v", loaderTestPrefix, cfg)
	}
}

func TestMergeBootstrapConfigs(t *testing.T) {
	base := GetDefaultBootstrapConfig()
	override := &BootstrapConfig{
		Version:  "1.1.0",
		Scopes:   []string{"global", "app"},
		Disabled: []string{"router.close"},
		Aliases:  map[string]string{"getStorageItem": "app.getItem", "open": "router.open"},
	}
	merged := MergeBootstrapConfigs(base, override)

	if merged.Name != base.Name || merged.Version != "1.1.0" {
		t.Errorf("%s - name/version = %s/%s", loaderTestPrefix, merged.Name, merged.Version)
	}
	if !reflect.DeepEqual(merged.Scopes, []string{"global", "app"}) {
		t.Errorf("%s - scopes = %v", loaderTestPrefix, merged.Scopes)
	}
	if !reflect.DeepEqual(merged.Disabled, []string{"router.close"}) {
		t.Errorf("%s - disabled = %v", loaderTestPrefix, merged.Disabled)
	}
	if merged.Aliases["getStorageItem"] != "app.getItem" || merged.Aliases["setStorageItem"] != "storage.setItem" || merged.Aliases["open"] != "router.open" {
		t.Errorf("%s - aliases = %v", loaderTestPrefix, merged.Aliases)
	}
	if base.Aliases["getStorageItem"] != "storage.getItem" {
		t.Errorf("%s - merge must not modify base", loaderTestPrefix)
	}
}
