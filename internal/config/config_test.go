package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/render"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Render.Mode != DefaultMode {
		t.Errorf("Render.Mode = %q, want %q", cfg.Render.Mode, DefaultMode)
	}
	if cfg.Export.Target != DefaultOutput {
		t.Errorf("Export.Target = %q, want %q", cfg.Export.Target, DefaultOutput)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if !errors.HasCode(err, "E140") {
		t.Fatalf("expected E140 for missing config, got %v", err)
	}

	configYAML := `name: counter
server:
  host: 0.0.0.0
  port: 8080
render:
  mode: inorder
log:
  level: debug
  format: json
export:
  target: s3://bucket/site
  routes: ["/", "/counter"]
demo:
  latency: 250ms
  initialCount: 5
`
	if err := os.WriteFile(filepath.Join(tmpDir, "suspense.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Name != "counter" {
		t.Errorf("Name = %q, want counter", cfg.Name)
	}
	if cfg.Address() != "0.0.0.0:8080" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if mode, err := cfg.Mode(); err != nil || mode != render.ModeInOrder {
		t.Errorf("Mode() = %v, %v; want inorder", mode, err)
	}
	if cfg.Demo.Latency.Duration() != 250*time.Millisecond {
		t.Errorf("Demo.Latency = %v, want 250ms", cfg.Demo.Latency)
	}
	if cfg.Demo.InitialCount != 5 {
		t.Errorf("Demo.InitialCount = %d, want 5", cfg.Demo.InitialCount)
	}
	if len(cfg.Export.Routes) != 2 {
		t.Errorf("Export.Routes = %v", cfg.Export.Routes)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.ShutdownTimeout.Duration() != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v", cfg.Server.ShutdownTimeout)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should default to true")
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configJSON := `{"server": {"port": 9001}, "demo": {"latency": "1s"}}`
	if err := os.WriteFile(filepath.Join(tmpDir, "suspense.json"), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Demo.Latency.Duration() != time.Second {
		t.Errorf("Demo.Latency = %v, want 1s", cfg.Demo.Latency)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml syntax", "suspense.yaml", "server: [unclosed"},
		{"yaml duration", "suspense.yaml", "demo:\n  latency: soon\n"},
		{"json syntax", "suspense.json", "not valid json"},
		{"json duration", "suspense.json", `{"demo": {"latency": 5}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.name+filepath.Ext(tt.file))
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFile(path)
			if !errors.HasCode(err, "E120") {
				t.Errorf("expected E120, got: %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "E122"},
		{"mode", func(c *Config) { c.Render.Mode = "sideways" }, "E123"},
		{"client mode", func(c *Config) { c.Render.Mode = "client" }, "E123"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "E120"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "E120"},
		{"export target", func(c *Config) { c.Export.Target = "ftp://host" }, "E124"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.HasCode(err, tt.code) {
				t.Errorf("Validate() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"suspense.yaml", "suspense.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := New()
			cfg.Server.Port = 9000
			cfg.Demo.Latency = Duration(1500 * time.Millisecond)

			if err := cfg.Save(); err == nil {
				t.Error("expected error when saving without path")
			}
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo error: %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(data), "1.5s") {
				t.Errorf("durations should be written as strings:\n%s", data)
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile error: %v", err)
			}
			if loaded.Server.Port != 9000 {
				t.Errorf("Server.Port = %d, want 9000", loaded.Server.Port)
			}
			if loaded.Demo.Latency != cfg.Demo.Latency {
				t.Errorf("Demo.Latency = %v, want %v", loaded.Demo.Latency, cfg.Demo.Latency)
			}
			if loaded.Path() != path {
				t.Errorf("Path() = %q, want %q", loaded.Path(), path)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := New()
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "code", "E040")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"code":"E040"`) {
		t.Errorf("unexpected JSON log: %s", out)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "suspense.yml"), []byte("name: x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	found, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	if found != root {
		t.Errorf("FindProjectRoot = %q, want %q", found, root)
	}
	if !Exists(root) {
		t.Error("Exists(root) should be true")
	}
	if Exists(nested) {
		t.Error("Exists(nested) should be false")
	}
}
