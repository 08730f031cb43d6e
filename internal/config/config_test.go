package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"metaview/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_DATA_HOME", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "metaview", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}

	wantData := filepath.Join(tempHome, ".local", "share", "metaview")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.History.Path != filepath.Join(wantData, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}
	if !cfg.Decoder.TIFF || !cfg.Decoder.EXIF || !cfg.Decoder.GPS || !cfg.Decoder.ICC || !cfg.Decoder.XMP {
		t.Fatalf("expected every sub-parser enabled by default: %+v", cfg.Decoder)
	}
	if cfg.MaxFileBytes() != 64<<20 {
		t.Fatalf("unexpected max file bytes: %d", cfg.MaxFileBytes())
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(wantData); err != nil || !info.IsDir() {
		t.Fatalf("expected data dir to exist: %v", err)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	content := `
[paths]
data_dir = "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"

[decoder]
gps = false
max_file_mib = 8

[history]
enabled = false
limit = 5

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit path to resolve: %q %v", resolved, exists)
	}
	if cfg.Decoder.GPS {
		t.Fatal("expected gps disabled")
	}
	if !cfg.Decoder.EXIF {
		t.Fatal("expected unspecified switches to keep defaults")
	}
	if cfg.MaxFileBytes() != 8<<20 {
		t.Fatalf("unexpected max file bytes: %d", cfg.MaxFileBytes())
	}
	if cfg.History.Enabled || cfg.History.Limit != 5 {
		t.Fatalf("unexpected history section: %+v", cfg.History)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging values, got %+v", cfg.Logging)
	}
}

func TestLoadEnvOverridesLogging(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("METAVIEW_LOG_LEVEL", "warn")
	t.Setenv("METAVIEW_LOG_FORMAT", "json")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Fatalf("expected env overrides, got %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"max file", "[decoder]\nmax_file_mib = 0\n", "decoder.max_file_mib"},
		{"log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"log level", "[logging]\nlevel = \"trace\"\n", "logging.level"},
		{"debounce", "[watch]\ndebounce_ms = -1\n", "watch.debounce_ms"},
		{"unknown key", "[decoder]\nheif = true\n", "heif"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	for _, section := range []string{"paths", "decoder", "history", "watch", "logging"} {
		if _, ok := raw[section]; !ok {
			t.Fatalf("sample missing [%s]", section)
		}
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}

func TestEncodeIncludesSections(t *testing.T) {
	cfg := config.Default()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, fragment := range []string{"[decoder]", "max_file_mib", "[logging]"} {
		if !strings.Contains(string(data), fragment) {
			t.Fatalf("expected %q in encoded config:\n%s", fragment, data)
		}
	}
}
