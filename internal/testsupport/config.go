package testsupport

import (
	"path/filepath"
	"testing"

	"metaview/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.History.Path = filepath.Join(base, "data", "history.db")
	cfgVal.Watch.DebounceMS = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithHistoryDisabled turns off the extraction log.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithMaxFileMiB overrides the input size cap.
func WithMaxFileMiB(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Decoder.MaxFileMiB = n
	}
}

// WithoutGPS disables the GPS sub-parser.
func WithoutGPS() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Decoder.GPS = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
