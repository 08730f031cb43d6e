package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultConfigPath    = "~/.config/metaview/config.toml"
	projectConfigName    = "metaview.toml"
	defaultMaxFileMiB    = 64
	defaultHistoryLimit  = 20
	defaultHistoryFile   = "history.db"
	defaultWatchDebounce = 250
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir(),
		},
		Decoder: Decoder{
			TIFF:       true,
			EXIF:       true,
			GPS:        true,
			ICC:        true,
			XMP:        true,
			MaxFileMiB: defaultMaxFileMiB,
		},
		History: History{
			Enabled: true,
			Limit:   defaultHistoryLimit,
		},
		Watch: Watch{
			DebounceMS: defaultWatchDebounce,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultDataDir() string {
	if base, ok := os.LookupEnv("XDG_DATA_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "metaview")
	}
	return "~/.local/share/metaview"
}
