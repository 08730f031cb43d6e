package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"metaview/internal/config"
	"metaview/internal/present"
	"metaview/internal/services"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return services.Wrap(services.ErrValidation, "config", "init", fmt.Sprintf("Config file already exists at %s (use --overwrite to replace it)", target), nil)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var flagPath string
			if ctx.configFlag != nil {
				flagPath = *ctx.configFlag
			}
			cfg, path, exists, err := config.Load(strings.TrimSpace(flagPath))
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "config", "validate", "Invalid configuration", err)
			}
			out := cmd.OutOrStdout()
			colorize := present.ShouldColorize(out)

			fileKind, fileMsg := present.StatusOK, path
			if !exists {
				fileKind, fileMsg = present.StatusWarn, path+" (not found; defaults used)"
			}
			fmt.Fprintln(out, present.StatusLine("Config file", fileKind, fileMsg, colorize))
			fmt.Fprintln(out, present.StatusLine("Data dir", present.StatusInfo, cfg.Paths.DataDir, colorize))
			historyMsg := "disabled"
			if cfg.History.Enabled {
				historyMsg = cfg.History.Path
			}
			fmt.Fprintln(out, present.StatusLine("History", present.StatusInfo, historyMsg, colorize))
			fmt.Fprintln(out, present.StatusLine("Parsers", present.StatusInfo, enabledParsers(cfg), colorize))
			fmt.Fprintln(out, present.StatusLine("Logging", present.StatusInfo, cfg.Logging.Format+"/"+cfg.Logging.Level, colorize))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := cfg.Encode()
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func enabledParsers(cfg *config.Config) string {
	parsers := []struct {
		name string
		on   bool
	}{
		{"tiff", cfg.Decoder.TIFF},
		{"exif", cfg.Decoder.EXIF},
		{"gps", cfg.Decoder.GPS},
		{"icc", cfg.Decoder.ICC},
		{"xmp", cfg.Decoder.XMP},
	}
	parts := make([]string, 0, len(parsers))
	for _, p := range parsers {
		parts = append(parts, p.name+"="+yesNo(p.on))
	}
	return strings.Join(parts, " ")
}
