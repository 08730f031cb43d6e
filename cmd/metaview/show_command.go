package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"metaview/internal/classify"
	"metaview/internal/extract"
	"metaview/internal/history"
	"metaview/internal/logging"
	"metaview/internal/metadata"
	"metaview/internal/present"
	"metaview/internal/services"
)

type showOutcome struct {
	view    present.View
	skipped bool
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var noColor bool

	cmd := &cobra.Command{
		Use:   "show <file>...",
		Short: "Extract and display metadata for image files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			extractor, err := ctx.newExtractor()
			if err != nil {
				return err
			}
			store, err := ctx.openHistory()
			if err != nil {
				logging.WarnWithContext(logger, "history unavailable", "history_open",
					logging.Error(err),
					logging.String(logging.FieldImpact, "extractions will not be recorded"),
				)
				store = nil
			}
			if store != nil {
				defer store.Close()
			}

			table := classify.DefaultTable()
			outcomes := make([]showOutcome, 0, len(args))
			for _, path := range args {
				outcomes = append(outcomes, showFile(cmd.Context(), path, cfg.MaxFileBytes(), extractor, store, table, logger))
			}

			var views []present.View
			failed := 0
			for _, outcome := range outcomes {
				if outcome.skipped {
					continue
				}
				views = append(views, outcome.view)
				if outcome.view.Failed() {
					failed++
				}
			}

			if err := writeViews(cmd, views, asJSON, !noColor && present.ShouldColorize(cmd.OutOrStdout())); err != nil {
				return err
			}

			switch {
			case len(views) == 0:
				return services.Wrap(services.ErrValidation, "show", "extract", "Nothing to show: every file was empty", nil)
			case failed == len(views):
				return services.Wrap(services.ErrDecode, "show", "extract", fmt.Sprintf("No metadata extracted from %d file(s)", failed), nil)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of tables")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI colours")
	return cmd
}

// showFile extracts a single path. Read failures become error views so the
// remaining files are still shown; empty files are skipped.
func showFile(ctx context.Context, path string, limit int64, extractor *extract.Extractor, store *history.Store, table *classify.Table, logger *slog.Logger) showOutcome {
	src, err := metadata.ReadFile(path, limit)
	if err != nil {
		var tooLarge *metadata.ErrTooLarge
		if errors.As(err, &tooLarge) {
			logging.WarnWithContext(logger, "file exceeds size limit", "show_read",
				logging.String(logging.FieldSource, path),
				logging.Bytes("limit", tooLarge.Limit),
				logging.String(logging.FieldErrorHint, "raise decoder.max_file_mib"),
			)
		}
		return showOutcome{view: present.View{Source: filepath.Base(path), Error: err.Error()}}
	}

	requestID := uuid.NewString()
	reqCtx, reqLogger := logging.WithRequestID(ctx, logger, requestID)
	res, ok := extractor.Extract(reqCtx, src)
	if !ok {
		reqLogger.Warn("skipping empty file", logging.String(logging.FieldSource, path))
		return showOutcome{skipped: true}
	}

	if store != nil {
		if _, err := store.Record(reqCtx, history.FromResult(requestID, src, res, table)); err != nil {
			logging.WarnWithContext(reqLogger, "history record failed", "history_record",
				logging.Error(err),
				logging.String(logging.FieldImpact, "extraction not added to history"),
			)
		}
	}

	view := present.FromResult(res, table)
	view.Source = src.Name
	return showOutcome{view: view}
}

func writeViews(cmd *cobra.Command, views []present.View, asJSON, colorize bool) error {
	if asJSON {
		if len(views) == 1 {
			return writeJSON(cmd, views[0])
		}
		if views == nil {
			views = []present.View{}
		}
		return writeJSON(cmd, views)
	}
	out := cmd.OutOrStdout()
	for i, view := range views {
		if i > 0 {
			if _, err := io.WriteString(out, "\n"); err != nil {
				return err
			}
		}
		if err := present.RenderText(out, view, colorize); err != nil {
			return err
		}
	}
	return nil
}
