package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"metaview/internal/classify"
	"metaview/internal/history"
	"metaview/internal/logging"
	"metaview/internal/present"
	"metaview/internal/session"
	"metaview/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var noColor bool

	cmd := &cobra.Command{
		Use:   "watch <path>...",
		Short: "Show metadata for image files as they change",
		Long: "Watch files or directories and display the metadata of the most recently\n" +
			"changed image. Superseded extractions are canceled and never displayed.",
		Args: cobra.MinimumNArgs(1),
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
			colorize := !noColor && present.ShouldColorize(cmd.OutOrStdout())
			out := cmd.OutOrStdout()

			onCommit := func(snap session.Snapshot) {
				if store != nil {
					if _, err := store.Record(cmd.Context(), history.FromSnapshot(snap, table)); err != nil {
						logging.WarnWithContext(logger, "history record failed", "history_record",
							logging.Error(err),
							logging.String(logging.FieldRequestID, snap.RequestID),
						)
					}
				}
				view := present.FromResult(snap.Result, table)
				view.Source = snap.Source
				if asJSON {
					if err := writeJSON(cmd, view); err != nil {
						logger.Warn("write view failed", logging.Error(err))
					}
					return
				}
				for _, line := range present.SectionHeader(snap.CompletedAt.Format(time.TimeOnly), colorize) {
					fmt.Fprintln(out, line)
				}
				if err := present.RenderText(out, view, colorize); err != nil {
					logger.Warn("render view failed", logging.Error(err))
				}
			}

			sess := session.New(extractor, session.WithLogger(logger), session.WithOnCommit(onCommit))
			defer sess.Close()

			w := watch.New(sess, watch.Options{
				Debounce: time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
				MaxBytes: cfg.MaxFileBytes(),
			}, logger)
			return w.Run(cmd.Context(), args)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit one JSON document per update")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI colours")
	return cmd
}
