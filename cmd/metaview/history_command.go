package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"metaview/internal/history"
	"metaview/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent extractions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := requireHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if !cmd.Flags().Changed("limit") {
				limit = cfg.History.Limit
			}
			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				if entries == nil {
					entries = []history.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No extractions recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of entries to show (0 for all; defaults to history.limit)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")

	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded extraction",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entr%s\n", removed, pluralSuffix(removed, "y", "ies"))
			return nil
		},
	}
}

func requireHistory(ctx *commandContext) (*history.Store, error) {
	store, err := ctx.openHistory()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "history", "open", "History is disabled; set history.enabled = true", nil)
	}
	return store, nil
}

func renderHistoryTable(entries []history.Entry) string {
	columns := []column{
		{header: "ID", align: alignRight},
		{header: "When"},
		{header: "Source", widthMax: 40},
		{header: "Size", align: alignRight},
		{header: "Status"},
		{header: "Fields", align: alignRight},
		{header: "Detail", widthMax: 48},
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		detail := entry.ErrorMessage
		if entry.Status == history.StatusOK {
			detail = formatBucketCounts(entry.BucketCounts)
		}
		rows = append(rows, []string{
			strconv.FormatInt(entry.ID, 10),
			humanize.Time(entry.CreatedAt),
			entry.SourceName,
			humanize.IBytes(uint64(max(entry.SourceSize, 0))),
			entry.Status,
			strconv.Itoa(entry.FieldCount),
			detail,
		})
	}
	return renderTable(columns, rows)
}

// formatBucketCounts lists non-zero buckets as "Name=n", sorted by name.
func formatBucketCounts(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name, n := range counts {
		if n > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%d", name, counts[name]))
	}
	return strings.Join(parts, ", ")
}

func pluralSuffix(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
