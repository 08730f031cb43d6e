package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"metaview/internal/classify"
)

type ruleListing struct {
	Order  int      `json:"order"`
	Bucket string   `json:"bucket"`
	Names  []string `json:"names"`
}

func newRulesCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "rules [field]...",
		Short:       "List the classification buckets, or the bucket of given fields",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			table := classify.DefaultTable()
			if len(args) > 0 {
				return writeAssignments(cmd, table, args, asJSON)
			}
			listings := ruleListings(table)
			if asJSON {
				return writeJSON(cmd, listings)
			}
			columns := []column{
				{header: "#", align: alignRight},
				{header: "Bucket"},
				{header: "Field names", widthMax: 80},
			}
			rows := make([][]string, 0, len(listings))
			for _, listing := range listings {
				names := strings.Join(listing.Names, ", ")
				if len(listing.Names) == 0 {
					names = "(every remaining field)"
				}
				rows = append(rows, []string{fmt.Sprint(listing.Order), listing.Bucket, names})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(columns, rows))
			fmt.Fprintln(cmd.OutOrStdout(), "The first bucket whose names match a field wins.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func ruleListings(table *classify.Table) []ruleListing {
	names := classify.RuleNames()
	buckets := table.BucketNames()
	out := make([]ruleListing, 0, len(buckets))
	for i, bucket := range buckets {
		listed := names[bucket]
		if listed == nil {
			listed = []string{}
		}
		out = append(out, ruleListing{Order: i + 1, Bucket: bucket, Names: listed})
	}
	return out
}

func writeAssignments(cmd *cobra.Command, table *classify.Table, fields []string, asJSON bool) error {
	assigned := make(map[string]string, len(fields))
	rows := make([][]string, 0, len(fields))
	for _, field := range fields {
		bucket := table.Assign(field)
		assigned[field] = bucket
		rows = append(rows, []string{field, bucket})
	}
	if asJSON {
		return writeJSON(cmd, assigned)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{{header: "Field"}, {header: "Bucket"}}, rows))
	return nil
}
