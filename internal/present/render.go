package present

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

const valueWidthMax = 72

// RenderText writes view as one table per section. An error view prints
// only its message.
func RenderText(w io.Writer, view View, colorize bool) error {
	var b strings.Builder
	if view.Source != "" {
		b.WriteString(Paint(view.Source, Bold, colorize))
		b.WriteByte('\n')
	}
	if view.Failed() {
		b.WriteString(Paint(view.Error, Red, colorize))
		b.WriteByte('\n')
		_, err := io.WriteString(w, b.String())
		return err
	}
	if len(view.Sections) == 0 {
		b.WriteString("(no metadata)\n")
	}
	for i, section := range view.Sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, line := range SectionHeader(fmt.Sprintf("%s (%d)", section.Title, len(section.Rows)), colorize) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteString(sectionTable(section))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func sectionTable(section Section) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Field", "Value"})
	for _, row := range section.Rows {
		tw.AppendRow(table.Row{row.Key, row.Text()})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft, WidthMax: valueWidthMax, WidthMaxEnforcer: text.WrapSoft},
	})
	return tw.Render()
}

// RenderJSON writes view as indented JSON.
func RenderJSON(w io.Writer, view View) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

// ShouldColorize reports whether w is a terminal and NO_COLOR is unset.
func ShouldColorize(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
