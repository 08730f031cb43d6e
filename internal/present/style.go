package present

import (
	"fmt"
	"strings"
)

// Color is an ANSI SGR sequence.
type Color string

const (
	Reset  Color = "\x1b[0m"
	Bold   Color = "\x1b[1m"
	Red    Color = "\x1b[31m"
	Green  Color = "\x1b[32m"
	Yellow Color = "\x1b[33m"
	Blue   Color = "\x1b[34m"
)

// Paint wraps s in color when colorize is set.
func Paint(s string, color Color, colorize bool) string {
	if !colorize || color == "" {
		return s
	}
	return string(color) + s + string(Reset)
}

// SectionHeader returns a "== title ==" line and a dashed rule of the same
// width.
func SectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	return []string{Paint(line, Blue, colorize), Paint(rule, Blue, colorize)}
}

// StatusKind grades a status line.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusOK
	StatusWarn
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

func (k StatusKind) label() string {
	switch k {
	case StatusOK:
		return "OK"
	case StatusWarn:
		return "WARN"
	default:
		return "INFO"
	}
}

func (k StatusKind) color() Color {
	switch k {
	case StatusOK:
		return Green
	case StatusWarn:
		return Yellow
	default:
		return Blue
	}
}

// StatusLine renders "  label:  [KIND] message" with the label padded to a
// fixed column.
func StatusLine(label string, kind StatusKind, message string, colorize bool) string {
	status := fmt.Sprintf("[%s]", kind.label())
	if message != "" {
		status += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", status)
	return Paint(line, kind.color(), colorize)
}
