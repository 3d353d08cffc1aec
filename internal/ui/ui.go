// Package ui holds the terminal styling helpers shared by the CLI commands.
package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/ncruces/go-strftime"
)

// Brand colors
var (
	Brand  = color.New(color.FgHiMagenta, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Warn   = color.New(color.FgYellow)
	Info   = color.New(color.FgCyan)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

const Glyph = "\U0001F9E0" // 🧠

// Banner prints the brainzzz banner above command output.
func Banner(subtitle string) {
	fmt.Printf("%s %s — %s\n\n", Glyph, Brand.Sprint("brainzzz"), subtitle)
}

// Interactive reports whether stdout is a terminal that can host
// live-updating output.
func Interactive() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Timestamp renders an event time for table and log lines.
func Timestamp(t time.Time) string {
	return strftime.Format("%d %b %H:%M:%S", t.Local())
}

// Table prints a simple aligned table.
func Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := columnWidths(headers, rows)

	var header, rule strings.Builder
	for i, h := range headers {
		fmt.Fprintf(&header, "  %-*s", widths[i], h)
		rule.WriteString("  " + strings.Repeat("─", widths[i]))
	}
	Subtle.Println(header.String())
	Subtle.Println(rule.String())

	for _, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			fmt.Fprintf(&line, "  %-*s", widths[i], cell)
		}
		fmt.Println(line.String())
	}
}

func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	return widths
}

// Bar renders a fixed-width meter, used for activation and fitness previews.
func Bar(value, max float64, width int) string {
	if max <= 0 || width <= 0 {
		return ""
	}
	filled := int(value / max * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + Brand.Sprint(strings.Repeat("█", filled)) +
		Subtle.Sprint(strings.Repeat("░", width-filled)) + "]"
}

// StatusIcon returns a pass or fail glyph.
func StatusIcon(ok bool) string {
	if ok {
		return Good.Sprint("✓")
	}
	return Bad.Sprint("✗")
}

// WarnIcon returns a warning glyph.
func WarnIcon() string {
	return Warn.Sprint("⚠")
}
