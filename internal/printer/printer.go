// Package printer renders colored CLI output.
package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

// Success prints a green line with a check mark.
func Success(w io.Writer, format string, a ...any) {
	green.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, a...))
}

// Warning prints a yellow line.
func Warning(w io.Writer, format string, a ...any) {
	yellow.Fprintf(w, "! %s\n", fmt.Sprintf(format, a...))
}

// Error prints a red title followed by an explanation.
func Error(w io.Writer, title string, err error) {
	red.Fprintf(w, "%s\n", title)
	fmt.Fprintf(w, "  %v\n", err)
}

// Heading prints a bold section title.
func Heading(w io.Writer, title string) {
	bold.Fprintf(w, "\n%s\n", title)
}

// Field prints "key: value" with a cyan key.
func Field(w io.Writer, key string, value any) {
	cyan.Fprintf(w, "%s: ", key)
	fmt.Fprintf(w, "%v\n", value)
}

// Table prints tab-aligned rows under a header.
func Table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(header, "\t")))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}

	return tw.Flush()
}
