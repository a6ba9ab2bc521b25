// Package cli holds the terminal presentation used by the commands.
package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// UI prints status lines. Colour is disabled when NoColor is set or the
// output is not a terminal.
type UI struct {
	Out     io.Writer
	Err     io.Writer
	NoColor bool
}

func (ui *UI) print(w io.Writer, attr color.Attribute, mark, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if ui.NoColor || color.NoColor {
		fmt.Fprintf(w, "%s %s\n", mark, msg)
		return
	}
	color.New(attr).Fprintf(w, "%s %s\n", mark, msg)
}

func (ui *UI) Success(format string, args ...any) {
	ui.print(ui.Out, color.FgGreen, "✓", format, args...)
}

// Warn reports a non-fatal condition such as a skipped keyword.
func (ui *UI) Warn(format string, args ...any) {
	ui.print(ui.Err, color.FgYellow, "⚠", format, args...)
}

func (ui *UI) Error(format string, args ...any) {
	ui.print(ui.Err, color.FgRed, "✗", format, args...)
}

func (ui *UI) Info(format string, args ...any) {
	ui.print(ui.Out, color.FgCyan, "ℹ", format, args...)
}
