// Package render prints courts, bookings and availability to a terminal.
package render

import (
	"encoding/json"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Color definitions for consistent styling across the output.
var (
	// Free time: green, the thing people look for
	colorFree = color.New(color.FgGreen)

	// Busy time: red
	colorBusy = color.New(color.FgRed)

	colorHeader = color.New(color.Bold)

	// Flags such as blocked or recurring
	colorFlag = color.New(color.FgYellow)

	// Muted: for secondary information
	colorMuted = color.New(color.FgWhite, color.Faint)
)

// ConfigureColor enables color only when f is a terminal and the user did
// not opt out.
func ConfigureColor(f *os.File, noColor bool) {
	color.NoColor = noColor || !term.IsTerminal(int(f.Fd()))
}

// termWidth returns the terminal width, or a default if detection fails.
func termWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// JSON writes v as indented JSON for scripting.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
