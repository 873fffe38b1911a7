// Package tui holds terminal-only presentation helpers.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	"   ___ __ _ _ __   ___  _ __  _   _",
	"  / __/ _` | '_ \\ / _ \\| '_ \\| | | |",
	" | (_| (_| | | | | (_) | |_) | |_| |",
	"  \\___\\__,_|_| |_|\\___/| .__/ \\__, |",
	"                       |_|    |___/",
}

// Greens from canopy top to trunk.
var bannerColors = []string{"#bef264", "#86efac", "#4ade80", "#22c55e", "#15803d"}

// PrintBanner writes the ASCII banner and version to w, coloured when w is a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, out.String(line).Foreground(out.Color(bannerColors[i])))
	}
	fmt.Fprintln(w, out.String("  behavior trees, version "+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
