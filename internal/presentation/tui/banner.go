package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the switchboard banner in a violet gradient.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"  ___        _ _      _    _                      _ ", "#818cf8"},
		{" / __|_ __ _(_) |_ __| |_ | |__  ___  __ _ _ _ __| |", "#a78bfa"},
		{" \\__ \\ V  V / |  _/ _| ' \\| '_ \\/ _ \\/ _` | '_/ _` |", "#c084fc"},
		{" |___/\\_/\\_/|_|\\__\\__|_||_|_.__/\\___/\\__,_|_| \\__,_|", "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Styler colours chat roles. A zero Styler (plain profile) prints text as is.
type Styler struct {
	profile termenv.Profile
}

// NewStyler detects the colour profile of the terminal.
// Plain output is forced when color is false.
func NewStyler(color bool) Styler {
	if !color {
		return Styler{profile: termenv.Ascii}
	}
	return Styler{profile: termenv.ColorProfile()}
}

// Bot styles a bot message.
func (s Styler) Bot(text string) string {
	return s.profile.String(text).Foreground(s.profile.Color("#a78bfa")).String()
}

// System styles engine notices such as status changes.
func (s Styler) System(text string) string {
	return s.profile.String(text).Foreground(s.profile.Color("#fb7185")).Italic().String()
}

// Prompt styles the input prompt.
func (s Styler) Prompt(text string) string {
	return s.profile.String(text).Foreground(s.profile.Color("#818cf8")).Bold().String()
}
