// Package render turns markdown report documents into styled terminal
// output.
package render

import (
	"github.com/charmbracelet/glamour"
)

// Terminal renders a markdown document for terminal display. Falls back
// to the raw markdown if the renderer cannot be constructed (e.g., no
// usable terminal profile).
func Terminal(markdown string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return markdown
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}
