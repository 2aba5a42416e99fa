package discord

import (
	"fmt"
	"strings"

	"github.com/mheard/bobbot/internal/pagination"
)

// Component custom ids look like "page:<session-id>:prev".
const pageIDPrefix = "page:"

// FormatPage renders a pagination session as Discord message content.
func FormatPage(s pagination.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", s.Title)
	if s.Preamble != "" {
		b.WriteString(s.Preamble)
		b.WriteByte('\n')
	}
	b.WriteString("```\n")
	b.WriteString(s.Pages[s.Page])
	b.WriteString("```\n")
	fmt.Fprintf(&b, "Page %d/%d", s.Page+1, len(s.Pages))
	return b.String()
}

// PageComponents builds the prev/next button row for a session. Buttons
// at the boundary are disabled rather than hidden.
func PageComponents(s pagination.Session, id string) []Component {
	prev := Component{
		"type":      2, // button
		"style":     2, // secondary
		"label":     "Previous",
		"custom_id": pageIDPrefix + id + ":prev",
		"disabled":  s.Page == 0,
	}
	next := Component{
		"type":      2,
		"style":     2,
		"label":     "Next",
		"custom_id": pageIDPrefix + id + ":next",
		"disabled":  s.Page >= len(s.Pages)-1,
	}
	return []Component{
		{
			"type":       1, // action row
			"components": []Component{prev, next},
		},
	}
}

// ParsePageCustomID extracts the session id and page delta from a
// component custom id. Returns ok false for custom ids that are not
// page buttons.
func ParsePageCustomID(customID string) (string, int, bool) {
	if !strings.HasPrefix(customID, pageIDPrefix) {
		return "", 0, false
	}
	rest := strings.TrimPrefix(customID, pageIDPrefix)
	i := strings.LastIndexByte(rest, ':')
	if i < 0 {
		return "", 0, false
	}
	id, dir := rest[:i], rest[i+1:]
	switch dir {
	case "prev":
		return id, -1, true
	case "next":
		return id, 1, true
	}
	return "", 0, false
}
