package osrs

import (
	"regexp"
	"strings"
)

// usernamePattern matches what Jagex accepts: letters, digits, spaces,
// underscores, and hyphens.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9\s_-]+$`)

// Names that belong to game lore, not the hiscores. Tools refuse these
// before spending a network call on them.
var loreCharacters = map[string]bool{
	"bob":          true,
	"wise old man": true,
	"wise_old_man": true,
}

// IsValidUsername reports whether a string could be an OSRS username:
// 1-12 characters from the allowed set.
func IsValidUsername(username string) bool {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" || len(trimmed) > 12 {
		return false
	}
	return usernamePattern.MatchString(trimmed)
}

// IsLoreCharacter reports whether a name refers to a known NPC or lore
// figure rather than a real player.
func IsLoreCharacter(name string) bool {
	return loreCharacters[strings.ToLower(strings.TrimSpace(name))]
}
