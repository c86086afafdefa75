package tui

import (
	"fmt"
	"strings"
)

// visibleChars is how many leading characters MaskToken keeps
const visibleChars = 4

// MaskToken hides all but the first few characters of a secret.
// A "Bearer " prefix is kept so the token kind stays recognizable.
// Examples: "0123456789abcdef" -> "0123…(12)", "" -> "-"
func MaskToken(token string) string {
	if token == "" {
		return "-"
	}

	prefix := ""
	if rest, ok := strings.CutPrefix(token, "Bearer "); ok {
		prefix, token = "Bearer ", rest
	}

	if len(token) <= visibleChars {
		return prefix + strings.Repeat("*", len(token))
	}
	return fmt.Sprintf("%s%s…(%d)", prefix, token[:visibleChars], len(token)-visibleChars)
}
