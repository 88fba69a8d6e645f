package util

import (
	"html"
	"strings"
)

// SanitizeInput trims and escapes HTML/script-like characters before a value
// is persisted into the security event log or echoed back to a client.
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return html.EscapeString(s)
}

// ContainsSuspicious reports whether a free-text field looks like an
// injection attempt. Used to flag event details, never to reject votes.
func ContainsSuspicious(s string) bool {
	lower := strings.ToLower(s)
	badTokens := []string{"<", ">", "$", "{", "}", "script", "onerror", "onload"}
	for _, tok := range badTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
