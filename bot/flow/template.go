package flow

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes {{key}} placeholders with values from the session
// context. Unbound keys render as an empty string, never an error — a
// workflow with a typo keeps running and the miss is logged upstream.
func Render(text string, context map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		return context[key]
	})
}

// UnboundVars returns the placeholder keys in text that have no binding in
// the context. Used for the template render warning log.
func UnboundVars(text string, context map[string]string) []string {
	var missing []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if _, ok := context[m[1]]; !ok && !contains(missing, m[1]) {
			missing = append(missing, m[1])
		}
	}
	return missing
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// NormalizeText canonicalizes inbound free text for trigger matching.
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
