package observability

import (
	"strings"
	"unicode"
)

const defaultStringLimit = 256

// sanitizeString strips control characters and bounds the length of a value
// before it goes into a log field or trace attribute. Newlines and tabs are
// allowed so multi-line values stay readable.
func sanitizeString(value string, limit int) string {
	if limit <= 0 {
		limit = defaultStringLimit
	}
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if len(cleaned) > limit {
		cleaned = cleaned[:limit]
	}
	return cleaned
}

// SanitizeRoute normalises a route pattern for telemetry. Unknown routes
// collapse to "/" so cardinality stays bounded.
func SanitizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if route == "" {
		return "/"
	}
	return sanitizeString(route, 180)
}

// SanitizeMethod bounds an HTTP method string before it is recorded.
func SanitizeMethod(method string) string {
	return sanitizeString(strings.TrimSpace(method), 10)
}
