// Package textutil holds small text normalisation helpers shared by the
// HTTP layer.
package textutil

import "strings"

// NormalizeStringMap trims whitespace from every key and value and drops
// entries whose key becomes empty. Checkout notes arrive straight from
// clients, so the stored map should not carry padding or blank keys.
// A nil or empty input returns nil.
func NormalizeStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
