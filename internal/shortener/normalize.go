package shortener

import "strings"

var schemePrefixes = []string{"http://", "https://"}

// NormalizeURL trims surrounding whitespace and prefixes "http://" when the
// URL does not start with a recognized scheme. It does not validate the URL.
func NormalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", ErrInvalidInput
	}

	lower := strings.ToLower(trimmed)
	for _, prefix := range schemePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return trimmed, nil
		}
	}

	return "http://" + trimmed, nil
}
