package searchutil

import (
	"regexp"
	"strings"
)

var normalizeReplacer = strings.NewReplacer(
	"-", " ",
	".", " ",
	"_", " ",
	",", " ",
	":", " ",
	";", " ",
	"!", " ",
	"?", " ",
	"(", " ",
	")", " ",
	"[", " ",
	"]", " ",
	"'", " ",
	"\"", " ",
	"/", " ",
	"|", " ",
	"+", " ",
	"&", " ",
	"\u00a0", " ",
)

var imdbIDPattern = regexp.MustCompile(`tt\d+`)

// Normalize lowercases a value and reduces punctuation to single spaces.
func Normalize(value string) string {
	clean := strings.ToLower(strings.TrimSpace(value))
	if clean == "" {
		return ""
	}
	clean = normalizeReplacer.Replace(clean)
	return strings.Join(strings.Fields(clean), " ")
}

func TokenizeNormalized(normalized string) []string {
	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" {
		return nil
	}

	parts := strings.Fields(trimmed)
	tokens := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if _, exists := seen[part]; exists {
			continue
		}
		seen[part] = struct{}{}
		tokens = append(tokens, part)
	}

	return tokens
}

// MatchesQuery reports whether candidate contains the whole query or every
// query token.
func MatchesQuery(candidate string, normalizedQuery string, queryTokens []string) bool {
	normalizedCandidate := Normalize(candidate)
	if normalizedCandidate == "" {
		return false
	}

	if normalizedQuery != "" && strings.Contains(normalizedCandidate, normalizedQuery) {
		return true
	}
	if len(queryTokens) == 0 {
		return false
	}

	for _, token := range queryTokens {
		if !strings.Contains(normalizedCandidate, token) {
			return false
		}
	}

	return true
}

// TitleQuery joins a page title and year into the search string handed to
// title-based trackers. Non-breaking spaces become plain spaces.
func TitleQuery(title, year string) string {
	query := strings.TrimSpace(strings.TrimSpace(title) + " " + strings.TrimSpace(year))
	return strings.ReplaceAll(query, "\u00a0", " ")
}

// IMDbID returns the first title id found in an IMDb link.
func IMDbID(href string) string {
	return imdbIDPattern.FindString(href)
}
