package store

import (
	"regexp"
	"strings"
	"unicode"
)

// identRegex matches identifier-like runs, underscores included.
var identRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// TokenizeIdentifiers lowercases text into search terms. Each
// identifier yields itself plus its snake_case and camelCase parts, so
// "B_Soldier_F" is found by "b_soldier_f" and by "soldier".
func TokenizeIdentifiers(text string) []string {
	var tokens []string
	for _, word := range identRegex.FindAllString(text, -1) {
		whole := strings.ToLower(strings.Trim(word, "_"))
		if whole == "" {
			continue
		}
		tokens = append(tokens, whole)

		parts := SplitIdentifier(word)
		if len(parts) < 2 {
			continue
		}
		for _, p := range parts {
			lower := strings.ToLower(p)
			if len(lower) >= 2 && lower != whole {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

// SplitIdentifier splits on underscores, then on camelCase boundaries.
func SplitIdentifier(token string) []string {
	var result []string
	for _, part := range strings.Split(token, "_") {
		if part != "" {
			result = append(result, SplitCamelCase(part)...)
		}
	}
	return result
}

// SplitCamelCase splits camelCase and PascalCase identifiers.
// Examples:
//   - "displayName" -> ["display", "Name"]
//   - "HMGTurret" -> ["HMG", "Turret"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			// Split if previous is lowercase OR next is lowercase (handles acronyms)
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}
