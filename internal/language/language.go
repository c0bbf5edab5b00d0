package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Normalize canonicalizes a language code to its base subtag: "eng" and
// "en-US" both become "en". Unparseable input is lowercased and returned
// as-is so extractor-specific tags still round-trip.
func Normalize(code string) string {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" {
		return ""
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return trimmed
	}
	return base.String()
}

// NormalizeList canonicalizes a list of language codes, dropping empties and
// duplicates while preserving the caller's order.
func NormalizeList(codes []string) []string {
	if len(codes) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		normalized := Normalize(code)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

// DisplayName returns the English name for a language code ("en" → "English").
// Unrecognized codes come back unchanged.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return trimmed
	}
	return name
}
