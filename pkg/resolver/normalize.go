package resolver

import (
	"strings"
	"unicode"
)

// aliases maps surface forms to canonical names. Mentions are normalized
// before the lookup, so keys are in normalized form.
var aliases = map[string]string{
	"苹果手机": "iphone",
	"星爸爸":  "星巴克",
	"翠花":   "星巴克",
	"可乐":   "可口可乐",
	"麦当劳":  "麦当劳",
	"金拱门":  "麦当劳",
}

// Normalize canonicalizes a raw mention: trims space and punctuation,
// lowercases latin text and folds full-width characters to half-width.
func Normalize(mention string) string {
	var b strings.Builder
	for _, r := range mention {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		// Full-width ASCII to half-width
		if r >= 0xFF01 && r <= 0xFF5E {
			r -= 0xFEE0
		}
		b.WriteRune(unicode.ToLower(r))
	}
	normalized := b.String()

	if canonical, ok := aliases[normalized]; ok {
		return canonical
	}
	return normalized
}
