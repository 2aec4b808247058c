package cache

import (
	"strings"
	"unicode/utf8"

	"studybot/internal/constant"
)

// NormalizeKey folds a prompt into its cache key: lower-cased, stripped of
// surrounding whitespace and trailing punctuation, and length-capped, so
// "What is gravity?" and "what is gravity" share an entry. Idempotent.
func NormalizeKey(prompt string) string {
	k := strings.ToLower(strings.TrimSpace(prompt))
	k = strings.TrimRight(k, ".,!?;: ")
	if len(k) > constant.CacheKeyMaxLen {
		k = k[:constant.CacheKeyMaxLen]
		// The cut can land inside a UTF-8 sequence; drop the partial rune
		// so normalizing the result again yields the same key.
		for len(k) > 0 && !utf8.ValidString(k) {
			k = k[:len(k)-1]
		}
		k = strings.TrimRight(k, ".,!?;: ")
	}
	return constant.CacheKeyPrefix + k
}
