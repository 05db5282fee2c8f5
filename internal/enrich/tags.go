package enrich

import "strings"

// tagVocabulary maps fixed keywords to tags. Matching is case-insensitive
// substring over name, symbol and description; the first MaxTags distinct
// tags win, in vocabulary order for determinism.
var tagVocabulary = []struct {
	tag      string
	keywords []string
}{
	{"meme", []string{"meme", "wojak", "chad"}},
	{"dog", []string{"dog", "doge", "shib", "inu", "pup", "woof"}},
	{"cat", []string{"cat", "kitty", "kitten", "meow"}},
	{"pepe", []string{"pepe", "frog", "kek"}},
	{"ai", []string{"ai ", " ai", "artificial intelligence", "agent", "gpt"}},
	{"gaming", []string{"game", "play", "metaverse"}},
	{"defi", []string{"defi", "yield", "stake", "farm"}},
	{"moon", []string{"moon", "rocket", "pump", "100x"}},
	{"baby", []string{"baby", "mini"}},
	{"politics", []string{"trump", "biden", "maga", "election"}},
}

// ExtractTags returns a bounded, deduplicated tag set for the given text
// fields. Empty input yields no tags, never placeholders.
func ExtractTags(fields ...string) []string {
	haystack := strings.ToLower(strings.Join(fields, " "))
	if strings.TrimSpace(haystack) == "" {
		return nil
	}

	var tags []string
	for _, entry := range tagVocabulary {
		for _, kw := range entry.keywords {
			if strings.Contains(haystack, kw) {
				tags = append(tags, entry.tag)
				break
			}
		}
		if len(tags) == MaxTags {
			break
		}
	}
	return tags
}
