package scoring

import "strings"

// topicKeywords splits a topic such as "AI/ML (LLM, ML infra)" into its main
// phrase and the entries of its last parenthetical, all lower-cased.
func topicKeywords(topic string) []string {
	main := topic
	if i := strings.IndexAny(main, "(（"); i >= 0 {
		main = main[:i]
	}

	keywords := []string{}
	if k := strings.ToLower(strings.TrimSpace(main)); k != "" {
		keywords = append(keywords, k)
	}

	open := max(strings.LastIndex(topic, "("), strings.LastIndex(topic, "（"))
	if open < 0 {
		return keywords
	}
	sub := topic[open:]
	sub = strings.TrimPrefix(strings.TrimPrefix(sub, "("), "（")
	if i := strings.IndexAny(sub, ")）"); i >= 0 {
		sub = sub[:i]
	}

	parts := strings.FieldsFunc(sub, func(r rune) bool { return r == ',' || r == '、' })
	for _, p := range parts {
		if k := strings.ToLower(strings.TrimSpace(p)); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// matchTopic reports whether any keyword of topic occurs in text. text must
// already be lower-cased.
func matchTopic(topic, text string) bool {
	for _, k := range topicKeywords(topic) {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
