package ledger

import (
	"regexp"
	"strings"
)

var (
	mentionRe = regexp.MustCompile(`@[A-Za-z0-9_]{3,32}`)
	tagRe     = regexp.MustCompile(`#[\p{L}\p{N}_]+`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// MentionsIn возвращает @username из текста (без @, без повторов, в порядке появления).
func MentionsIn(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range mentionRe.FindAllString(text, -1) {
		name := strings.ToLower(m[1:])
		if !seen[name] {
			seen[name] = true
			out = append(out, m[1:])
		}
	}
	return out
}

// TagsIn возвращает теги (#tag) без решётки.
func TagsIn(text string) []string {
	var out []string
	for _, t := range tagRe.FindAllString(text, -1) {
		out = append(out, strings.TrimPrefix(t, "#"))
	}
	return out
}

// CountIn — сколько раз в тексте встречается триггер (не меньше 1).
func CountIn(text, trigger string) int {
	if trigger == "" {
		return 1
	}
	if n := strings.Count(text, trigger); n > 0 {
		return n
	}
	return 1
}

// TrimMessage убирает упоминания и триггеры, схлопывает пробелы.
// По результату благодарности группируются в аналитике.
func TrimMessage(text string, triggers ...string) string {
	text = mentionRe.ReplaceAllString(text, "")
	for _, t := range triggers {
		if t != "" {
			text = strings.ReplaceAll(text, t, "")
		}
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
