package engine

import (
	"html"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
)

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// CleanHTML unescapes entities, strips HTML tags and trims whitespace.
// Caption text arrives double-escaped (&amp;#39;), so unescape runs before
// and after the tag strip.
func CleanHTML(s string) string {
	s = html.UnescapeString(s)
	s = htmlTagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

// JoinFragments concatenates transcript fragments with a single space and
// trims the result. Fragment order is preserved.
func JoinFragments(texts []string) string {
	return strings.TrimSpace(strings.Join(texts, " "))
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
// Safe for UTF-8 transcripts (CJK, emoji).
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

// TagsOrDefault normalises the trending-dataset tags column.
func TagsOrDefault(tags string) string {
	t := strings.TrimSpace(tags)
	if t == "" || t == "[None]" {
		return "No tags"
	}
	return t
}
