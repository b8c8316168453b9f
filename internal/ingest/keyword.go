package ingest

import (
	"strings"

	"golang.org/x/text/cases"
)

const DefaultKeyword = "!参加"

// MaxNameLength bounds sanitized display names, in runes.
const MaxNameLength = 50

// MessageContainsKeyword reports whether message is the keyword, or the
// keyword followed by a space or an ideographic space. Comparison ignores
// case and surrounding whitespace. Substrings do not count: "!joining"
// does not trigger "!join".
func MessageContainsKeyword(message, keyword string) bool {
	if message == "" || keyword == "" {
		return false
	}

	fold := cases.Fold()
	msg := fold.String(strings.TrimSpace(message))
	kw := fold.String(strings.TrimSpace(keyword))
	if kw == "" {
		return false
	}

	return msg == kw ||
		strings.HasPrefix(msg, kw+" ") ||
		strings.HasPrefix(msg, kw+"　")
}

var unsafeNameChars = strings.NewReplacer("<", "", ">", "", "'", "", `"`, "", "&", "", `\`, "")

// SanitizeName strips markup-sensitive characters from a chat display name
// and truncates it to MaxNameLength runes.
func SanitizeName(name string) string {
	name = unsafeNameChars.Replace(strings.TrimSpace(name))
	if r := []rune(name); len(r) > MaxNameLength {
		name = string(r[:MaxNameLength])
	}
	return name
}
