package tatty

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// zeroWidthChars strips invisible characters that confuse the decision
// service and can hide text inside a task description.
var zeroWidthChars = strings.NewReplacer(
	"​", "", // zero-width space
	"‌", "", // zero-width non-joiner
	"‍", "", // zero-width joiner
	"\uFEFF", "", // byte order mark
	"⁠", "", // word joiner
)

// NormalizeTask cleans a task string before it enters the conversation:
// zero-width characters are removed, unicode is NFKC-normalized (fullwidth
// Latin, ligatures, mathematical alphanumerics), control characters other
// than tab and newline are dropped, and surrounding whitespace is trimmed.
func NormalizeTask(task string) string {
	cleaned := zeroWidthChars.Replace(task)
	cleaned = norm.NFKC.String(cleaned)

	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
