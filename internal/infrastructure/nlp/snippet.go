package nlp

import (
	"strings"
)

var issueKeywords = []string{
	"bug", "crash", "error", "broken", "glitch", "issue", "stuck",
	"not working", "doesn't work", "fails to", "unable to", "can't",
}

// Sentences splits text on terminal punctuation and line breaks.
func Sentences(text string) []string {
	var (
		out []string
		cur strings.Builder
	)
	push := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for _, r := range text {
		switch r {
		case '\n':
			push()
		case '.', '!', '?':
			cur.WriteRune(r)
			push()
		default:
			cur.WriteRune(r)
		}
	}
	push()
	return out
}

// FunctionalSnippet picks the first sentence that mentions a functional
// problem, or the first sentence when none does.
func FunctionalSnippet(text string) string {
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return ""
	}

	for _, s := range sentences {
		lower := strings.ReplaceAll(strings.ToLower(s), "’", "'")
		for _, kw := range issueKeywords {
			if strings.Contains(lower, kw) {
				return s
			}
		}
	}
	return sentences[0]
}
