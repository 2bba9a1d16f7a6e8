package lexicon

import (
	"strings"
	"unicode"
)

// Token is a lowercased word with rune offsets into the source text. Break is
// set when sentence or clause punctuation separates it from the previous token.
type Token struct {
	Text  string
	Start int
	End   int
	Break bool
}

// Tokenize splits text into words. Apostrophes and hyphens inside a word are
// kept ("doesn't", "greyed-out").
func Tokenize(text string) []Token {
	runes := []rune(text)
	var (
		tokens  []Token
		pending bool
	)

	for i := 0; i < len(runes); {
		r := runes[i]
		if !isWordRune(r) {
			if isBreakRune(r) {
				pending = true
			}
			i++
			continue
		}

		start := i
		for i < len(runes) && (isWordRune(runes[i]) || (isJoiner(runes[i]) && i+1 < len(runes) && isWordRune(runes[i+1]))) {
			i++
		}

		word := strings.ToLower(string(runes[start:i]))
		word = strings.ReplaceAll(word, "’", "'")
		tokens = append(tokens, Token{
			Text:  word,
			Start: start,
			End:   i,
			Break: pending && len(tokens) > 0,
		})
		pending = false
	}
	return tokens
}

// Words tokenizes s and returns folded non-stop words. camelCase and
// snake_case identifiers are split first.
func Words(s string) []string {
	var out []string
	for _, t := range Tokenize(splitIdentifier(s)) {
		if IsStopWord(t.Text) {
			continue
		}
		out = append(out, Fold(t.Text))
	}
	return out
}

// Fold reduces a lowercased word to a crude stem so that "buttons", "tapped"
// and "loading" compare equal to "button", "tap" and "load".
func Fold(w string) string {
	w = strings.TrimSuffix(w, "'s")
	w = strings.ReplaceAll(w, "'", "")

	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		w = w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "xes") && len(w) > 4:
		w = w[:len(w)-2]
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us") && len(w) > 3:
		w = w[:len(w)-1]
	}

	for _, suf := range []string{"ing", "ed"} {
		if strings.HasSuffix(w, suf) && len(w)-len(suf) >= 3 {
			w = w[:len(w)-len(suf)]
			if n := len(w); n >= 2 && w[n-1] == w[n-2] && !strings.ContainsRune("aeiousl", rune(w[n-1])) {
				w = w[:n-1]
			}
			break
		}
	}
	return w
}

func splitIdentifier(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '_' || r == '/' || r == ':' || r == '.':
			b.WriteRune(' ')
		case i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]):
			b.WriteRune(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isJoiner(r rune) bool {
	return r == '\'' || r == '’' || r == '-'
}

func isBreakRune(r rune) bool {
	return strings.ContainsRune(".,;:!?()[]\"\n", r)
}
