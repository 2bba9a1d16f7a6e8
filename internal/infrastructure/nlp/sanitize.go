package nlp

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"

	"vipra/internal/domain/entity"
)

var (
	blockTags   = []string{"br", "p", "div", "li", "tr"}
	droppedTags = []string{"script", "style", "noscript"}
)

// maxEntityLen bounds the search for the ';' closing a character reference.
const maxEntityLen = 32

// Sanitize strips markup and entities that store exports leave in review
// text. Text without '<' or '&' is returned unchanged.
func Sanitize(raw string) string { return Clean(raw).Text }

// Clean is Sanitize that also records where every output rune came from, so
// offsets found in the cleaned text can be mapped back onto raw.
func Clean(raw string) entity.NormalizedReview {
	if !strings.ContainsAny(raw, "<&") {
		return entity.NormalizedReview{Text: raw}
	}

	z := html.NewTokenizer(strings.NewReader(raw))
	var (
		out  spanned
		pos  int
		skip int
	)

	for {
		tt := z.Next()
		chunk := z.Raw()
		start := pos
		pos += utf8.RuneCount(chunk)

		switch tt {
		case html.ErrorToken:
			return out.tidy()

		case html.TextToken:
			if skip == 0 {
				out.decode(string(chunk), start)
			}

		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if isOneOf(tag, droppedTags...) {
				switch tt {
				case html.StartTagToken:
					skip++
				case html.EndTagToken:
					if skip > 0 {
						skip--
					}
				}
				continue
			}
			if isOneOf(tag, blockTags...) {
				out.add('\n', entity.Span{Start: start, End: pos})
			}
		}
	}
}

type spanned struct {
	runes  []rune
	origin []entity.Span
}

func (s *spanned) add(r rune, sp entity.Span) {
	s.runes = append(s.runes, r)
	s.origin = append(s.origin, sp)
}

// decode appends raw text starting at rune offset base, expanding character
// references. Every rune of an expansion maps to the whole reference.
func (s *spanned) decode(text string, base int) {
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if runes[i] == '&' {
			if n := entityLen(runes[i:]); n > 0 {
				ref := string(runes[i : i+n])
				if dec := html.UnescapeString(ref); dec != ref {
					sp := entity.Span{Start: base + i, End: base + i + n}
					for _, r := range dec {
						s.add(r, sp)
					}
					i += n
					continue
				}
			}
		}
		s.add(runes[i], entity.Span{Start: base + i, End: base + i + 1})
		i++
	}
}

// entityLen returns the length of a "&name;" or "&#nn;" reference at the
// start of runes, or 0.
func entityLen(runes []rune) int {
	for j := 1; j < len(runes) && j < maxEntityLen; j++ {
		switch r := runes[j]; {
		case r == ';':
			if j == 1 {
				return 0
			}
			return j + 1
		case r == '#' && j == 1:
		case unicode.IsLetter(r) || unicode.IsDigit(r):
		default:
			return 0
		}
	}
	return 0
}

// tidy collapses whitespace runs to one space and blank lines to one line
// break, trimming both ends. A kept separator maps to the first whitespace
// rune of its run.
func (s *spanned) tidy() entity.NormalizedReview {
	var out spanned
	space, brk := -1, -1
	for i, r := range s.runes {
		switch {
		case r == '\n':
			if brk < 0 {
				brk = i
			}
		case unicode.IsSpace(r):
			if space < 0 {
				space = i
			}
		default:
			if len(out.runes) > 0 {
				switch {
				case brk >= 0:
					out.add('\n', s.origin[brk])
				case space >= 0:
					out.add(' ', s.origin[space])
				}
			}
			space, brk = -1, -1
			out.add(r, s.origin[i])
		}
	}
	return entity.NormalizedReview{Text: string(out.runes), Origin: out.origin}
}

func isOneOf(s string, candidates ...string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}
