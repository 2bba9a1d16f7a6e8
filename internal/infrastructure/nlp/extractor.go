package nlp

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"vipra/internal/application/port/output"
	"vipra/internal/domain/entity"
	"vipra/internal/domain/lexicon"
)

var _ output.PhraseExtractor = (*Extractor)(nil)

type Config struct {
	// MinPhraseLen is measured in runes.
	MinPhraseLen int
}

func DefaultConfig() Config {
	return Config{MinPhraseLen: 3}
}

// Extractor finds candidate element references in review text with a
// lexicon-driven tagger: runs of content words become noun phrases, action
// verbs and state adjectives become phrases of their own.
type Extractor struct {
	cfg Config
}

func NewExtractor(cfg Config) *Extractor {
	if cfg.MinPhraseLen <= 0 {
		cfg.MinPhraseLen = DefaultConfig().MinPhraseLen
	}
	return &Extractor{cfg: cfg}
}

func (e *Extractor) ExtractPhrases(ctx context.Context, text string) ([]entity.ReviewPhrase, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := lexicon.Tokenize(text)
	phrases := make([]entity.ReviewPhrase, 0, len(tokens)/2)
	var run []lexicon.Token

	flush := func() {
		if len(run) > 0 {
			phrases = e.emit(phrases, run, entity.PhraseEntity)
			run = nil
		}
	}

	for i, tok := range tokens {
		if tok.Break {
			flush()
		}

		switch lexicon.TagOf(tok.Text) {
		case lexicon.TagStop:
			flush()
		case lexicon.TagState:
			flush()
			phrases = e.emit(phrases, tokens[i:i+1], entity.PhraseState)
		case lexicon.TagAction:
			if modifiesNoun(tokens, i) {
				run = append(run, tok)
				continue
			}
			flush()
			phrases = e.emit(phrases, tokens[i:i+1], entity.PhraseAction)
		default:
			run = append(run, tok)
		}
	}
	flush()

	sort.SliceStable(phrases, func(i, j int) bool {
		if phrases[i].Start != phrases[j].Start {
			return phrases[i].Start < phrases[j].Start
		}
		return phrases[i].End < phrases[j].End
	})
	return phrases, nil
}

func (e *Extractor) emit(dst []entity.ReviewPhrase, toks []lexicon.Token, cat entity.PhraseCategory) []entity.ReviewPhrase {
	words := make([]string, len(toks))
	for i, t := range toks {
		words[i] = t.Text
	}
	text := strings.Join(words, " ")
	if utf8.RuneCountInString(text) < e.cfg.MinPhraseLen {
		return dst
	}
	return append(dst, entity.ReviewPhrase{
		Text:     text,
		Start:    toks[0].Start,
		End:      toks[len(toks)-1].End,
		Category: cat,
	})
}

// modifiesNoun reports whether the action word at i is part of a compound
// that ends in a UI noun ("submit button", "play icon").
func modifiesNoun(tokens []lexicon.Token, i int) bool {
	for j := i + 1; j < len(tokens); j++ {
		if tokens[j].Break {
			return false
		}
		switch lexicon.TagOf(tokens[j].Text) {
		case lexicon.TagNoun:
			return true
		case lexicon.TagContent, lexicon.TagAction:
			continue
		default:
			return false
		}
	}
	return false
}
