package entity

type PhraseCategory string

const (
	PhraseEntity PhraseCategory = "entity"
	PhraseAction PhraseCategory = "action"
	PhraseState  PhraseCategory = "state"
)

// ReviewPhrase is a normalised span of review text. Start and End are rune
// offsets into the raw review once the pipeline has rebased them.
type ReviewPhrase struct {
	Text     string         `json:"text" yaml:"text"`
	Start    int            `json:"start" yaml:"start"`
	End      int            `json:"end" yaml:"end"`
	Category PhraseCategory `json:"category" yaml:"category"`
}

// Span is a half-open rune range.
type Span struct {
	Start int
	End   int
}

// NormalizedReview is review text after markup cleanup. Origin holds, for each
// rune of Text, the span of the raw review it was produced from. A nil Origin
// means Text is the raw review unchanged.
type NormalizedReview struct {
	Text   string
	Origin []Span
}

// Rebase moves a phrase extracted from Text onto the raw review.
func (n NormalizedReview) Rebase(p ReviewPhrase) ReviewPhrase {
	if n.Origin == nil || p.Start < 0 || p.End <= p.Start || p.End > len(n.Origin) {
		return p
	}
	p.Start, p.End = n.Origin[p.Start].Start, n.Origin[p.End-1].End
	return p
}
