package grounding

import (
	"context"
	"fmt"
	"image"
	"sort"
	"unicode/utf8"

	"vipra/internal/application/port/output"
	"vipra/internal/domain/entity"
	"vipra/internal/domain/lexicon"
)

// Engine links review phrases to hierarchy elements. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	cfg    Config
	logger output.LoggerPort
}

func New(cfg Config, logger output.LoggerPort) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

type candidate struct {
	el     entity.UiElement
	vocab  vocabulary
	score  float64
	reason entity.MatchReason
}

type phraseQuery struct {
	words   []string
	regions []lexicon.Region
	cues    map[lexicon.Cue]bool
}

// Ground scores every phrase against every element: O(elements x phrases).
// A tree with nothing but a root yields no links.
func (e *Engine) Ground(ctx context.Context, tree *entity.Tree, phrases []entity.ReviewPhrase) (entity.Grounding, error) {
	var g entity.Grounding
	if tree.IsEmpty() {
		g.Unresolved = append(g.Unresolved, phrases...)
		return g, nil
	}

	elements := tree.Elements()
	cands := make([]candidate, len(elements))
	for i, el := range elements {
		cands[i] = candidate{el: el, vocab: buildVocabulary(el, e.cfg)}
	}
	frame := screenFrame(elements)

	for pi, p := range phrases {
		if err := ctx.Err(); err != nil {
			return entity.Grounding{}, err
		}

		q := e.query(phrases, pi)
		scored := make([]candidate, 0, len(cands))
		for _, c := range cands {
			c.score, c.reason = e.score(q, c, frame)
			if c.score >= e.cfg.Threshold {
				scored = append(scored, c)
			}
		}

		sort.SliceStable(scored, func(i, j int) bool {
			a, b := scored[i], scored[j]
			if a.score != b.score {
				return a.score > b.score
			}
			if a.el.Bounds.Area() != b.el.Bounds.Area() {
				return a.el.Bounds.Area() < b.el.Bounds.Area()
			}
			return a.el.Index < b.el.Index
		})
		if len(scored) > e.cfg.TopK {
			scored = scored[:e.cfg.TopK]
		}

		if len(scored) == 0 {
			g.Unresolved = append(g.Unresolved, p)
			continue
		}
		for rank, c := range scored {
			g.Links = append(g.Links, entity.GroundingLink{
				Phrase:    p,
				ElementID: c.el.ID,
				Score:     c.score,
				Reason:    c.reason,
				Rank:      rank,
			})
		}
	}

	if e.logger != nil {
		e.logger.Debug("Grounding completed",
			"phrases", len(phrases),
			"elements", len(elements),
			"links", len(g.Links),
			"unresolved", len(g.Unresolved))
	}
	return g, nil
}

func (e *Engine) query(phrases []entity.ReviewPhrase, i int) phraseQuery {
	p := phrases[i]
	q := phraseQuery{cues: make(map[lexicon.Cue]bool)}

	for _, tok := range lexicon.Tokenize(p.Text) {
		if r := lexicon.RegionOf(tok.Text); r != lexicon.RegionNone {
			q.regions = append(q.regions, r)
			continue
		}
		if c := lexicon.CueOf(tok.Text); c != lexicon.CueNone {
			q.cues[c] = true
		}
		if !lexicon.IsStopWord(tok.Text) {
			q.words = append(q.words, lexicon.Fold(tok.Text))
		}
	}

	for j, other := range phrases {
		if j == i || other.Category == entity.PhraseEntity {
			continue
		}
		if distance(p, other) > e.cfg.ContextWindow {
			continue
		}
		for _, tok := range lexicon.Tokenize(other.Text) {
			if c := lexicon.CueOf(tok.Text); c != lexicon.CueNone {
				q.cues[c] = true
			}
		}
	}
	return q
}

func (e *Engine) score(q phraseQuery, c candidate, frame image.Rectangle) (float64, entity.MatchReason) {
	text := e.cfg.TextWeight * e.lexical(q.words, c.vocab)
	if text == 0 && len(q.words) > 0 {
		return 0, ""
	}

	var prop float64
	el := c.el
	if q.cues[lexicon.CueAction] && el.Clickable {
		prop += e.cfg.ActionBonus
	}
	if q.cues[lexicon.CueDisabled] && !el.Enabled {
		prop += e.cfg.StateBonus
	}
	if q.cues[lexicon.CueHidden] && !el.Visible {
		prop += e.cfg.StateBonus
	}
	if q.cues[lexicon.CueChecked] && el.Checked {
		prop += e.cfg.StateBonus
	}
	if q.cues[lexicon.CueUnchecked] && el.Checkable && !el.Checked {
		prop += e.cfg.StateBonus
	}

	var pos float64
	if len(q.regions) > 0 && inRegions(el.Bounds.Center(), frame, q.regions) {
		pos = e.cfg.PositionBonus
	}

	reason := entity.ReasonTextSimilarity
	switch {
	case text >= prop && text >= pos:
	case prop >= pos:
		reason = entity.ReasonPropertyMatch
	default:
		reason = entity.ReasonPositional
	}

	return clamp(text + prop + pos), reason
}

// lexical is the mean, over phrase words, of the best field weight each word
// matches exactly or fuzzily.
func (e *Engine) lexical(words []string, v vocabulary) float64 {
	if len(words) == 0 || len(v) == 0 {
		return 0
	}

	var sum float64
	for _, w := range words {
		best := v[w]
		if best == 0 && utf8.RuneCountInString(w) >= 4 {
			for cand, weight := range v {
				if utf8.RuneCountInString(cand) < 4 {
					continue
				}
				if similarity(w, cand) >= e.cfg.FuzzyMinRatio {
					best = max(best, weight*e.cfg.FuzzyWeight)
				}
			}
		}
		sum += best
	}
	return sum / float64(len(words))
}

// screenFrame is the root's box, or the union of valid boxes when the root
// has none.
func screenFrame(elements []entity.UiElement) image.Rectangle {
	if len(elements) > 0 && elements[0].BoundsValid && !elements[0].Bounds.Empty() {
		return elements[0].Bounds.Rect()
	}
	var frame image.Rectangle
	for _, el := range elements {
		if el.BoundsValid && !el.Bounds.Empty() {
			frame = frame.Union(el.Bounds.Rect())
		}
	}
	return frame
}

func inRegions(pt image.Point, frame image.Rectangle, regions []lexicon.Region) bool {
	if frame.Empty() {
		return false
	}
	w, h := frame.Dx()/3, frame.Dy()/3
	for _, r := range regions {
		var ok bool
		switch r {
		case lexicon.RegionTop:
			ok = pt.Y < frame.Min.Y+h
		case lexicon.RegionBottom:
			ok = pt.Y >= frame.Max.Y-h
		case lexicon.RegionLeft:
			ok = pt.X < frame.Min.X+w
		case lexicon.RegionRight:
			ok = pt.X >= frame.Max.X-w
		}
		if !ok {
			return false
		}
	}
	return true
}

func distance(a, b entity.ReviewPhrase) int {
	switch {
	case b.Start >= a.End:
		return b.Start - a.End
	case a.Start >= b.End:
		return a.Start - b.End
	}
	return 0
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func (e *Engine) String() string {
	return fmt.Sprintf("grounding.Engine{threshold=%.2f topK=%d}", e.cfg.Threshold, e.cfg.TopK)
}
