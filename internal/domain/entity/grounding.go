package entity

type MatchReason string

const (
	ReasonTextSimilarity MatchReason = "text_similarity"
	ReasonPropertyMatch  MatchReason = "property_match"
	ReasonPositional     MatchReason = "positional"
)

type GroundingLink struct {
	Phrase    ReviewPhrase `json:"phrase" yaml:"phrase"`
	ElementID string       `json:"element_id" yaml:"element_id"`
	Score     float64      `json:"score" yaml:"score"`
	Reason    MatchReason  `json:"reason" yaml:"reason"`
	Rank      int          `json:"rank" yaml:"rank"`
}

// Grounding is the output of one grounding pass. Unresolved holds phrases
// that no element scored above the threshold for.
type Grounding struct {
	Links      []GroundingLink `json:"links" yaml:"links"`
	Unresolved []ReviewPhrase  `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

// DistinctElements returns linked element ids in order of first appearance.
func (g Grounding) DistinctElements() []string {
	seen := make(map[string]bool, len(g.Links))
	var ids []string
	for _, l := range g.Links {
		if seen[l.ElementID] {
			continue
		}
		seen[l.ElementID] = true
		ids = append(ids, l.ElementID)
	}
	return ids
}

func (g Grounding) LinksFor(elementID string) []GroundingLink {
	var out []GroundingLink
	for _, l := range g.Links {
		if l.ElementID == elementID {
			out = append(out, l)
		}
	}
	return out
}
