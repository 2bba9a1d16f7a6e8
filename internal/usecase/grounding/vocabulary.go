package grounding

import (
	"strings"

	"vipra/internal/domain/entity"
	"vipra/internal/domain/lexicon"
)

// vocabulary maps folded words describing an element to the weight of the
// field they came from.
type vocabulary map[string]float64

func (v vocabulary) add(words []string, weight float64) {
	for _, w := range words {
		if weight > v[w] {
			v[w] = weight
		}
	}
}

func buildVocabulary(el entity.UiElement, cfg Config) vocabulary {
	v := make(vocabulary)
	v.add(lexicon.Words(el.Text), 1)
	v.add(lexicon.Words(el.ContentDesc), 1)
	v.add(lexicon.Words(resourceTail(el.ResourceID)), cfg.ResourceIDWeight)

	var types []string
	for _, alias := range lexicon.TypeAliases(el.ShortClass()) {
		types = append(types, lexicon.Fold(alias))
	}
	v.add(types, cfg.TypeWeight)
	return v
}

// resourceTail drops the package prefix of an Android resource id
// ("com.app:id/login_button" -> "login_button").
func resourceTail(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// similarity is 1 - levenshtein(a,b)/max(len(a),len(b)) over runes.
func similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}

	longest := max(len(ra), len(rb))
	return 1 - float64(prev[len(rb)])/float64(longest)
}
