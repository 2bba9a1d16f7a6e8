package entity

import "image"

type Annotation struct {
	Index      int             `json:"index" yaml:"index"`
	ElementID  string          `json:"element_id" yaml:"element_id"`
	Box        image.Rectangle `json:"box" yaml:"-"`
	LabelBox   image.Rectangle `json:"label_box" yaml:"-"`
	Label      string          `json:"label" yaml:"label"`
	ColorIndex int             `json:"color_index" yaml:"color_index"`
	Phrase     string          `json:"phrase" yaml:"phrase"`
}

// AnnotatedImage is derived from a screenshot and never modified after
// creation; re-annotate instead.
type AnnotatedImage struct {
	Image       *image.NRGBA
	Annotations []Annotation
}

func (a *AnnotatedImage) ByIndex(i int) (Annotation, bool) {
	if a == nil || i < 0 || i >= len(a.Annotations) {
		return Annotation{}, false
	}
	return a.Annotations[i], true
}
