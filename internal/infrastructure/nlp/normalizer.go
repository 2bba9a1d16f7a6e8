package nlp

import (
	"vipra/internal/application/port/output"
	"vipra/internal/domain/entity"
)

var _ output.ReviewNormalizer = Normalizer{}

type Normalizer struct{}

func (Normalizer) Normalize(raw string) entity.NormalizedReview { return Clean(raw) }

func (Normalizer) Snippet(text string) string { return FunctionalSnippet(text) }
