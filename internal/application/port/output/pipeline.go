package output

import (
	"context"
	"image"
	"io"
	"time"

	"vipra/internal/domain/entity"
)

type HierarchyParser interface {
	Parse(ctx context.Context, r io.Reader) (*entity.Tree, error)
}

type PhraseExtractor interface {
	ExtractPhrases(ctx context.Context, text string) ([]entity.ReviewPhrase, error)
}

// ReviewNormalizer cleans raw review text and picks the sentence most likely
// to describe a functional problem.
type ReviewNormalizer interface {
	Normalize(raw string) entity.NormalizedReview
	Snippet(text string) string
}

type Grounder interface {
	Ground(ctx context.Context, tree *entity.Tree, phrases []entity.ReviewPhrase) (entity.Grounding, error)
}

type Annotator interface {
	Annotate(img image.Image, grounding entity.Grounding, tree *entity.Tree) (*entity.AnnotatedImage, error)
}

type PromptInput struct {
	Review    string
	Snippet   string
	Tree      *entity.Tree
	Grounding entity.Grounding
	Annotated *entity.AnnotatedImage
}

type PromptComposer interface {
	Compose(in PromptInput) (*ReasoningRequest, error)
}

type VerdictInterpreter interface {
	Interpret(raw string, grounding entity.Grounding, annotated *entity.AnnotatedImage) entity.Verdict
}

type MetricsPort interface {
	ObserveStage(stage string, d time.Duration)
	ObserveGrounding(links, unresolved int)
	CountVerdict(v entity.Verdict)
	CountReasoningFailure(reason string)
}
