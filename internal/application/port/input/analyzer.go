package input

import (
	"context"
	"image"
	"io"

	"vipra/internal/domain/entity"
)

type AnalysisRequest struct {
	Screenshot image.Image
	// Hierarchy is optional; nil analyses against an empty tree.
	Hierarchy io.Reader
	Review    string
}

type AnalysisResult struct {
	ID        string
	Verdict   entity.Verdict
	Annotated *entity.AnnotatedImage
	Tree      *entity.Tree
	Grounding entity.Grounding
	Phrases   []entity.ReviewPhrase
	Snippet   string
	Prompt    string
	Elements  int
	// Grounded is false when no phrase linked to any element; Verdict is then
	// Uncertain and no prompt is composed.
	Grounded bool
}

type MismatchAnalyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error)
	// Prepare runs every stage up to and including prompt composition.
	Prepare(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error)
	// Replay interprets a previously recorded model response instead of
	// calling the reasoning model.
	Replay(ctx context.Context, req AnalysisRequest, response string) (*AnalysisResult, error)
}
