package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"vipra/internal/application/port/input"
	"vipra/internal/application/port/output"
	"vipra/internal/domain/entity"
)

var _ input.MismatchAnalyzer = (*UseCase)(nil)

const (
	StageParse     = "parse"
	StageExtract   = "extract"
	StageGround    = "ground"
	StageAnnotate  = "annotate"
	StageCompose   = "compose"
	StageReason    = "reason"
	StageInterpret = "interpret"
)

const noGroundingExplanation = "No review phrase could be matched to a UI element on this screen."

type Config struct {
	ReasonTimeout time.Duration `mapstructure:"reason_timeout"`
}

func DefaultConfig() Config {
	return Config{ReasonTimeout: 90 * time.Second}
}

type Deps struct {
	Parser      output.HierarchyParser
	Normalizer  output.ReviewNormalizer
	Extractor   output.PhraseExtractor
	Grounder    output.Grounder
	Annotator   output.Annotator
	Composer    output.PromptComposer
	Reasoner    output.ReasonerPort
	Interpreter output.VerdictInterpreter
	Metrics     output.MetricsPort
	Logger      output.LoggerPort
}

type UseCase struct {
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) (*UseCase, error) {
	if cfg.ReasonTimeout <= 0 {
		return nil, fmt.Errorf("reason timeout must be positive, got %s", cfg.ReasonTimeout)
	}
	switch {
	case deps.Parser == nil:
		return nil, errors.New("analysis: hierarchy parser is required")
	case deps.Normalizer == nil:
		return nil, errors.New("analysis: review normalizer is required")
	case deps.Extractor == nil:
		return nil, errors.New("analysis: phrase extractor is required")
	case deps.Grounder == nil:
		return nil, errors.New("analysis: grounder is required")
	case deps.Annotator == nil:
		return nil, errors.New("analysis: annotator is required")
	case deps.Composer == nil:
		return nil, errors.New("analysis: prompt composer is required")
	case deps.Interpreter == nil:
		return nil, errors.New("analysis: verdict interpreter is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	return &UseCase{cfg: cfg, deps: deps}, nil
}

// run carries the per-request artifacts between stages.
type run struct {
	res     *input.AnalysisResult
	request *output.ReasoningRequest
	logger  output.LoggerPort
}

func (uc *UseCase) Analyze(ctx context.Context, req input.AnalysisRequest) (*input.AnalysisResult, error) {
	r, err := uc.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if !r.res.Grounded {
		return uc.finish(r), nil
	}
	if uc.deps.Reasoner == nil {
		return nil, fmt.Errorf("%w: no reasoning backend configured", entity.ErrReasoningUnavailable)
	}

	raw, err := uc.reason(ctx, r)
	if err != nil {
		return nil, err
	}
	uc.interpret(r, raw)
	return uc.finish(r), nil
}

func (uc *UseCase) Prepare(ctx context.Context, req input.AnalysisRequest) (*input.AnalysisResult, error) {
	r, err := uc.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return r.res, nil
}

func (uc *UseCase) Replay(ctx context.Context, req input.AnalysisRequest, response string) (*input.AnalysisResult, error) {
	r, err := uc.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if r.res.Grounded {
		uc.interpret(r, response)
	}
	return uc.finish(r), nil
}

func (uc *UseCase) prepare(ctx context.Context, req input.AnalysisRequest) (*run, error) {
	if req.Screenshot == nil {
		return nil, errors.New("analysis: screenshot is required")
	}

	id := uuid.NewString()
	r := &run{
		res:    &input.AnalysisResult{ID: id},
		logger: uc.deps.Logger,
	}
	if r.logger != nil {
		r.logger = r.logger.With("analysis_id", id)
		r.logger.Info("Analysis started", "review_len", len(req.Review), "has_hierarchy", req.Hierarchy != nil)
	}

	review := uc.deps.Normalizer.Normalize(req.Review)
	r.res.Snippet = uc.deps.Normalizer.Snippet(review.Text)

	var (
		tree    *entity.Tree
		phrases []entity.ReviewPhrase
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if req.Hierarchy == nil {
			return nil
		}
		defer uc.observe(StageParse, time.Now())
		t, err := uc.deps.Parser.Parse(gctx, req.Hierarchy)
		if err != nil {
			return err
		}
		tree = t
		return nil
	})
	g.Go(func() error {
		defer uc.observe(StageExtract, time.Now())
		p, err := uc.deps.Extractor.ExtractPhrases(gctx, review.Text)
		if err != nil {
			return fmt.Errorf("phrase extraction failed: %w", err)
		}
		phrases = p
		return nil
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if r.logger != nil {
			r.logger.Error("Analysis input rejected", "error", err)
		}
		return nil, err
	}
	r.res.Tree = tree
	r.res.Elements = tree.Len()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	grounding, err := uc.deps.Grounder.Ground(ctx, tree, phrases)
	uc.observe(StageGround, start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("grounding failed: %w", err)
	}
	grounding = rebase(review, grounding)
	r.res.Phrases = rebasePhrases(review, phrases)
	r.res.Grounding = grounding
	r.res.Grounded = len(grounding.Links) > 0
	uc.deps.Metrics.ObserveGrounding(len(grounding.Links), len(grounding.Unresolved))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	annotated, err := uc.deps.Annotator.Annotate(req.Screenshot, grounding, tree)
	uc.observe(StageAnnotate, start)
	if err != nil {
		return nil, fmt.Errorf("annotation failed: %w", err)
	}
	r.res.Annotated = annotated

	if r.logger != nil {
		r.logger.Debug("Review grounded",
			"elements", r.res.Elements,
			"phrases", len(phrases),
			"links", len(grounding.Links),
			"unresolved", len(grounding.Unresolved),
			"boxes", len(annotated.Annotations))
	}

	if !r.res.Grounded {
		r.res.Verdict = entity.Verdict{
			Label:       entity.VerdictUncertain,
			Explanation: noGroundingExplanation,
		}
		return r, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start = time.Now()
	request, err := uc.deps.Composer.Compose(output.PromptInput{
		Review:    req.Review,
		Snippet:   r.res.Snippet,
		Tree:      tree,
		Grounding: grounding,
		Annotated: annotated,
	})
	uc.observe(StageCompose, start)
	if err != nil {
		return nil, fmt.Errorf("prompt composition failed: %w", err)
	}
	r.request = request
	r.res.Prompt = request.Prompt
	return r, nil
}

// rebase moves phrase offsets from the cleaned review back onto the raw one.
// Grounding runs on cleaned offsets so markup does not widen phrase gaps.
func rebase(review entity.NormalizedReview, g entity.Grounding) entity.Grounding {
	if review.Origin == nil {
		return g
	}
	links := make([]entity.GroundingLink, len(g.Links))
	for i, l := range g.Links {
		l.Phrase = review.Rebase(l.Phrase)
		links[i] = l
	}
	g.Links = links
	g.Unresolved = rebasePhrases(review, g.Unresolved)
	return g
}

func rebasePhrases(review entity.NormalizedReview, phrases []entity.ReviewPhrase) []entity.ReviewPhrase {
	if review.Origin == nil || phrases == nil {
		return phrases
	}
	out := make([]entity.ReviewPhrase, len(phrases))
	for i, p := range phrases {
		out[i] = review.Rebase(p)
	}
	return out
}

func (uc *UseCase) reason(ctx context.Context, r *run) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rctx, cancel := context.WithTimeout(ctx, uc.cfg.ReasonTimeout)
	defer cancel()

	start := time.Now()
	raw, err := uc.deps.Reasoner.Reason(rctx, *r.request)
	uc.observe(StageReason, start)
	if err == nil {
		return raw, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(rctx.Err(), context.DeadlineExceeded) {
		reason = "timeout"
	}
	uc.deps.Metrics.CountReasoningFailure(reason)
	if r.logger != nil {
		r.logger.Error("Reasoning call failed", "reason", reason, "timeout", uc.cfg.ReasonTimeout.String(), "error", err)
	}
	return "", fmt.Errorf("%w: %w", entity.ErrReasoningUnavailable, err)
}

func (uc *UseCase) interpret(r *run, raw string) {
	start := time.Now()
	r.res.Verdict = uc.deps.Interpreter.Interpret(raw, r.res.Grounding, r.res.Annotated)
	uc.observe(StageInterpret, start)
}

func (uc *UseCase) finish(r *run) *input.AnalysisResult {
	v := r.res.Verdict
	uc.deps.Metrics.CountVerdict(v)
	if r.logger != nil {
		r.logger.Info("Analysis completed",
			"verdict", string(v.Label),
			"confidence", v.Confidence,
			"degraded", v.Degraded,
			"evidence", len(v.Evidence))
	}
	return r.res
}

func (uc *UseCase) observe(stage string, start time.Time) {
	uc.deps.Metrics.ObserveStage(stage, time.Since(start))
}

type nopMetrics struct{}

func (nopMetrics) ObserveStage(string, time.Duration) {}
func (nopMetrics) ObserveGrounding(int, int)          {}
func (nopMetrics) CountVerdict(entity.Verdict)        {}
func (nopMetrics) CountReasoningFailure(string)       {}
