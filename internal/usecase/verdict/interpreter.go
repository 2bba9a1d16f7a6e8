package verdict

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"vipra/internal/application/port/output"
	"vipra/internal/domain/entity"
	"vipra/internal/domain/lexicon"
	"vipra/internal/infrastructure/prompts"
)

var _ output.VerdictInterpreter = (*Interpreter)(nil)

type Config struct {
	// DegradedConfidence caps the confidence of verdicts recovered from
	// unstructured text.
	DegradedConfidence float64 `mapstructure:"degraded_confidence"`
}

func DefaultConfig() Config {
	return Config{DegradedConfidence: 0.5}
}

type Interpreter struct {
	cfg    Config
	schema *gojsonschema.Schema
	legacy *gojsonschema.Schema
	logger output.LoggerPort
}

func New(cfg Config, logger output.LoggerPort) (*Interpreter, error) {
	if cfg.DegradedConfidence < 0 || cfg.DegradedConfidence > 1 {
		return nil, fmt.Errorf("degraded_confidence must be in [0,1], got %v", cfg.DegradedConfidence)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(prompts.ResponseSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile response schema: %w", err)
	}
	legacy, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(prompts.LegacyResponseSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile legacy response schema: %w", err)
	}
	return &Interpreter{cfg: cfg, schema: schema, legacy: legacy, logger: logger}, nil
}

type structuredResponse struct {
	Verdict       string   `json:"verdict"`
	Justification string   `json:"justification"`
	Confidence    *float64 `json:"confidence"`
	MismatchType  string   `json:"mismatch_type"`
}

type legacyResponse struct {
	MismatchDetected string  `json:"mismatch_detected"`
	ConfidenceScore  float64 `json:"confidence_score"`
	MismatchType     string  `json:"mismatch_type"`
	Rationale        string  `json:"rationale"`
}

// Interpret never fails: anything it cannot read becomes an Uncertain verdict
// carrying the raw response.
func (i *Interpreter) Interpret(raw string, grounding entity.Grounding, annotated *entity.AnnotatedImage) entity.Verdict {
	text := strings.TrimSpace(raw)
	if text == "" {
		return entity.Verdict{
			Label:       entity.VerdictUncertain,
			Explanation: "model returned an empty response",
			Degraded:    true,
			Raw:         raw,
		}
	}

	v, ok := i.structured(text)
	if !ok {
		v, ok = labelledLine(text)
		if !ok {
			v, ok = keywordVerdict(text)
		}
		if !ok {
			if i.logger != nil {
				i.logger.Warn("No verdict vocabulary in model response", "error", entity.ErrMalformedModelResponse, "length", len(raw))
			}
			return entity.Verdict{
				Label:       entity.VerdictUncertain,
				Explanation: raw,
				Degraded:    true,
				Raw:         raw,
			}
		}
		v.Degraded = true
		v.Confidence = i.cfg.DegradedConfidence
	}

	v.Raw = raw
	v.Evidence = evidence(citedIndices(v.Explanation), grounding, annotated)
	return v
}

// structured reads the JSON answer. cited_boxes and relevant_widget_id are
// not trusted for evidence; only boxes named in the justification count.
func (i *Interpreter) structured(text string) (entity.Verdict, bool) {
	block, ok := extractJSON(text)
	if !ok {
		return entity.Verdict{}, false
	}

	var doc any
	if err := json.Unmarshal([]byte(block), &doc); err != nil {
		if i.logger != nil {
			i.logger.Warn("Model response JSON does not decode", "error", err)
		}
		return entity.Verdict{}, false
	}

	if i.valid(i.schema, doc) {
		var resp structuredResponse
		if err := json.Unmarshal([]byte(block), &resp); err != nil {
			return entity.Verdict{}, false
		}
		label, ok := entity.ParseVerdictLabel(resp.Verdict)
		if !ok {
			return entity.Verdict{}, false
		}
		confidence := i.cfg.DegradedConfidence
		if resp.Confidence != nil {
			confidence = *resp.Confidence
		}
		return entity.Verdict{
			Label:        label,
			Explanation:  strings.TrimSpace(resp.Justification),
			Confidence:   clamp(confidence),
			MismatchType: mismatchType(resp.MismatchType),
		}, true
	}

	if i.valid(i.legacy, doc) {
		var resp legacyResponse
		if err := json.Unmarshal([]byte(block), &resp); err != nil {
			return entity.Verdict{}, false
		}
		label, ok := entity.ParseVerdictLabel(resp.MismatchDetected)
		if !ok {
			return entity.Verdict{}, false
		}
		return entity.Verdict{
			Label:        label,
			Explanation:  strings.TrimSpace(resp.Rationale),
			Confidence:   clamp(resp.ConfidenceScore),
			MismatchType: mismatchType(resp.MismatchType),
		}, true
	}

	return entity.Verdict{}, false
}

func (i *Interpreter) valid(schema *gojsonschema.Schema, doc any) bool {
	res, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return false
	}
	if !res.Valid() && i.logger != nil && schema == i.schema {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		i.logger.Debug("Model response does not match schema", "errors", strings.Join(msgs, "; "))
	}
	return res.Valid()
}

func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

var labelLineRe = regexp.MustCompile(`(?i)\bverdict\b\**\s*[:=]\s*\**\s*(no[ _-]?mismatch|mismatch|uncertain|inconsistent|consistent|yes|no)\b\**[.!]?`)

// labelledLine reads answers of the form "Verdict: Mismatch. <reasoning>".
func labelledLine(text string) (entity.Verdict, bool) {
	loc := labelLineRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return entity.Verdict{}, false
	}
	label, ok := entity.ParseVerdictLabel(text[loc[2]:loc[3]])
	if !ok {
		return entity.Verdict{}, false
	}

	rest := strings.TrimSpace(text[:loc[0]] + " " + text[loc[1]:])
	rest = strings.TrimLeft(rest, " .:-*")
	if rest == "" {
		rest = text
	}
	return entity.Verdict{Label: label, Explanation: rest}, true
}

type keyword struct {
	phrase string
	label  entity.VerdictLabel
	// negated is the label when a negation closely precedes the phrase.
	// Empty means the phrase already carries its own polarity.
	negated entity.VerdictLabel
}

// Negated forms come first so "no mismatch" and "does not match" are not
// read as their plain counterparts.
var keywords = []keyword{
	{"no mismatch", entity.VerdictNoMismatch, ""},
	{"not a mismatch", entity.VerdictNoMismatch, ""},
	{"no inconsistency", entity.VerdictNoMismatch, ""},
	{"not inconsistent", entity.VerdictNoMismatch, ""},
	{"not consistent", entity.VerdictMismatch, ""},
	{"does not match", entity.VerdictMismatch, ""},
	{"doesn't match", entity.VerdictMismatch, ""},
	{"do not match", entity.VerdictMismatch, ""},
	{"don't match", entity.VerdictMismatch, ""},
	{"cannot determine", entity.VerdictUncertain, ""},
	{"can't determine", entity.VerdictUncertain, ""},
	{"unable to determine", entity.VerdictUncertain, ""},
	{"inconsistent", entity.VerdictMismatch, entity.VerdictNoMismatch},
	{"mismatch", entity.VerdictMismatch, entity.VerdictNoMismatch},
	{"uncertain", entity.VerdictUncertain, ""},
	{"consistent", entity.VerdictNoMismatch, entity.VerdictMismatch},
	{"matches", entity.VerdictNoMismatch, entity.VerdictMismatch},
}

// negationWindow is how many words before a keyword are searched for a
// negation ("does not appear to be a mismatch").
const negationWindow = 6

func keywordVerdict(text string) (entity.Verdict, bool) {
	lower := strings.ToLower(strings.ReplaceAll(text, "’", "'"))
	for _, k := range keywords {
		idx := strings.Index(lower, k.phrase)
		if idx == -1 {
			continue
		}
		label := k.label
		if k.negated != "" && negatedBefore(lower[:idx]) {
			label = k.negated
		}
		return entity.Verdict{Label: label, Explanation: text}, true
	}
	return entity.Verdict{}, false
}

// negatedBefore reports whether one of the last words of prefix, within the
// same clause, is a negation.
func negatedBefore(prefix string) bool {
	if tail := strings.TrimRight(prefix, " \t"); tail != "" && strings.ContainsAny(tail[len(tail)-1:], ".,;:!?\n") {
		return false
	}
	tokens := lexicon.Tokenize(prefix)
	for j, n := len(tokens)-1, 0; j >= 0 && n < negationWindow; j, n = j-1, n+1 {
		if lexicon.IsNegation(tokens[j].Text) {
			return true
		}
		if tokens[j].Break {
			return false
		}
	}
	return false
}

var citeRe = regexp.MustCompile(`(?i)\b(?:box|widget)\s*#?\s*(\d+)\b|\[(\d+)\]`)

func citedIndices(text string) []int {
	var out []int
	for _, m := range citeRe.FindAllStringSubmatch(text, -1) {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		if n, err := strconv.Atoi(digits); err == nil {
			out = append(out, n)
		}
	}
	return out
}

// evidence returns every link to a cited box's element, in link order.
// Indices without an annotation are ignored.
func evidence(indices []int, g entity.Grounding, annotated *entity.AnnotatedImage) []entity.GroundingLink {
	ids := make(map[string]bool)
	for _, idx := range indices {
		if ann, ok := annotated.ByIndex(idx); ok {
			ids[ann.ElementID] = true
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var out []entity.GroundingLink
	for _, l := range g.Links {
		if ids[l.ElementID] {
			out = append(out, l)
		}
	}
	return out
}

func mismatchType(s string) entity.MismatchType {
	for _, t := range []entity.MismatchType{
		entity.MismatchNonFunctional,
		entity.MismatchMisrepresented,
		entity.MismatchVisualGlitch,
		entity.MismatchNone,
	} {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t
		}
	}
	return ""
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
