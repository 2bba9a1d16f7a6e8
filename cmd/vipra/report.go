package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"vipra/internal/application/port/input"
	"vipra/internal/domain/entity"
	"vipra/internal/infrastructure/prompts"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type Report struct {
	ID              string                `json:"id" yaml:"id"`
	TemplateVersion string                `json:"template_version,omitempty" yaml:"template_version,omitempty"`
	Verdict         entity.Verdict        `json:"verdict" yaml:"verdict"`
	Snippet         string                `json:"snippet" yaml:"snippet"`
	Elements        int                   `json:"elements" yaml:"elements"`
	Phrases         []entity.ReviewPhrase `json:"phrases" yaml:"phrases"`
	Grounding       entity.Grounding      `json:"grounding" yaml:"grounding"`
	Boxes           []Box                 `json:"boxes" yaml:"boxes"`
	Prompt          string                `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// Box is an annotation flattened for reports; image.Rectangle has no YAML form.
type Box struct {
	Index     int    `json:"index" yaml:"index"`
	ElementID string `json:"element_id" yaml:"element_id"`
	Label     string `json:"label" yaml:"label"`
	Phrase    string `json:"phrase" yaml:"phrase"`
	Bounds    string `json:"bounds" yaml:"bounds"`
}

func newReport(res *input.AnalysisResult, withPrompt bool) Report {
	r := Report{
		ID:        res.ID,
		Verdict:   res.Verdict,
		Snippet:   res.Snippet,
		Elements:  res.Elements,
		Phrases:   res.Phrases,
		Grounding: res.Grounding,
		Boxes:     []Box{},
	}
	if res.Grounded {
		r.TemplateVersion = prompts.TemplateVersion
	}
	if withPrompt {
		r.Prompt = res.Prompt
	}
	if r.Phrases == nil {
		r.Phrases = []entity.ReviewPhrase{}
	}
	if r.Verdict.Evidence == nil {
		r.Verdict.Evidence = []entity.GroundingLink{}
	}
	if r.Grounding.Links == nil {
		r.Grounding.Links = []entity.GroundingLink{}
	}
	if res.Annotated != nil {
		for _, a := range res.Annotated.Annotations {
			r.Boxes = append(r.Boxes, Box{
				Index:     a.Index,
				ElementID: a.ElementID,
				Label:     a.Label,
				Phrase:    a.Phrase,
				Bounds:    fmt.Sprintf("[%d,%d][%d,%d]", a.Box.Min.X, a.Box.Min.Y, a.Box.Max.X, a.Box.Max.Y),
			})
		}
	}
	return r
}

func encodeReport(r Report, format string) ([]byte, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		return append(data, '\n'), nil
	case formatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode report: %w", err)
		}
		return buf.Bytes(), nil
	case formatText, "":
		return []byte(textReport(r)), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want %s, %s or %s)", format, formatText, formatJSON, formatYAML)
	}
}

func textReport(r Report) string {
	var b strings.Builder
	v := r.Verdict
	fmt.Fprintf(&b, "Verdict:     %s (confidence %.2f)\n", v.Label, v.Confidence)
	if v.Degraded {
		b.WriteString("Notice:      the model answer was not in the expected format; confidence is lowered\n")
	}
	if v.MismatchType != "" && v.MismatchType != entity.MismatchNone {
		fmt.Fprintf(&b, "Type:        %s\n", v.MismatchType)
	}
	if v.Explanation != "" {
		fmt.Fprintf(&b, "Explanation: %s\n", strings.TrimSpace(v.Explanation))
	}
	if r.Snippet != "" {
		fmt.Fprintf(&b, "Key sentence: %q\n", r.Snippet)
	}
	if len(r.Boxes) > 0 {
		b.WriteString("Boxes:\n")
		for _, box := range r.Boxes {
			fmt.Fprintf(&b, "  %d  %-20s %s  %q\n", box.Index, box.ElementID, box.Bounds, box.Phrase)
		}
	}
	if len(v.Evidence) > 0 {
		b.WriteString("Evidence:\n")
		for _, l := range v.Evidence {
			fmt.Fprintf(&b, "  %q -> %s (%.2f, %s)\n", l.Phrase.Text, l.ElementID, l.Score, l.Reason)
		}
	}
	if len(r.Grounding.Unresolved) > 0 {
		texts := make([]string, 0, len(r.Grounding.Unresolved))
		for _, p := range r.Grounding.Unresolved {
			texts = append(texts, p.Text)
		}
		fmt.Fprintf(&b, "Unresolved:  %s\n", strings.Join(texts, ", "))
	}
	return b.String()
}

// groundingTable lists every link, best first per phrase.
func groundingTable(res *input.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Elements: %d  Phrases: %d  Links: %d\n", res.Elements, len(res.Phrases), len(res.Grounding.Links))
	for _, l := range res.Grounding.Links {
		el, _ := res.Tree.Get(l.ElementID)
		fmt.Fprintf(&b, "  %-24q #%d %-12s %.3f %-16s %s %q\n",
			l.Phrase.Text, l.Rank, l.ElementID, l.Score, l.Reason, el.ShortClass(), el.Text)
	}
	for _, p := range res.Grounding.Unresolved {
		fmt.Fprintf(&b, "  %-24q unresolved\n", p.Text)
	}
	return b.String()
}
