package prompts

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"vipra/internal/application/port/output"
	"vipra/internal/domain/entity"
)

var _ output.PromptComposer = (*Composer)(nil)

type BoxInfo struct {
	Index       int
	ElementID   string
	Class       string
	Text        string
	ContentDesc string
	ResourceID  string
	Clickable   bool
	Enabled     bool
	Visible     bool
	Checkable   bool
	Checked     bool
	Bounds      string
	Phrases     []string
}

type MismatchPromptData struct {
	Version    string
	Boxes      []BoxInfo
	Unresolved []string
	Snippet    string
	Review     string
}

var funcs = template.FuncMap{
	"quote": quote,
	"join": func(items []string) string {
		if len(items) == 0 {
			return "(none)"
		}
		quoted := make([]string, len(items))
		for i, s := range items {
			quoted[i] = quote(s)
		}
		return strings.Join(quoted, ", ")
	},
}

type Composer struct {
	tmpl *template.Template
}

func NewComposer() (*Composer, error) {
	return NewComposerFromTemplate(MismatchPrompt)
}

func NewComposerFromTemplate(text string) (*Composer, error) {
	tmpl, err := template.New("mismatch").Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return &Composer{tmpl: tmpl}, nil
}

// Compose renders the prompt for one analysis. Output depends only on the
// input, so equal inputs produce byte-identical prompts.
func (c *Composer) Compose(in output.PromptInput) (*output.ReasoningRequest, error) {
	if in.Annotated == nil || in.Annotated.Image == nil {
		return nil, errors.New("compose: annotated screenshot is required")
	}

	text, err := c.Render(BuildPromptData(in))
	if err != nil {
		return nil, err
	}

	return &output.ReasoningRequest{
		Image:           in.Annotated.Image,
		Prompt:          text,
		TemplateVersion: TemplateVersion,
	}, nil
}

func (c *Composer) Render(data MismatchPromptData) (string, error) {
	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

// BuildPromptData describes every drawn box in index order together with the
// review phrases linked to its element.
func BuildPromptData(in output.PromptInput) MismatchPromptData {
	data := MismatchPromptData{
		Version: TemplateVersion,
		Snippet: in.Snippet,
		Review:  in.Review,
	}
	if data.Snippet == "" {
		data.Snippet = in.Review
	}

	if in.Annotated != nil {
		for _, ann := range in.Annotated.Annotations {
			box := BoxInfo{
				Index:     ann.Index,
				ElementID: ann.ElementID,
				Bounds:    entity.NewBounds(ann.Box.Min.X, ann.Box.Min.Y, ann.Box.Max.X, ann.Box.Max.Y).String(),
				Phrases:   linkedPhrases(in.Grounding, ann.ElementID),
			}
			if el, ok := in.Tree.Get(ann.ElementID); ok {
				box.Class = el.ShortClass()
				box.Text = el.Text
				box.ContentDesc = el.ContentDesc
				box.ResourceID = el.ResourceID
				box.Clickable = el.Clickable
				box.Enabled = el.Enabled
				box.Visible = el.Visible
				box.Checkable = el.Checkable
				box.Checked = el.Checked
			}
			data.Boxes = append(data.Boxes, box)
		}
	}

	seen := make(map[string]bool)
	for _, p := range in.Grounding.Unresolved {
		if !seen[p.Text] {
			seen[p.Text] = true
			data.Unresolved = append(data.Unresolved, p.Text)
		}
	}
	return data
}

func linkedPhrases(g entity.Grounding, id string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range g.LinksFor(id) {
		if !seen[l.Phrase.Text] {
			seen[l.Phrase.Text] = true
			out = append(out, l.Phrase.Text)
		}
	}
	return out
}

func quote(s string) string {
	return strconv.Quote(strings.Join(strings.Fields(s), " "))
}
