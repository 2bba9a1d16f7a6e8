package prompts

import (
	"encoding/json"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vipra/internal/application/port/output"
	"vipra/internal/domain/entity"
)

func promptInput(t *testing.T) output.PromptInput {
	t.Helper()
	tree, err := entity.NewTree([]entity.UiElement{
		{ID: "0", Class: "android.widget.FrameLayout", Bounds: entity.NewBounds(0, 0, 1080, 1920), Children: []string{"0/0"}},
		{ID: "0/0", Parent: "0", Class: "android.widget.Button", Text: "Submit", ResourceID: "app:id/submit",
			Bounds: entity.NewBounds(100, 1500, 980, 1650), BoundsValid: true, Enabled: true, Visible: true},
	})
	require.NoError(t, err)

	phrase := entity.ReviewPhrase{Text: "submit button", Start: 4, End: 17, Category: entity.PhraseEntity}
	return output.PromptInput{
		Review:  "The submit button doesn't respond to taps",
		Snippet: "the submit button doesn't respond to taps",
		Tree:    tree,
		Grounding: entity.Grounding{
			Links: []entity.GroundingLink{{Phrase: phrase, ElementID: "0/0", Score: 0.68, Reason: entity.ReasonTextSimilarity}},
			Unresolved: []entity.ReviewPhrase{
				{Text: "taps", Start: 37, End: 41, Category: entity.PhraseAction},
			},
		},
		Annotated: &entity.AnnotatedImage{
			Image: image.NewNRGBA(image.Rect(0, 0, 1080, 1920)),
			Annotations: []entity.Annotation{
				{Index: 0, ElementID: "0/0", Box: image.Rect(100, 1500, 980, 1650), Label: "0 submit button", Phrase: "submit button"},
			},
		},
	}
}

func TestCompose(t *testing.T) {
	c, err := NewComposer()
	require.NoError(t, err)

	in := promptInput(t)
	req, err := c.Compose(in)
	require.NoError(t, err)

	assert.Equal(t, TemplateVersion, req.TemplateVersion)
	assert.Same(t, in.Annotated.Image, req.Image)

	p := req.Prompt
	assert.True(t, strings.HasPrefix(p, "[template mismatch-v1]"))
	assert.Contains(t, p, "Box 0: Button (id 0/0)")
	assert.Contains(t, p, `text: "Submit"`)
	assert.Contains(t, p, "clickable=false enabled=true visible=true")
	assert.NotContains(t, p, "checked=")
	assert.Contains(t, p, `matched phrases: "submit button"`)
	assert.Contains(t, p, `Review phrases that matched no element: "taps"`)
	assert.Contains(t, p, `"The submit button doesn't respond to taps"`)
	assert.Contains(t, p, `"cited_boxes"`)
	assert.Contains(t, p, `Refer to boxes as "Box N"`)
}

func TestCompose_BoxBoundsAreTheDrawnBox(t *testing.T) {
	c, err := NewComposer()
	require.NoError(t, err)

	in := promptInput(t)
	el, ok := in.Tree.Get("0/0")
	require.True(t, ok)
	require.Equal(t, "[100,1500][980,1650]", el.Bounds.String())
	in.Annotated.Annotations[0].Box = image.Rect(100, 1500, 980, 1600)

	req, err := c.Compose(in)
	require.NoError(t, err)
	assert.Contains(t, req.Prompt, "bounds: [100,1500][980,1600]")
	assert.NotContains(t, req.Prompt, "[100,1500][980,1650]")
}

func TestCompose_Deterministic(t *testing.T) {
	c, err := NewComposer()
	require.NoError(t, err)
	in := promptInput(t)

	first, err := c.Compose(in)
	require.NoError(t, err)
	second, err := c.Compose(in)
	require.NoError(t, err)
	assert.Equal(t, first.Prompt, second.Prompt)
}

func TestCompose_NoBoxes(t *testing.T) {
	c, err := NewComposer()
	require.NoError(t, err)

	req, err := c.Compose(output.PromptInput{
		Review:    "Great app",
		Annotated: &entity.AnnotatedImage{Image: image.NewNRGBA(image.Rect(0, 0, 4, 4))},
	})
	require.NoError(t, err)
	assert.Contains(t, req.Prompt, "(no boxes)")
	assert.NotContains(t, req.Prompt, "matched no element")
	assert.Contains(t, req.Prompt, "Key sentence from the review:\n\"Great app\"")
}

func TestCompose_RequiresImage(t *testing.T) {
	c, err := NewComposer()
	require.NoError(t, err)

	_, err = c.Compose(output.PromptInput{Review: "x"})
	assert.Error(t, err)
}

func TestNewComposerFromTemplate_BadTemplate(t *testing.T) {
	_, err := NewComposerFromTemplate("{{.Boxes")
	assert.Error(t, err)
}

func TestBuildPromptData_MissingElement(t *testing.T) {
	in := promptInput(t)
	in.Tree = nil

	data := BuildPromptData(in)
	require.Len(t, data.Boxes, 1)
	assert.Equal(t, "0/0", data.Boxes[0].ElementID)
	assert.Empty(t, data.Boxes[0].Class)
	assert.Equal(t, []string{"submit button"}, data.Boxes[0].Phrases)
}

func TestSchemasAreValidJSON(t *testing.T) {
	for name, s := range map[string]string{"response": ResponseSchema, "legacy": LegacyResponseSchema} {
		var v map[string]any
		assert.NoError(t, json.Unmarshal([]byte(s), &v), name)
	}
}
