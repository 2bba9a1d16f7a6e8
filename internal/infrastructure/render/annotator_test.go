package render

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vipra/internal/domain/entity"
)

func screenshot(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func testTree(t *testing.T, boxes map[string]entity.Bounds, order ...string) *entity.Tree {
	t.Helper()
	els := []entity.UiElement{{
		ID:       "0",
		Class:    "android.widget.FrameLayout",
		Bounds:   entity.NewBounds(0, 0, 200, 400),
		Children: order,
	}}
	for _, id := range order {
		els = append(els, entity.UiElement{
			ID:          id,
			Parent:      "0",
			Class:       "android.widget.Button",
			Bounds:      boxes[id],
			BoundsValid: true,
		})
	}
	tree, err := entity.NewTree(els)
	require.NoError(t, err)
	return tree
}

func link(id, text string, rank int) entity.GroundingLink {
	return entity.GroundingLink{
		Phrase:    entity.ReviewPhrase{Text: text, Category: entity.PhraseEntity},
		ElementID: id,
		Score:     0.8,
		Reason:    entity.ReasonTextSimilarity,
		Rank:      rank,
	}
}

func TestAnnotate_OneBoxPerDistinctElement(t *testing.T) {
	tree := testTree(t, map[string]entity.Bounds{
		"0/0": entity.NewBounds(10, 50, 110, 90),
		"0/1": entity.NewBounds(10, 150, 110, 190),
	}, "0/0", "0/1")
	g := entity.Grounding{Links: []entity.GroundingLink{
		link("0/1", "login button", 0),
		link("0/0", "login button", 1),
		link("0/1", "button", 0),
	}}

	src := screenshot(200, 400)
	out, err := NewAnnotator(DefaultConfig(), nil).Annotate(src, g, tree)
	require.NoError(t, err)

	require.Len(t, out.Annotations, 2)
	assert.Equal(t, "0/1", out.Annotations[0].ElementID)
	assert.Equal(t, 0, out.Annotations[0].Index)
	assert.Equal(t, 0, out.Annotations[0].ColorIndex)
	assert.Equal(t, "0 login button", out.Annotations[0].Label)
	assert.Equal(t, "0/0", out.Annotations[1].ElementID)
	assert.Equal(t, 1, out.Annotations[1].ColorIndex)

	for _, ann := range out.Annotations {
		assert.True(t, ann.Box.In(out.Image.Bounds()), "box %v outside frame", ann.Box)
		assert.True(t, ann.LabelBox.In(out.Image.Bounds()), "label %v outside frame", ann.LabelBox)
	}

	got := out.Image.NRGBAAt(out.Annotations[0].Box.Min.X+1, out.Annotations[0].Box.Max.Y-1)
	assert.Equal(t, Palette[0], got)
}

func TestAnnotate_DoesNotMutateSource(t *testing.T) {
	tree := testTree(t, map[string]entity.Bounds{"0/0": entity.NewBounds(10, 50, 110, 90)}, "0/0")
	src := screenshot(200, 400)
	before := append([]uint8(nil), src.Pix...)

	out, err := NewAnnotator(DefaultConfig(), nil).Annotate(src, entity.Grounding{Links: []entity.GroundingLink{link("0/0", "ok", 0)}}, tree)
	require.NoError(t, err)

	assert.Equal(t, before, src.Pix)
	assert.NotEqual(t, src.Pix, out.Image.Pix)
}

func TestAnnotate_ClipsOutOfFrameBoxes(t *testing.T) {
	tree := testTree(t, map[string]entity.Bounds{
		"0/0": entity.NewBounds(150, 350, 300, 500),
		"0/1": entity.NewBounds(500, 100, 600, 150),
		"0/2": entity.NewBounds(-80, -40, -10, -5),
		"0/3": entity.NewBounds(20, 20, 20, 20),
	}, "0/0", "0/1", "0/2", "0/3")
	g := entity.Grounding{Links: []entity.GroundingLink{
		link("0/0", "a", 0), link("0/1", "b", 0), link("0/2", "c", 0), link("0/3", "d", 0),
	}}

	out, err := NewAnnotator(DefaultConfig(), nil).Annotate(screenshot(200, 400), g, tree)
	require.NoError(t, err)
	require.Len(t, out.Annotations, 4)

	frame := out.Image.Bounds()
	for _, ann := range out.Annotations {
		assert.False(t, ann.Box.Empty(), "element %s lost its box", ann.ElementID)
		assert.True(t, ann.Box.In(frame), "box %v outside frame", ann.Box)
	}
	assert.Equal(t, image.Rect(150, 350, 200, 400), out.Annotations[0].Box)
	assert.Equal(t, image.Rect(199, 100, 200, 150), out.Annotations[1].Box)
	assert.Equal(t, image.Rect(0, 0, 1, 1), out.Annotations[2].Box)
	assert.Equal(t, image.Rect(20, 20, 21, 21), out.Annotations[3].Box)
}

func TestAnnotate_LabelPlacement(t *testing.T) {
	a := NewAnnotator(DefaultConfig(), nil)
	frame := image.Rect(0, 0, 200, 400)
	size := a.labelSize("0 x")

	above := a.placeLabel("0 x", image.Rect(10, 100, 60, 150), frame)
	assert.Equal(t, 100, above.Max.Y)

	below := a.placeLabel("0 x", image.Rect(10, 0, 60, 50), frame)
	assert.Equal(t, 50, below.Min.Y)

	inside := a.placeLabel("0 x", image.Rect(10, 0, 60, 400), frame)
	assert.Equal(t, 0, inside.Min.Y)
	assert.Equal(t, 10, inside.Min.X)

	clamped := a.placeLabel("0 x", image.Rect(195, 100, 200, 150), frame)
	assert.Equal(t, 200, clamped.Max.X)
	assert.Equal(t, size.X, clamped.Dx())
}

func TestAnnotate_PaletteCycles(t *testing.T) {
	boxes := make(map[string]entity.Bounds)
	var order []string
	var links []entity.GroundingLink
	for i := 0; i < len(Palette)+2; i++ {
		id := entity.ChildID("0", i)
		boxes[id] = entity.NewBounds(0, i*30, 50, i*30+20)
		order = append(order, id)
		links = append(links, link(id, "item", 0))
	}

	out, err := NewAnnotator(DefaultConfig(), nil).Annotate(screenshot(200, 400), entity.Grounding{Links: links}, testTree(t, boxes, order...))
	require.NoError(t, err)
	require.Len(t, out.Annotations, len(Palette)+2)
	assert.Equal(t, 0, out.Annotations[len(Palette)].ColorIndex)
	assert.Equal(t, 1, out.Annotations[len(Palette)+1].ColorIndex)
}

func TestAnnotate_NoLinks(t *testing.T) {
	out, err := NewAnnotator(DefaultConfig(), nil).Annotate(screenshot(10, 10), entity.Grounding{}, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Annotations)
	assert.Equal(t, image.Rect(0, 0, 10, 10), out.Image.Bounds())
}

func TestAnnotate_RejectsEmptyInput(t *testing.T) {
	a := NewAnnotator(DefaultConfig(), nil)
	_, err := a.Annotate(nil, entity.Grounding{}, nil)
	assert.Error(t, err)

	_, err = a.Annotate(image.NewNRGBA(image.Rect(0, 0, 0, 0)), entity.Grounding{}, nil)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 18))
	assert.Equal(t, "the submit butt...", truncate("the submit button is broken", 18))
	assert.Len(t, []rune(truncate("ünïcödé ünïcödé ünïcödé", 18)), 18)
}

func TestTextColor(t *testing.T) {
	assert.Equal(t, color.Black, textColor(Palette[5]))
	assert.Equal(t, color.White, textColor(Palette[2]))
}

func TestImageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	src := screenshot(32, 16)
	require.NoError(t, SaveImage(src, path))

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), img.Bounds())

	data, err := EncodePNG(img)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])

	_, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
