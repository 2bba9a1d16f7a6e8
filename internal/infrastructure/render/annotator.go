package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"vipra/internal/application/port/output"
	"vipra/internal/domain/entity"
)

var _ output.Annotator = (*Annotator)(nil)

// Palette is indexed by annotation rank; it is a slice so ordering never
// depends on map iteration.
var Palette = []color.NRGBA{
	{R: 230, G: 25, B: 75, A: 255},
	{R: 60, G: 180, B: 75, A: 255},
	{R: 0, G: 130, B: 200, A: 255},
	{R: 245, G: 130, B: 48, A: 255},
	{R: 145, G: 30, B: 180, A: 255},
	{R: 255, G: 225, B: 25, A: 255},
	{R: 70, G: 240, B: 240, A: 255},
	{R: 240, G: 50, B: 230, A: 255},
}

const labelPadding = 2

type Config struct {
	StrokeWidth   int `mapstructure:"stroke_width"`
	LabelMaxRunes int `mapstructure:"label_max_runes"`
}

func DefaultConfig() Config {
	return Config{
		StrokeWidth:   3,
		LabelMaxRunes: 18,
	}
}

type Annotator struct {
	cfg    Config
	face   font.Face
	logger output.LoggerPort
}

func NewAnnotator(cfg Config, logger output.LoggerPort) *Annotator {
	if cfg.StrokeWidth < 1 {
		cfg.StrokeWidth = 1
	}
	if cfg.LabelMaxRunes < 1 {
		cfg.LabelMaxRunes = DefaultConfig().LabelMaxRunes
	}
	return &Annotator{cfg: cfg, face: basicfont.Face7x13, logger: logger}
}

// Annotate draws one numbered box per distinct grounded element onto a copy
// of img. Boxes are drawn first and labels on top, both in rank order.
func (a *Annotator) Annotate(img image.Image, grounding entity.Grounding, tree *entity.Tree) (*entity.AnnotatedImage, error) {
	if img == nil {
		return nil, errors.New("annotate: nil screenshot")
	}

	dst := imaging.Clone(img)
	frame := dst.Bounds()
	if frame.Empty() {
		return nil, fmt.Errorf("annotate: empty screenshot %v", frame)
	}
	offset := img.Bounds().Min

	result := &entity.AnnotatedImage{Image: dst}
	for _, id := range grounding.DistinctElements() {
		el, ok := tree.Get(id)
		if !ok {
			if a.logger != nil {
				a.logger.Warn("Grounded element missing from tree", "element_id", id)
			}
			continue
		}

		idx := len(result.Annotations)
		var phrase string
		if links := grounding.LinksFor(id); len(links) > 0 {
			phrase = links[0].Phrase.Text
		}
		box := clipToFrame(el.Bounds.Rect().Sub(offset), frame)
		label := fmt.Sprintf("%d %s", idx, truncate(phrase, a.cfg.LabelMaxRunes))

		result.Annotations = append(result.Annotations, entity.Annotation{
			Index:      idx,
			ElementID:  id,
			Box:        box,
			LabelBox:   a.placeLabel(label, box, frame),
			Label:      label,
			ColorIndex: idx % len(Palette),
			Phrase:     phrase,
		})
	}

	for _, ann := range result.Annotations {
		strokeRect(dst, ann.Box, Palette[ann.ColorIndex], a.cfg.StrokeWidth)
	}
	for _, ann := range result.Annotations {
		a.drawLabel(dst, ann)
	}

	if a.logger != nil {
		a.logger.Debug("Screenshot annotated", "boxes", len(result.Annotations), "frame", frame.String())
	}
	return result, nil
}

// clipToFrame intersects r with frame. A rectangle with no overlap (or no
// area) is clamped onto the nearest edge as a box of at least 1x1.
func clipToFrame(r, frame image.Rectangle) image.Rectangle {
	if c := r.Intersect(frame); !c.Empty() {
		return c
	}
	x0 := clampInt(r.Min.X, frame.Min.X, frame.Max.X-1)
	y0 := clampInt(r.Min.Y, frame.Min.Y, frame.Max.Y-1)
	x1 := clampInt(r.Max.X, x0+1, frame.Max.X)
	y1 := clampInt(r.Max.Y, y0+1, frame.Max.Y)
	return image.Rect(x0, y0, x1, y1)
}

func (a *Annotator) labelSize(label string) image.Point {
	w := font.MeasureString(a.face, label).Ceil()
	h := a.face.Metrics().Height.Ceil()
	return image.Pt(w+2*labelPadding, h+2*labelPadding)
}

// placeLabel prefers the space above the box, then below, then the inside
// top-left corner.
func (a *Annotator) placeLabel(label string, box, frame image.Rectangle) image.Rectangle {
	size := a.labelSize(label)

	var y int
	switch {
	case box.Min.Y-size.Y >= frame.Min.Y:
		y = box.Min.Y - size.Y
	case box.Max.Y+size.Y <= frame.Max.Y:
		y = box.Max.Y
	default:
		y = box.Min.Y
	}

	x := box.Min.X
	if x+size.X > frame.Max.X {
		x = frame.Max.X - size.X
	}
	if x < frame.Min.X {
		x = frame.Min.X
	}
	return image.Rect(x, y, x+size.X, y+size.Y).Intersect(frame)
}

func (a *Annotator) drawLabel(dst *image.NRGBA, ann entity.Annotation) {
	bg := Palette[ann.ColorIndex]
	draw.Draw(dst, ann.LabelBox, image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor(bg)),
		Face: a.face,
		Dot: fixed.P(
			ann.LabelBox.Min.X+labelPadding,
			ann.LabelBox.Min.Y+labelPadding+a.face.Metrics().Ascent.Ceil(),
		),
	}
	d.DrawString(ann.Label)
}

func strokeRect(dst *image.NRGBA, r image.Rectangle, c color.NRGBA, width int) {
	src := image.NewUniform(c)
	if r.Dx() <= 2*width || r.Dy() <= 2*width {
		draw.Draw(dst, r, src, image.Point{}, draw.Src)
		return
	}
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, src, image.Point{}, draw.Src)
	}
}

func textColor(bg color.NRGBA) color.Color {
	lum := 299*int(bg.R) + 587*int(bg.G) + 114*int(bg.B)
	if lum > 150_000 {
		return color.Black
	}
	return color.White
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
