package hierarchy

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"vipra/internal/application/port/output"
	"vipra/internal/domain/entity"
)

var _ output.HierarchyParser = (*Parser)(nil)

var boundsRe = regexp.MustCompile(`^\[\s*(-?\d+)\s*,\s*(-?\d+)\s*\]\s*\[\s*(-?\d+)\s*,\s*(-?\d+)\s*\]$`)

// Parser reads UIAutomator-style view hierarchy dumps. Any element name is
// accepted as a node; the document element becomes the root.
type Parser struct {
	logger output.LoggerPort
}

func NewParser(logger output.LoggerPort) *Parser {
	return &Parser{logger: logger}
}

func (p *Parser) Parse(ctx context.Context, r io.Reader) (*entity.Tree, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true

	var (
		nodes      []entity.UiElement
		open       []int
		rootClosed bool
		invalid    int
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", entity.ErrMalformedHierarchy, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(open) == 0 && rootClosed {
				line, _ := dec.InputPos()
				return nil, fmt.Errorf("%w: second top-level element <%s> at line %d",
					entity.ErrMalformedHierarchy, t.Name.Local, line)
			}

			var parent *entity.UiElement
			id := entity.ChildID("", 0)
			if len(open) > 0 {
				parent = &nodes[open[len(open)-1]]
				id = entity.ChildID(parent.ID, len(parent.Children))
				parent.Children = append(parent.Children, id)
			}

			el := p.element(t, id, parent, len(open))
			if !el.BoundsValid {
				invalid++
			}
			nodes = append(nodes, el)
			open = append(open, len(nodes)-1)

		case xml.EndElement:
			open = open[:len(open)-1]
			if len(open) == 0 {
				rootClosed = true
			}
		}
	}

	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no root element", entity.ErrMalformedHierarchy)
	}
	if len(open) > 0 {
		return nil, fmt.Errorf("%w: %d unterminated element(s)", entity.ErrMalformedHierarchy, len(open))
	}

	tree, err := entity.NewTree(nodes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrMalformedHierarchy, err)
	}

	if p.logger != nil {
		p.logger.Debug("Hierarchy parsed", "elements", tree.Len(), "invalidBounds", invalid)
	}
	return tree, nil
}

func (p *Parser) element(start xml.StartElement, id string, parent *entity.UiElement, depth int) entity.UiElement {
	attrs := make(map[string]string, len(start.Attr))
	for _, a := range start.Attr {
		attrs[a.Name.Local] = a.Value
	}

	el := entity.UiElement{
		ID:            id,
		Depth:         depth,
		Class:         firstNonEmpty(attrs["class"], start.Name.Local),
		Text:          strings.TrimSpace(attrs["text"]),
		ContentDesc:   strings.TrimSpace(attrs["content-desc"]),
		ResourceID:    strings.TrimSpace(attrs["resource-id"]),
		Package:       attrs["package"],
		Clickable:     parseBool(attrs["clickable"]),
		Enabled:       parseBool(attrs["enabled"]),
		Visible:       parseBool(firstNonEmpty(attrs["visible-to-user"], attrs["visible"])),
		Checkable:     parseBool(attrs["checkable"]),
		Checked:       parseBool(attrs["checked"]),
		Focusable:     parseBool(attrs["focusable"]),
		Scrollable:    parseBool(attrs["scrollable"]),
		LongClickable: parseBool(attrs["long-clickable"]),
		Selected:      parseBool(attrs["selected"]),
		Password:      parseBool(attrs["password"]),
	}
	if parent != nil {
		el.Parent = parent.ID
	}

	raw, ok := attrs["bounds"]
	b, valid := parseBounds(raw)
	if !valid {
		b = degenerateAt(parent)
		if p.logger != nil {
			p.logger.Warn("Invalid element bounds, using degenerate box",
				"element", id, "bounds", raw, "present", ok)
		}
	}
	el.Bounds = b
	el.BoundsValid = valid
	return el
}

// parseBounds reads "[x1,y1][x2,y2]". Inverted boxes are rejected.
func parseBounds(raw string) (entity.Bounds, bool) {
	m := boundsRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return entity.Bounds{}, false
	}

	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return entity.Bounds{}, false
		}
		v[i] = n
	}

	b := entity.NewBounds(v[0], v[1], v[2], v[3])
	if b.Right < b.Left || b.Bottom < b.Top {
		return entity.Bounds{}, false
	}
	return b, true
}

func degenerateAt(parent *entity.UiElement) entity.Bounds {
	if parent == nil {
		return entity.Bounds{}
	}
	return entity.NewBounds(parent.Bounds.Left, parent.Bounds.Top, parent.Bounds.Left, parent.Bounds.Top)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
