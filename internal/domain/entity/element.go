package entity

import (
	"fmt"
	"image"
	"strings"
)

type Bounds struct {
	Left   int `json:"left" yaml:"left"`
	Top    int `json:"top" yaml:"top"`
	Right  int `json:"right" yaml:"right"`
	Bottom int `json:"bottom" yaml:"bottom"`
}

func NewBounds(left, top, right, bottom int) Bounds {
	return Bounds{Left: left, Top: top, Right: right, Bottom: bottom}
}

func (b Bounds) Width() int  { return b.Right - b.Left }
func (b Bounds) Height() int { return b.Bottom - b.Top }

func (b Bounds) Area() int {
	return b.Width() * b.Height()
}

func (b Bounds) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

func (b Bounds) Center() image.Point {
	return image.Pt((b.Left+b.Right)/2, (b.Top+b.Bottom)/2)
}

func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%d,%d][%d,%d]", b.Left, b.Top, b.Right, b.Bottom)
}

// UiElement is one node of a view hierarchy. Parent and Children hold element
// IDs, never pointers; the owning Tree resolves them.
type UiElement struct {
	ID          string `json:"id"`
	Index       int    `json:"index"`
	Depth       int    `json:"depth"`
	Class       string `json:"class"`
	Text        string `json:"text,omitempty"`
	ContentDesc string `json:"content_desc,omitempty"`
	ResourceID  string `json:"resource_id,omitempty"`
	Package     string `json:"package,omitempty"`

	Bounds      Bounds `json:"bounds"`
	BoundsValid bool   `json:"bounds_valid"`

	Clickable     bool `json:"clickable"`
	Enabled       bool `json:"enabled"`
	Visible       bool `json:"visible"`
	Checkable     bool `json:"checkable"`
	Checked       bool `json:"checked"`
	Focusable     bool `json:"focusable"`
	Scrollable    bool `json:"scrollable"`
	LongClickable bool `json:"long_clickable"`
	Selected      bool `json:"selected"`
	Password      bool `json:"password"`

	Parent   string   `json:"parent,omitempty"`
	Children []string `json:"children,omitempty"`
}

func (e UiElement) IsRoot() bool {
	return e.Parent == ""
}

// ShortClass returns the class name without its package ("android.widget.Button" -> "Button").
func (e UiElement) ShortClass() string {
	if i := strings.LastIndex(e.Class, "."); i >= 0 {
		return e.Class[i+1:]
	}
	return e.Class
}

// Label is the most human readable description of the element.
func (e UiElement) Label() string {
	for _, v := range []string{e.Text, e.ContentDesc, e.ResourceID} {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return e.ShortClass()
}

// ChildID builds the path identifier of the n-th child of parentID.
func ChildID(parentID string, n int) string {
	if parentID == "" {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s/%d", parentID, n)
}

// Tree is an arena of elements stored in depth-first pre-order.
type Tree struct {
	nodes []UiElement
	byID  map[string]int
}

// NewTree validates the arena and indexes it. nodes must be in pre-order with
// the root first.
func NewTree(nodes []UiElement) (*Tree, error) {
	t := &Tree{
		nodes: nodes,
		byID:  make(map[string]int, len(nodes)),
	}
	for i := range nodes {
		n := &t.nodes[i]
		n.Index = i
		if _, dup := t.byID[n.ID]; dup {
			return nil, fmt.Errorf("duplicate element id %q", n.ID)
		}
		t.byID[n.ID] = i
	}

	roots := 0
	for i, n := range t.nodes {
		if n.IsRoot() {
			roots++
			if i != 0 {
				return nil, fmt.Errorf("root %q is not the first node", n.ID)
			}
			continue
		}
		p, ok := t.byID[n.Parent]
		if !ok {
			return nil, fmt.Errorf("element %q has unknown parent %q", n.ID, n.Parent)
		}
		if p >= i {
			return nil, fmt.Errorf("element %q precedes its parent %q", n.ID, n.Parent)
		}
		if !contains(t.nodes[p].Children, n.ID) {
			return nil, fmt.Errorf("parent %q does not list child %q", n.Parent, n.ID)
		}
	}
	if len(nodes) > 0 && roots != 1 {
		return nil, fmt.Errorf("expected exactly one root, found %d", roots)
	}
	return t, nil
}

func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.nodes)
}

func (t *Tree) Root() (UiElement, bool) {
	if t.Len() == 0 {
		return UiElement{}, false
	}
	return t.nodes[0], true
}

// IsEmpty reports whether the tree has no elements besides its root.
func (t *Tree) IsEmpty() bool {
	return t.Len() <= 1
}

func (t *Tree) Get(id string) (UiElement, bool) {
	if t == nil {
		return UiElement{}, false
	}
	i, ok := t.byID[id]
	if !ok {
		return UiElement{}, false
	}
	return t.nodes[i], true
}

// Elements returns the arena in pre-order. The slice must not be modified.
func (t *Tree) Elements() []UiElement {
	if t == nil {
		return nil
	}
	return t.nodes
}

// ParentChain returns the ids from id up to and including the root.
func (t *Tree) ParentChain(id string) ([]string, error) {
	var chain []string
	cur := id
	for steps := 0; steps <= t.Len(); steps++ {
		n, ok := t.Get(cur)
		if !ok {
			return nil, fmt.Errorf("element %q not found", cur)
		}
		chain = append(chain, n.ID)
		if n.IsRoot() {
			return chain, nil
		}
		cur = n.Parent
	}
	return nil, fmt.Errorf("cycle detected above %q", id)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
