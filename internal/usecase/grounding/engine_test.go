package grounding

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vipra/internal/domain/entity"
)

type node struct {
	id, parent, class, text, desc, res string
	bounds                             entity.Bounds
	clickable, enabled, visible        bool
	checkable, checked                 bool
}

func buildTree(t *testing.T, nodes ...node) *entity.Tree {
	t.Helper()
	children := make(map[string][]string)
	for _, n := range nodes {
		if n.parent != "" {
			children[n.parent] = append(children[n.parent], n.id)
		}
	}
	els := make([]entity.UiElement, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, entity.UiElement{
			ID:          n.id,
			Parent:      n.parent,
			Children:    children[n.id],
			Class:       n.class,
			Text:        n.text,
			ContentDesc: n.desc,
			ResourceID:  n.res,
			Bounds:      n.bounds,
			BoundsValid: true,
			Clickable:   n.clickable,
			Enabled:     n.enabled,
			Visible:     n.visible,
			Checkable:   n.checkable,
			Checked:     n.checked,
		})
	}
	tree, err := entity.NewTree(els)
	require.NoError(t, err)
	return tree
}

func root() node {
	return node{id: "0", class: "android.widget.FrameLayout", bounds: entity.NewBounds(0, 0, 1080, 1920), enabled: true, visible: true}
}

func phrase(text string, start int, cat entity.PhraseCategory) entity.ReviewPhrase {
	return entity.ReviewPhrase{Text: text, Start: start, End: start + len([]rune(text)), Category: cat}
}

func newEngine(t *testing.T, mutate ...func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := New(cfg, nil)
	require.NoError(t, err)
	return e
}

func TestGround_SubmitButton(t *testing.T) {
	tree := buildTree(t,
		root(),
		node{id: "0/0", parent: "0", class: "android.widget.Button", text: "Submit",
			bounds: entity.NewBounds(100, 1500, 980, 1650), enabled: true, visible: true},
	)
	phrases := []entity.ReviewPhrase{
		phrase("submit button", 4, entity.PhraseEntity),
		phrase("respond", 26, entity.PhraseAction),
		phrase("taps", 37, entity.PhraseAction),
	}

	g, err := newEngine(t).Ground(context.Background(), tree, phrases)
	require.NoError(t, err)

	require.Len(t, g.Links, 1)
	link := g.Links[0]
	assert.Equal(t, "0/0", link.ElementID)
	assert.Equal(t, "submit button", link.Phrase.Text)
	assert.Equal(t, 0, link.Rank)
	assert.Equal(t, entity.ReasonTextSimilarity, link.Reason)
	assert.InDelta(t, 0.68, link.Score, 1e-9, "not clickable, no action bonus")

	assert.Len(t, g.Unresolved, 2)
	assert.Equal(t, []string{"0/0"}, g.DistinctElements())
}

func TestGround_ActionBonusForClickable(t *testing.T) {
	tree := buildTree(t,
		root(),
		node{id: "0/0", parent: "0", class: "android.widget.Button", text: "Submit",
			bounds: entity.NewBounds(100, 1500, 980, 1650), clickable: true, enabled: true, visible: true},
	)
	phrases := []entity.ReviewPhrase{
		phrase("submit button", 4, entity.PhraseEntity),
		phrase("taps", 37, entity.PhraseAction),
	}

	g, err := newEngine(t).Ground(context.Background(), tree, phrases)
	require.NoError(t, err)
	require.Len(t, g.Links, 1)
	assert.InDelta(t, 0.83, g.Links[0].Score, 1e-9)
}

func TestGround_DisabledCueFromNeighbour(t *testing.T) {
	tree := buildTree(t,
		root(),
		node{id: "0/0", parent: "0", class: "android.widget.Button", text: "Save",
			bounds: entity.NewBounds(0, 100, 500, 200), enabled: true, visible: true},
		node{id: "0/1", parent: "0", class: "android.widget.Button", text: "Save",
			bounds: entity.NewBounds(0, 300, 500, 400), enabled: false, visible: true},
	)
	phrases := []entity.ReviewPhrase{
		phrase("save", 4, entity.PhraseEntity),
		phrase("greyed", 17, entity.PhraseState),
	}

	g, err := newEngine(t).Ground(context.Background(), tree, phrases)
	require.NoError(t, err)
	require.Len(t, g.Links, 2)
	assert.Equal(t, "0/1", g.Links[0].ElementID, "disabled element ranks first")
	assert.Equal(t, "0/0", g.Links[1].ElementID)
	assert.Greater(t, g.Links[0].Score, g.Links[1].Score)
}

func TestGround_PositionalHint(t *testing.T) {
	tree := buildTree(t,
		root(),
		node{id: "0/0", parent: "0", class: "android.widget.Button", text: "Menu",
			bounds: entity.NewBounds(0, 0, 200, 150), clickable: true, enabled: true, visible: true},
		node{id: "0/1", parent: "0", class: "android.widget.Button", text: "Menu",
			bounds: entity.NewBounds(0, 1700, 200, 1900), clickable: true, enabled: true, visible: true},
	)

	g, err := newEngine(t).Ground(context.Background(), tree, []entity.ReviewPhrase{
		phrase("bottom menu", 0, entity.PhraseEntity),
	})
	require.NoError(t, err)
	require.Len(t, g.Links, 2)
	assert.Equal(t, "0/1", g.Links[0].ElementID)
	assert.InDelta(t, 0.1, g.Links[0].Score-g.Links[1].Score, 1e-9)
}

func TestGround_TieBreakBySmallerAreaThenOrder(t *testing.T) {
	tree := buildTree(t,
		root(),
		node{id: "0/0", parent: "0", class: "android.widget.TextView", text: "Settings",
			bounds: entity.NewBounds(0, 0, 1000, 400), enabled: true, visible: true},
		node{id: "0/1", parent: "0", class: "android.widget.TextView", text: "Settings",
			bounds: entity.NewBounds(0, 500, 100, 600), enabled: true, visible: true},
		node{id: "0/2", parent: "0", class: "android.widget.TextView", text: "Settings",
			bounds: entity.NewBounds(0, 700, 100, 800), enabled: true, visible: true},
	)

	g, err := newEngine(t).Ground(context.Background(), tree, []entity.ReviewPhrase{
		phrase("settings", 0, entity.PhraseEntity),
	})
	require.NoError(t, err)

	var ids []string
	for _, l := range g.Links {
		ids = append(ids, l.ElementID)
	}
	assert.Equal(t, []string{"0/1", "0/2", "0/0"}, ids)
}

func TestGround_TopKAndThreshold(t *testing.T) {
	nodes := []node{root()}
	for i := 0; i < 6; i++ {
		nodes = append(nodes, node{
			id: entity.ChildID("0", i), parent: "0", class: "android.widget.Button", text: "Next",
			bounds: entity.NewBounds(0, i*100, 100, i*100+90), enabled: true, visible: true,
		})
	}
	tree := buildTree(t, nodes...)
	phrases := []entity.ReviewPhrase{
		phrase("next", 0, entity.PhraseEntity),
		phrase("volume", 10, entity.PhraseEntity),
	}

	for _, k := range []int{1, 2, 5} {
		e := newEngine(t, func(c *Config) { c.TopK = k })
		g, err := e.Ground(context.Background(), tree, phrases)
		require.NoError(t, err)

		assert.Len(t, g.Links, k)
		for i, l := range g.Links {
			assert.Equal(t, i, l.Rank)
			assert.GreaterOrEqual(t, l.Score, e.Config().Threshold)
			assert.LessOrEqual(t, l.Score, 1.0)
		}
		require.Len(t, g.Unresolved, 1)
		assert.Equal(t, "volume", g.Unresolved[0].Text)
	}
}

func TestGround_FuzzyMatch(t *testing.T) {
	tree := buildTree(t,
		root(),
		node{id: "0/0", parent: "0", class: "android.widget.TextView", text: "Notifications",
			bounds: entity.NewBounds(0, 0, 500, 100), enabled: true, visible: true},
	)

	g, err := newEngine(t).Ground(context.Background(), tree, []entity.ReviewPhrase{
		phrase("notifcations", 0, entity.PhraseEntity),
	})
	require.NoError(t, err)
	require.Len(t, g.Links, 1)
	assert.InDelta(t, 0.85*0.75, g.Links[0].Score, 1e-9)
}

func TestGround_ResourceIDMatch(t *testing.T) {
	tree := buildTree(t,
		root(),
		node{id: "0/0", parent: "0", class: "android.widget.ImageButton", res: "com.shop:id/cart_icon",
			bounds: entity.NewBounds(900, 0, 1080, 150), clickable: true, enabled: true, visible: true},
	)

	g, err := newEngine(t).Ground(context.Background(), tree, []entity.ReviewPhrase{
		phrase("cart", 0, entity.PhraseEntity),
	})
	require.NoError(t, err)
	require.Len(t, g.Links, 1)
	assert.InDelta(t, 0.85*0.8, g.Links[0].Score, 1e-9)
}

func TestGround_ChildOutsideParentStillMatches(t *testing.T) {
	tree := buildTree(t,
		node{id: "0", class: "android.widget.FrameLayout", bounds: entity.NewBounds(0, 0, 100, 100), enabled: true, visible: true},
		node{id: "0/0", parent: "0", class: "android.widget.Button", text: "Checkout",
			bounds: entity.NewBounds(500, 500, 700, 600), enabled: true, visible: true},
	)

	g, err := newEngine(t).Ground(context.Background(), tree, []entity.ReviewPhrase{
		phrase("checkout", 0, entity.PhraseEntity),
	})
	require.NoError(t, err)
	require.Len(t, g.Links, 1)
	assert.Equal(t, "0/0", g.Links[0].ElementID)
}

func TestGround_EmptyTrees(t *testing.T) {
	phrases := []entity.ReviewPhrase{phrase("login button", 0, entity.PhraseEntity)}
	e := newEngine(t)

	g, err := e.Ground(context.Background(), nil, phrases)
	require.NoError(t, err)
	assert.Empty(t, g.Links)
	assert.Equal(t, phrases, g.Unresolved)

	g, err = e.Ground(context.Background(), buildTree(t, root()), phrases)
	require.NoError(t, err)
	assert.Empty(t, g.Links)
	assert.Equal(t, phrases, g.Unresolved)
}

func TestGround_Deterministic(t *testing.T) {
	tree := buildTree(t,
		root(),
		node{id: "0/0", parent: "0", class: "android.widget.EditText", text: "Email", res: "app:id/email",
			bounds: entity.NewBounds(0, 100, 1080, 200), clickable: true, enabled: true, visible: true},
		node{id: "0/1", parent: "0", class: "android.widget.EditText", res: "app:id/password",
			bounds: entity.NewBounds(0, 250, 1080, 350), clickable: true, enabled: true, visible: true},
		node{id: "0/2", parent: "0", class: "android.widget.Button", text: "Login",
			bounds: entity.NewBounds(0, 400, 1080, 500), clickable: true, enabled: true, visible: true},
	)
	phrases := []entity.ReviewPhrase{
		phrase("password field", 4, entity.PhraseEntity),
		phrase("login button", 30, entity.PhraseEntity),
		phrase("tap", 50, entity.PhraseAction),
	}
	e := newEngine(t)

	first, err := e.Ground(context.Background(), tree, phrases)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Ground(context.Background(), tree, phrases)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("grounding changed between runs (-first +again):\n%s", diff)
		}
	}
}

func TestGround_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(t).Ground(ctx, buildTree(t, root(), node{id: "0/0", parent: "0", class: "android.widget.Button"}),
		[]entity.ReviewPhrase{phrase("button", 0, entity.PhraseEntity)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threshold", func(c *Config) { c.Threshold = 0 }},
		{"threshold above one", func(c *Config) { c.Threshold = 1.5 }},
		{"zero top k", func(c *Config) { c.TopK = 0 }},
		{"negative weight", func(c *Config) { c.TypeWeight = -0.1 }},
		{"bad fuzzy ratio", func(c *Config) { c.FuzzyMinRatio = 0 }},
		{"negative window", func(c *Config) { c.ContextWindow = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
			_, err := New(cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("login", "login"))
	assert.InDelta(t, 0.8, similarity("login", "logon"), 1e-9)
	assert.Equal(t, 0.0, similarity("abc", "xyz"))
}

func TestConfigValidate_ReportsFirstNegativeWeight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PositionBonus = -1
	cfg.TypeWeight = -0.5
	cfg.TextWeight = -0.1

	for range 20 {
		assert.EqualError(t, cfg.Validate(), "grounding text_weight must not be negative, got -0.1")
	}
}
