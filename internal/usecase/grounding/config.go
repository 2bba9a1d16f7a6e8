package grounding

import "fmt"

// Config holds the tunable scoring parameters. Scores are clamped to [0,1].
type Config struct {
	Threshold        float64 `mapstructure:"threshold"`
	TopK             int     `mapstructure:"top_k"`
	TextWeight       float64 `mapstructure:"text_weight"`
	ResourceIDWeight float64 `mapstructure:"resource_id_weight"`
	TypeWeight       float64 `mapstructure:"type_weight"`
	FuzzyWeight      float64 `mapstructure:"fuzzy_weight"`
	FuzzyMinRatio    float64 `mapstructure:"fuzzy_min_ratio"`
	ActionBonus      float64 `mapstructure:"action_bonus"`
	StateBonus       float64 `mapstructure:"state_bonus"`
	PositionBonus    float64 `mapstructure:"position_bonus"`
	// ContextWindow is the rune distance within which neighbouring action and
	// state phrases lend their cues to a phrase.
	ContextWindow int `mapstructure:"context_window"`
}

func DefaultConfig() Config {
	return Config{
		Threshold:        0.35,
		TopK:             3,
		TextWeight:       0.85,
		ResourceIDWeight: 0.8,
		TypeWeight:       0.6,
		FuzzyWeight:      0.75,
		FuzzyMinRatio:    0.8,
		ActionBonus:      0.15,
		StateBonus:       0.15,
		PositionBonus:    0.1,
		ContextWindow:    48,
	}
}

func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("grounding threshold must be in (0,1], got %v", c.Threshold)
	}
	if c.TopK < 1 {
		return fmt.Errorf("grounding top_k must be at least 1, got %d", c.TopK)
	}
	if c.FuzzyMinRatio <= 0 || c.FuzzyMinRatio > 1 {
		return fmt.Errorf("grounding fuzzy_min_ratio must be in (0,1], got %v", c.FuzzyMinRatio)
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"text_weight", c.TextWeight},
		{"resource_id_weight", c.ResourceIDWeight},
		{"type_weight", c.TypeWeight},
		{"fuzzy_weight", c.FuzzyWeight},
		{"action_bonus", c.ActionBonus},
		{"state_bonus", c.StateBonus},
		{"position_bonus", c.PositionBonus},
	} {
		if w.value < 0 {
			return fmt.Errorf("grounding %s must not be negative, got %v", w.name, w.value)
		}
	}
	if c.ContextWindow < 0 {
		return fmt.Errorf("grounding context_window must not be negative, got %d", c.ContextWindow)
	}
	return nil
}
