package entity

import "strings"

type VerdictLabel string

const (
	VerdictMismatch   VerdictLabel = "Mismatch"
	VerdictNoMismatch VerdictLabel = "NoMismatch"
	VerdictUncertain  VerdictLabel = "Uncertain"
)

// ParseVerdictLabel accepts the canonical labels plus the spellings models
// tend to produce ("no mismatch", "no_mismatch", "yes"/"no").
func ParseVerdictLabel(s string) (VerdictLabel, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("_", "", "-", "", " ", "").Replace(norm)
	switch norm {
	case "mismatch", "mismatched", "inconsistent", "yes", "true", "mismatchdetected":
		return VerdictMismatch, true
	case "nomismatch", "no", "false", "match", "consistent":
		return VerdictNoMismatch, true
	case "uncertain", "unknown", "unsure", "undetermined":
		return VerdictUncertain, true
	}
	return "", false
}

type MismatchType string

const (
	MismatchNonFunctional  MismatchType = "Non-Functional Element"
	MismatchMisrepresented MismatchType = "Feature Misrepresentation"
	MismatchVisualGlitch   MismatchType = "Visual Glitch"
	MismatchNone           MismatchType = "None"
)

type Verdict struct {
	Label        VerdictLabel    `json:"label" yaml:"label"`
	Explanation  string          `json:"explanation" yaml:"explanation"`
	Evidence     []GroundingLink `json:"evidence" yaml:"evidence"`
	Confidence   float64         `json:"confidence" yaml:"confidence"`
	MismatchType MismatchType    `json:"mismatch_type,omitempty" yaml:"mismatch_type,omitempty"`
	// Degraded is set when the verdict came from a fallback path and should be
	// shown with a lowered-confidence notice.
	Degraded bool   `json:"degraded" yaml:"degraded"`
	Raw      string `json:"raw,omitempty" yaml:"raw,omitempty"`
}
