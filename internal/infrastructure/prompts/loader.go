package prompts

import (
	_ "embed"
)

// TemplateVersion identifies mismatch.txt. Bump it whenever the template or
// the response schema changes.
const TemplateVersion = "mismatch-v1"

//go:embed mismatch.txt
var MismatchPrompt string

// ResponseSchema is the JSON schema the mismatch prompt asks the model for.
//
//go:embed response_schema.json
var ResponseSchema string

// LegacyResponseSchema is the older Yes/No answer shape
// (mismatch_detected, confidence_score, rationale, relevant_widget_id).
//
//go:embed legacy_schema.json
var LegacyResponseSchema string
