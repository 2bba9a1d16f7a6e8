package output

import (
	"context"
	"image"
)

// ReasonerPort is the multimodal model boundary: one image plus one prompt in,
// one text completion out. Implementations must honour ctx cancellation.
type ReasonerPort interface {
	Reason(ctx context.Context, req ReasoningRequest) (string, error)
}

type ReasoningRequest struct {
	Image           image.Image
	Prompt          string
	TemplateVersion string
}
