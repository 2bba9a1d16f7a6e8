package entity

import "errors"

var (
	// ErrMalformedHierarchy means the hierarchy document is not a well-formed tree.
	ErrMalformedHierarchy = errors.New("malformed hierarchy")
	// ErrReasoningUnavailable means the reasoning model failed or timed out.
	ErrReasoningUnavailable = errors.New("reasoning unavailable")
	// ErrMalformedModelResponse is recovered inside the verdict interpreter and
	// only surfaces in logs.
	ErrMalformedModelResponse = errors.New("malformed model response")
)
