package generate

import (
	"context"
	"errors"
)

// Distinguishable generation failures. Anything else from a Generator is
// treated as a generic failure.
var (
	ErrRateLimited     = errors.New("generation rate limited")
	ErrPayloadTooLarge = errors.New("generation payload too large")
)

// Generator is the narrative generation collaborator: it maps a system
// framing plus a rendered message payload to generated text.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
