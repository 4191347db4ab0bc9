package chat

import "context"

// VisionAdapter abstracts multimodal completion providers.
type VisionAdapter interface {
	// Complete returns the model's text for req unchanged.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
