package port

import "context"

// ModelClient abstracts a text-completion language model.
// Failures talking to the provider are returned as *domain.TransportError
// (or *domain.AuthError for rejected credentials), never as a normal completion.
type ModelClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
