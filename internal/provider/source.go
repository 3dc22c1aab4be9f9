package provider

import "context"

// CallSource is the provider-agnostic boundary business logic depends on.
//
// Rules:
// - No provider HTTP calls outside this package.
// - Not-found is a valid outcome, never an error: single-record lookups
//   return (nil, nil) on 404.
type CallSource interface {
	// ListCalls fetches the bulk call list. A non-empty assistantID narrows
	// the request server-side; callers must still re-filter client-side
	// because the upstream filter has been unreliable across revisions.
	ListCalls(ctx context.Context, assistantID string) ([]RawCall, error)

	// GetCall fetches one call by id. Returns (nil, nil) when the provider
	// does not know the id.
	GetCall(ctx context.Context, id string) (*RawCall, error)
}

// AssistantSource resolves assistant metadata.
type AssistantSource interface {
	// GetAssistant fetches assistant metadata by id. Returns (nil, nil)
	// when the assistant does not exist.
	GetAssistant(ctx context.Context, id string) (*Assistant, error)
}

// Source is the full provider surface the service wires at startup.
type Source interface {
	CallSource
	AssistantSource
}
