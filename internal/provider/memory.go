package provider

import (
	"context"
	"sync"
)

// MemorySource is an in-memory Source for tests and early development.
// It records request counts so tests can assert fetch strategies.
type MemorySource struct {
	mu sync.Mutex

	Calls      []RawCall
	Assistants map[string]Assistant

	// FailList, when set, makes ListCalls fail; FailFiltered makes only
	// assistant-filtered list requests fail (to exercise the per-id
	// fallback path).
	FailList     error
	FailFiltered error

	ListRequests      int
	FilteredRequests  []string
	AssistantRequests []string
}

func NewMemorySource() *MemorySource {
	return &MemorySource{Assistants: map[string]Assistant{}}
}

func (m *MemorySource) ListCalls(ctx context.Context, assistantID string) ([]RawCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if assistantID == "" {
		m.ListRequests++
		if m.FailList != nil {
			return nil, m.FailList
		}
		out := make([]RawCall, len(m.Calls))
		copy(out, m.Calls)
		return out, nil
	}

	m.FilteredRequests = append(m.FilteredRequests, assistantID)
	if m.FailFiltered != nil {
		return nil, m.FailFiltered
	}
	var out []RawCall
	for _, c := range m.Calls {
		if c.AssistantID == assistantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemorySource) GetCall(ctx context.Context, id string) (*RawCall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Calls {
		if m.Calls[i].ID == id {
			c := m.Calls[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (m *MemorySource) GetAssistant(ctx context.Context, id string) (*Assistant, error) {
	m.mu.Lock()
	m.AssistantRequests = append(m.AssistantRequests, id)
	a, ok := m.Assistants[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return &a, nil
}
