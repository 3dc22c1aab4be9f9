package mappings

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository for tests and early
// development.
type MemoryRepo struct {
	mu   sync.Mutex
	rows []Mapping
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListAll(ctx context.Context) ([]Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Mapping, len(r.rows))
	copy(out, r.rows)
	return out, nil
}

func (r *MemoryRepo) ListByEmail(ctx context.Context, email string) ([]Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Mapping
	for _, m := range r.rows {
		if m.UserEmail == email {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, m Mapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.UserEmail == m.UserEmail && existing.AssistantID == m.AssistantID {
			return nil
		}
	}
	r.rows = append(r.rows, m)
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, email, assistantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	for _, m := range r.rows {
		if m.UserEmail == email && m.AssistantID == assistantID {
			continue
		}
		kept = append(kept, m)
	}
	r.rows = kept
	return nil
}
