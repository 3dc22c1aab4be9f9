package calls

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"voicedash/internal/assistants"
	"voicedash/internal/provider"
)

// Restriction narrows a fetch to a permitted assistant-id set. A nil
// *Restriction means unrestricted (administrator); a non-nil Restriction
// with no ids means the caller may see nothing at all.
type Restriction struct {
	AssistantIDs []string
}

// Allows reports whether the restriction permits an assistant id. A nil
// receiver permits everything.
func (r *Restriction) Allows(assistantID string) bool {
	if r == nil {
		return true
	}
	for _, id := range r.AssistantIDs {
		if id == assistantID {
			return true
		}
	}
	return false
}

// Service is the batch-fetch orchestrator: it pulls raw call payloads from
// the provider, pre-warms the assistant cache, normalizes every record and
// returns them newest first.
type Service struct {
	source provider.CallSource
	cache  *assistants.Cache
	norm   *Normalizer
}

func NewService(source provider.CallSource, cache *assistants.Cache, norm *Normalizer) (*Service, error) {
	if source == nil {
		return nil, errors.New("calls: call source is required")
	}
	if norm == nil {
		return nil, errors.New("calls: normalizer is required")
	}
	return &Service{source: source, cache: cache, norm: norm}, nil
}

// FetchCalls returns the normalized, newest-first call list visible under
// the given restriction.
//
// A restricted caller with an empty permitted set sees zero calls and
// costs zero provider requests. Transport failures surface as an error;
// data-quality problems inside individual payloads never do.
func (s *Service) FetchCalls(ctx context.Context, restriction *Restriction) ([]CallRecord, error) {
	if restriction != nil && len(restriction.AssistantIDs) == 0 {
		return []CallRecord{}, nil
	}

	raws, err := s.fetchRaw(ctx, restriction)
	if err != nil {
		slog.Error("call list fetch failed", "err", err)
		return nil, err
	}

	// Client-side re-filter: the provider's server-side assistant filter
	// has been unreliable across API revisions.
	filtered := raws[:0]
	for _, raw := range raws {
		if raw.ID == "" {
			slog.Debug("dropping call payload without id")
			continue
		}
		if !restriction.Allows(rawAssistantID(raw)) {
			continue
		}
		filtered = append(filtered, raw)
	}

	if s.cache != nil {
		s.cache.Prewarm(ctx, assistantIDs(filtered))
	}

	out := make([]CallRecord, 0, len(filtered))
	for _, raw := range filtered {
		out = append(out, s.norm.Normalize(raw))
	}

	// Newest first. Records with an unparsable start timestamp carry a zero
	// time and sort last; ties break on id so output order is deterministic.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// fetchRaw picks the cheapest fetch strategy for the restriction:
// unrestricted and multi-assistant fetches use one bulk request (the
// provider cannot filter by more than one id); single-assistant fetches
// use the server-side filter. If a bulk request fails for a restricted
// caller, fall back to one request per permitted assistant, sequential to
// stay inside provider rate limits.
func (s *Service) fetchRaw(ctx context.Context, restriction *Restriction) ([]provider.RawCall, error) {
	if restriction == nil {
		return s.source.ListCalls(ctx, "")
	}
	if len(restriction.AssistantIDs) == 1 {
		return s.source.ListCalls(ctx, restriction.AssistantIDs[0])
	}

	raws, err := s.source.ListCalls(ctx, "")
	if err == nil {
		return raws, nil
	}
	slog.Warn("bulk call fetch failed, falling back to per-assistant requests", "err", err)

	var out []provider.RawCall
	for _, id := range restriction.AssistantIDs {
		batch, perErr := s.source.ListCalls(ctx, id)
		if perErr != nil {
			return nil, perErr
		}
		out = append(out, batch...)
	}
	return out, nil
}

// FetchCallByID returns one normalized call, or (nil, nil) when the
// provider does not know the id.
func (s *Service) FetchCallByID(ctx context.Context, id string) (*CallRecord, error) {
	if id == "" {
		return nil, errors.New("calls: call id is required")
	}
	raw, err := s.source.GetCall(ctx, id)
	if err != nil {
		slog.Error("call fetch failed", "call_id", id, "err", err)
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	if s.cache != nil {
		if id := rawAssistantID(*raw); id != "" {
			s.cache.Lookup(ctx, id)
		}
	}
	rec := s.norm.Normalize(*raw)
	return &rec, nil
}

func assistantIDs(raws []provider.RawCall) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, raw := range raws {
		id := rawAssistantID(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// rawAssistantID resolves the assistant id across payload revisions: the
// top-level field first, then the id nested under the assistant object.
func rawAssistantID(raw provider.RawCall) string {
	if raw.AssistantID != "" {
		return raw.AssistantID
	}
	if raw.Assistant != nil {
		return raw.Assistant.ID
	}
	return ""
}
