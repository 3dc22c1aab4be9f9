package calls

import (
	"context"
	"errors"
	"testing"

	"voicedash/internal/assistants"
	"voicedash/internal/provider"
)

func newTestService(t *testing.T, src *provider.MemorySource) (*Service, *assistants.Cache) {
	t.Helper()
	cache := assistants.NewCache(src)
	svc, err := NewService(src, cache, NewNormalizer(cache, fixedParser()))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc, cache
}

func TestFetchCalls_EmptyRestrictionSkipsNetwork(t *testing.T) {
	src := provider.NewMemorySource()
	src.Calls = []provider.RawCall{{ID: "c1", AssistantID: "a1"}}
	svc, _ := newTestService(t, src)

	out, err := svc.FetchCalls(context.Background(), &Restriction{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no calls, got %d", len(out))
	}
	if src.ListRequests != 0 || len(src.FilteredRequests) != 0 {
		t.Fatalf("expected zero provider requests")
	}
}

func TestFetchCalls_UnrestrictedUsesOneBulkRequest(t *testing.T) {
	src := provider.NewMemorySource()
	src.Calls = []provider.RawCall{
		{ID: "c1", AssistantID: "a1", StartedAt: "2025-01-01T10:00:00Z"},
		{ID: "c2", AssistantID: "a2", StartedAt: "2025-01-02T10:00:00Z"},
	}
	svc, _ := newTestService(t, src)

	out, err := svc.FetchCalls(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(out))
	}
	if src.ListRequests != 1 {
		t.Fatalf("expected 1 bulk request, got %d", src.ListRequests)
	}
}

func TestFetchCalls_SingleAssistantUsesServerFilter(t *testing.T) {
	src := provider.NewMemorySource()
	src.Calls = []provider.RawCall{
		{ID: "c1", AssistantID: "a1"},
		{ID: "c2", AssistantID: "a2"},
	}
	svc, _ := newTestService(t, src)

	out, err := svc.FetchCalls(context.Background(), &Restriction{AssistantIDs: []string{"a1"}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != 1 || out[0].ID != "c1" {
		t.Fatalf("unexpected calls: %+v", out)
	}
	if len(src.FilteredRequests) != 1 || src.FilteredRequests[0] != "a1" {
		t.Fatalf("expected one filtered request, got %v", src.FilteredRequests)
	}
}

func TestFetchCalls_RestrictionRefiltersClientSide(t *testing.T) {
	src := provider.NewMemorySource()
	src.Calls = []provider.RawCall{
		{ID: "c1", AssistantID: "a1"},
		{ID: "c2", AssistantID: "a2"},
		{ID: "c3", AssistantID: "a3"},
	}
	svc, _ := newTestService(t, src)

	out, err := svc.FetchCalls(context.Background(), &Restriction{AssistantIDs: []string{"a1", "a3"}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 permitted calls, got %d", len(out))
	}
	for _, rec := range out {
		if rec.AssistantID == "a2" {
			t.Fatalf("a2 must be filtered out")
		}
	}
	if src.ListRequests != 1 {
		t.Fatalf("expected one bulk request for a multi-id restriction, got %d", src.ListRequests)
	}
}

func TestFetchCalls_FallsBackToPerAssistantRequests(t *testing.T) {
	src := provider.NewMemorySource()
	src.Calls = []provider.RawCall{
		{ID: "c1", AssistantID: "a1"},
		{ID: "c2", AssistantID: "a2"},
		{ID: "c3", AssistantID: "a3"},
	}
	src.FailList = errors.New("bulk endpoint down")
	svc, _ := newTestService(t, src)

	out, err := svc.FetchCalls(context.Background(), &Restriction{AssistantIDs: []string{"a1", "a2"}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 calls from fallback, got %d", len(out))
	}
	if len(src.FilteredRequests) != 2 {
		t.Fatalf("expected per-assistant requests, got %v", src.FilteredRequests)
	}
}

func TestFetchCalls_TransportFailureSurfacesError(t *testing.T) {
	src := provider.NewMemorySource()
	src.FailList = errors.New("provider down")
	svc, _ := newTestService(t, src)

	if _, err := svc.FetchCalls(context.Background(), nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFetchCalls_DropsRecordsWithoutID(t *testing.T) {
	src := provider.NewMemorySource()
	src.Calls = []provider.RawCall{
		{ID: "c1", AssistantID: "a1", StartedAt: "2025-01-01T10:00:00Z"},
		{AssistantID: "a1", StartedAt: "2025-01-01T11:00:00Z"}, // malformed: no id
		{ID: "c3", AssistantID: "a1", StartedAt: "2025-01-01T12:00:00Z"},
	}
	svc, _ := newTestService(t, src)

	out, err := svc.FetchCalls(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 valid calls, got %d", len(out))
	}
	if out[0].ID != "c3" || out[1].ID != "c1" {
		t.Fatalf("unexpected ids: %s, %s", out[0].ID, out[1].ID)
	}
}

func TestFetchCalls_SortsNewestFirst(t *testing.T) {
	src := provider.NewMemorySource()
	// Input deliberately out of order: T2, T1, T3.
	src.Calls = []provider.RawCall{
		{ID: "c2", AssistantID: "a1", StartedAt: "2025-01-02T10:00:00Z"},
		{ID: "c1", AssistantID: "a1", StartedAt: "2025-01-01T10:00:00Z"},
		{ID: "c3", AssistantID: "a1", StartedAt: "2025-01-03T10:00:00Z"},
	}
	svc, _ := newTestService(t, src)

	out, err := svc.FetchCalls(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := []string{"c3", "c2", "c1"}
	for i, id := range want {
		if out[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, out[i].ID)
		}
	}
}

func TestFetchCalls_UnparsableStartSortsLast(t *testing.T) {
	src := provider.NewMemorySource()
	src.Calls = []provider.RawCall{
		{ID: "bad", AssistantID: "a1", StartedAt: "garbage"},
		{ID: "good", AssistantID: "a1", StartedAt: "2025-01-01T10:00:00Z"},
	}
	svc, _ := newTestService(t, src)

	out, err := svc.FetchCalls(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out[0].ID != "good" || out[1].ID != "bad" {
		t.Fatalf("unexpected order: %s, %s", out[0].ID, out[1].ID)
	}
}

func TestFetchCalls_PrewarmsCacheBeforeNormalizing(t *testing.T) {
	src := provider.NewMemorySource()
	src.Assistants["a1"] = provider.Assistant{ID: "a1", Name: "Jessica"}
	src.Calls = []provider.RawCall{
		{ID: "c1", AssistantID: "a1", StartedAt: "2025-01-01T10:00:00Z"},
		{ID: "c2", AssistantID: "a1", StartedAt: "2025-01-01T11:00:00Z"},
	}
	svc, _ := newTestService(t, src)

	out, err := svc.FetchCalls(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for _, rec := range out {
		if rec.AssistantName != "Jessica" {
			t.Fatalf("expected prewarmed name, got %q", rec.AssistantName)
		}
	}
	if len(src.AssistantRequests) != 1 {
		t.Fatalf("expected a single metadata fetch for both records, got %d", len(src.AssistantRequests))
	}
}

func TestFetchCallByID(t *testing.T) {
	src := provider.NewMemorySource()
	src.Assistants["a1"] = provider.Assistant{ID: "a1", Name: "Jessica"}
	src.Calls = []provider.RawCall{{ID: "c1", AssistantID: "a1", StartedAt: "2025-01-01T10:00:00Z"}}
	svc, _ := newTestService(t, src)

	rec, err := svc.FetchCallByID(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rec == nil || rec.ID != "c1" || rec.AssistantName != "Jessica" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	missing, err := svc.FetchCallByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("404 must not be an error, got %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil record for unknown id")
	}
}

func TestSummarize(t *testing.T) {
	records := []CallRecord{
		{CallType: CallTypeInbound, EndReason: EndReasonCompleted, DurationSeconds: 330, RecordingURL: "https://cdn/r1.mp3"},
		{CallType: CallTypeOutbound, EndReason: EndReasonMissed, DurationSeconds: 0},
		{CallType: CallTypeOutbound, EndReason: EndReasonCompleted, DurationSeconds: 90},
	}
	s := Summarize(records)
	if s.TotalCalls != 3 || s.InboundCalls != 1 || s.OutboundCalls != 2 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.CompletedCalls != 2 || s.MissedCalls != 1 {
		t.Fatalf("unexpected reasons: %+v", s)
	}
	if s.RecordedCalls != 1 {
		t.Fatalf("unexpected recorded count: %+v", s)
	}
	if s.TotalDurationSeconds != 420 || s.AverageDurationSeconds != 140 {
		t.Fatalf("unexpected durations: %+v", s)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalCalls != 0 || s.AverageDurationSeconds != 0 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}
