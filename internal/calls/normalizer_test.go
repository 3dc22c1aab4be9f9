package calls

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"voicedash/internal/assistants"
	"voicedash/internal/provider"
	"voicedash/internal/transcript"
)

func fixedParser() *transcript.Parser {
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return transcript.NewParserAt(func() time.Time { return at })
}

func seededDirectory(t *testing.T, id, name string) *assistants.Cache {
	t.Helper()
	c := assistants.NewCache(nil)
	c.Put(id, provider.Assistant{ID: id, Name: name})
	return c
}

func TestNormalize_EndToEnd(t *testing.T) {
	dir := seededDirectory(t, "a1", "Jessica")
	n := NewNormalizer(dir, fixedParser())

	raw := provider.RawCall{
		ID:          "c1",
		AssistantID: "a1",
		Type:        "inboundPhoneCall",
		StartedAt:   "2025-01-01T10:00:00Z",
		EndedAt:     "2025-01-01T10:05:30Z",
		Status:      "completed",
		Customer:    &provider.RawCustomer{Number: "+15551234567"},
	}
	rec := n.Normalize(raw)

	if rec.CallType != CallTypeInbound {
		t.Fatalf("expected inbound, got %q", rec.CallType)
	}
	if rec.Duration != "5:30" {
		t.Fatalf("expected duration 5:30, got %q", rec.Duration)
	}
	if rec.EndReason != EndReasonCompleted {
		t.Fatalf("expected completed, got %q", rec.EndReason)
	}
	if rec.AgentName != "Jessica" || rec.AssistantName != "Jessica" {
		t.Fatalf("expected cache-resolved name, got %q/%q", rec.AgentName, rec.AssistantName)
	}
	if rec.CustomerPhone != "+15551234567" {
		t.Fatalf("unexpected customer phone %q", rec.CustomerPhone)
	}
	if rec.Date != "1/1/2025" || rec.Time != "10:00 AM" {
		t.Fatalf("unexpected date/time %q %q", rec.Date, rec.Time)
	}
}

func TestNormalize_IsDeterministic(t *testing.T) {
	dir := seededDirectory(t, "a1", "Jessica")
	n := NewNormalizer(dir, fixedParser())

	raw := provider.RawCall{
		ID:          "c1",
		AssistantID: "a1",
		StartedAt:   "2025-01-01T10:00:00Z",
		EndedAt:     "2025-01-01T10:00:10Z",
		Transcript:  json.RawMessage(`"AI: hi\nCustomer: hello"`),
	}
	first := n.Normalize(raw)
	second := n.Normalize(raw)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical records:\n%+v\n%+v", first, second)
	}
}

func TestNormalize_CallTypeDefaultsToOutbound(t *testing.T) {
	n := NewNormalizer(nil, fixedParser())

	cases := []provider.RawCall{
		{ID: "c1"},
		{ID: "c2", Type: "webCall"},
		{ID: "c3", Direction: "strange"},
	}
	for _, raw := range cases {
		if got := n.Normalize(raw).CallType; got != CallTypeOutbound {
			t.Fatalf("%s: expected outbound, got %q", raw.ID, got)
		}
	}

	inbound := []provider.RawCall{
		{ID: "c4", Type: "inboundPhoneCall"},
		{ID: "c5", Direction: "inbound"},
		{ID: "c6", Direction: "Inbound"},
	}
	for _, raw := range inbound {
		if got := n.Normalize(raw).CallType; got != CallTypeInbound {
			t.Fatalf("%s: expected inbound, got %q", raw.ID, got)
		}
	}
}

func TestNormalize_BadStartTimestamp(t *testing.T) {
	n := NewNormalizer(nil, fixedParser())

	for _, startedAt := range []string{"", "garbage", "2025-13-45T99:99:99Z"} {
		rec := n.Normalize(provider.RawCall{ID: "c1", StartedAt: startedAt, EndedAt: "2025-01-01T10:00:00Z"})
		if rec.Date != NotAvailable || rec.Time != NotAvailable {
			t.Fatalf("startedAt=%q: expected N/A sentinels, got %q %q", startedAt, rec.Date, rec.Time)
		}
		if rec.Duration != ZeroDuration {
			t.Fatalf("startedAt=%q: expected 0:00, got %q", startedAt, rec.Duration)
		}
		if !rec.StartedAt.IsZero() {
			t.Fatalf("expected zero sort key")
		}
	}
}

func TestNormalize_DurationEdgeCases(t *testing.T) {
	n := NewNormalizer(nil, fixedParser())

	cases := []struct {
		name     string
		started  string
		ended    string
		duration string
	}{
		{"missing end is in-progress", "2025-01-01T10:00:00Z", "", ZeroDuration},
		{"invalid end", "2025-01-01T10:00:00Z", "nope", ZeroDuration},
		{"end before start clamps to zero", "2025-01-01T10:00:00Z", "2025-01-01T09:00:00Z", ZeroDuration},
		{"sub-minute", "2025-01-01T10:00:00Z", "2025-01-01T10:00:07Z", "0:07"},
		{"seconds floor", "2025-01-01T10:00:00Z", "2025-01-01T10:00:59.900Z", "0:59"},
		{"over an hour keeps minutes", "2025-01-01T10:00:00Z", "2025-01-01T11:01:05Z", "61:05"},
	}
	for _, tc := range cases {
		rec := n.Normalize(provider.RawCall{ID: "c", StartedAt: tc.started, EndedAt: tc.ended})
		if rec.Duration != tc.duration {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.duration, rec.Duration)
		}
	}
}

func TestNormalize_EndReasonClassification(t *testing.T) {
	n := NewNormalizer(nil, fixedParser())

	cases := []struct {
		endedReason string
		status      string
		want        EndReason
	}{
		{"no-answer", "", EndReasonMissed},
		{"twilio-no-answer", "ended", EndReasonMissed},
		{"customer-busy", "", EndReasonBusy},
		{"", "busy", EndReasonBusy},
		{"pipeline-error-openai-llm-failed", "", EndReasonFailed},
		{"", "failed", EndReasonFailed},
		{"customer-ended-call", "", EndReasonCompleted},
		{"", "", EndReasonCompleted},
		{"something-new", "ended", EndReasonCompleted},
		// ended-reason outranks status
		{"no-answer", "busy", EndReasonMissed},
	}
	for _, tc := range cases {
		rec := n.Normalize(provider.RawCall{ID: "c", EndedReason: tc.endedReason, Status: tc.status})
		if rec.EndReason != tc.want {
			t.Fatalf("reason=%q status=%q: expected %q, got %q", tc.endedReason, tc.status, tc.want, rec.EndReason)
		}
	}
}

func TestNormalize_PhoneFallbackChains(t *testing.T) {
	n := NewNormalizer(nil, fixedParser())

	rec := n.Normalize(provider.RawCall{ID: "c1"})
	if rec.CustomerPhone != UnknownValue || rec.AssistantPhone != UnknownValue {
		t.Fatalf("expected Unknown sentinels, got %q %q", rec.CustomerPhone, rec.AssistantPhone)
	}

	rec = n.Normalize(provider.RawCall{ID: "c2", CustomerNumber: "+1555000"})
	if rec.CustomerPhone != "+1555000" {
		t.Fatalf("expected flat customer number fallback, got %q", rec.CustomerPhone)
	}

	rec = n.Normalize(provider.RawCall{
		ID:          "c3",
		PhoneNumber: &provider.RawPhoneNumber{Number: "+1555111"},
		Assistant:   &provider.RawAssistantRef{PhoneNumber: "+1555222"},
	})
	if rec.AssistantPhone != "+1555111" {
		t.Fatalf("dedicated phone-number object must win, got %q", rec.AssistantPhone)
	}

	rec = n.Normalize(provider.RawCall{
		ID:        "c4",
		Assistant: &provider.RawAssistantRef{PhoneNumber: "+1555222"},
	})
	if rec.AssistantPhone != "+1555222" {
		t.Fatalf("expected nested assistant phone fallback, got %q", rec.AssistantPhone)
	}
}

func TestNormalize_AssistantNameResolution(t *testing.T) {
	dir := seededDirectory(t, "a1", "Jessica")
	n := NewNormalizer(dir, fixedParser())

	// Embedded name wins over the cache.
	rec := n.Normalize(provider.RawCall{
		ID:          "c1",
		AssistantID: "a1",
		Assistant:   &provider.RawAssistantRef{ID: "a1", Name: "Embedded"},
	})
	if rec.AssistantName != "Embedded" {
		t.Fatalf("expected embedded name, got %q", rec.AssistantName)
	}

	// Cache fills in a missing name.
	rec = n.Normalize(provider.RawCall{ID: "c2", AssistantID: "a1"})
	if rec.AssistantName != "Jessica" {
		t.Fatalf("expected cache name, got %q", rec.AssistantName)
	}

	// No embedded name, no cache entry.
	rec = n.Normalize(provider.RawCall{ID: "c3", AssistantID: "a2"})
	if rec.AssistantName != UnknownAssistantName {
		t.Fatalf("expected sentinel, got %q", rec.AssistantName)
	}

	// No assistant id at all.
	rec = n.Normalize(provider.RawCall{ID: "c4"})
	if rec.AssistantID != UnknownValue || rec.AssistantName != UnknownAssistantName {
		t.Fatalf("expected Unknown sentinels, got %q %q", rec.AssistantID, rec.AssistantName)
	}
}

func TestNormalize_TranscriptAbsentStaysNil(t *testing.T) {
	n := NewNormalizer(nil, fixedParser())

	rec := n.Normalize(provider.RawCall{ID: "c1"})
	if rec.Transcript != nil {
		t.Fatalf("expected nil transcript for absent field")
	}

	rec = n.Normalize(provider.RawCall{ID: "c2", Transcript: json.RawMessage(`"AI: hi"`)})
	if len(rec.Transcript) != 1 || rec.Transcript[0].Speaker != transcript.SpeakerAI {
		t.Fatalf("unexpected transcript: %+v", rec.Transcript)
	}
}
