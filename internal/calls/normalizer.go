package calls

import (
	"fmt"
	"strings"
	"time"

	"voicedash/internal/provider"
	"voicedash/internal/transcript"
)

// AssistantDirectory is the read-only cache view the normalizer consults to
// fill in missing assistant names. It must not trigger fetches: keeping the
// lookup side-effect free makes normalization a pure function of the raw
// payload and the cache snapshot.
type AssistantDirectory interface {
	Peek(id string) (provider.Assistant, bool)
}

// Normalizer turns raw provider payloads into CallRecords.
type Normalizer struct {
	dir    AssistantDirectory
	parser *transcript.Parser
}

func NewNormalizer(dir AssistantDirectory, parser *transcript.Parser) *Normalizer {
	if parser == nil {
		parser = transcript.NewParser()
	}
	return &Normalizer{dir: dir, parser: parser}
}

// Normalize produces the canonical record for one raw call payload.
// It never fails; underivable fields take their sentinel values.
func (n *Normalizer) Normalize(raw provider.RawCall) CallRecord {
	rec := CallRecord{
		ID:           raw.ID,
		CallType:     callTypeOf(raw),
		RecordingURL: raw.RecordingURL,
		Summary:      raw.Summary,
	}

	rec.Date, rec.Time, rec.StartedAt = formatStart(raw.StartedAt)
	rec.Duration, rec.DurationSeconds = formatDuration(rec.StartedAt, raw.EndedAt)
	rec.EndReason = classifyEndReason(raw.EndedReason, raw.Status)

	rec.CustomerPhone = firstNonEmpty(
		func() string {
			if raw.Customer != nil {
				return raw.Customer.Number
			}
			return ""
		},
		func() string { return raw.CustomerNumber },
	)
	if rec.CustomerPhone == "" {
		rec.CustomerPhone = UnknownValue
	}

	rec.AssistantPhone = firstNonEmpty(
		func() string {
			if raw.PhoneNumber != nil {
				return raw.PhoneNumber.Number
			}
			return ""
		},
		func() string {
			if raw.Assistant != nil {
				return raw.Assistant.PhoneNumber
			}
			return ""
		},
	)
	if rec.AssistantPhone == "" {
		rec.AssistantPhone = UnknownValue
	}

	assistantID := rawAssistantID(raw)
	rec.AssistantName = n.assistantName(raw, assistantID)
	rec.AgentName = rec.AssistantName
	rec.AssistantID = assistantID
	if rec.AssistantID == "" {
		rec.AssistantID = UnknownValue
	}

	if text, ok := raw.TranscriptText(); ok {
		rec.Transcript = n.parser.Parse(text)
	}

	return rec
}

// assistantName resolves, in order: the name embedded in the payload, the
// cache entry for the assistant id, the sentinel.
func (n *Normalizer) assistantName(raw provider.RawCall, assistantID string) string {
	if raw.Assistant != nil && raw.Assistant.Name != "" {
		return raw.Assistant.Name
	}
	if n.dir != nil && assistantID != "" {
		if a, ok := n.dir.Peek(assistantID); ok && a.Name != "" {
			return a.Name
		}
	}
	return UnknownAssistantName
}

func callTypeOf(raw provider.RawCall) CallType {
	if raw.Type == string(CallTypeInbound) || strings.EqualFold(raw.Direction, "inbound") {
		return CallTypeInbound
	}
	return CallTypeOutbound
}

// formatStart derives the display date ("M/D/YYYY") and time ("H:MM AM")
// from the start timestamp. Unparsable input yields the N/A sentinels and a
// zero time, never an error.
func formatStart(startedAt string) (string, string, time.Time) {
	t, err := time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return NotAvailable, NotAvailable, time.Time{}
	}
	return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year()), t.Format("3:04 PM"), t
}

// formatDuration computes end minus start in whole seconds, floored and
// clamped at zero, as "M:SS". A call with no end timestamp is still in
// progress and formats as "0:00" rather than a wall-clock-dependent value.
func formatDuration(start time.Time, endedAt string) (string, int) {
	if start.IsZero() || endedAt == "" {
		return ZeroDuration, 0
	}
	end, err := time.Parse(time.RFC3339, endedAt)
	if err != nil {
		return ZeroDuration, 0
	}
	secs := int(end.Sub(start) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60), secs
}

// classifyEndReason matches the end-reason code first, then the status
// code; the first matching rule wins and everything else is completed.
func classifyEndReason(endedReason, status string) EndReason {
	for _, code := range []string{endedReason, status} {
		code = strings.ToLower(code)
		switch {
		case code == "":
			continue
		case strings.Contains(code, "no-answer"):
			return EndReasonMissed
		case strings.Contains(code, "busy"):
			return EndReasonBusy
		case strings.Contains(code, "failed"), strings.Contains(code, "error"):
			return EndReasonFailed
		}
	}
	return EndReasonCompleted
}

// firstNonEmpty evaluates accessors in order and returns the first
// non-empty value. Keeping the fallback chains in one place makes their
// priority order auditable.
func firstNonEmpty(accessors ...func() string) string {
	for _, get := range accessors {
		if v := get(); v != "" {
			return v
		}
	}
	return ""
}
