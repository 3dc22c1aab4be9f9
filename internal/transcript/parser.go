package transcript

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// Entry is one reconstructed line of conversation.
type Entry struct {
	Time    string `json:"time"`
	Speaker string `json:"speaker"`
	Message string `json:"message"`
}

// Speaker labels. Anything the parser cannot attribute stays Unknown.
const (
	SpeakerAI       = "AI"
	SpeakerCustomer = "Customer"
	SpeakerUnknown  = "Unknown"
)

// syntheticSpacing is the interval used when a transcript carries no
// per-message timestamps; entries are spaced backward from "now".
const syntheticSpacing = 30 * time.Second

// Parser reconstructs an ordered transcript from the provider's raw
// transcript value. The provider has shipped several encodings over time:
// JSON arrays in OpenAI role/content form, speaker-tagged JSON, newline
// delimited "AI:"/"Customer:" text, and plain strings. Parse handles all
// of them and never returns an error; malformed input degrades to entries
// with Speaker Unknown.
type Parser struct {
	clock func() time.Time
}

func NewParser() *Parser { return &Parser{clock: time.Now} }

// NewParserAt pins the clock used for synthesized timestamps. Tests use it
// for deterministic output.
func NewParserAt(clock func() time.Time) *Parser {
	if clock == nil {
		clock = time.Now
	}
	return &Parser{clock: clock}
}

// rawEntry is the permissive shape probed out of JSON-array transcripts.
// Pointers distinguish absent fields from empty ones.
type rawEntry struct {
	Role    *string `json:"role"`
	Content *string `json:"content"`
	Speaker *string `json:"speaker"`
	Message *string `json:"message"`
	Time    *string `json:"time"`
}

var linePrefix = regexp.MustCompile(`(?i)^(AI|Customer|User)\s*:\s*(.*)$`)

// Parse converts a raw transcript value into ordered entries.
// Empty input yields an empty sequence, not a placeholder entry.
func (p *Parser) Parse(raw string) []Entry {
	if raw == "" {
		return nil
	}

	var parsed []rawEntry
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		// An empty JSON array means "no transcript", same as no input.
		if len(parsed) == 0 {
			return nil
		}
		return p.fromJSONArray(parsed)
	} else {
		slog.Debug("transcript is not a JSON array, trying line format", "err", err)
	}

	return p.fromLines(raw)
}

// fromJSONArray handles the structured encodings. The first element of a
// role/speaker tagged array is the system/priming message and is skipped.
func (p *Parser) fromJSONArray(parsed []rawEntry) []Entry {
	first := parsed[0]
	if first.Role == nil && first.Speaker == nil {
		// Already-canonical input: pass fields through as-is.
		out := make([]Entry, 0, len(parsed))
		for i, item := range parsed {
			out = append(out, Entry{
				Time:    valueOr(item.Time, p.syntheticTime(len(parsed), i)),
				Speaker: valueOr(item.Speaker, SpeakerUnknown),
				Message: valueOr(item.Message, valueOr(item.Content, "")),
			})
		}
		return out
	}

	rest := parsed[1:]
	out := make([]Entry, 0, len(rest))
	for i, item := range rest {
		e := Entry{Time: p.syntheticTime(len(rest), i)}
		if item.Time != nil && *item.Time != "" {
			e.Time = *item.Time
		}

		switch {
		case item.Role != nil && item.Content != nil:
			// OpenAI role/content form.
			e.Speaker = speakerForRole(*item.Role)
			e.Message = *item.Content
		default:
			// Speaker-tagged form, with role as a fallback hint.
			e.Speaker = valueOr(item.Speaker, speakerForRole(valueOr(item.Role, "")))
			e.Message = valueOr(item.Message, valueOr(item.Content, ""))
		}
		out = append(out, e)
	}
	return out
}

// fromLines handles the newline-delimited "AI:"/"Customer:" text encoding.
func (p *Parser) fromLines(raw string) []Entry {
	now := p.clock()
	var out []Entry
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := linePrefix.FindStringSubmatch(line); m != nil {
			speaker := SpeakerCustomer
			if strings.EqualFold(m[1], "ai") {
				speaker = SpeakerAI
			}
			out = append(out, Entry{
				Time:    formatClock(now),
				Speaker: speaker,
				Message: strings.TrimSpace(m[2]),
			})
			continue
		}
		out = append(out, Entry{
			Time:    formatClock(now),
			Speaker: SpeakerUnknown,
			Message: line,
		})
	}
	if len(out) == 0 {
		// Plain unstructured string with no usable lines.
		return []Entry{{
			Time:    formatClock(now),
			Speaker: SpeakerUnknown,
			Message: raw,
		}}
	}
	return out
}

func (p *Parser) syntheticTime(total, index int) string {
	offset := time.Duration(total-index) * syntheticSpacing
	return formatClock(p.clock().Add(-offset))
}

func speakerForRole(role string) string {
	if role == "assistant" {
		return SpeakerAI
	}
	return SpeakerCustomer
}

func formatClock(t time.Time) string {
	return t.Format("3:04 PM")
}

func valueOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}
