package provider

import (
	"bytes"
	"encoding/json"
)

// RawCall is the as-received call payload from the voice-AI provider.
//
// The provider changed its wire format over time (camelCase vs snake_case
// field names, "type" vs "direction" for the call direction, transcript as
// a delimited string vs a JSON array). RawCall absorbs all known revisions
// into one permissive shape so that normalization never has to sniff JSON
// itself. Adding support for a new upstream revision means extending
// UnmarshalJSON here, nothing else.
type RawCall struct {
	ID          string `json:"id"`
	AssistantID string `json:"assistantId"`

	// Type carries the current-revision direction tag ("inboundPhoneCall",
	// "outboundPhoneCall"); Direction carries the older "inbound"/"outbound"
	// tag. At most one is set per payload.
	Type      string `json:"type"`
	Direction string `json:"direction"`

	StartedAt string `json:"startedAt"`
	EndedAt   string `json:"endedAt"`

	Status      string `json:"status"`
	EndedReason string `json:"endedReason"`

	// Transcript is preserved verbatim: absent (nil) is distinct from
	// present-but-empty, and the value may be a JSON string or a JSON array
	// depending on the payload revision.
	Transcript json.RawMessage `json:"transcript"`

	RecordingURL string `json:"recordingUrl"`
	Summary      string `json:"summary"`

	Customer *RawCustomer `json:"customer"`
	// CustomerNumber is the older flat form of Customer.Number.
	CustomerNumber string `json:"customerNumber"`

	Assistant   *RawAssistantRef `json:"assistant"`
	PhoneNumber *RawPhoneNumber  `json:"phoneNumber"`
}

// RawCustomer is the nested customer object of the current revision.
type RawCustomer struct {
	Number string `json:"number"`
}

// RawAssistantRef is the assistant object embedded in a call payload.
type RawAssistantRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

// RawPhoneNumber is the dedicated phone-number object of the current
// revision; it takes priority over Assistant.PhoneNumber.
type RawPhoneNumber struct {
	Number string `json:"number"`
}

// Assistant is the metadata returned by the provider's assistant endpoint.
type Assistant struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	PhoneNumber *RawPhoneNumber `json:"phoneNumber,omitempty"`
}

// snakeCall mirrors the snake_case field names of the oldest observed
// payload revision.
type snakeCall struct {
	AssistantID    string `json:"assistant_id"`
	StartedAt      string `json:"started_at"`
	EndedAt        string `json:"ended_at"`
	EndedReason    string `json:"ended_reason"`
	RecordingURL   string `json:"recording_url"`
	CustomerNumber string `json:"customer_number"`
}

// UnmarshalJSON decodes the current camelCase shape, then backfills any
// missing fields from the snake_case revision.
func (c *RawCall) UnmarshalJSON(b []byte) error {
	type plain RawCall
	var cur plain
	if err := json.Unmarshal(b, &cur); err != nil {
		return err
	}
	*c = RawCall(cur)

	var old snakeCall
	// The camelCase decode already succeeded, so this cannot fail.
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&old); err != nil {
		return nil
	}
	if c.AssistantID == "" {
		c.AssistantID = old.AssistantID
	}
	if c.StartedAt == "" {
		c.StartedAt = old.StartedAt
	}
	if c.EndedAt == "" {
		c.EndedAt = old.EndedAt
	}
	if c.EndedReason == "" {
		c.EndedReason = old.EndedReason
	}
	if c.RecordingURL == "" {
		c.RecordingURL = old.RecordingURL
	}
	if c.CustomerNumber == "" {
		c.CustomerNumber = old.CustomerNumber
	}
	return nil
}

// TranscriptText flattens the raw transcript into the string form the
// transcript parser consumes. The second return reports whether the field
// was present at all, so callers can keep "no transcript" distinct from
// "empty transcript".
func (c *RawCall) TranscriptText() (string, bool) {
	if len(c.Transcript) == 0 || bytes.Equal(c.Transcript, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(c.Transcript, &s); err == nil {
		return s, true
	}
	// Array-valued transcript: hand the JSON text itself to the parser.
	return string(c.Transcript), true
}
