package calls

import (
	"time"

	"voicedash/internal/transcript"
)

// CallRecord is the canonical, normalized representation of one call.
//
// Normalization never fails; fields that cannot be derived take the
// documented sentinel values. The JSON field names are a
// published contract with the dashboard front end.
type CallRecord struct {
	ID string `json:"id"`

	CallType CallType `json:"callType"`

	CustomerPhone  string `json:"customerPhone"`
	AssistantPhone string `json:"assistantPhone"`

	AssistantID   string `json:"assistantId"`
	AssistantName string `json:"assistantName"`
	// AgentName mirrors AssistantName; older front-end revisions read it
	// under this name.
	AgentName string `json:"agentName"`

	Date     string `json:"date"`
	Time     string `json:"time"`
	Duration string `json:"duration"`

	EndReason EndReason `json:"endReason"`

	RecordingURL string `json:"recordingUrl,omitempty"`
	Summary      string `json:"summary,omitempty"`

	// Transcript stays nil when the raw payload carried no transcript
	// field, so consumers can tell "no transcript" from "empty transcript".
	Transcript []transcript.Entry `json:"transcript,omitempty"`

	// StartedAt is the parsed start timestamp (zero when unparsable).
	// It is the sort key for newest-first ordering and is not serialized;
	// the front end reads the formatted Date/Time pair.
	StartedAt time.Time `json:"-"`

	// DurationSeconds backs the summary aggregation.
	DurationSeconds int `json:"-"`
}

// CallType is the normalized call direction. It is never left ambiguous;
// unrecognized or missing direction tags normalize to outbound.
type CallType string

const (
	CallTypeInbound  CallType = "inboundPhoneCall"
	CallTypeOutbound CallType = "outboundPhoneCall"
)

// EndReason classifies how a call ended.
type EndReason string

const (
	EndReasonCompleted EndReason = "completed"
	EndReasonMissed    EndReason = "missed"
	EndReasonBusy      EndReason = "busy"
	EndReasonFailed    EndReason = "failed"
)

// Sentinel values substituted when a field cannot be derived.
const (
	UnknownValue         = "Unknown"
	UnknownAssistantName = "Unknown Assistant"
	NotAvailable         = "N/A"
	ZeroDuration         = "0:00"
)
