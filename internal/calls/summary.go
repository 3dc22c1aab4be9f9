package calls

// Summary aggregates a normalized call list for the dashboard header.
type Summary struct {
	TotalCalls     int `json:"total_calls"`
	InboundCalls   int `json:"inbound_calls"`
	OutboundCalls  int `json:"outbound_calls"`
	CompletedCalls int `json:"completed_calls"`
	MissedCalls    int `json:"missed_calls"`
	BusyCalls      int `json:"busy_calls"`
	FailedCalls    int `json:"failed_calls"`

	RecordedCalls int `json:"recorded_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`
}

// Summarize folds a call list into a Summary. It works on already
// normalized records, so there is nothing to fail on.
func Summarize(records []CallRecord) Summary {
	var out Summary
	for _, r := range records {
		out.TotalCalls++
		out.TotalDurationSeconds += r.DurationSeconds

		if r.CallType == CallTypeInbound {
			out.InboundCalls++
		} else {
			out.OutboundCalls++
		}
		if r.RecordingURL != "" {
			out.RecordedCalls++
		}

		switch r.EndReason {
		case EndReasonCompleted:
			out.CompletedCalls++
		case EndReasonMissed:
			out.MissedCalls++
		case EndReasonBusy:
			out.BusyCalls++
		case EndReasonFailed:
			out.FailedCalls++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out
}
