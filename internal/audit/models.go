package audit

import "time"

// Event is an immutable, append-only audit log record of an admin action.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor and ip capture are best-effort; never block the action being
//   audited on an audit failure.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorEmail is the authenticated admin performing the action.
	ActorEmail string `json:"actor_email" db:"actor_email"`
	ActorRole  string `json:"actor_role,omitempty" db:"actor_role"`

	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers for mapping changes.
	TargetEmail string `json:"target_email,omitempty" db:"target_email"`
	AssistantID string `json:"assistant_id,omitempty" db:"assistant_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeMappingAdded   EventType = "mapping_added"
	EventTypeMappingRemoved EventType = "mapping_removed"
)
