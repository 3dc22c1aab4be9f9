package mappings

import "time"

// Mapping is one (user email, assistant id) permission row.
//
// The relation is the whole read/write contract: a user may see calls for
// exactly the assistant ids mapped to their email. Emails are stored
// lowercase so lookups are case-insensitive.
type Mapping struct {
	ID          string    `json:"id" db:"id"`
	UserEmail   string    `json:"user_email" db:"user_email"`
	AssistantID string    `json:"assistant_id" db:"assistant_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// UserMappings groups one user's permitted assistant ids, the shape the
// admin screens consume.
type UserMappings struct {
	UserEmail    string   `json:"user_email"`
	AssistantIDs []string `json:"assistant_ids"`
}
