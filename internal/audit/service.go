package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods exist.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records who changed the permission relation and when.
// Callers treat audit logging as best-effort: a failed append is logged by
// the caller, never propagated to the admin.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" || e.ActorEmail == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogMappingAdded records an access grant.
func (s *Service) LogMappingAdded(ctx context.Context, actorEmail, actorRole, ip, targetEmail, assistantID string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeMappingAdded,
		ActorEmail:  actorEmail,
		ActorRole:   actorRole,
		IPAddress:   ip,
		TargetEmail: targetEmail,
		AssistantID: assistantID,
		Message:     "assistant access granted",
	})
}

// LogMappingRemoved records an access revocation.
func (s *Service) LogMappingRemoved(ctx context.Context, actorEmail, actorRole, ip, targetEmail, assistantID string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeMappingRemoved,
		ActorEmail:  actorEmail,
		ActorRole:   actorRole,
		IPAddress:   ip,
		TargetEmail: targetEmail,
		AssistantID: assistantID,
		Message:     "assistant access revoked",
	})
}
