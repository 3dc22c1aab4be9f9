package mappings

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidArgument = errors.New("mappings: invalid argument")

// Repository is the persistence contract for the permission relation.
type Repository interface {
	ListAll(ctx context.Context) ([]Mapping, error)
	ListByEmail(ctx context.Context, email string) ([]Mapping, error)

	// Insert must be idempotent on (user_email, assistant_id): inserting an
	// existing pair is a no-op, not an error.
	Insert(ctx context.Context, m Mapping) error
	Delete(ctx context.Context, email, assistantID string) error
}

// Service manages which assistants each user may see.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// List returns every mapping, grouped by user email and sorted for stable
// output.
func (s *Service) List(ctx context.Context) ([]UserMappings, error) {
	if s.repo == nil {
		return nil, errors.New("mappings: repository not configured")
	}
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byEmail := map[string][]string{}
	for _, m := range rows {
		byEmail[m.UserEmail] = append(byEmail[m.UserEmail], m.AssistantID)
	}

	out := make([]UserMappings, 0, len(byEmail))
	for email, ids := range byEmail {
		sort.Strings(ids)
		out = append(out, UserMappings{UserEmail: email, AssistantIDs: ids})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserEmail < out[j].UserEmail })
	return out, nil
}

// AllowedAssistantIDs computes a user's permitted-assistant set. The email
// comparison is case-insensitive. A user with no mappings gets an empty,
// non-nil set: they are restricted to nothing, not unrestricted.
func (s *Service) AllowedAssistantIDs(ctx context.Context, email string) ([]string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidArgument
	}
	if s.repo == nil {
		return nil, errors.New("mappings: repository not configured")
	}
	rows, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.AssistantID)
	}
	sort.Strings(ids)
	return ids, nil
}

// Add grants a user access to one assistant. Adding an existing pair is a
// successful no-op.
func (s *Service) Add(ctx context.Context, email, assistantID string) error {
	email = normalizeEmail(email)
	if email == "" || assistantID == "" {
		return ErrInvalidArgument
	}
	if s.repo == nil {
		return errors.New("mappings: repository not configured")
	}
	return s.repo.Insert(ctx, Mapping{
		ID:          uuid.NewString(),
		UserEmail:   email,
		AssistantID: assistantID,
		CreatedAt:   s.clock().UTC(),
	})
}

// Remove revokes a user's access to one assistant. Removing a pair that
// does not exist is a successful no-op.
func (s *Service) Remove(ctx context.Context, email, assistantID string) error {
	email = normalizeEmail(email)
	if email == "" || assistantID == "" {
		return ErrInvalidArgument
	}
	if s.repo == nil {
		return errors.New("mappings: repository not configured")
	}
	return s.repo.Delete(ctx, email, assistantID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
