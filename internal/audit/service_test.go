package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresTypeAndActor(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if err := svc.Append(context.Background(), Event{Type: EventTypeMappingAdded}); err == nil {
		t.Fatalf("expected error without actor")
	}
	if err := svc.Append(context.Background(), Event{ActorEmail: "admin@example.com"}); err == nil {
		t.Fatalf("expected error without type")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	err := svc.LogMappingAdded(context.Background(), "admin@example.com", "admin", "1.2.3.4", "user@example.com", "a1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	e := evs[0]
	if e.Type != EventTypeMappingAdded {
		t.Fatalf("expected mapping_added, got %q", e.Type)
	}
	if e.TargetEmail != "user@example.com" || e.AssistantID != "a1" {
		t.Fatalf("unexpected target: %+v", e)
	}
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp")
	}
	if e.IPAddress != "1.2.3.4" {
		t.Fatalf("expected ip captured")
	}
}

func TestService_LogMappingRemoved(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogMappingRemoved(context.Background(), "admin@example.com", "admin", "", "user@example.com", "a1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	evs := repo.Events()
	if len(evs) != 1 || evs[0].Type != EventTypeMappingRemoved {
		t.Fatalf("unexpected events: %+v", evs)
	}
}
