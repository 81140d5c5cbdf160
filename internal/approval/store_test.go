package approval

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestStore() *Store {
	return NewStore(zerolog.Nop(), nil)
}

func TestCreateStartsPending(t *testing.T) {
	s := newTestStore()
	req := s.Create(context.Background(), CreateInput{ToolName: "deleteOrder", TenantID: "tenant-a", Role: "admin"})
	if req.Status != StatusPending {
		t.Fatalf("expected Pending, got %v", req.Status)
	}
	if req.ExpiresAt.Sub(req.CreatedAt) != DefaultTTL {
		t.Fatalf("expected default TTL applied, got %v", req.ExpiresAt.Sub(req.CreatedAt))
	}
}

func TestApproveTransitionsToApproved(t *testing.T) {
	s := newTestStore()
	req := s.Create(context.Background(), CreateInput{ToolName: "deleteOrder", TenantID: "tenant-a"})
	decided, err := s.Approve(context.Background(), req.ID, "admin@example.com", "looks fine")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if decided.Status != StatusApproved || decided.DecidedBy != "admin@example.com" {
		t.Fatalf("unexpected decided record: %+v", decided)
	}
}

func TestSecondDecisionFailsAlreadyDecided(t *testing.T) {
	s := newTestStore()
	req := s.Create(context.Background(), CreateInput{ToolName: "deleteOrder", TenantID: "tenant-a"})
	if _, err := s.Approve(context.Background(), req.ID, "a", ""); err != nil {
		t.Fatalf("first Approve: %v", err)
	}
	_, err := s.Reject(context.Background(), req.ID, "b", "")
	if err == nil {
		t.Fatal("expected second decision to fail")
	}
	if e, ok := err.(*Error); !ok || e.Kind != KindAlreadyDecided {
		t.Fatalf("expected AlreadyDecided, got %v", err)
	}
}

func TestConcurrentApproveHasExactlyOneWinner(t *testing.T) {
	s := newTestStore()
	req := s.Create(context.Background(), CreateInput{ToolName: "deleteOrder", TenantID: "tenant-a"})

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Approve(context.Background(), req.ID, "racer", ""); err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestExpiredRequestRejectsDecision(t *testing.T) {
	s := newTestStore()
	req := s.Create(context.Background(), CreateInput{ToolName: "deleteOrder", TenantID: "tenant-a", TTL: time.Millisecond})
	time.Sleep(5 * time.Millisecond)
	_, err := s.Approve(context.Background(), req.ID, "admin", "")
	if err == nil {
		t.Fatal("expected expired request to reject decision")
	}
	if e, ok := err.(*Error); !ok || e.Kind != KindExpired {
		t.Fatalf("expected Expired, got %v", err)
	}
}

func TestCleanupRemovesOnlyTerminalRecords(t *testing.T) {
	s := newTestStore()
	pending := s.Create(context.Background(), CreateInput{ToolName: "t1", TenantID: "tenant-a"})
	decided := s.Create(context.Background(), CreateInput{ToolName: "t2", TenantID: "tenant-a"})
	if _, err := s.Approve(context.Background(), decided.ID, "admin", ""); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	removed := s.Cleanup(0)
	if removed != 1 {
		t.Fatalf("expected 1 record removed, got %d", removed)
	}
	if _, err := s.Get(pending.ID); err != nil {
		t.Fatalf("expected pending record to survive cleanup: %v", err)
	}
	if _, err := s.Get(decided.ID); err == nil {
		t.Fatal("expected decided record to be removed")
	}
}

func TestListPendingFiltersByTenant(t *testing.T) {
	s := newTestStore()
	s.Create(context.Background(), CreateInput{ToolName: "t1", TenantID: "tenant-a"})
	s.Create(context.Background(), CreateInput{ToolName: "t2", TenantID: "tenant-b"})

	pendingA := s.ListPending("tenant-a")
	if len(pendingA) != 1 || pendingA[0].TenantID != "tenant-a" {
		t.Fatalf("expected 1 pending request for tenant-a, got %+v", pendingA)
	}
}
