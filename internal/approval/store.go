package approval

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTTL is the approval lifetime applied when a caller does not
// specify one.
const DefaultTTL = 24 * time.Hour

// Sink optionally persists approval state alongside the in-memory
// ledger (the spec allows absence, in which case the Store is purely
// in-memory). Cori backs it with Redis; see RedisSink.
type Sink interface {
	Put(ctx context.Context, req Request) error
	Update(ctx context.Context, id uuid.UUID, status Status, decidedBy, reason string, decidedAt time.Time) error
	ListPending(ctx context.Context, tenant string) ([]Request, error)
}

// Store is the in-memory pending-approval ledger. All mutations
// serialize through mu; the lock is held only across the state-machine
// transition itself, never across sink I/O, so a slow or unavailable
// sink cannot stall concurrent decisions on other ids.
type Store struct {
	logger zerolog.Logger
	sink   Sink
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Request
}

// NewStore constructs an empty Store. sink may be nil for pure
// in-memory operation.
func NewStore(logger zerolog.Logger, sink Sink) *Store {
	return &Store{logger: logger, sink: sink, byID: map[uuid.UUID]*Request{}}
}

// CreateInput describes a new pending approval request.
type CreateInput struct {
	ToolName       string
	Arguments      map[string]interface{}
	ApprovalFields []string
	TenantID       string
	Role           string
	TTL            time.Duration
}

// Create inserts a new Pending request and returns it.
func (s *Store) Create(ctx context.Context, in CreateInput) Request {
	ttl := in.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	req := Request{
		ID:             uuid.New(),
		ToolName:       in.ToolName,
		Arguments:      in.Arguments,
		ApprovalFields: in.ApprovalFields,
		Status:         StatusPending,
		TenantID:       in.TenantID,
		Role:           in.Role,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}

	s.mu.Lock()
	s.byID[req.ID] = &req
	s.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.Put(ctx, req); err != nil {
			s.logger.Warn().Err(err).Str("approval_id", req.ID.String()).Msg("failed to persist approval request")
		}
	}

	s.logger.Info().
		Str("approval_id", req.ID.String()).
		Str("tool", req.ToolName).
		Str("tenant", req.TenantID).
		Msg("approval requested")

	return req
}

// Get looks up a request by id, applying lazy expiry.
func (s *Store) Get(id uuid.UUID) (Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.byID[id]
	if !ok {
		return Request{}, newError(KindNotFound, id.String())
	}
	out := *req
	out.Status = out.effectiveStatus(time.Now())
	return out, nil
}

// ListPending returns every request whose effective status is still
// Pending, optionally filtered by tenant.
func (s *Store) ListPending(tenant string) []Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	var out []Request
	for _, req := range s.byID {
		if tenant != "" && req.TenantID != tenant {
			continue
		}
		if req.effectiveStatus(now) == StatusPending {
			out = append(out, *req)
		}
	}
	return out
}

// decide performs the single state-machine transition shared by
// Approve/Reject/Cancel: exactly one caller among any number racing on
// the same id observes success; the rest observe AlreadyDecided (or
// Expired, if the TTL elapsed first). The lock is held only for the
// duration of the in-memory mutation.
func (s *Store) decide(ctx context.Context, id uuid.UUID, target Status, decidedBy, reason string) (Request, error) {
	s.mu.Lock()
	req, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return Request{}, newError(KindNotFound, id.String())
	}
	now := time.Now()
	current := req.effectiveStatus(now)
	if current == StatusExpired {
		req.Status = StatusExpired
		s.mu.Unlock()
		return Request{}, newError(KindExpired, id.String())
	}
	if current != StatusPending {
		s.mu.Unlock()
		return Request{}, newError(KindAlreadyDecided, id.String())
	}
	req.Status = target
	req.DecidedAt = &now
	req.DecidedBy = decidedBy
	req.Reason = reason
	out := *req
	s.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.Update(ctx, id, target, decidedBy, reason, now); err != nil {
			s.logger.Warn().Err(err).Str("approval_id", id.String()).Msg("failed to persist approval decision")
		}
	}

	s.logger.Info().
		Str("approval_id", id.String()).
		Str("status", string(target)).
		Str("decided_by", decidedBy).
		Msg("approval decided")

	return out, nil
}

// Approve transitions a Pending request to Approved.
func (s *Store) Approve(ctx context.Context, id uuid.UUID, decidedBy, reason string) (Request, error) {
	return s.decide(ctx, id, StatusApproved, decidedBy, reason)
}

// Reject transitions a Pending request to Rejected.
func (s *Store) Reject(ctx context.Context, id uuid.UUID, decidedBy, reason string) (Request, error) {
	return s.decide(ctx, id, StatusRejected, decidedBy, reason)
}

// Cancel transitions a Pending request to Cancelled, e.g. because the
// session that created it disconnected.
func (s *Store) Cancel(ctx context.Context, id uuid.UUID, reason string) (Request, error) {
	return s.decide(ctx, id, StatusCancelled, "", reason)
}

// Cleanup removes terminal (non-Pending, including lazily-expired)
// records older than maxAge, returning the count removed. It never
// removes a still-Pending record regardless of age.
func (s *Store) Cleanup(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, req := range s.byID {
		status := req.effectiveStatus(now)
		if status == StatusPending {
			continue
		}
		cutoff := req.CreatedAt
		if req.DecidedAt != nil {
			cutoff = *req.DecidedAt
		}
		if now.Sub(cutoff) > maxAge {
			delete(s.byID, id)
			removed++
		}
	}
	return removed
}
