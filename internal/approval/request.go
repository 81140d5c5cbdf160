// Package approval implements the Approval Store: an in-memory,
// internally-synchronized ledger of pending decisions that gates
// sensitive mutations on out-of-band human consent.
package approval

import (
	"time"

	"github.com/google/uuid"
)

// Status is a Request's place in its state machine. Pending is the
// only non-terminal state; every other state is reached at most once
// and the record becomes immutable thereafter (except for Cleanup,
// which only removes aged-out terminal records).
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Request is one approval record. JSON field names match the wire
// contract the Tool Gateway's pending_approval response and approvals
// CLI subcommands both serialize.
type Request struct {
	ID             uuid.UUID              `json:"approvalId"`
	ToolName       string                 `json:"toolName"`
	Arguments      map[string]interface{} `json:"arguments"`
	ApprovalFields []string               `json:"approvalFields,omitempty"`
	Status         Status                 `json:"status"`
	TenantID       string                 `json:"tenantId"`
	Role           string                 `json:"role"`
	CreatedAt      time.Time              `json:"createdAt"`
	ExpiresAt      time.Time              `json:"expiresAt"`
	DecidedAt      *time.Time             `json:"decidedAt,omitempty"`
	DecidedBy      string                 `json:"decidedBy,omitempty"`
	Reason         string                 `json:"reason,omitempty"`
}

// effectiveStatus returns Expired in place of Pending once the TTL has
// elapsed, without mutating the record; expiry is checked lazily at
// read time rather than by a background sweep, matching the design
// note that cleanup is a separate, explicit operation.
func (r Request) effectiveStatus(now time.Time) Status {
	if r.Status == StatusPending && now.After(r.ExpiresAt) {
		return StatusExpired
	}
	return r.Status
}

// IsTerminal reports whether status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s != StatusPending
}
