package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces every key this sink touches so an approval
// ledger never collides with other Redis users sharing the instance
// (rate limiting, trace streams).
const redisKeyPrefix = "cori:approval:"

// RedisSink mirrors the approval ledger to Redis, where the approvals
// CLI can list and decide requests. It backs the Store's optional Sink
// interface; when no RedisSink is configured the Store degrades
// gracefully to pure in-memory. A Store never reads records back from
// the sink, so a restarted gateway process starts with an empty ledger.
type RedisSink struct {
	client *redis.Client
}

// NewRedisSink wraps an already-connected Redis client.
func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

func redisKey(id uuid.UUID) string {
	return redisKeyPrefix + id.String()
}

// Put writes the full request as a JSON blob with a TTL one hour past
// its expiry, so the record survives long enough for a late Cleanup
// pass to observe and evict it in its Expired form.
func (r *RedisSink) Put(ctx context.Context, req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("approval: marshal request: %w", err)
	}
	ttl := time.Until(req.ExpiresAt) + time.Hour
	if ttl <= 0 {
		ttl = time.Hour
	}
	return r.client.Set(ctx, redisKey(req.ID), data, ttl).Err()
}

// Update re-reads the stored request, applies the decision, and writes
// it back; Redis has no partial-field JSON update, so this is a
// read-modify-write. The Store calls Update only after its in-memory
// transition has already won, and after releasing its lock.
func (r *RedisSink) Update(ctx context.Context, id uuid.UUID, status Status, decidedBy, reason string, decidedAt time.Time) error {
	raw, err := r.client.Get(ctx, redisKey(id)).Result()
	if err != nil {
		return fmt.Errorf("approval: read request for update: %w", err)
	}
	var req Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return fmt.Errorf("approval: unmarshal request: %w", err)
	}
	req.Status = status
	req.DecidedBy = decidedBy
	req.Reason = reason
	req.DecidedAt = &decidedAt

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("approval: marshal updated request: %w", err)
	}
	ttl := r.client.TTL(ctx, redisKey(id)).Val()
	if ttl <= 0 {
		ttl = time.Hour
	}
	return r.client.Set(ctx, redisKey(id), data, ttl).Err()
}

// ListPending scans the keyspace for this sink's prefix. Its caller is
// the approvals CLI, not the request hot path, so a SCAN-based walk is
// an acceptable cost.
func (r *RedisSink) ListPending(ctx context.Context, tenant string) ([]Request, error) {
	var out []Request
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := r.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var req Request
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			continue
		}
		if req.Status != StatusPending {
			continue
		}
		if tenant != "" && req.TenantID != tenant {
			continue
		}
		out = append(out, req)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("approval: scan pending: %w", err)
	}
	return out, nil
}
