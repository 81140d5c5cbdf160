// Package audit implements the core's audit sink: a structured,
// non-blocking record of every statement and tool call the gateways
// process, kept in a bounded in-memory ring for inspection and
// optionally mirrored to ClickHouse for durable, queryable history.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventType discriminates the kind of action an audit record describes.
type EventType string

const (
	EventSQLStatement EventType = "sql_statement"
	EventToolCall      EventType = "tool_call"
	EventApprovalDecision EventType = "approval_decision"
)

// Event is one structured audit record, matching the wire schema the
// core's persistence hooks specify.
type Event struct {
	EventID    uuid.UUID `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	EventType  EventType `json:"event_type"`
	Role       string    `json:"role"`
	Tenant     string    `json:"tenant,omitempty"`
	Action     string    `json:"action"`
	SQL        string    `json:"sql,omitempty"`
	RowCount   int       `json:"row_count,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
	DryRun     bool      `json:"dry_run,omitempty"`
	ApprovalID string    `json:"approval_id,omitempty"`
	Approver   string    `json:"approver,omitempty"`
}

// Sink optionally mirrors events somewhere durable. Put must not block
// the caller for long; Logger.Record fires it on its own goroutine so a
// slow or unavailable sink never stalls the gateway request path.
type Sink interface {
	Put(ctx context.Context, event Event) error
}

// Logger is the in-memory, bounded audit trail every gateway request
// writes to. It keeps the last maxEvents records for local inspection
// (via Recent) and always emits a structured zerolog
// line regardless of whether a durable Sink is configured.
type Logger struct {
	logger    zerolog.Logger
	sink      Sink
	mu        sync.RWMutex
	events    []Event
	maxEvents int
}

// NewLogger constructs a Logger. sink may be nil for log-only operation.
func NewLogger(logger zerolog.Logger, sink Sink) *Logger {
	return &Logger{logger: logger, sink: sink, maxEvents: 10000}
}

// Record appends event to the in-memory ring, emits it to the
// structured logger, and — if a sink is configured — mirrors it
// asynchronously so the sink can never add latency to the caller.
func (l *Logger) Record(ctx context.Context, event Event) {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	l.mu.Lock()
	if len(l.events) >= l.maxEvents {
		l.events = l.events[1:]
	}
	l.events = append(l.events, event)
	l.mu.Unlock()

	logLine := l.logger.Info().
		Str("event_id", event.EventID.String()).
		Str("event_type", string(event.EventType)).
		Str("role", event.Role).
		Str("action", event.Action)
	if event.Tenant != "" {
		logLine = logLine.Str("tenant", event.Tenant)
	}
	if event.RowCount > 0 {
		logLine = logLine.Int("row_count", event.RowCount)
	}
	if event.DurationMS > 0 {
		logLine = logLine.Int64("duration_ms", event.DurationMS)
	}
	if event.DryRun {
		logLine = logLine.Bool("dry_run", true)
	}
	if event.ApprovalID != "" {
		logLine = logLine.Str("approval_id", event.ApprovalID)
	}
	if event.Error != "" {
		logLine = logLine.Str("error", event.Error)
	}
	logLine.Msg("audit event")

	if l.sink != nil {
		go func() {
			if err := l.sink.Put(ctx, event); err != nil {
				l.logger.Warn().Err(err).Str("event_id", event.EventID.String()).Msg("audit sink write failed")
			}
		}()
	}
}

// Recent returns up to limit most-recently-recorded events, newest
// first.
func (l *Logger) Recent(limit int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Event, limit)
	for i := 0; i < limit; i++ {
		out[i] = l.events[n-1-i]
	}
	return out
}
