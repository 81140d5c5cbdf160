package toolgateway

import (
	"context"
	"fmt"
	"time"

	"github.com/cori-do/cori-sub001/internal/approval"
	"github.com/cori-do/cori-sub001/internal/audit"
	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/cori-do/cori-sub001/internal/rls"
	"github.com/cori-do/cori-sub001/internal/sqlsynth"
	"github.com/cori-do/cori-sub001/internal/toolgen"
	"github.com/cori-do/cori-sub001/internal/tracing"
	"github.com/cori-do/cori-sub001/internal/validator"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = tracing.Tracer("cori/toolgateway")

// Upstream is the subset of pgxpool.Pool the dispatcher needs; an
// interface so tests can fake it without a live database.
type Upstream interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Dispatcher resolves tool bundles per role and executes tools/call
// requests against the Validator, Approval Store, SQL synthesizer and
// RLS Injector, in that order.
type Dispatcher struct {
	logger    zerolog.Logger
	docs      *docmodel.Store
	generator *toolgen.Generator
	validator *validator.Validator
	approvals *approval.Store
	injector  *rls.Injector
	upstream  Upstream
	auditLog  *audit.Logger

	bundles map[string]Bundle
}

// NewDispatcher constructs a Dispatcher. upstream may be nil; calls that
// would execute SQL or preview a dry run then return an error, and
// update calls are validated without a current row.
func NewDispatcher(logger zerolog.Logger, docs *docmodel.Store, approvals *approval.Store, upstream Upstream, auditLog *audit.Logger) *Dispatcher {
	return &Dispatcher{
		logger:    logger,
		docs:      docs,
		generator: toolgen.NewGenerator(),
		validator: validator.NewValidator(),
		approvals: approvals,
		injector:  rls.NewInjector(docs),
		upstream:  upstream,
		auditLog:  auditLog,
		bundles:   map[string]Bundle{},
	}
}

// BundleFor resolves (and caches) the tool bundle for a role. HTTP mode
// calls this eagerly for every configured role at startup; stdio mode
// calls it once for the session's pinned role.
func (d *Dispatcher) BundleFor(role string) (Bundle, error) {
	docs := d.docs.Snapshot()
	r, ok := docs.Role(role)
	if !ok {
		return Bundle{}, fmt.Errorf("toolgateway: unknown role %q", role)
	}
	tools, err := d.generator.Generate(docs, r)
	if err != nil {
		return Bundle{}, err
	}
	bundle := newBundle(tools)
	d.bundles[role] = bundle
	return bundle, nil
}

// CallResult is the typed outcome of a tools/call dispatch: Kind selects
// which other fields are meaningful (Rows when executed; ApprovalID and
// ExpiresAt when pending approval; DryRunSQL and DryRunPreview for a dry
// run).
type CallResult struct {
	Kind           CallResultKind
	Rows           []map[string]interface{}
	ApprovalID     string
	ExpiresAt      time.Time
	DryRunSQL      string
	DryRunPreview  string
}

// CallResultKind discriminates the shape of a successful tools/call
// dispatch outcome.
type CallResultKind string

const (
	ResultExecuted        CallResultKind = "executed"
	ResultPendingApproval CallResultKind = "pending_approval"
	ResultDryRun          CallResultKind = "dry_run"
)

// Call dispatches one tools/call request for session against docs.
func (d *Dispatcher) Call(ctx context.Context, session validator.Session, params ToolsCallParams) (CallResult, error) {
	ctx, span := tracer.Start(ctx, "toolgateway.Call", trace.WithAttributes(
		attribute.String("cori.tool", params.Name),
		attribute.String("cori.role", session.Role),
	))
	defer span.End()

	bundle, err := d.BundleFor(session.Role)
	if err != nil {
		span.RecordError(err)
		return CallResult{}, err
	}
	tool, ok := bundle.Lookup(params.Name)
	if !ok {
		err := newToolNotFound(params.Name)
		span.RecordError(err)
		return CallResult{}, err
	}

	docs := d.docs.Snapshot()
	role, _ := docs.Role(session.Role)

	var currentRow map[string]interface{}
	if tool.Operation == toolgen.OpUpdate && d.upstream != nil {
		currentRow, err = d.fetchCurrentRow(ctx, docs, tool, params.Arguments)
		if err != nil {
			return CallResult{}, fmt.Errorf("toolgateway: loading current row: %w", err)
		}
	}

	outcome, err := d.validator.Validate(docs, role, tool, params.Arguments, session, currentRow)
	if err != nil {
		return CallResult{}, err
	}

	if outcome.RequiresApproval && params.ApprovalID == "" {
		req := d.approvals.Create(ctx, approval.CreateInput{
			ToolName:       tool.Name,
			Arguments:      params.Arguments,
			ApprovalFields: outcome.ApprovalFields,
			TenantID:       session.Tenant,
			Role:           session.Role,
		})
		d.recordAudit(ctx, session, tool, "approval_requested", 0, 0, false, req.ID.String())
		return CallResult{Kind: ResultPendingApproval, ApprovalID: req.ID.String(), ExpiresAt: req.ExpiresAt}, nil
	}
	if outcome.RequiresApproval && params.ApprovalID != "" {
		if err := d.consumeApproval(params.ApprovalID); err != nil {
			return CallResult{}, err
		}
	}

	table, _ := docs.Schema.Table(tool.Table)
	columns := readableColumns(role, tool.Table)

	var sql string
	if tool.Operation == toolgen.OpDelete {
		if cfg, ok := docs.SoftDelete(tool.Table); ok {
			sql, err = sqlsynth.SynthesizeSoftDelete(table, params.Arguments, cfg)
		} else {
			sql, err = sqlsynth.Synthesize(tool, table, params.Arguments, columns)
		}
	} else {
		sql, err = sqlsynth.Synthesize(tool, table, params.Arguments, columns)
	}
	if err != nil {
		return CallResult{}, err
	}

	tenant := session.Tenant
	injected, err := d.injector.Inject(sql, tenant)
	if err != nil {
		return CallResult{}, err
	}

	if params.Options.DryRun && tool.Annotations.DryRunSupported {
		preview, err := d.preview(ctx, injected.RewrittenSQL)
		if err != nil {
			return CallResult{}, err
		}
		d.recordAudit(ctx, session, tool, "dry_run", 0, 0, true, params.ApprovalID)
		return CallResult{Kind: ResultDryRun, DryRunSQL: injected.RewrittenSQL, DryRunPreview: preview}, nil
	}

	if d.upstream == nil {
		return CallResult{}, fmt.Errorf("toolgateway: no upstream configured for tool %q", tool.Name)
	}

	start := time.Now()
	rows, err := d.execute(ctx, injected.RewrittenSQL)
	duration := time.Since(start)
	if err != nil {
		d.recordAudit(ctx, session, tool, "execute_failed", 0, duration.Milliseconds(), false, params.ApprovalID)
		return CallResult{}, err
	}
	d.recordAudit(ctx, session, tool, "executed", len(rows), duration.Milliseconds(), false, params.ApprovalID)

	return CallResult{Kind: ResultExecuted, Rows: rows}, nil
}

func (d *Dispatcher) consumeApproval(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("toolgateway: invalid approval id %q: %w", id, err)
	}
	req, err := d.approvals.Get(parsed)
	if err != nil {
		return err
	}
	if req.Status != approval.StatusApproved {
		return fmt.Errorf("toolgateway: approval %s is not approved", id)
	}
	return nil
}

func (d *Dispatcher) fetchCurrentRow(ctx context.Context, docs *docmodel.Documents, tool toolgen.Tool, args map[string]interface{}) (map[string]interface{}, error) {
	table, ok := docs.Schema.Table(tool.Table)
	if !ok {
		return nil, fmt.Errorf("table %q not in schema", tool.Table)
	}
	getTool := tool
	getTool.Operation = toolgen.OpGet
	sql, err := sqlsynth.Synthesize(getTool, table, args, nil)
	if err != nil {
		return nil, err
	}
	rows, err := d.execute(ctx, sql)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (d *Dispatcher) execute(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	rows, err := d.upstream.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]interface{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// preview runs sql inside a transaction that is always rolled back,
// returning a human-readable row-count summary — the "rolled-back
// transaction" preview path for dry-run calls against mutating tools.
func (d *Dispatcher) preview(ctx context.Context, sql string) (string, error) {
	if d.upstream == nil {
		return "", fmt.Errorf("toolgateway: no upstream configured for dry run")
	}
	tx, err := d.upstream.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, sql)
	if err != nil {
		return "", fmt.Errorf("dry run: %w", err)
	}
	return fmt.Sprintf("would affect %d row(s)", tag.RowsAffected()), nil
}

func (d *Dispatcher) recordAudit(ctx context.Context, session validator.Session, tool toolgen.Tool, action string, rowCount int, durationMS int64, dryRun bool, approvalID string) {
	if d.auditLog == nil {
		return
	}
	d.auditLog.Record(ctx, audit.Event{
		EventType:  audit.EventToolCall,
		Role:       session.Role,
		Tenant:     session.Tenant,
		Action:     action,
		RowCount:   rowCount,
		DurationMS: durationMS,
		DryRun:     dryRun,
		ApprovalID: approvalID,
	})
}

func readableColumns(role *docmodel.Role, table string) []string {
	if role == nil {
		return nil
	}
	perms, ok := role.Tables[table]
	if !ok || perms.Readable == nil || perms.Readable.All {
		return nil
	}
	return perms.Readable.Columns
}

// pool is a tiny adapter so *pgxpool.Pool satisfies Upstream without
// every caller needing to know pgx's exact method set.
type pool struct{ *pgxpool.Pool }

// NewPoolUpstream wraps a live connection pool as an Upstream.
func NewPoolUpstream(p *pgxpool.Pool) Upstream { return pool{p} }
