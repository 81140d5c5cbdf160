package sqlgateway

import (
	"context"
	"fmt"

	"github.com/cori-do/cori-sub001/internal/catalog"
	"github.com/cori-do/cori-sub001/internal/tracing"
	"github.com/jackc/pgx/v5/pgproto3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = tracing.Tracer("cori/sqlgateway")

// handleQuery processes one simple-query-protocol statement: reject
// multi-statement input, classify as schema query or regular
// statement, and either synthesize a catalog result or run it through
// the RLS Injector before forwarding to upstream. The session always
// ends back in ReadyForQuery, matching the wire contract that only
// Internal/IoError tears down the connection.
func (s *Server) handleQuery(ctx context.Context, backend *pgproto3.Backend, session *Session, sql string) {
	tenant := ""
	if session.Verified.Tenant != nil {
		tenant = *session.Verified.Tenant
	}
	ctx, span := tracer.Start(ctx, "sqlgateway.handleQuery", trace.WithAttributes(
		attribute.String("cori.role", session.Verified.Role),
		attribute.String("cori.tenant", tenant),
	))
	defer span.End()
	defer func() {
		backend.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
		backend.Flush()
	}()

	stmts, err := s.analyzer.Parse(sql)
	if err != nil {
		backend.Send(errorResponse("42601", err.Error()))
		return
	}
	if len(stmts) == 0 {
		backend.Send(commandComplete(0))
		return
	}
	if len(stmts) > 1 {
		backend.Send(errorResponse("42601", "multiple statements in a single query are not allowed"))
		return
	}
	stmt := stmts[0]

	if view, ok := catalog.IsSchemaQuery(stmt); ok {
		s.serveCatalog(backend, session, view)
		return
	}

	result, err := s.injector.Inject(sql, tenant)
	if err != nil {
		backend.Send(errorResponse("42501", err.Error()))
		return
	}

	s.forwardUpstream(ctx, backend, result.RewrittenSQL)
}

func errorResponse(code, message string) *pgproto3.ErrorResponse {
	return &pgproto3.ErrorResponse{Severity: "ERROR", Code: code, Message: message}
}

func (s *Server) serveCatalog(backend *pgproto3.Backend, session *Session, view string) {
	docs := s.docs.Snapshot()
	result, err := catalog.Synthesize(view, session.Grant, docs, s.catalogCfg, nil)
	if err != nil {
		backend.Send(errorResponse("42P01", err.Error()))
		return
	}
	backend.Send(catalogRowDescription(result))
	for _, row := range catalogDataRows(result) {
		backend.Send(row)
	}
	backend.Send(commandComplete(len(result.Rows)))
	backend.Flush()
}

func (s *Server) forwardUpstream(ctx context.Context, backend *pgproto3.Backend, sql string) {
	rows, err := s.upstream.Query(ctx, sql)
	if err != nil {
		backend.Send(errorResponse("08006", err.Error()))
		return
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	rd := make([]pgproto3.FieldDescription, 0, len(fields))
	for _, f := range fields {
		rd = append(rd, pgproto3.FieldDescription{
			Name:         []byte(f.Name),
			DataTypeOID:  f.DataTypeOID,
			DataTypeSize: f.DataTypeSize,
			TypeModifier: f.TypeModifier,
			Format:       0,
		})
	}
	backend.Send(&pgproto3.RowDescription{Fields: rd})

	count := 0
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			backend.Send(errorResponse("XX000", err.Error()))
			backend.Flush()
			return
		}
		data := make([][]byte, len(values))
		for i, v := range values {
			if v == nil {
				data[i] = nil
				continue
			}
			data[i] = []byte(toText(v))
		}
		backend.Send(&pgproto3.DataRow{Values: data})
		count++
	}
	if err := rows.Err(); err != nil {
		backend.Send(errorResponse("XX000", err.Error()))
		backend.Flush()
		return
	}
	backend.Send(commandComplete(count))
	backend.Flush()
}

func toText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
