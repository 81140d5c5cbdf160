package sqlgateway

import (
	"context"
	"net"

	"github.com/cori-do/cori-sub001/internal/catalog"
	"github.com/cori-do/cori-sub001/internal/docmodel"
	"github.com/cori-do/cori-sub001/internal/rls"
	"github.com/cori-do/cori-sub001/internal/sqlparse"
	"github.com/cori-do/cori-sub001/internal/token"
	"github.com/jackc/pgx/v5/pgproto3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Server is the SQL Gateway: it accepts PostgreSQL wire-protocol v3
// connections, authenticates each with a capability token presented as
// the cleartext password, and routes every statement through the
// Virtual Catalog or the RLS Injector before it reaches upstream.
type Server struct {
	logger      zerolog.Logger
	verifier    *token.Verifier
	docs        *docmodel.Store
	upstream    *pgxpool.Pool
	analyzer    *sqlparse.Analyzer
	injector    *rls.Injector
	catalogCfg  catalog.Config
}

// New constructs a Server. upstream is the pooled connection to the
// real PostgreSQL instance every accepted statement is (conditionally)
// forwarded to.
func New(logger zerolog.Logger, verifier *token.Verifier, docs *docmodel.Store, upstream *pgxpool.Pool, catalogCfg catalog.Config) *Server {
	return &Server{
		logger:     logger,
		verifier:   verifier,
		docs:       docs,
		upstream:   upstream,
		analyzer:   sqlparse.NewAnalyzer(),
		injector:   rls.NewInjector(docs),
		catalogCfg: catalogCfg,
	}
}

// Serve accepts connections on ln until ctx is cancelled, handling each
// on its own goroutine — the M:N task-per-connection model the rest of
// the core's concurrency section describes, mapped onto Go's scheduler.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	backend := pgproto3.NewBackend(conn, conn)

	session, err := s.authenticate(backend, remote)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", remote).Msg("sql gateway: authentication failed")
		sendError(backend, err)
		return
	}
	session.Conn = conn

	if err := backend.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'}); err != nil {
		return
	}
	if err := backend.Flush(); err != nil {
		return
	}

	s.logger.Info().Str("remote", remote).Str("role", session.Verified.Role).Msg("sql gateway: session established")

	for {
		msg, err := backend.Receive()
		if err != nil {
			return
		}
		switch m := msg.(type) {
		case *pgproto3.Query:
			s.handleQuery(ctx, backend, session, m.String)
		case *pgproto3.Terminate:
			return
		default:
			// Extended-query-protocol messages (Parse/Bind/Execute) are
			// out of scope for this gateway's simple-query path; ignore
			// and remain in ReadyForQuery.
			backend.Send(&pgproto3.ReadyForQuery{TxStatus: 'I'})
			backend.Flush()
		}
	}
}

// authenticate performs the StartupMessage/cleartext-password exchange
// and verifies the presented password as a capability token. The
// user/database startup parameters are never trusted for authorization
// — only the verified token's role and tenant are.
func (s *Server) authenticate(backend *pgproto3.Backend, remote string) (*Session, error) {
	startupMsg, err := backend.ReceiveStartupMessage()
	if err != nil {
		return nil, newError(KindAuthFailed, "receive startup message: %v", err)
	}
	if _, ok := startupMsg.(*pgproto3.StartupMessage); !ok {
		return nil, newError(KindAuthFailed, "unexpected startup message %T", startupMsg)
	}

	if err := backend.Send(&pgproto3.AuthenticationCleartextPassword{}); err != nil {
		return nil, newError(KindAuthFailed, "send auth request: %v", err)
	}
	if err := backend.Flush(); err != nil {
		return nil, newError(KindAuthFailed, "flush auth request: %v", err)
	}

	msg, err := backend.Receive()
	if err != nil {
		return nil, newError(KindAuthFailed, "receive password message: %v", err)
	}
	pwd, ok := msg.(*pgproto3.PasswordMessage)
	if !ok {
		return nil, newError(KindAuthFailed, "expected password message, got %T", msg)
	}

	verified, err := s.verifier.Verify(pwd.Password)
	if err != nil {
		return nil, newError(KindAuthFailed, "token verification failed: %s", token.Fingerprint(pwd.Password))
	}
	if err := token.RequireAgentToken(verified); err != nil {
		return nil, newError(KindAuthFailed, "role token rejected: %v", err)
	}

	docs := s.docs.Snapshot()
	role, _ := docs.Role(verified.Role)
	grant := grantFromRole(role, docs)

	if err := backend.Send(&pgproto3.AuthenticationOk{}); err != nil {
		return nil, err
	}
	if err := backend.Send(&pgproto3.BackendKeyData{ProcessID: 0, SecretKey: 0}); err != nil {
		return nil, err
	}

	return &Session{Verified: verified, Grant: grant, RemoteAddr: remote}, nil
}

func grantFromRole(role *docmodel.Role, docs *docmodel.Documents) catalog.Grant {
	grant := catalog.Grant{ReadableColumns: map[string][]string{}}
	if docs != nil {
		grant.AlwaysVisible = docs.AlwaysVisibleTables()
	}
	if role == nil {
		return grant
	}
	for table, perms := range role.Tables {
		if role.IsBlocked(table) {
			continue
		}
		if perms.Readable.Empty() {
			continue
		}
		grant.AccessibleTables = append(grant.AccessibleTables, table)
		if !perms.Readable.All {
			grant.ReadableColumns[table] = perms.Readable.Columns
		}
	}
	return grant
}

func sendError(backend *pgproto3.Backend, err error) {
	backend.Send(&pgproto3.ErrorResponse{
		Severity: "FATAL",
		Code:     "28000",
		Message:  err.Error(),
	})
	backend.Flush()
}
