// Package sqlgateway implements the SQL Gateway (C8): a PostgreSQL
// wire-protocol v3 proxy that authenticates connections with a
// capability token, then routes every statement through the SQL
// Analyzer and either the Virtual Catalog or the RLS Injector before
// it ever reaches the upstream database.
package sqlgateway

import (
	"net"

	"github.com/cori-do/cori-sub001/internal/catalog"
	"github.com/cori-do/cori-sub001/internal/token"
)

// Session is the state pinned to one accepted connection once
// authentication succeeds: the verified token's role and tenant, plus
// the catalog grant derived from the role's permissions.
type Session struct {
	Conn       net.Conn
	Verified   token.VerifiedToken
	Grant      catalog.Grant
	RemoteAddr string
}
