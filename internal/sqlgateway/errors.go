package sqlgateway

import "fmt"

// Kind discriminates SQL Gateway session-level failures.
type Kind string

const (
	KindAuthFailed   Kind = "auth_failed"
	KindMultiStatement Kind = "multi_statement_not_allowed"
)

// Error is the typed error the gateway surfaces as a PostgreSQL
// ErrorResponse.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("sqlgateway: %s: %s", e.Kind, e.Message)
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
