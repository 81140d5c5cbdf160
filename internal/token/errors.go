package token

import "fmt"

// Kind discriminates token-related failures so callers (the SQL and Tool
// gateways) can map them onto distinct wire-level error codes without
// string matching.
type Kind string

const (
	KindInvalidSignature  Kind = "invalid_signature"
	KindMalformedToken    Kind = "malformed_token"
	KindExpired           Kind = "expired"
	KindMissingRoleClaim  Kind = "missing_role_claim"
	KindMissingTenantClaim Kind = "missing_tenant_claim"
)

// Error is the typed error returned by every Token Authority operation
// that can fail.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("token: %s: %s", e.Kind, e.Message)
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var te *Error
	if ok := asTokenError(err, &te); ok {
		return te.Kind, true
	}
	return "", false
}

func asTokenError(err error, target **Error) bool {
	for err != nil {
		if te, ok := err.(*Error); ok {
			*target = te
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
