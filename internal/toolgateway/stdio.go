package toolgateway

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/cori-do/cori-sub001/internal/token"
	"github.com/cori-do/cori-sub001/internal/validator"
	"github.com/rs/zerolog"
)

// ServeStdio runs the Tool Gateway over newline-delimited JSON on r/w
// for a single session pinned to the role and tenant of token verified
// once at startup, per the stdio transport's "one token, one session"
// contract.
func ServeStdio(ctx context.Context, logger zerolog.Logger, dispatcher *Dispatcher, verifier *token.Verifier, encodedToken string, r io.Reader, w io.Writer) error {
	verified, err := verifier.Verify(encodedToken)
	if err != nil {
		return err
	}
	if err := token.RequireAgentToken(verified); err != nil {
		return err
	}
	session := validator.Session{Role: verified.Role}
	if verified.Tenant != nil {
		session.Tenant = *verified.Tenant
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			resp := newErrorResponse(nil, codeParseError, "parse error: "+err.Error(), nil)
			if encErr := enc.Encode(resp); encErr != nil {
				return encErr
			}
			continue
		}
		resp := dispatcher.Handle(ctx, session, req)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		logger.Debug().Str("method", req.Method).Msg("tool gateway: handled stdio request")
	}
	return scanner.Err()
}
