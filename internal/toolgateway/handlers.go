package toolgateway

import (
	"context"
	"encoding/json"

	"github.com/cori-do/cori-sub001/internal/approval"
	"github.com/cori-do/cori-sub001/internal/rls"
	"github.com/cori-do/cori-sub001/internal/validator"
)

const protocolVersion = "2025-03-26"

// Handle dispatches one JSON-RPC request and always returns a
// Response — errors are carried in Response.Error, never as a Go error,
// so transports can serialize the result unconditionally.
func (d *Dispatcher) Handle(ctx context.Context, session validator.Session, req Request) Response {
	switch req.Method {
	case "initialize":
		return newResponse(req.ID, InitializeResult{
			ProtocolVersion: protocolVersion,
			ServerInfo:      ServerInfo{Name: "cori-tool-gateway", Version: "0.1.0"},
			Capabilities:    map[string]any{"tools": map[string]any{}},
		})
	case "tools/list":
		return d.handleToolsList(req, session)
	case "tools/call":
		return d.handleToolsCall(ctx, req, session)
	default:
		return newErrorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method, nil)
	}
}

func (d *Dispatcher) handleToolsList(req Request, session validator.Session) Response {
	bundle, err := d.BundleFor(session.Role)
	if err != nil {
		return newErrorResponse(req.ID, codeInvalidRequest, err.Error(), nil)
	}
	defs := make([]ToolDefinition, len(bundle.Tools))
	for i, t := range bundle.Tools {
		defs[i] = toDefinition(t)
	}
	return newResponse(req.ID, ToolsListResult{Tools: defs})
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, req Request, session validator.Session) Response {
	var params ToolsCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return newErrorResponse(req.ID, codeInvalidParams, "invalid params: "+err.Error(), nil)
	}

	result, err := d.Call(ctx, session, params)
	if err != nil {
		return errToResponse(req.ID, err)
	}

	switch result.Kind {
	case ResultPendingApproval:
		return newResponse(req.ID, map[string]any{
			"status":     "pending_approval",
			"approvalId": result.ApprovalID,
			"expiresAt":  result.ExpiresAt,
		})
	case ResultDryRun:
		return newResponse(req.ID, map[string]any{
			"status":  "dry_run",
			"sql":     result.DryRunSQL,
			"preview": result.DryRunPreview,
		})
	default:
		return newResponse(req.ID, map[string]any{
			"status": "executed",
			"rows":   result.Rows,
		})
	}
}

// errToResponse maps the core's discriminated error kinds onto a
// JSON-RPC error object, carrying the kind and any field in Data so a
// client can branch on it without string-matching the message.
func errToResponse(id json.RawMessage, err error) Response {
	switch e := err.(type) {
	case *ToolNotFoundError:
		return newErrorResponse(id, codeToolNotFound, e.Error(), map[string]any{"name": e.Name})
	case *validator.Error:
		return newErrorResponse(id, codeDenied, e.Error(), map[string]any{"kind": string(e.Kind), "field": e.Field})
	case *rls.Error:
		return newErrorResponse(id, codeDenied, e.Error(), map[string]any{"kind": string(e.Kind)})
	case *approval.Error:
		return newErrorResponse(id, codeDenied, e.Error(), map[string]any{"kind": string(e.Kind), "id": e.ID})
	default:
		return newErrorResponse(id, codeDenied, err.Error(), nil)
	}
}
