// Package toolgateway implements the Tool Gateway: a JSON-RPC surface,
// reachable over stdio or HTTP, that exposes the Tool Generator's
// per-role bundle and dispatches calls through the Validator, the
// Approval Store, and the same RLS Injector the SQL Gateway uses.
package toolgateway

import "encoding/json"

// Request is one JSON-RPC 2.0 request object. Newline-delimited over
// stdio, one per HTTP POST body.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is one JSON-RPC 2.0 response object; exactly one of Result
// or Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object. Code follows the JSON-RPC
// reserved ranges for protocol-level failures; domain denials (table
// not in role, pattern mismatch, and so on) are carried as -32000 with
// the denial's discriminated kind in Data.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeToolNotFound   = -32001
	codeDenied         = -32000
)

func newResponse(id json.RawMessage, result interface{}) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

func newErrorResponse(id json.RawMessage, code int, message string, data interface{}) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message, Data: data}}
}

// InitializeResult is the capabilities handshake response.
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
	Capabilities    map[string]any `json:"capabilities"`
}

// ServerInfo identifies this Tool Gateway implementation.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsListResult is the tools/list response body.
type ToolsListResult struct {
	Tools []ToolDefinition `json:"tools"`
}

// ToolsCallParams is the tools/call request body.
type ToolsCallParams struct {
	Name       string                 `json:"name"`
	Arguments  map[string]interface{} `json:"arguments"`
	Options    CallOptions            `json:"options,omitempty"`
	ApprovalID string                 `json:"approvalId,omitempty"`
}

// CallOptions carries per-call execution flags.
type CallOptions struct {
	DryRun bool `json:"dryRun,omitempty"`
}
