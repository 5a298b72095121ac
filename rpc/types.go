// Package rpc exposes ledger state via a JSON-RPC 2.0 HTTP endpoint.
package rpc

import (
	"encoding/json"
	"errors"

	"github.com/tolelom/tolarena/core"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Standard JSON-RPC error codes, plus server-defined codes in -32000..-32099.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeUnauthorized   = -32000
	CodeNotFound       = -32004
	CodeTxRejected     = -32010
)

func errResponse(id any, code int, msg string) Response {
	return Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: msg},
	}
}

// stateErrResponse classifies a state read error.
func stateErrResponse(id any, err error) Response {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return errResponse(id, CodeNotFound, err.Error())
	case errors.Is(err, core.ErrValidation):
		return errResponse(id, CodeInvalidParams, err.Error())
	}
	return errResponse(id, CodeInternalError, err.Error())
}

func okResponse(id, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}
