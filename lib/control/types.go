package control

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC 2.0 error codes.
// Reference: https://www.jsonrpc.org/specification
const (
	// Standard JSON-RPC 2.0 error codes
	ErrCodeParseError     = -32700 // Invalid JSON received by server
	ErrCodeInvalidRequest = -32600 // JSON is not a valid Request object
	ErrCodeMethodNotFound = -32601 // Method does not exist
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal JSON-RPC error

	// Agent-specific error codes
	// Using -32000 to -32099 range (reserved for implementation-defined errors)
	ErrCodeAuthRequired = -32000 // Authentication token required
	ErrCodeAuthFailed   = -32001 // Authentication failed (invalid password)
	ErrCodeNotImpl      = -32002 // Method not yet implemented
	ErrCodeRateLimited  = -32005 // Request rate limit exceeded
)

// Request represents a JSON-RPC 2.0 request.
//
// A request carries four properties:
//   - jsonrpc: must be exactly "2.0"
//   - method: name of the method to invoke
//   - params: parameters for the method (may be omitted)
//   - id: request identifier; omitted for notifications
type Request struct {
	// JSONRPC is the protocol version, always "2.0"
	JSONRPC string `json:"jsonrpc"`

	// ID is the request identifier established by the client.
	// String, number, or null. Omitted for notifications.
	ID interface{} `json:"id,omitempty"`

	// Method is the name of the method to invoke
	Method string `json:"method"`

	// Params holds the method parameters. Kept as json.RawMessage so each
	// handler parses only what it needs.
	Params json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
// Exactly one of Result and Error is set.
type Response struct {
	// JSONRPC is the protocol version, always "2.0"
	JSONRPC string `json:"jsonrpc"`

	// ID echoes the request identifier. Null when the request ID could not
	// be determined (parse errors).
	ID interface{} `json:"id"`

	// Result holds the method result on success
	Result interface{} `json:"result,omitempty"`

	// Error holds the error object on failure
	Error *RPCError `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	// Code indicates the error type.
	// Standard codes: -32700 to -32603. Implementation-defined: -32000 to -32099.
	Code int `json:"code"`

	// Message is a short, single-sentence description of the error
	Message string `json:"message"`

	// Data carries optional additional error context
	Data interface{} `json:"data,omitempty"`
}

// Error implements the error interface so an RPCError can travel through
// ordinary Go error returns.
func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("JSON-RPC error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

// ParseRequest parses a JSON-RPC 2.0 request from raw bytes.
//
// Validation performed:
//   - valid JSON structure
//   - "jsonrpc" field equals "2.0"
//   - "method" field is present and non-empty
//
// The ID field is optional (omitted for notifications) and the params field
// is optional (treated as empty if omitted).
func ParseRequest(data []byte) (*Request, error) {
	if len(data) == 0 {
		return nil, &RPCError{
			Code:    ErrCodeParseError,
			Message: "empty request",
		}
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &RPCError{
			Code:    ErrCodeParseError,
			Message: "invalid JSON",
			Data:    err.Error(),
		}
	}

	if req.JSONRPC != "2.0" {
		return nil, &RPCError{
			Code:    ErrCodeInvalidRequest,
			Message: "invalid JSON-RPC version",
			Data:    fmt.Sprintf("expected \"2.0\", got %q", req.JSONRPC),
		}
	}

	if req.Method == "" {
		return nil, &RPCError{
			Code:    ErrCodeInvalidRequest,
			Message: "missing method name",
		}
	}

	return &req, nil
}

// IsNotification reports whether this request is a notification (no ID).
// The server must not reply to notifications.
func (r *Request) IsNotification() bool {
	return r.ID == nil
}

// Marshal serializes the response to JSON.
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// NewSuccessResponse creates a successful JSON-RPC response carrying result.
func NewSuccessResponse(id interface{}, result interface{}) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
}

// NewErrorResponse creates an error JSON-RPC response.
func NewErrorResponse(id interface{}, err *RPCError) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   err,
	}
}

// NewRPCError creates an RPCError with the given code and message.
func NewRPCError(code int, message string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
	}
}

// NewRPCErrorWithData creates an RPCError with additional context data.
func NewRPCErrorWithData(code int, message string, data interface{}) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}
