package control

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-otbr/go-otbr/lib/util/logger"
)

// RPCHandler is the interface RPC method handlers implement. Handle receives
// the request context and the raw "params" field, and returns the method
// result or an error (ideally a *RPCError so the wire error is well formed).
type RPCHandler interface {
	Handle(ctx context.Context, params json.RawMessage) (interface{}, error)
}

// RPCHandlerFunc is a function adapter for RPCHandler, so simple functions
// can serve as handlers without a dedicated type.
type RPCHandlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Handle calls the underlying function.
func (f RPCHandlerFunc) Handle(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return f(ctx, params)
}

// MethodRegistry maps method names to handlers and dispatches requests.
// Thread-safe for concurrent registration and dispatch.
type MethodRegistry struct {
	handlers map[string]RPCHandler
	mu       sync.RWMutex
}

// NewMethodRegistry creates an empty method registry.
func NewMethodRegistry() *MethodRegistry {
	return &MethodRegistry{
		handlers: make(map[string]RPCHandler),
	}
}

// Register adds a handler for the given method name, replacing any existing
// handler for that method.
func (mr *MethodRegistry) Register(method string, handler RPCHandler) {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	mr.handlers[method] = handler

	log.WithFields(logger.Fields{
		"at":     "MethodRegistry.Register",
		"method": method,
	}).Debug("registered RPC method")
}

// Unregister removes the handler for the given method name, if any.
func (mr *MethodRegistry) Unregister(method string) {
	mr.mu.Lock()
	defer mr.mu.Unlock()

	delete(mr.handlers, method)

	log.WithFields(logger.Fields{
		"at":     "MethodRegistry.Unregister",
		"method": method,
	}).Debug("unregistered RPC method")
}

// IsRegistered reports whether a handler exists for the given method.
func (mr *MethodRegistry) IsRegistered(method string) bool {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	_, exists := mr.handlers[method]
	return exists
}

// ListMethods returns the registered method names in no particular order.
func (mr *MethodRegistry) ListMethods() []string {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	methods := make([]string, 0, len(mr.handlers))
	for method := range mr.handlers {
		methods = append(methods, method)
	}
	return methods
}

// MethodCount returns the number of registered methods.
func (mr *MethodRegistry) MethodCount() int {
	mr.mu.RLock()
	defer mr.mu.RUnlock()

	return len(mr.handlers)
}

// Dispatch invokes the handler for the given method with the provided
// parameters. Returns an RPCError with ErrCodeMethodNotFound if the method
// is not registered; handler errors that are not already *RPCError are
// wrapped as ErrCodeInternalError.
func (mr *MethodRegistry) Dispatch(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	mr.mu.RLock()
	handler, exists := mr.handlers[method]
	mr.mu.RUnlock()

	if !exists {
		log.WithFields(logger.Fields{
			"at":     "MethodRegistry.Dispatch",
			"method": method,
			"reason": "method_not_found",
		}).Warn("attempted to call unregistered method")

		return nil, &RPCError{
			Code:    ErrCodeMethodNotFound,
			Message: fmt.Sprintf("method %q not found", method),
		}
	}

	log.WithFields(logger.Fields{
		"at":     "MethodRegistry.Dispatch",
		"method": method,
	}).Debug("dispatching RPC method")

	result, err := handler.Handle(ctx, params)
	if err != nil {
		if rpcErr, ok := err.(*RPCError); ok {
			return nil, rpcErr
		}

		log.WithFields(logger.Fields{
			"at":     "MethodRegistry.Dispatch",
			"method": method,
			"error":  err.Error(),
		}).Error("method handler returned error")

		return nil, &RPCError{
			Code:    ErrCodeInternalError,
			Message: "internal error",
			Data:    err.Error(),
		}
	}

	return result, nil
}

// HandleRequest processes a complete JSON-RPC request: parse, dispatch,
// respond. It never returns a Go error; all failures are encoded as JSON-RPC
// error responses. Notifications (requests without an ID) are dispatched but
// yield a nil response.
func (mr *MethodRegistry) HandleRequest(ctx context.Context, requestData []byte) *Response {
	req, err := ParseRequest(requestData)
	if err != nil {
		// Parse error: respond with a null ID since the request ID is unknown
		if rpcErr, ok := err.(*RPCError); ok {
			return NewErrorResponse(nil, rpcErr)
		}
		return NewErrorResponse(nil, NewRPCError(ErrCodeParseError, err.Error()))
	}

	return mr.HandleParsedRequest(ctx, req)
}

// HandleParsedRequest processes an already-parsed request. This avoids
// double parsing when the caller has parsed the request for authentication.
func (mr *MethodRegistry) HandleParsedRequest(ctx context.Context, req *Request) *Response {
	if req.IsNotification() {
		log.WithFields(logger.Fields{
			"at":     "MethodRegistry.HandleParsedRequest",
			"method": req.Method,
		}).Debug("received notification (no response will be sent)")

		// Still dispatch the method, but don't return a response
		_, _ = mr.Dispatch(ctx, req.Method, req.Params)
		return nil
	}

	result, err := mr.Dispatch(ctx, req.Method, req.Params)
	if err != nil {
		if rpcErr, ok := err.(*RPCError); ok {
			return NewErrorResponse(req.ID, rpcErr)
		}
		return NewErrorResponse(req.ID, NewRPCError(ErrCodeInternalError, err.Error()))
	}

	return NewSuccessResponse(req.ID, result)
}
