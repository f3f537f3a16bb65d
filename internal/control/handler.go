// Package control implements the local control plane: JSON-RPC 2.0 over a
// Unix domain socket, exposing element handlers and graph statistics.
package control

import (
	"encoding/json"
	"errors"
	"fmt"

	"firestige.xyz/pktgraph/internal/core"
	"firestige.xyz/pktgraph/internal/element"
	"firestige.xyz/pktgraph/internal/graph"
	"firestige.xyz/pktgraph/internal/log"
)

// Target is the graph surface the control plane drives.
type Target interface {
	ReadHandler(name string) (string, error)
	WriteHandler(name, value string) error
	Handlers() []element.HandlerInfo
	Stats() []graph.ElementStats
}

// Method names.
const (
	MethodHandlerList  = "handler_list"
	MethodHandlerRead  = "handler_read"
	MethodHandlerWrite = "handler_write"
	MethodGraphStats   = "graph_stats"
)

// Request is one control command.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     any             `json:"id"`
}

// Response answers a Request.
type Response struct {
	ID     any        `json:"id"`
	Result any        `json:"result,omitempty"`
	Error  *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo represents an error in the response.
type ErrorInfo struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorInfo) Error() string {
	return fmt.Sprintf("control error %d: %s", e.Code, e.Message)
}

// Error codes
const (
	ErrCodeParseError     = -32700 // Invalid JSON
	ErrCodeInvalidRequest = -32600 // Invalid request object
	ErrCodeMethodNotFound = -32601 // Method not found
	ErrCodeInvalidParams  = -32602 // Invalid method parameters
	ErrCodeInternalError  = -32603 // Internal error

	ErrCodeHandlerNotFound = -32001
	ErrCodeHandlerAccess   = -32002 // not readable or not writable
	ErrCodeConfigInvalid   = -32003
	ErrCodeGraphStopped    = -32004
)

// HandlerParams names a handler, and carries a value for writes.
type HandlerParams struct {
	Handler string `json:"handler"`
	Value   string `json:"value,omitempty"`
}

// StatsResult is the graph_stats result.
type StatsResult struct {
	Elements []graph.ElementStats `json:"elements"`
	Runner   *graph.RunnerStats   `json:"runner,omitempty"`
}

// Handler dispatches control requests to a Target.
type Handler struct {
	target      Target
	runnerStats func() graph.RunnerStats
	logger      log.Logger
}

func NewHandler(target Target) *Handler {
	return &Handler{
		target: target,
		logger: log.GetLogger().WithField("component", "control"),
	}
}

// SetRunnerStats adds runner counters to graph_stats.
func (h *Handler) SetRunnerStats(fn func() graph.RunnerStats) {
	h.runnerStats = fn
}

// Handle processes a request and returns a response.
func (h *Handler) Handle(req Request) Response {
	h.logger.WithField("method", req.Method).Debug("handling command")

	switch req.Method {
	case MethodHandlerList:
		return Response{ID: req.ID, Result: h.target.Handlers()}
	case MethodHandlerRead:
		return h.handleRead(req)
	case MethodHandlerWrite:
		return h.handleWrite(req)
	case MethodGraphStats:
		res := StatsResult{Elements: h.target.Stats()}
		if h.runnerStats != nil {
			rs := h.runnerStats()
			res.Runner = &rs
		}
		return Response{ID: req.ID, Result: res}
	default:
		return errorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func (h *Handler) params(req Request) (HandlerParams, *ErrorInfo) {
	var p HandlerParams
	if len(req.Params) == 0 {
		return p, &ErrorInfo{Code: ErrCodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return p, &ErrorInfo{Code: ErrCodeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	if p.Handler == "" {
		return p, &ErrorInfo{Code: ErrCodeInvalidParams, Message: "handler is required"}
	}
	return p, nil
}

func (h *Handler) handleRead(req Request) Response {
	p, e := h.params(req)
	if e != nil {
		return Response{ID: req.ID, Error: e}
	}
	v, err := h.target.ReadHandler(p.Handler)
	if err != nil {
		return Response{ID: req.ID, Error: toErrorInfo(err)}
	}
	return Response{ID: req.ID, Result: v}
}

func (h *Handler) handleWrite(req Request) Response {
	p, e := h.params(req)
	if e != nil {
		return Response{ID: req.ID, Error: e}
	}
	if err := h.target.WriteHandler(p.Handler, p.Value); err != nil {
		h.logger.WithField("handler", p.Handler).WithError(err).Warn("handler write failed")
		return Response{ID: req.ID, Error: toErrorInfo(err)}
	}
	h.logger.WithField("handler", p.Handler).WithField("value", p.Value).Info("handler written")
	return Response{ID: req.ID, Result: "ok"}
}

func errorResponse(id any, code int, msg string) Response {
	return Response{ID: id, Error: &ErrorInfo{Code: code, Message: msg}}
}

func toErrorInfo(err error) *ErrorInfo {
	code := ErrCodeInternalError
	switch {
	case errors.Is(err, core.ErrHandlerNotFound):
		code = ErrCodeHandlerNotFound
	case errors.Is(err, core.ErrHandlerNotReadable), errors.Is(err, core.ErrHandlerNotWritable):
		code = ErrCodeHandlerAccess
	case errors.Is(err, core.ErrConfigInvalid):
		code = ErrCodeConfigInvalid
	case errors.Is(err, core.ErrGraphStopped):
		code = ErrCodeGraphStopped
	}
	return &ErrorInfo{Code: code, Message: err.Error()}
}
