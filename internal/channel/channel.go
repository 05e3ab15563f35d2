// Package channel carries method calls over a stream of newline-terminated
// JSON messages.
//
// Request:  {"id": ..., "method": "query", "arguments": {...}}
// Response: {"id": ..., "status": "success", "result": ...}
//
//	{"id": ..., "status": "error", "error": {"code": ..., "message": ..., "details": ...}}
//	{"id": ..., "status": "not_implemented"}
//
// Responses may be written out of order when more than one call is in flight;
// callers correlate them by id. A request without an id is given one.
package channel

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/sqlbridge/internal/plugin"
	"github.com/roach88/sqlbridge/internal/value"
)

// MaxMessageSize bounds a single request line.
const MaxMessageSize = 64 << 20

// Status values of a response.
const (
	StatusSuccess        = "success"
	StatusError          = "error"
	StatusNotImplemented = "not_implemented"
)

// Request is one decoded call.
type Request struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Response is one encoded reply.
type Response struct {
	ID     json.RawMessage `json:"id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody describes an error response.
type ErrorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Handler serves decoded calls. Implemented by *plugin.Plugin.
type Handler interface {
	HandleMethodCall(ctx context.Context, call plugin.MethodCall) plugin.Reply
}

// IDGenerator names requests that arrive without an id.
type IDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Options configures Serve.
type Options struct {
	// MaxInFlight bounds concurrently running calls. Zero or one runs
	// calls strictly in arrival order.
	MaxInFlight int
	// IDs names requests without an id. Defaults to UUIDv7.
	IDs    IDGenerator
	Logger *slog.Logger
}

// Serve reads requests from r until EOF or ctx is done, dispatches them to h
// and writes responses to w. It returns after every dispatched call has been
// answered.
func Serve(ctx context.Context, r io.Reader, w io.Writer, h Handler, opts Options) error {
	if opts.IDs == nil {
		opts.IDs = uuidGenerator{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	limit := opts.MaxInFlight
	if limit < 1 {
		limit = 1
	}

	out := &writer{w: w}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	defer wg.Wait()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			opts.Logger.Warn("malformed request", "error", err)
			out.write(errorResponse(quoteID(opts.IDs.Generate()), plugin.CodeBadParam,
				fmt.Sprintf("malformed request: %v", err)))
			continue
		}
		if len(req.ID) == 0 || string(req.ID) == "null" {
			req.ID = quoteID(opts.IDs.Generate())
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			defer func() { <-sem }()
			out.write(Dispatch(ctx, h, req))
		}(req)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

// Dispatch runs one request through h and builds its response.
func Dispatch(ctx context.Context, h Handler, req Request) Response {
	var args value.Value
	if len(req.Arguments) > 0 {
		v, err := value.Unmarshal(req.Arguments)
		if err != nil {
			return errorResponse(req.ID, plugin.CodeBadParam, fmt.Sprintf("malformed arguments: %v", err))
		}
		args = v
	}
	return Encode(req.ID, h.HandleMethodCall(ctx, plugin.MethodCall{Method: req.Method, Arguments: args}))
}

// Encode converts a reply into a response.
func Encode(id json.RawMessage, reply plugin.Reply) Response {
	switch reply.Kind {
	case plugin.ReplySuccess:
		resp := Response{ID: id, Status: StatusSuccess}
		if reply.Value != nil {
			data, err := value.Marshal(reply.Value)
			if err != nil {
				return errorResponse(id, plugin.CodeSQLError, fmt.Sprintf("encode result: %v", err))
			}
			resp.Result = data
		}
		return resp
	case plugin.ReplyError:
		resp := errorResponse(id, reply.Code, reply.Message)
		if reply.Details != nil {
			if data, err := value.Marshal(reply.Details); err == nil {
				resp.Error.Details = data
			}
		}
		return resp
	default:
		return Response{ID: id, Status: StatusNotImplemented}
	}
}

func errorResponse(id json.RawMessage, code, message string) Response {
	return Response{
		ID:     id,
		Status: StatusError,
		Error:  &ErrorBody{Code: code, Message: message},
	}
}

func quoteID(id string) json.RawMessage {
	data, _ := json.Marshal(id)
	return data
}

// writer serializes whole response lines.
type writer struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *writer) write(resp Response) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		buf.Reset()
		buf.WriteString(`{"id":null,"status":"error","error":{"code":"sqlite_error","message":"encode response"}}` + "\n")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = w.w.Write(buf.Bytes())
}
