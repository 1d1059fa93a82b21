// Package mcp provides the JSON-RPC tool server for keyscout.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/metric"

	"github.com/thebtf/keyscout/internal/analysis"
	"github.com/thebtf/keyscout/pkg/models"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// ToolAnalyzeKeywords is the name of the only tool the server exposes.
const ToolAnalyzeKeywords = "analyzeKeywords"

// DefaultAgentName identifies the server in ping and initialize responses.
const DefaultAgentName = "keyword-research-agent"

// DefaultMaxMessageBytes bounds a single line-delimited message when no
// limit is configured.
const DefaultMaxMessageBytes = 4 << 20

// Server routes JSON-RPC messages to the keyword analysis tool.
type Server struct {
	stdin         io.Reader
	stdout        io.Writer
	analyzer      *analysis.Analyzer
	metrics       *metrics
	meterProvider metric.MeterProvider
	now           func() time.Time
	agent         string
	version       string
	maxLineBytes  int
}

// ServerOption configures optional Server behavior.
type ServerOption func(*Server)

// WithMeterProvider records request metrics through mp instead of the
// global provider.
func WithMeterProvider(mp metric.MeterProvider) ServerOption {
	return func(s *Server) {
		s.meterProvider = mp
	}
}

// WithMaxMessageBytes caps one line-delimited message. Values <= 0 keep
// DefaultMaxMessageBytes.
func WithMaxMessageBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxLineBytes = int(n)
		}
	}
}

// NewServer creates a new MCP server.
func NewServer(analyzer *analysis.Analyzer, agent, version string, opts ...ServerOption) *Server {
	if analyzer == nil {
		analyzer = analysis.NewAnalyzer(nil)
	}
	if agent == "" {
		agent = DefaultAgentName
	}
	s := &Server{
		stdin:        os.Stdin,
		stdout:       os.Stdout,
		analyzer:     analyzer,
		now:          time.Now,
		agent:        agent,
		version:      version,
		maxLineBytes: DefaultMaxMessageBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(s.meterProvider)
	return s
}

// Request represents a JSON-RPC request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC response.
type Response struct {
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	JSONRPC string `json:"jsonrpc"`
}

// Error represents a JSON-RPC error.
type Error struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ToolCallParams represents parameters for tools/call method.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Tool represents an MCP tool definition.
type Tool struct {
	InputSchema map[string]any `json:"inputSchema"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
}

// Run serves line-delimited JSON-RPC over stdin/stdout until stdin closes.
func (s *Server) Run(ctx context.Context) error {
	return s.ServeStream(ctx, s.stdin, s.stdout)
}

// ServeStream reads one JSON-RPC message per line from r and writes one
// response per line to w. Malformed lines produce a parse error response and
// the stream keeps going. A line longer than the message limit is answered
// with a parse error and ends the stream.
func (s *Server) ServeStream(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, s.maxLineBytes)), s.maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := s.HandleMessage(ctx, line)
		if resp == nil {
			continue
		}
		if err := writeLine(w, resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}

		if ctx.Err() != nil {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			s.metrics.recordError(ctx, CodeParseError)
			resp := errorResponse(nil, CodeParseError, "Parse error",
				fmt.Sprintf("message exceeds %d bytes", s.maxLineBytes))
			if werr := writeLine(w, resp); werr != nil {
				return fmt.Errorf("write response: %w", werr)
			}
		}
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

// HandleMessage decodes a raw message and dispatches it. It returns nil for
// notifications, which get no response.
func (s *Server) HandleMessage(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		log.Debug().Err(err).Msg("Malformed JSON-RPC message")
		s.metrics.recordError(ctx, CodeParseError)
		return errorResponse(nil, CodeParseError, "Parse error", err.Error())
	}
	return s.HandleRequest(ctx, &req)
}

// HandleRequest dispatches the request to the appropriate handler.
func (s *Server) HandleRequest(ctx context.Context, req *Request) *Response {
	s.metrics.recordRequest(ctx, req.Method)

	if strings.HasPrefix(req.Method, "notifications/") {
		return nil
	}

	var resp *Response
	switch req.Method {
	case "ping":
		resp = s.handlePing(req)
	case "initialize":
		resp = s.handleInitialize(req)
	case "tools/list":
		resp = s.handleToolsList(req)
	case "tools/call":
		resp = s.handleToolsCall(ctx, req)
	default:
		resp = errorResponse(req.ID, CodeMethodNotFound, "Method not found", req.Method)
	}

	if resp.Error != nil {
		s.metrics.recordError(ctx, resp.Error.Code)
		log.Debug().
			Str("method", req.Method).
			Interface("id", req.ID).
			Int("code", resp.Error.Code).
			Str("error", resp.Error.Message).
			Msg("JSON-RPC request failed")
	}
	return resp
}

// handlePing reports liveness and identity.
func (s *Server) handlePing(req *Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"status":    "ok",
			"agent":     s.agent,
			"version":   s.version,
			"timestamp": s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		},
	}
}

// handleInitialize handles the initialize request.
func (s *Server) handleInitialize(req *Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    s.agent,
				"version": s.version,
			},
		},
	}
}

// Tools returns the tool descriptors served by tools/list.
func Tools() []Tool {
	keywordItem := map[string]any{
		"oneOf": []any{
			map[string]any{"type": "string"},
			map[string]any{
				"type":     "object",
				"required": []string{"keyword"},
				"properties": map[string]any{
					"keyword":      map[string]any{"type": "string", "description": "Keyword or phrase to analyze"},
					"category":     map[string]any{"type": "string", "description": "Keyword category, e.g. primary or long-tail", "default": models.CategoryGeneral},
					"searchVolume": map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}, "description": "Known search volume bucket"},
					"competition":  map[string]any{"type": "string", "description": "Known competition level (informational)"},
					"relevance":    map[string]any{"type": "number", "minimum": 0, "maximum": 1, "default": 0.5},
				},
			},
		},
	}

	return []Tool{
		{
			Name:        ToolAnalyzeKeywords,
			Description: "Score keywords for competition, estimated volume, trend, and opportunity, then return a ranked report with recommendations and insights.",
			InputSchema: map[string]any{
				"type":     "object",
				"required": []string{"keywords"},
				"properties": map[string]any{
					"keywords":       map[string]any{"type": "array", "items": keywordItem, "description": "Keywords as strings or keyword objects"},
					"concept":        map[string]any{"type": "string", "description": "Content concept the keywords are for"},
					"targetAudience": map[string]any{"type": "string", "description": "Intended audience"},
					"niche":          map[string]any{"type": "string", "description": "Content niche"},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools.
func (s *Server) handleToolsList(req *Request) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"tools": Tools(),
		},
	}
}

// handleToolsCall handles tool invocations.
func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	var params ToolCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
		}
	}

	if params.Name != ToolAnalyzeKeywords {
		return errorResponse(req.ID, CodeInvalidParams, fmt.Sprintf("Unknown tool: %s", params.Name), nil)
	}

	report, err := s.callAnalyze(ctx, params.Arguments)
	if err != nil {
		return errorResponse(req.ID, CodeInternalError, err.Error(), nil)
	}

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]any{
			"content": report,
		},
	}
}

// callAnalyze runs the analysis tool. Panics are converted to errors so one
// bad call cannot take down the transport.
func (s *Server) callAnalyze(ctx context.Context, raw json.RawMessage) (report *models.AnalysisReport, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("analyzeKeywords panicked")
			report, err = nil, fmt.Errorf("%v", r)
		}
	}()

	args, err := analysis.DecodeArguments(raw)
	if err != nil {
		return nil, err
	}

	report, err = s.analyzer.Analyze(args.Keywords, args.Meta)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	s.metrics.recordAnalysis(ctx, report.TotalAnalyzed, elapsed)
	log.Debug().
		Str("tool", ToolAnalyzeKeywords).
		Int("keywords", report.TotalAnalyzed).
		Int64("durationMs", elapsed.Milliseconds()).
		Msg("Keyword analysis complete")

	return report, nil
}

func errorResponse(id any, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &Error{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// writeLine writes a response followed by a newline.
func writeLine(w io.Writer, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		return nil
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
