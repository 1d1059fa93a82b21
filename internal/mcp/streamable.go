package mcp

import (
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// StreamableHandler serves JSON-RPC over a single POST endpoint and returns
// the response inline.
type StreamableHandler struct {
	server *Server
}

// NewStreamableHandler creates a new Streamable HTTP handler.
func NewStreamableHandler(server *Server) *StreamableHandler {
	return &StreamableHandler{server: server}
}

// ServeHTTP handles POST requests with JSON-RPC messages.
func (h *StreamableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeCORS(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read Streamable HTTP request body")
		writeJSONError(w, nil, CodeParseError, "Parse error")
		return
	}

	response := h.server.HandleMessage(r.Context(), body)

	writeCORS(w)

	if response == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode Streamable HTTP response")
	}
}

func writeCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSONError(w http.ResponseWriter, id any, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	resp := Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &Error{Code: code, Message: message},
	}
	_ = json.NewEncoder(w).Encode(resp)
}
