package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matrixise/tokend/internal/contract"
	"github.com/matrixise/tokend/internal/storage"
	"github.com/matrixise/tokend/internal/token"
)

// EventSource serves the audit log read endpoint. *storage.Store satisfies
// it; a memory-only deployment passes nil and the endpoint is not mounted.
type EventSource interface {
	RecentEvents(ctx context.Context, limit int) ([]storage.EventRow, error)
}

// Server exposes the host over HTTP.
type Server struct {
	host   *Host
	events EventSource
	log    *slog.Logger
}

// NewServer builds the HTTP front end for host. events and health may be
// nil.
func NewServer(host *Host, events EventSource, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{host: host, events: events, log: log}
}

// Router mounts all routes. healthHandler, when non-nil, is served at
// /healthz.
func (s *Server) Router(healthHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/v1/instantiate", s.handleInstantiate)
	r.Post("/v1/execute", s.handleExecute)
	r.Post("/v1/query", s.handleQuery)
	r.Get("/v1/height", s.handleHeight)
	if s.events != nil {
		r.Get("/v1/events", s.handleEvents)
	}
	if healthHandler != nil {
		r.Method(http.MethodGet, "/healthz", healthHandler)
	}
	return r
}

type invokeRequest struct {
	Sender string          `json:"sender"`
	Msg    json.RawMessage `json:"msg"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func statusFor(code string) int {
	switch code {
	case "unauthorized", "no_minter":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "internal":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := contract.ErrorCode(err)
	// Malformed envelopes are client errors, not ledger faults.
	if errors.Is(err, token.ErrEmptyExecuteMsg) || errors.Is(err, token.ErrEmptyQueryMsg) {
		code = "invalid_input"
	}
	s.writeJSON(w, statusFor(code), errorResponse{Error: errorBody{
		Code:    code,
		Message: err.Error(),
	}})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:    "invalid_input",
		Message: msg,
	}})
}

func (s *Server) handleInstantiate(w http.ResponseWriter, r *http.Request) {
	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "malformed request body")
		return
	}
	var msg token.InstantiateMsg
	if err := json.Unmarshal(req.Msg, &msg); err != nil {
		s.writeBadRequest(w, "malformed instantiate message")
		return
	}

	result, err := s.host.Instantiate(r.Context(), req.Sender, msg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "malformed request body")
		return
	}
	var msg token.ExecuteMsg
	if err := json.Unmarshal(req.Msg, &msg); err != nil {
		s.writeBadRequest(w, "malformed execute message")
		return
	}

	result, err := s.host.Execute(r.Context(), req.Sender, msg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Msg json.RawMessage `json:"msg"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, "malformed request body")
		return
	}
	var msg token.QueryMsg
	if err := json.Unmarshal(req.Msg, &msg); err != nil {
		s.writeBadRequest(w, "malformed query message")
		return
	}

	result, err := s.host.Query(r.Context(), msg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		Height uint64          `json:"height"`
		Data   json.RawMessage `json:"data"`
	}{Height: s.host.Height(), Data: result})
}

func (s *Server) handleHeight(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, struct {
		Height uint64 `json:"height"`
	}{Height: s.host.Height()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			s.writeBadRequest(w, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	events, err := s.events.RecentEvents(r.Context(), limit)
	if err != nil {
		s.log.Error("failed to load events", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
			Code:    "internal",
			Message: "failed to load events",
		}})
		return
	}
	if events == nil {
		events = []storage.EventRow{}
	}
	s.writeJSON(w, http.StatusOK, struct {
		Events []storage.EventRow `json:"events"`
	}{Events: events})
}
