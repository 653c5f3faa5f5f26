package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jihopark/mathshorts/internal/approval"
	"github.com/jihopark/mathshorts/internal/config"
	"github.com/jihopark/mathshorts/internal/content"
	"github.com/jihopark/mathshorts/internal/version"
)

// Approvals is the decision surface the HTTP API exposes.
type Approvals interface {
	ListPending() ([]approval.Ticket, error)
	Get(id string) (approval.Ticket, error)
	Resolve(id string, decision approval.Decision, resolvedBy, feedback string) (approval.Ticket, error)
}

// RunHistory lists completed runs.
type RunHistory interface {
	List() ([]content.RunResult, error)
}

// StatusFunc reports daemon status fields for the /status endpoint.
type StatusFunc func() map[string]any

type Server struct {
	cfg        config.GatewayConfig
	httpServer *http.Server
	handler    http.Handler
}

// New builds the approval gateway server.
func New(cfg config.GatewayConfig, approvals Approvals, runs RunHistory, status StatusFunc) *Server {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := cfg.Port
	if port <= 0 {
		port = 18820
	}

	cfg.Host = host
	cfg.Port = port
	return &Server{
		cfg:     cfg,
		handler: NewHandler(cfg.Token, approvals, runs, status),
	}
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("gateway listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// NewHandler builds the route table. Decision endpoints require the bearer
// token when one is configured; health and version never do.
func NewHandler(token string, approvals Approvals, runs RunHistory, status StatusFunc) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if r.Method != http.MethodGet {
			writeError(w, requestID, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"request_id": requestID,
		})
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if r.Method != http.MethodGet {
			writeError(w, requestID, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"version":    version.Version,
			"request_id": requestID,
		})
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if r.Method != http.MethodGet {
			writeError(w, requestID, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		if !authorize(w, r, token, requestID) {
			return
		}
		body := map[string]any{"request_id": requestID}
		if status != nil {
			for k, v := range status() {
				body[k] = v
			}
		}
		writeJSON(w, http.StatusOK, body)
	})

	mux.HandleFunc("/approvals", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if r.Method != http.MethodGet {
			writeError(w, requestID, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		if !authorize(w, r, token, requestID) {
			return
		}
		if approvals == nil {
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "approval gate is not configured")
			return
		}
		pending, err := approvals.ListPending()
		if err != nil {
			slog.Error("gateway list approvals failed", "request_id", requestID, "error", err)
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "failed to list pending approvals")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"pending":    ticketViews(pending),
			"request_id": requestID,
		})
	})

	mux.HandleFunc("/approvals/", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if !authorize(w, r, token, requestID) {
			return
		}
		if approvals == nil {
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "approval gate is not configured")
			return
		}

		id, action := splitApprovalPath(r.URL.Path)
		if id == "" {
			writeError(w, requestID, http.StatusNotFound, "not_found", "ticket id is required")
			return
		}

		switch {
		case action == "" && r.Method == http.MethodGet:
			ticket, err := approvals.Get(id)
			if err != nil {
				writeResolveError(w, requestID, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"ticket":     ticketView(ticket),
				"request_id": requestID,
			})

		case (action == "approve" || action == "reject") && r.Method == http.MethodPost:
			decision := approval.DecisionApprove
			if action == "reject" {
				decision = approval.DecisionReject
			}

			var req struct {
				ResolvedBy string `json:"resolved_by"`
				Feedback   string `json:"feedback"`
			}
			if r.Body != nil && r.ContentLength != 0 {
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, requestID, http.StatusBadRequest, "bad_request", "invalid json request")
					return
				}
			}
			resolvedBy := strings.TrimSpace(req.ResolvedBy)
			if resolvedBy == "" {
				resolvedBy = "api"
			}

			ticket, err := approvals.Resolve(id, decision, resolvedBy, strings.TrimSpace(req.Feedback))
			if err != nil {
				writeResolveError(w, requestID, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"ticket":     ticketView(ticket),
				"request_id": requestID,
			})

		default:
			writeError(w, requestID, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		}
	})

	mux.HandleFunc("/runs", func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r)
		if r.Method != http.MethodGet {
			writeError(w, requestID, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
			return
		}
		if !authorize(w, r, token, requestID) {
			return
		}
		if runs == nil {
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "run history is not configured")
			return
		}
		results, err := runs.List()
		if err != nil {
			slog.Error("gateway list runs failed", "request_id", requestID, "error", err)
			writeError(w, requestID, http.StatusInternalServerError, "internal_error", "failed to list runs")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"runs":       results,
			"request_id": requestID,
		})
	})

	return mux
}

// splitApprovalPath parses /approvals/{id} and /approvals/{id}/{action}.
func splitApprovalPath(path string) (id, action string) {
	rest := strings.TrimPrefix(path, "/approvals/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch len(parts) {
	case 1:
		return parts[0], ""
	case 2:
		return parts[0], parts[1]
	default:
		return "", ""
	}
}

// ticketView is the wire shape of a ticket: the full bundle stays internal,
// only the reviewable fields cross the API.
func ticketView(t approval.Ticket) map[string]any {
	view := map[string]any{
		"id":           t.ID,
		"status":       string(t.Status),
		"time_slot":    t.Bundle.TimeSlot,
		"bundle_id":    t.Bundle.ID,
		"topic":        t.Bundle.Request.Topic,
		"grade":        t.Bundle.Request.Grade,
		"preview":      t.Bundle.Preview(),
		"submitted_at": t.SubmittedAt.Format(time.RFC3339),
		"deadline":     t.Deadline.Format(time.RFC3339),
	}
	if !t.ResolvedAt.IsZero() {
		view["resolved_at"] = t.ResolvedAt.Format(time.RFC3339)
		view["resolved_by"] = t.ResolvedBy
	}
	if t.ResolutionFeedback != "" {
		view["feedback"] = t.ResolutionFeedback
	}
	return view
}

func ticketViews(tickets []approval.Ticket) []map[string]any {
	views := make([]map[string]any, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, ticketView(t))
	}
	return views
}

func writeResolveError(w http.ResponseWriter, requestID string, err error) {
	switch {
	case errors.Is(err, approval.ErrUnknownTicket):
		writeError(w, requestID, http.StatusNotFound, "not_found", "unknown ticket")
	case errors.Is(err, approval.ErrAlreadyResolved):
		writeError(w, requestID, http.StatusConflict, "conflict", "ticket already resolved")
	default:
		slog.Error("gateway approval operation failed", "request_id", requestID, "error", err)
		writeError(w, requestID, http.StatusInternalServerError, "internal_error", "approval operation failed")
	}
}

func authorize(w http.ResponseWriter, r *http.Request, token, requestID string) bool {
	if strings.TrimSpace(token) == "" {
		return true
	}
	if !isAuthorized(r, token) {
		writeError(w, requestID, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
		return false
	}
	return true
}

func isAuthorized(r *http.Request, expected string) bool {
	got := strings.TrimSpace(r.Header.Get("Authorization"))
	if got == "" {
		return false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(got, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(got, prefix))
	return token == expected
}

func getRequestID(r *http.Request) string {
	rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
	if rid != "" {
		return rid
	}
	return uuid.NewString()
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"code":       code,
		"message":    message,
		"request_id": requestID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
