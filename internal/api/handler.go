// Package api exposes the assistant over HTTP and MCP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kalambet/persona/internal/chat"
	"github.com/kalambet/persona/internal/config"
	"github.com/kalambet/persona/internal/provider"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds everything the HTTP surface needs. All fields are fixed after
// startup.
type Deps struct {
	Chat    *chat.Service
	Welcome string
	Version string
	Rate    config.Rate
	Origins []string
	Logger  *zap.Logger

	// TrustProxy keys rate limiting and logs on forwarded client headers
	// instead of the socket peer.
	TrustProxy bool
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message             string             `json:"message"`
	ConversationHistory []provider.Message `json:"conversation_history"`
}

// NewHandler returns the HTTP API: GET /, /health, /welcome and the
// rate-limited POST /chat.
func NewHandler(deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Rate.Requests <= 0 {
		deps.Rate, _ = config.ParseRate(config.DefaultRate)
	}

	r := chi.NewRouter()
	if deps.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestID)
	r.Use(accessLog(log))
	r.Use(recoverer(log))
	r.Use(corsHandler(deps.Origins))

	r.Get("/", handleRoot(deps.Version))
	r.Get("/health", handleHealth(deps.Chat.Provider()))
	r.Get("/welcome", handleWelcome(deps.Welcome))
	r.With(rateLimit(deps.Rate)).Post("/chat", handleChat(deps.Chat, log))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}

func handleRoot(version string) http.HandlerFunc {
	body := map[string]any{
		"message": "Personal AI Assistant API",
		"version": version,
		"endpoints": map[string]string{
			"/chat":    "POST - Send a message and get AI response",
			"/welcome": "GET - Get welcome message",
			"/health":  "GET - Health check",
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, body)
	}
}

func handleHealth(p provider.Provider) http.HandlerFunc {
	body := map[string]string{
		"status":   "healthy",
		"provider": p.Name(),
		"model":    p.Model(),
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, body)
	}
}

func handleWelcome(message string) http.HandlerFunc {
	body := map[string]string{"message": message}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, body)
	}
}

func handleChat(svc *chat.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			httpError(w, http.StatusBadRequest, "message is required and must not be empty")
			return
		}
		if err := validateHistory(req.ConversationHistory); err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}

		ex, err := svc.Handle(r.Context(), req.Message, req.ConversationHistory)
		if err != nil {
			var ue *provider.UpstreamError
			if errors.As(err, &ue) {
				log.Warn("upstream call failed",
					zap.String("request_id", provider.RequestIDFromContext(r.Context())),
					zap.String("provider", ue.Provider),
					zap.Int("status", ue.StatusCode),
					zap.Bool("timeout", ue.Timeout()),
					zap.Error(err),
				)
				httpError(w, http.StatusInternalServerError, "%s", err.Error())
				return
			}
			log.Error("chat failed", zap.Error(err))
			httpError(w, http.StatusInternalServerError, "Internal server error: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, ex)
	}
}

// validateHistory accepts only user and assistant turns; the system role is
// reserved for the composed prompt.
func validateHistory(history []provider.Message) error {
	for i, m := range history {
		switch m.Role {
		case provider.RoleUser, provider.RoleAssistant:
		default:
			return fmt.Errorf("conversation_history[%d]: role must be %q or %q, got %q", i, provider.RoleUser, provider.RoleAssistant, m.Role)
		}
	}
	return nil
}
