// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the lumend HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jeranaias/lumen/internal/api"
	"github.com/jeranaias/lumen/internal/store"
	"github.com/jeranaias/lumen/internal/transaction"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default port for the lumend HTTP server.
	DefaultPort = 8790

	// MaxPromptLength is the maximum prompt length in bytes.
	MaxPromptLength = 100000

	// MaxRequestBodySize caps request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// Version is the server version.
	Version = "0.1.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Server is the lumend HTTP API server.
type Server struct {
	port   int
	router *http.ServeMux
	server *http.Server

	store   store.Store
	exec    *transaction.Executor
	tokens  TokenResolver
	limiter *UserRateLimiter
}

// NewServer creates a server over a store and a turn executor. If port is 0,
// the default port is used.
func NewServer(port int, s store.Store, exec *transaction.Executor, tokens TokenResolver) *Server {
	if port == 0 {
		port = DefaultPort
	}

	srv := &Server{
		port:    port,
		router:  http.NewServeMux(),
		store:   s,
		exec:    exec,
		tokens:  tokens,
		limiter: DefaultUserRateLimiter(),
	}

	srv.setupRoutes()
	return srv
}

// WithRateLimiter sets a custom rate limiter.
func (s *Server) WithRateLimiter(limiter *UserRateLimiter) *Server {
	s.limiter = limiter
	return s
}

// Port returns the server port.
func (s *Server) Port() int {
	return s.port
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Turn endpoints
	s.router.HandleFunc("POST /api/message/text", s.handleMessageText)
	s.router.HandleFunc("POST /api/message/image", s.handleMessageImage)

	// Conversation management
	s.router.HandleFunc("POST /api/chat/create", s.handleChatCreate)
	s.router.HandleFunc("GET /api/chat/list", s.handleChatList)
	s.router.HandleFunc("GET /api/chat/get", s.handleChatGet)
	s.router.HandleFunc("POST /api/chat/delete", s.handleChatDelete)

	// Credits
	s.router.HandleFunc("GET /api/credits", s.handleCredits)

	// Health
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(),
		LoggingMiddleware(log.Default()),
		BodyLimitMiddleware(MaxRequestBodySize),
		AuthMiddleware(s.tokens),
		RateLimitMiddleware(s.limiter),
	)(s.router)
}

// ============================================================================
// TURN HANDLERS
// ============================================================================

func (s *Server) handleMessageText(w http.ResponseWriter, r *http.Request) {
	s.handleTurn(w, r, false)
}

func (s *Server) handleMessageImage(w http.ResponseWriter, r *http.Request) {
	s.handleTurn(w, r, true)
}

// handleTurn runs one credit-metered turn and maps the outcome onto the
// wire taxonomy.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request, isImage bool) {
	var req api.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" || req.Prompt == "" {
		http.Error(w, "conversation_id and prompt are required", http.StatusBadRequest)
		return
	}
	if len(req.Prompt) > MaxPromptLength {
		http.Error(w, "prompt too long", http.StatusBadRequest)
		return
	}

	userID := UserID(r.Context())
	result, err := s.exec.Execute(r.Context(), userID, req.ConversationID, req.Prompt, isImage)
	if err != nil {
		status, code := turnFailure(err)
		log.Printf("TURN_FAILED | user=%s conversation=%s code=%s error=%v",
			userID, req.ConversationID, code, err)
		s.writeJSON(w, status, api.TurnResponse{
			Success: false,
			Code:    code,
			Message: failureMessage(code),
		})
		return
	}

	userMsg := api.WireMessageFrom(result.UserMessage)
	reply := api.WireMessageFrom(result.Reply)
	s.writeJSON(w, http.StatusOK, api.TurnResponse{
		Success:     true,
		UserMessage: &userMsg,
		Reply:       &reply,
		Balance:     &result.Balance,
	})
}

// turnFailure maps executor errors to an HTTP status and wire code.
func turnFailure(err error) (int, api.ErrorCode) {
	switch {
	case errors.Is(err, transaction.ErrInsufficientCredits):
		return http.StatusPaymentRequired, api.CodeInsufficientCredits
	case errors.Is(err, transaction.ErrConversationNotFound):
		return http.StatusNotFound, api.CodeConversationNotFound
	case errors.Is(err, transaction.ErrBackendTimeout):
		return http.StatusGatewayTimeout, api.CodeBackendTimeout
	case errors.Is(err, transaction.ErrBackendUnavailable):
		return http.StatusBadGateway, api.CodeBackendUnavailable
	default:
		return http.StatusInternalServerError, api.CodePersistenceFailure
	}
}

// failureMessage returns the user-facing message for a wire code. Internal
// error detail never crosses the wire.
func failureMessage(code api.ErrorCode) string {
	switch code {
	case api.CodeInsufficientCredits:
		return api.ErrInsufficientCredits.Message
	case api.CodeConversationNotFound:
		return api.ErrConversationNotFound.Message
	case api.CodeBackendTimeout:
		return api.ErrBackendTimeout.Message
	case api.CodeBackendUnavailable:
		return api.ErrBackendUnavailable.Message
	default:
		return api.ErrPersistenceFailure.Message
	}
}

// ============================================================================
// CONVERSATION HANDLERS
// ============================================================================

func (s *Server) handleChatCreate(w http.ResponseWriter, r *http.Request) {
	conv, err := s.store.Create(r.Context(), UserID(r.Context()))
	if err != nil {
		log.Printf("CREATE_FAILED | user=%s error=%v", UserID(r.Context()), err)
		s.writeJSON(w, http.StatusInternalServerError, api.CreateResponse{
			Success: false,
			Code:    api.CodePersistenceFailure,
			Message: failureMessage(api.CodePersistenceFailure),
		})
		return
	}

	wire := api.WireConversationFrom(conv)
	s.writeJSON(w, http.StatusOK, api.CreateResponse{
		Success:      true,
		Conversation: &wire,
	})
}

func (s *Server) handleChatList(w http.ResponseWriter, r *http.Request) {
	metas, err := s.store.List(r.Context(), UserID(r.Context()))
	if err != nil {
		log.Printf("LIST_FAILED | user=%s error=%v", UserID(r.Context()), err)
		s.writeJSON(w, http.StatusInternalServerError, api.ListResponse{
			Success: false,
			Code:    api.CodePersistenceFailure,
			Message: failureMessage(api.CodePersistenceFailure),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, api.ListResponse{
		Success:       true,
		Conversations: metas,
	})
}

func (s *Server) handleChatGet(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	conv, err := s.store.Get(r.Context(), UserID(r.Context()), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeJSON(w, http.StatusNotFound, api.GetResponse{
			Success: false,
			Code:    api.CodeConversationNotFound,
			Message: failureMessage(api.CodeConversationNotFound),
		})
		return
	}
	if err != nil {
		log.Printf("GET_FAILED | user=%s conversation=%s error=%v", UserID(r.Context()), id, err)
		s.writeJSON(w, http.StatusInternalServerError, api.GetResponse{
			Success: false,
			Code:    api.CodePersistenceFailure,
			Message: failureMessage(api.CodePersistenceFailure),
		})
		return
	}

	wire := api.WireConversationFrom(conv)
	s.writeJSON(w, http.StatusOK, api.GetResponse{
		Success:      true,
		Conversation: &wire,
	})
}

func (s *Server) handleChatDelete(w http.ResponseWriter, r *http.Request) {
	var req api.DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" {
		http.Error(w, "conversation_id is required", http.StatusBadRequest)
		return
	}

	if err := s.store.Delete(r.Context(), UserID(r.Context()), req.ConversationID); err != nil {
		log.Printf("DELETE_FAILED | user=%s conversation=%s error=%v",
			UserID(r.Context()), req.ConversationID, err)
		s.writeJSON(w, http.StatusInternalServerError, api.DeleteResponse{
			Success: false,
			Code:    api.CodePersistenceFailure,
			Message: failureMessage(api.CodePersistenceFailure),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, api.DeleteResponse{Success: true})
}

// ============================================================================
// CREDITS HANDLER
// ============================================================================

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	account, err := s.store.Account(r.Context(), UserID(r.Context()))
	if err != nil {
		log.Printf("CREDITS_FAILED | user=%s error=%v", UserID(r.Context()), err)
		s.writeJSON(w, http.StatusInternalServerError, api.CreditsResponse{
			Success: false,
			Code:    api.CodePersistenceFailure,
			Message: failureMessage(api.CodePersistenceFailure),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, api.CreditsResponse{
		Success: true,
		Balance: account.Balance,
	})
}

// ============================================================================
// HEALTH
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": Version,
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
