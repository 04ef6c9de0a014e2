// Package gateway serves the KakaoTalk skill webhook. It receives
// utterances, routes them through the pairing, command, and chat
// pipelines, and answers either in the HTTP body or through Kakao's
// callback channel.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"toribot/pkg/config"
	"toribot/pkg/kakao"
	"toribot/pkg/logger"
	"toribot/pkg/session"
	"toribot/pkg/version"
)

// maxBodyBytes caps inbound webhook bodies. Kakao payloads are a few
// kilobytes; anything near this limit is not Kakao.
const maxBodyBytes = 2 << 20

const notAllowedText = "🚫 This bot is private. Your account is not on the allow list."

// Server is the webhook HTTP server.
type Server struct {
	config       *config.Config
	runtime      *config.Runtime
	logger       *logger.Logger
	orchestrator *Orchestrator
	sessions     *session.Manager
	mux          *http.ServeMux
	server       *http.Server
	started      time.Time
}

// NewServer creates the webhook server. Per-request settings are read
// through the runtime view so config reloads apply to live traffic.
func NewServer(cfg *config.Config, rt *config.Runtime, log *logger.Logger, orchestrator *Orchestrator, sessions *session.Manager) *Server {
	s := &Server{
		config:       cfg,
		runtime:      rt,
		logger:       log,
		orchestrator: orchestrator,
		sessions:     sessions,
		started:      time.Now(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /kakao/skill", s.handleSkill)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.mux = mux
}

// Start starts the webhook server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Info("Webhook server starting", zap.String("addr", addr))

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Webhook server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the webhook server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Webhook server stopping")

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleSkill is the single inbound webhook endpoint.
func (s *Server) handleSkill(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	var payload kakao.SkillPayload
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		s.logger.Warn("Malformed skill payload",
			zap.String("request_id", requestID),
			zap.Error(err))
		http.Error(w, `{"error":"malformed request"}`, http.StatusBadRequest)
		return
	}

	senderID := payload.UserRequest.User.ID
	utterance := payload.UserRequest.Utterance
	callbackURL := payload.UserRequest.CallbackURL

	if senderID == "" {
		s.logger.Warn("Skill payload without a user id",
			zap.String("request_id", requestID))
		http.Error(w, `{"error":"missing user id"}`, http.StatusBadRequest)
		return
	}

	s.logger.Info("Inbound utterance",
		zap.String("request_id", requestID),
		zap.String("sender_id", senderID),
		zap.Bool("callback", callbackURL != ""),
		zap.Int("length", len(utterance)))

	if !s.runtime.Current().SenderAllowed(senderID) {
		s.logger.Warn("Sender not on the allow list",
			zap.String("request_id", requestID),
			zap.String("sender_id", senderID))
		s.respond(w, kakao.Reply(notAllowedText))
		return
	}

	if callbackURL != "" {
		// Acknowledge now, answer through the callback channel. The
		// background turn is not awaited.
		s.respond(w, kakao.ThinkingAck(thinkingText))
		go s.orchestrator.RunAsync(senderID, utterance, callbackURL, requestID)
		return
	}

	s.respond(w, s.orchestrator.RunSync(r.Context(), senderID, utterance))
}

// handleHealth reports liveness and store counters.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.sessions.Stats()

	s.respond(w, map[string]any{
		"status":   "ok",
		"version":  version.Short(),
		"uptime":   time.Since(s.started).Round(time.Second).String(),
		"sessions": stats.Sessions,
		"messages": stats.Messages,
	})
}

func (s *Server) respond(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Encoding response failed", zap.Error(err))
	}
}
