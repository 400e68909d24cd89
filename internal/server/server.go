package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clinic_booking_bot/internal/config"
	"clinic_booking_bot/internal/middleware"
	"clinic_booking_bot/pkg/logger"
)

const (
	webhookTimeout  = 30 * time.Second
	shutdownTimeout = 30 * time.Second
	maxWebhookBody  = 1 << 20
)

// UpdateHandler обрабатывает обновления Telegram (bot.Dispatcher)
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, bot *tgbot.Bot, update *tgmodels.Update)
}

// Server представляет HTTP сервер с middleware
type Server struct {
	httpServer     *http.Server
	config         *config.Config
	logger         *logger.Logger
	rateLimiter    *middleware.RateLimiter
	securityLogger *SecurityLogger
	healthChecker  *HealthChecker
	updates        UpdateHandler
	telegramBot    *tgbot.Bot
}

// New создает новый HTTP сервер
func New(cfg *config.Config, log *logger.Logger, updates UpdateHandler, telegramBot *tgbot.Bot, health *HealthChecker) *Server {
	rpm := cfg.Server.RateLimitRPM
	var rateLimiter *middleware.RateLimiter
	if rpm > 0 {
		rateLimiter = middleware.NewRateLimiter(rpm, log)
	}

	server := &Server{
		config:         cfg,
		logger:         log,
		rateLimiter:    rateLimiter,
		securityLogger: NewSecurityLogger(log),
		healthChecker:  health,
		updates:        updates,
		telegramBot:    telegramBot,
	}

	server.httpServer = &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        server.Handler(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	return server
}

// Handler возвращает маршруты вместе с middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthChecker.HealthHandler)
	mux.Handle("/webhook", s.webhookAuthMiddleware(http.HandlerFunc(s.handleWebhook)))
	mux.Handle("/metrics", promhttp.Handler())

	return s.applyMiddleware(mux)
}

// applyMiddleware применяет middleware; последний добавленный выполняется первым
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	h := handler

	h = middleware.PrometheusMiddleware(h)

	if s.rateLimiter != nil {
		h = middleware.HTTPRateLimitMiddleware(s.rateLimiter)(h)
	}

	h = s.loggingMiddleware(h)
	h = s.securityHeadersMiddleware(h)
	h = s.recoveryMiddleware(h)

	return h
}

// handleWebhook обрабатывает Telegram webhook
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var update tgmodels.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&update); err != nil {
		s.securityLogger.LogValidationError(r, "failed to decode JSON: "+err.Error())
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if reason := validateTelegramUpdate(&update); reason != "" {
		s.securityLogger.LogValidationError(r, reason)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), webhookTimeout)
	defer cancel()

	s.updates.HandleUpdate(ctx, s.telegramBot, &update)

	s.securityLogger.LogTelegramUpdate(&update, time.Since(start))
	w.WriteHeader(http.StatusOK)
}

// Start запускает сервер и блокируется до отмены контекста
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", logger.String("addr", s.httpServer.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown корректно завершает работу сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.securityLogger.LogSystemEvent("server_shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if s.rateLimiter != nil {
		s.rateLimiter.Close()
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error during server shutdown", logger.Error(err))
		return err
	}

	s.logger.Info("HTTP server shut down successfully")
	return nil
}
