package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"clinic_booking_bot/internal/bot"
	"clinic_booking_bot/internal/bot/service"
	"clinic_booking_bot/internal/config"
	"clinic_booking_bot/internal/scheduler/memory"
	"clinic_booking_bot/internal/server"
	"clinic_booking_bot/internal/session"
	sessionmemory "clinic_booking_bot/internal/session/memory"
	"clinic_booking_bot/internal/session/redisstore"
	"clinic_booking_bot/pkg/logger"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return runServer(ctx, a)
		},
	}
}

func runServer(ctx context.Context, a *app) error {
	cfg, log := a.cfg, a.logger

	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	sessions, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}
	log.Info("Session store ready", logger.String("backend", cfg.Sessions.Backend))

	telegramBot, err := tgbot.New(cfg.Telegram.Token)
	if err != nil {
		_ = sessions.Close()
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	reminders := memory.NewMemoryScheduler(service.NewReminderSender(telegramBot, cfg.Clinic.Name), log)
	if err := reminders.Start(ctx); err != nil {
		_ = sessions.Close()
		return fmt.Errorf("failed to start reminder scheduler: %w", err)
	}

	// Service.Close останавливает планировщик и закрывает хранилище сессий
	botService := service.NewService(telegramBot, a.engine, sessions, a.extractor, reminders, cfg, log)
	defer func() {
		if err := botService.Close(); err != nil {
			log.Warn("Error closing bot service", logger.Error(err))
		}
	}()

	dispatcher := bot.NewDispatcher(botService, log)

	if err := setupWebhook(ctx, telegramBot, cfg.Telegram, log); err != nil {
		return fmt.Errorf("failed to setup webhook: %w", err)
	}

	health := server.NewHealthChecker(version, map[string]server.Pinger{
		"ledger":   a.ledger,
		"sessions": sessions,
	})
	srv := server.New(cfg, log, dispatcher, telegramBot, health)

	if err := srv.Start(ctx); err != nil {
		return err
	}

	log.Info("Server stopped gracefully")
	return nil
}

func openSessions(ctx context.Context, cfg *config.Config) (session.Store, error) {
	if cfg.Sessions.Backend == config.SessionsRedis {
		store, err := redisstore.New(ctx, redisstore.Options{
			Addr:     cfg.Sessions.RedisAddr,
			Password: cfg.Sessions.RedisPassword,
			DB:       cfg.Sessions.RedisDB,
			TTL:      cfg.Sessions.TTL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return sessionmemory.New(cfg.Sessions.TTL), nil
}

// setupWebhook настраивает webhook для Telegram бота
func setupWebhook(ctx context.Context, b *tgbot.Bot, cfg config.TelegramConfig, log *logger.Logger) error {
	if _, err := b.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{}); err != nil {
		log.Warn("Failed to delete existing webhook", logger.Error(err))
	}

	params := &tgbot.SetWebhookParams{
		URL:            cfg.WebhookURL,
		SecretToken:    cfg.SecretToken,
		AllowedUpdates: []string{"message", "callback_query"},
	}

	if _, err := b.SetWebhook(ctx, params); err != nil {
		return err
	}

	log.Info("Webhook configured", logger.String("url", cfg.WebhookURL))
	return nil
}
