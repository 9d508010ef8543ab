package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"social_auth/internal/config"
	sl "social_auth/internal/lib/logger/sl"
	"social_auth/internal/mailer"
	"social_auth/internal/models"
	"social_auth/internal/observability"
	"social_auth/internal/rabbitmq"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	defaultConfigPath = "./config/mail_sender.yaml"
)

type Sender interface {
	Send(to, subject, htmlBody string) error
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	cfg := config.MustLoadMailer(path)
	log := setupLogger(cfg.Env)

	log.Info("Starting mail_sender", slog.String("env", cfg.Env))

	if err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env); err != nil {
		log.Error("failed to init sentry", sl.Err(err))
	}
	defer observability.FlushSentry()

	startServer(ctx, cfg, log)
}

func startServer(ctx context.Context, cfg *config.MailerConfig, log *slog.Logger) {
	r, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to init rabbitmq", sl.Err(err))
		return
	}
	defer r.Close()

	m := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)

	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := r.StartReading(ctx, handleMessage(log, m)); err != nil {
			log.Error("failed to read queue", sl.Err(err))
		}
	}()

	log.Info("consumer successfully started")

	select {
	case <-ctx.Done():
		log.Info("shutting down consumer...")
		<-done
	case <-done:
		log.Info("consumer finished the work")
	}

	log.Info("service gracefully stopped")
}

var errEmptyRecipient = errors.New("message has no recipient")

// * handleMessage разбирает сообщение из очереди и отправляет письмо.
// Ошибка приводит к nack без повторной постановки
func handleMessage(log *slog.Logger, sender Sender) func(body []byte) error {
	return func(body []byte) error {
		var msg models.Message
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error("failed to unmarshal message", sl.Err(err))
			return fmt.Errorf("unmarshal message: %w", err)
		}

		if msg.Email == "" {
			log.Error("message dropped", sl.Err(errEmptyRecipient), slog.String("purpose", msg.Purpose))
			return errEmptyRecipient
		}

		if err := sender.Send(msg.Email, msg.Subject, msg.Body); err != nil {
			log.Error("failed to send message", sl.Err(err), slog.String("purpose", msg.Purpose))
			sentry.CaptureException(err)

			return fmt.Errorf("send message: %w", err)
		}

		log.Info("message sent successfully", slog.String("purpose", msg.Purpose))

		return nil
	}
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
