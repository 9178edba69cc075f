package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	"github.com/sparkdata/sparkdata-go/internal/ads"
	"github.com/sparkdata/sparkdata-go/internal/auth"
	"github.com/sparkdata/sparkdata-go/internal/config"
	"github.com/sparkdata/sparkdata-go/internal/dataset"
	"github.com/sparkdata/sparkdata-go/internal/email"
	"github.com/sparkdata/sparkdata-go/internal/httpx"
	"github.com/sparkdata/sparkdata-go/internal/roi"
	"github.com/sparkdata/sparkdata-go/internal/secrets"
	"github.com/sparkdata/sparkdata-go/internal/store"
	"github.com/sparkdata/sparkdata-go/internal/summarizer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	box, err := secrets.NewBox(cfg.EncryptionKey)
	if err != nil {
		logger.Error("invalid encryption key", slog.String("err", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	keys, err := store.NewKeyStore(ctx, cfg.DatabaseURL, box)
	cancel()
	if err != nil {
		logger.Error("keystore init failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	uploads := store.NewSlot[*dataset.Dataset]()
	tokens := store.NewSlot[*oauth2.Token]()

	deps := httpx.Deps{
		Log:        logger,
		Uploads:    uploads,
		Calculator: roi.NewCalculator(uploads),
		Flow:       auth.NewFlow(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectURL, tokens, keys),
		Keys:       keys,
		AdsClient:  ads.NewClient(ads.NewHTTPClient(cfg.HTTPTimeout), cfg.AdsAPIBaseURL, cfg.AdsDeveloperToken),
		Summarizer: summarizer.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel),
		Mailer:     email.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.FromEmail, cfg.FromName),
		CustomerID: cfg.DefaultCustomerID,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpx.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting server", slog.String("port", cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
