package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/internal/api/openai"
	"github.com/Alias1177/SignalBot/internal/app"
	"github.com/Alias1177/SignalBot/internal/bot"
	"github.com/Alias1177/SignalBot/internal/config"
	"github.com/Alias1177/SignalBot/internal/logger"
	"github.com/Alias1177/SignalBot/internal/poller"
	"github.com/Alias1177/SignalBot/internal/server"
	"github.com/Alias1177/SignalBot/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN not set in environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize signal engine")
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close state store")
		}
	}()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}
	log.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")

	var relay bot.Relay
	if cfg.OpenAIAPIKey != "" {
		relay = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, chat replies disabled")
	}
	handler := bot.NewHandler(api, a.Engine, a.Feed, relay)

	if cfg.PollInterval > 0 {
		notify := func(ctx context.Context, pred models.Prediction) {
			if len(cfg.NotifyChatIDs) > 0 {
				handler.Broadcast(ctx, cfg.NotifyChatIDs, bot.ResolutionText(pred))
			}
		}
		go poller.New(a.Engine, cfg.PollInterval, notify).Run(ctx)
	}

	if cfg.HTTPAddr != "" {
		srv := server.NewServer(cfg.HTTPAddr, a.Engine, a.Feed)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error().Err(err).Msg("HTTP server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("HTTP server shutdown failed")
			}
		}()
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := api.GetUpdatesChan(updateConfig)
	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()

	handler.Run(ctx, updates)
	log.Info().Msg("Bot stopped")
}
