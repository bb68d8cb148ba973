package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/internal/app"
	"github.com/Alias1177/SignalBot/internal/bot"
	"github.com/Alias1177/SignalBot/internal/config"
	"github.com/Alias1177/SignalBot/internal/logger"
)

func main() {
	message := flag.String("message", "", "text to send; defaults to the win/loss summary")
	flag.Parse()

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
	if len(cfg.NotifyChatIDs) == 0 {
		log.Fatal().Msg("NOTIFY_CHAT_IDS is empty, nobody to broadcast to")
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize signal engine")
	}
	defer a.Close()

	text := *message
	if text == "" {
		stats, last, err := a.Engine.Snapshot(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load statistics")
		}
		text = bot.HistoryText(stats, last)
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	handler := bot.NewHandler(api, a.Engine, a.Feed, nil)
	sent, failed := handler.Broadcast(ctx, cfg.NotifyChatIDs, text)

	fmt.Printf("Broadcast completed: %d sent, %d failed out of %d chats\n", sent, failed, len(cfg.NotifyChatIDs))
	if failed > 0 {
		os.Exit(1)
	}
}
