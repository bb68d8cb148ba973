// Package bot is the Telegram front end of the signal engine.
package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/SignalBot/internal/engine"
	"github.com/Alias1177/SignalBot/internal/metrics"
	"github.com/Alias1177/SignalBot/models"
)

// Command names
const (
	CommandStart   = "start"
	CommandHelp    = "help"
	CommandSignal  = "signal"
	CommandLive    = "live"
	CommandHistory = "history"
	CommandRecent  = "recent"
)

// DefaultRecentLimit is the number of rounds /recent shows without an argument
const DefaultRecentLimit = 10

// maxRecentLimit caps the /recent argument
const maxRecentLimit = 50

// broadcastDelay spaces out broadcast messages to stay under Telegram limits
const broadcastDelay = 50 * time.Millisecond

// Sender is the part of tgbotapi.BotAPI the handler needs
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Engine is the prediction lifecycle used by the commands
type Engine interface {
	Predict(ctx context.Context) (models.Prediction, error)
	ObserveAndResolve(ctx context.Context) (engine.Observation, error)
	Snapshot(ctx context.Context) (models.Statistics, *models.Prediction, error)
}

// HistoryFeed lists recent rounds for /recent
type HistoryFeed interface {
	FetchHistory(ctx context.Context, limit int) ([]models.RoundOutcome, error)
}

// Relay answers free-form text
type Relay interface {
	Reply(ctx context.Context, message string) (string, error)
}

// Handler turns Telegram updates into engine calls and replies
type Handler struct {
	sender  Sender
	engine  Engine
	history HistoryFeed
	relay   Relay
	timeout time.Duration
	logger  zerolog.Logger
}

// NewHandler creates a handler. relay may be nil, in which case free-form
// text gets a notice instead of an answer.
func NewHandler(sender Sender, eng Engine, history HistoryFeed, relay Relay) *Handler {
	return &Handler{
		sender:  sender,
		engine:  eng,
		history: history,
		relay:   relay,
		timeout: 30 * time.Second,
		logger:  log.With().Str("component", "bot").Logger(),
	}
}

// Run handles updates until ctx is done or the channel closes
func (h *Handler) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				h.HandleMessage(ctx, update.Message)
			}
		}
	}
}

// HandleMessage dispatches one chat message
func (h *Handler) HandleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message == nil || message.Chat == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	chatID := message.Chat.ID
	command, args := parseCommand(message.Text)
	if command == "" {
		h.handleText(ctx, chatID, message.Text)
		return
	}

	metrics.BotCommands.WithLabelValues(commandLabel(command)).Inc()
	h.logger.Debug().Int64("chat_id", chatID).Str("command", command).Msg("Handling command")

	switch command {
	case CommandStart, CommandHelp:
		msg := tgbotapi.NewMessage(chatID, welcomeText)
		msg.ReplyMarkup = mainMenuKeyboard()
		h.send(msg)
	case CommandSignal:
		pred, err := h.engine.Predict(ctx)
		if err != nil {
			h.replyError(chatID, command, err)
			return
		}
		h.reply(chatID, signalText(pred))
	case CommandLive:
		obs, err := h.engine.ObserveAndResolve(ctx)
		if err != nil {
			h.replyError(chatID, command, err)
			return
		}
		h.reply(chatID, liveText(obs))
	case CommandHistory:
		stats, last, err := h.engine.Snapshot(ctx)
		if err != nil {
			h.replyError(chatID, command, err)
			return
		}
		h.reply(chatID, HistoryText(stats, last))
	case CommandRecent:
		rounds, err := h.history.FetchHistory(ctx, recentLimit(args))
		if err != nil {
			h.replyError(chatID, command, err)
			return
		}
		h.reply(chatID, recentText(rounds))
	default:
		h.reply(chatID, "Unknown command. Use /help to see what I can do.")
	}
}

// Broadcast sends text to every chat in chatIDs and reports how many
// sends succeeded and failed. Chats left out by a cancelled ctx count as
// neither.
func (h *Handler) Broadcast(ctx context.Context, chatIDs []int64, text string) (sent, failed int) {
	for i, chatID := range chatIDs {
		if i > 0 {
			select {
			case <-ctx.Done():
				return sent, failed
			case <-time.After(broadcastDelay):
			}
		}
		if _, err := h.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Broadcast failed")
			failed++
			continue
		}
		sent++
	}
	h.logger.Info().Int("sent", sent).Int("failed", failed).Msg("Broadcast completed")
	return sent, failed
}

func (h *Handler) handleText(ctx context.Context, chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if h.relay == nil {
		h.reply(chatID, relayDisabledText)
		return
	}
	answer, err := h.relay.Reply(ctx, text)
	if err != nil {
		h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Chat relay failed")
		h.reply(chatID, "⚠️ OpenAI error: "+err.Error())
		return
	}
	h.reply(chatID, answer)
}

func (h *Handler) replyError(chatID int64, command string, err error) {
	h.logger.Error().Err(err).Int64("chat_id", chatID).Str("command", command).Msg("Command failed")
	h.reply(chatID, errorText(err))
}

func (h *Handler) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) send(msg tgbotapi.MessageConfig) {
	if _, err := h.sender.Send(msg); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("Failed to send message")
	}
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/signal"),
			tgbotapi.NewKeyboardButton("/live"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/history"),
			tgbotapi.NewKeyboardButton("/recent"),
		),
	)
}

// parseCommand splits "/cmd@bot args" into "cmd" and "args". Text that is
// not a command yields an empty command.
func parseCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	head, args, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(args)
}

func commandLabel(command string) string {
	switch command {
	case CommandStart, CommandHelp, CommandSignal, CommandLive, CommandHistory, CommandRecent:
		return command
	default:
		return "unknown"
	}
}

func recentLimit(args string) int {
	n, err := strconv.Atoi(args)
	if err != nil || n <= 0 {
		return DefaultRecentLimit
	}
	return min(n, maxRecentLimit)
}
