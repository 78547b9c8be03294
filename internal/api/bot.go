package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "roi-harvester/internal/application"
	"roi-harvester/internal/domain/port"
)

const (
	msgHelp = `ℹ️ Бот сбора ROI-выборки.

📋 Команды:
/status — состояние последнего прогона
/run — запустить прогон сейчас
/help — справка`

	msgRunStarted     = "⏳ Прогон запущен."
	msgRunBusy        = "⚠️ Прогон уже идёт."
	msgNoRuns         = "Прогонов ещё не было."
	msgUnknownCommand = "❓ Неизвестная команда. Используйте /help для справки."
)

// Runner запускает прогон в фоне; false если прогон уже идёт.
type Runner interface {
	Trigger(ctx context.Context) bool
}

// StatusSource источник состояния прогонов.
type StatusSource interface {
	Status() app.RunStatus
}

// Config параметры бота
type Config struct {
	Token    string
	ChatID   int64
	Endpoint string // формат tgbotapi.APIEndpoint; пусто - api.telegram.org
	Client   *http.Client
}

// Bot отправляет итоги прогонов в чат и принимает команды управления
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
	runner Runner
	status StatusSource
	logger *slog.Logger
}

// NewBot создаёт нового бота; runner и status могут быть nil, тогда бот только уведомляет.
func NewBot(cfg Config, runner Runner, status StatusSource, logger *slog.Logger) (*Bot, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, cfg.Client)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	logger.Info("telegram authorized", "account", api.Self.UserName)

	return &Bot{
		api:    api,
		chatID: cfg.ChatID,
		runner: runner,
		status: status,
		logger: logger,
	}, nil
}

// Notify отправляет текст в настроенный чат
func (b *Bot) Notify(ctx context.Context, text string) error {
	if _, err := b.api.Send(tgbotapi.NewMessage(b.chatID, text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

var _ port.Notifier = (*Bot)(nil)

// SetRunner подключает запуск прогонов по команде /run
func (b *Bot) SetRunner(r Runner) {
	b.runner = r
}

// Run запускает основной цикл обработки сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Команды принимаются только из настроенного чата
	if msg.Chat == nil || msg.Chat.ID != b.chatID {
		return
	}
	if !msg.IsCommand() {
		b.sendMessage(msg.Chat.ID, msgHelp)
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "status":
		b.sendMessage(msg.Chat.ID, b.statusText())

	case "run":
		if b.runner == nil {
			b.sendMessage(msg.Chat.ID, msgUnknownCommand)
			return
		}
		if b.runner.Trigger(ctx) {
			b.sendMessage(msg.Chat.ID, msgRunStarted)
		} else {
			b.sendMessage(msg.Chat.ID, msgRunBusy)
		}

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

func (b *Bot) statusText() string {
	if b.status == nil {
		return msgNoRuns
	}
	st := b.status.Status()

	var sb strings.Builder
	if st.Running && st.StartedAt != nil {
		fmt.Fprintf(&sb, "⏳ Прогон идёт с %s\n", st.StartedAt.Format("2006-01-02 15:04:05"))
	}
	if st.Last == nil {
		sb.WriteString(msgNoRuns)
		return sb.String()
	}
	fmt.Fprintf(&sb, "Прогонов: %d\n%s", st.Runs, st.Last.String())
	return sb.String()
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("send message failed", "chat", chatID, "error", err)
	}
}
