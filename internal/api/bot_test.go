package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	app "roi-harvester/internal/application"
)

type sentMessage struct {
	chatID string
	text   string
}

// fakeTelegram отвечает на getMe и sendMessage и запоминает отправленные сообщения
type fakeTelegram struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/getMe"):
		fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"roi","username":"roi_bot"}}`)
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.sent = append(f.sent, sentMessage{chatID: r.FormValue("chat_id"), text: r.FormValue("text")})
		f.mu.Unlock()
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`)
	default:
		fmt.Fprint(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
	}
}

func (f *fakeTelegram) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeRunner struct {
	accept bool
	calls  int
}

func (r *fakeRunner) Trigger(ctx context.Context) bool {
	r.calls++
	return r.accept
}

type staticStatus app.RunStatus

func (s staticStatus) Status() app.RunStatus { return app.RunStatus(s) }

func newTestBot(t *testing.T, runner Runner, status StatusSource) (*Bot, *fakeTelegram) {
	t.Helper()
	tg := &fakeTelegram{}
	srv := httptest.NewServer(tg)
	t.Cleanup(srv.Close)

	bot, err := NewBot(Config{
		Token:    "token",
		ChatID:   42,
		Endpoint: srv.URL + "/bot%s/%s",
		Client:   srv.Client(),
	}, runner, status, nil)
	require.NoError(t, err)
	return bot, tg
}

func command(chatID int64, text string) *tgbotapi.Message {
	name := strings.Fields(text)[0]
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func TestBot_Notify(t *testing.T) {
	bot, tg := newTestBot(t, nil, nil)

	require.NoError(t, bot.Notify(context.Background(), "run finished"))
	require.Equal(t, []sentMessage{{chatID: "42", text: "run finished"}}, tg.messages())
}

func TestBot_RunCommand(t *testing.T) {
	runner := &fakeRunner{accept: true}
	bot, tg := newTestBot(t, runner, nil)

	bot.handleMessage(context.Background(), command(42, "/run"))
	runner.accept = false
	bot.handleMessage(context.Background(), command(42, "/run"))

	msgs := tg.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, msgRunStarted, msgs[0].text)
	require.Equal(t, msgRunBusy, msgs[1].text)
	require.Equal(t, 2, runner.calls)
}

func TestBot_StatusCommand(t *testing.T) {
	last := app.RunSummary{Cursor: 120, Accepted: 7, StopReason: app.StopBound}
	bot, tg := newTestBot(t, nil, staticStatus{Runs: 3, Last: &last})

	bot.handleMessage(context.Background(), command(42, "/status"))

	msgs := tg.messages()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].text, "Прогонов: 3")
	require.Contains(t, msgs[0].text, "cursor 120")
}

func TestBot_IgnoresForeignChats(t *testing.T) {
	runner := &fakeRunner{accept: true}
	bot, tg := newTestBot(t, runner, nil)

	bot.handleMessage(context.Background(), command(7, "/run"))

	require.Empty(t, tg.messages())
	require.Zero(t, runner.calls)
}

func TestBot_UnknownCommand(t *testing.T) {
	bot, tg := newTestBot(t, nil, nil)

	bot.handleMessage(context.Background(), command(42, "/foo"))
	bot.handleMessage(context.Background(), command(42, "/status"))

	msgs := tg.messages()
	require.Len(t, msgs, 2)
	require.Equal(t, msgUnknownCommand, msgs[0].text)
	require.Equal(t, msgNoRuns, msgs[1].text)
}
