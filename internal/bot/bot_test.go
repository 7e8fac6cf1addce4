package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/ledger_bot/internal/category"
	"github.com/ivanoskov/ledger_bot/internal/charts"
	"github.com/ivanoskov/ledger_bot/internal/dialogue"
	"github.com/ivanoskov/ledger_bot/internal/logging"
	"github.com/ivanoskov/ledger_bot/internal/repository"
	"github.com/ivanoskov/ledger_bot/internal/service"
)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.Chattable
	updates chan tgbotapi.Update
	stopped bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.stopped = true
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeAPI) photos() []tgbotapi.PhotoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range f.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

type failingDialogue struct{}

func (failingDialogue) Handle(context.Context, string, string) (dialogue.Reply, error) {
	return dialogue.Reply{}, errors.New("database is locked")
}

func (failingDialogue) Keywords() []string { return nil }

func newTestBot(t *testing.T, withCharts bool) (*Bot, *fakeAPI) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	tax := category.Default()
	ctrl := dialogue.NewController(repo, service.NewLedger(repo, tax), tax, logging.Discard())

	var gen *charts.ChartGenerator
	if withCharts {
		gen = charts.NewChartGenerator()
	}
	api := &fakeAPI{}
	return newBot(api, ctrl, gen, logging.Discard()), api
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID * 10},
	}
	if strings.HasPrefix(text, "/") {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}}
	}
	return tgbotapi.Update{Message: msg}
}

func TestStartShowsKeyboard(t *testing.T) {
	b, api := newTestBot(t, false)

	require.NoError(t, b.handleUpdate(context.Background(), textUpdate(1, "/start")))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(10), msgs[0].ChatID)
	kb, ok := msgs[0].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "add", kb.Keyboard[0][0].Text)
}

func TestMessagesGoThroughDialogue(t *testing.T) {
	b, api := newTestBot(t, false)
	ctx := context.Background()

	require.NoError(t, b.handleUpdate(ctx, textUpdate(1, "/add")))
	require.NoError(t, b.handleUpdate(ctx, textUpdate(1, "meal breakfast -50")))

	msgs := api.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Add an expense or income record with category, description, and amount: ", msgs[0].Text)
	assert.Equal(t, "Successfully add a record No.1: meal breakfast -50", msgs[1].Text)
	assert.Empty(t, msgs[1].ParseMode)
}

func TestListingIsPreformattedWithCharts(t *testing.T) {
	b, api := newTestBot(t, true)
	ctx := context.Background()

	for _, text := range []string{"add", "meal breakfast -50", "add", "salary june 3000", "view"} {
		require.NoError(t, b.handleUpdate(ctx, textUpdate(1, text)))
	}

	msgs := api.messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, tgbotapi.ModeHTML, last.ParseMode)
	assert.True(t, strings.HasPrefix(last.Text, "<pre>Here&#39;s your expense and income records:"))
	assert.Contains(t, last.Text, "Now you have 2950 dollars.")

	// баланс и расходы по категориям
	assert.Len(t, api.photos(), 2)
}

func TestChartsDisabled(t *testing.T) {
	b, api := newTestBot(t, false)
	ctx := context.Background()

	for _, text := range []string{"add", "meal breakfast -50", "view"} {
		require.NoError(t, b.handleUpdate(ctx, textUpdate(1, text)))
	}
	assert.Empty(t, api.photos())
}

func TestDialogueFailureSendsErrorMessage(t *testing.T) {
	api := &fakeAPI{}
	b := newBot(api, failingDialogue{}, nil, logging.Discard())

	require.NoError(t, b.handleUpdate(context.Background(), textUpdate(1, "view")))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0].Text, "❌ "))
}

func TestIgnoresNonMessageUpdates(t *testing.T) {
	b, api := newTestBot(t, false)

	require.NoError(t, b.handleUpdate(context.Background(), tgbotapi.Update{}))
	assert.Empty(t, api.sent)
}

func TestHandleWebhook(t *testing.T) {
	b, api := newTestBot(t, false)

	body := `{"update_id":1,"message":{"message_id":1,"from":{"id":7},"chat":{"id":70},"text":"help"}}`
	require.NoError(t, b.HandleWebhook(context.Background(), []byte(body)))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(70), msgs[0].ChatID)
	assert.True(t, strings.HasPrefix(msgs[0].Text, "Available commands:"))

	assert.Error(t, b.HandleWebhook(context.Background(), []byte("{")))
}

func TestStartStopsOnClosedChannel(t *testing.T) {
	b, api := newTestBot(t, false)
	api.updates = make(chan tgbotapi.Update, 1)
	api.updates <- textUpdate(1, "help")
	close(api.updates)

	require.NoError(t, b.Start(context.Background()))
	assert.True(t, api.stopped)
	assert.Len(t, api.messages(), 1)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))

	chunks := splitMessage("aaaa\nbbbb\ncccc\n", 10)
	assert.Equal(t, []string{"aaaa\nbbbb\n", "cccc\n"}, chunks)

	chunks = splitMessage("abcdefghijkl\nxy", 5)
	assert.Equal(t, []string{"abcde", "fghij", "kl\nxy"}, chunks)

	long := strings.Repeat("row of a table\n", 500)
	var total int
	for _, c := range splitMessage(long, maxMessageLength) {
		assert.LessOrEqual(t, len(c), maxMessageLength)
		total += len(c)
	}
	assert.Equal(t, len(long), total)
}

func TestMainKeyboard(t *testing.T) {
	kb := mainKeyboard([]string{"add", "view", "delete", "edit", "find", "view categories", "help"})

	require.Len(t, kb.Keyboard, 4)
	assert.Len(t, kb.Keyboard[3], 1)
	assert.Equal(t, "view categories", kb.Keyboard[2][1].Text)
	assert.True(t, kb.ResizeKeyboard)
}

// blockingDialogue держит сообщения пользователя "1" до закрытия release
type blockingDialogue struct {
	release chan struct{}
	handled chan string
}

func (d *blockingDialogue) Handle(ctx context.Context, userID, text string) (dialogue.Reply, error) {
	if userID == "1" {
		<-d.release
	}
	d.handled <- userID
	return dialogue.Reply{Text: "ok"}, nil
}

func (d *blockingDialogue) Keywords() []string { return nil }

func TestSlowUserDoesNotBlockOthers(t *testing.T) {
	d := &blockingDialogue{release: make(chan struct{}), handled: make(chan string, 2)}
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 2)}
	b := newBot(api, d, nil, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- b.Start(ctx) }()

	api.updates <- textUpdate(1, "view")
	api.updates <- textUpdate(2, "view")

	select {
	case user := <-d.handled:
		assert.Equal(t, "2", user)
	case <-time.After(2 * time.Second):
		t.Fatal("user 2 waited for user 1")
	}

	close(d.release)
	assert.Equal(t, "1", <-d.handled)

	cancel()
	require.NoError(t, <-stopped)
}

func TestShardKeepsUserOnOneWorker(t *testing.T) {
	assert.Equal(t, shard(textUpdate(9, "add"), workers), shard(textUpdate(9, "view"), workers))
	assert.NotEqual(t, shard(textUpdate(1, "add"), workers), shard(textUpdate(2, "add"), workers))
	assert.Equal(t, 0, shard(tgbotapi.Update{}, workers))
}

func TestNonTextMessageKeepsFlow(t *testing.T) {
	b, api := newTestBot(t, false)
	ctx := context.Background()

	require.NoError(t, b.handleUpdate(ctx, textUpdate(1, "add")))

	sticker := textUpdate(1, "")
	sticker.Message.Sticker = &tgbotapi.Sticker{FileID: "sticker"}
	require.NoError(t, b.handleUpdate(ctx, sticker))
	assert.Len(t, api.messages(), 1)

	require.NoError(t, b.handleUpdate(ctx, textUpdate(1, "meal breakfast -50")))
	msgs := api.messages()
	assert.Equal(t, "Successfully add a record No.1: meal breakfast -50", msgs[len(msgs)-1].Text)
}

func TestEscapedListingFitsTelegramLimit(t *testing.T) {
	b, api := newTestBot(t, false)
	ctx := context.Background()

	desc := strings.Repeat("&", 20)
	for i := 0; i < 60; i++ {
		require.NoError(t, b.handleUpdate(ctx, textUpdate(1, "add")))
		require.NoError(t, b.handleUpdate(ctx, textUpdate(1, "meal "+desc+" -1")))
	}
	api.sent = nil
	require.NoError(t, b.handleUpdate(ctx, textUpdate(1, "view")))

	msgs := api.messages()
	require.Greater(t, len(msgs), 1)
	var table strings.Builder
	for _, m := range msgs {
		assert.LessOrEqual(t, len(m.Text), maxMessageLength)
		assert.True(t, strings.HasPrefix(m.Text, "<pre>"))
		assert.True(t, strings.HasSuffix(m.Text, "</pre>"))
		table.WriteString(strings.TrimSuffix(strings.TrimPrefix(m.Text, "<pre>"), "</pre>"))
	}
	assert.Contains(t, table.String(), "Now you have -60 dollars.")
	assert.Equal(t, 60, strings.Count(table.String(), strings.Repeat("&amp;", 20)))
}

func TestSplitMessageKeepsRunes(t *testing.T) {
	text := strings.Repeat("é", 20)

	var joined strings.Builder
	for _, c := range splitMessage(text, 5) {
		assert.True(t, utf8.ValidString(c), "chunk %q", c)
		assert.LessOrEqual(t, len(c), 5)
		joined.WriteString(c)
	}
	assert.Equal(t, text, joined.String())
}

func TestSplitMessageKeepsEntities(t *testing.T) {
	chunks := splitMessage(strings.Repeat("&amp;", 10), 7)

	require.Len(t, chunks, 10)
	for _, c := range chunks {
		assert.Equal(t, "&amp;", c)
	}
}
