package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/ivanoskov/ledger_bot/internal/charts"
	"github.com/ivanoskov/ledger_bot/internal/dialogue"
	"github.com/ivanoskov/ledger_bot/internal/logging"
)

// Ограничение Telegram на длину текста сообщения
const maxMessageLength = 4096

// Число обработчиков long polling и длина очереди каждого
const (
	workers   = 8
	queueSize = 16
)

const (
	preOpen  = "<pre>"
	preClose = "</pre>"
)

// Dialogue обрабатывает текст пользователя и возвращает ответ
type Dialogue interface {
	Handle(ctx context.Context, userID, text string) (dialogue.Reply, error)
	Keywords() []string
}

// telegramAPI часть tgbotapi.BotAPI, которой пользуется бот
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// slashCommands сопоставляет команды Telegram ключевым словам диалога
var slashCommands = map[string]string{
	"add":        "add",
	"view":       "view",
	"delete":     "delete",
	"edit":       "edit",
	"find":       "find",
	"categories": "view categories",
	"help":       "help",
}

type Bot struct {
	api      telegramAPI
	dialogue Dialogue
	charts   *charts.ChartGenerator
	log      logrus.FieldLogger
}

// NewBot подключается к Telegram. gen может быть nil, тогда графики не
// отправляются.
func NewBot(token string, d Dialogue, gen *charts.ChartGenerator, log logrus.FieldLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return newBot(api, d, gen, log), nil
}

func newBot(api telegramAPI, d Dialogue, gen *charts.ChartGenerator, log logrus.FieldLogger) *Bot {
	return &Bot{
		api:      api,
		dialogue: d,
		charts:   gen,
		log:      log,
	}
}

// Start запускает бота в режиме long polling и работает до отмены ctx.
// Обновления раздаются workers обработчикам по ID пользователя: сообщения
// одного пользователя идут по порядку, разные пользователи не ждут друг друга.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	queues := make([]chan tgbotapi.Update, workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan tgbotapi.Update, queueSize)
		wg.Add(1)
		go func(queue <-chan tgbotapi.Update) {
			defer wg.Done()
			for update := range queue {
				if err := b.handleUpdate(ctx, update); err != nil {
					// Логируем ошибку, но продолжаем работу
					b.log.WithError(err).Error("Ошибка обработки обновления")
				}
			}
		}(queues[i])
	}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case queues[shard(update, workers)] <- update:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// shard выбирает обработчик по ID отправителя
func shard(update tgbotapi.Update, n int) int {
	if update.Message == nil || update.Message.From == nil {
		return 0
	}
	return int(uint64(update.Message.From.ID) % uint64(n))
}

// HandleWebhook - точка входа для обработки входящих webhook-обновлений
func (b *Bot) HandleWebhook(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("failed to decode update: %w", err)
	}

	return b.handleUpdate(ctx, update)
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	message := update.Message
	if message == nil || message.From == nil || message.Chat == nil {
		return nil
	}

	// стикеры, фото и прочее без текста не прерывают начатый сценарий
	if message.Text == "" {
		return nil
	}

	text := message.Text
	if message.IsCommand() {
		cmd := message.Command()
		if cmd == "start" {
			return b.handleStart(message)
		}
		if keyword, ok := slashCommands[cmd]; ok {
			text = keyword
		}
	}

	return b.handleMessage(ctx, message.Chat.ID, strconv.FormatInt(message.From.ID, 10), text)
}

func (b *Bot) handleStart(message *tgbotapi.Message) error {
	msg := tgbotapi.NewMessage(message.Chat.ID,
		"Welcome to the ledger bot! 💰\n\n"+
			"I keep your expense and income records. Pick a command below "+
			"or type \"help\" to see what I can do.")
	msg.ReplyMarkup = mainKeyboard(b.dialogue.Keywords())
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleMessage(ctx context.Context, chatID int64, userID, text string) error {
	log := b.log.WithFields(logrus.Fields{
		logging.FieldUserID: userID,
		logging.FieldChatID: chatID,
	})

	reply, err := b.dialogue.Handle(ctx, userID, text)
	if err != nil {
		log.WithError(err).Error("Не удалось обработать сообщение")
		b.sendErrorMessage(chatID, "Something went wrong, please try again later.")
		return nil
	}

	text, limit := reply.Text, maxMessageLength
	if reply.Listing {
		// таблица выровнена пробелами и читается только моноширинным шрифтом
		text = html.EscapeString(reply.Text)
		limit -= len(preOpen) + len(preClose)
	}
	for _, chunk := range splitMessage(text, limit) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if reply.Listing {
			msg.Text = preOpen + chunk + preClose
			msg.ParseMode = tgbotapi.ModeHTML
		}
		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("failed to send reply: %w", err)
		}
	}

	if reply.Listing {
		b.sendCharts(log, chatID, reply)
	}
	return nil
}

// sendCharts отправляет графики к просмотру записей; ошибки только логируются
func (b *Bot) sendCharts(log logrus.FieldLogger, chatID int64, reply dialogue.Reply) {
	if b.charts == nil {
		return
	}

	renderers := []struct {
		name   string
		render func() ([]byte, error)
	}{
		{"balance.png", func() ([]byte, error) { return b.charts.RunningBalance(reply.Records) }},
		{"expenses.png", func() ([]byte, error) { return b.charts.ExpenseShare(reply.Records) }},
	}
	for _, r := range renderers {
		png, err := r.render()
		if err != nil {
			log.WithError(err).Warn("Не удалось построить график")
			continue
		}
		if png == nil {
			continue
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: r.name, Bytes: png})
		if _, err := b.api.Send(photo); err != nil {
			log.WithError(err).Warn("Не удалось отправить график")
		}
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "❌ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).WithField(logging.FieldChatID, chatID).Error("Не удалось отправить сообщение об ошибке")
	}
}

// splitMessage режет текст по строкам на части не длиннее limit байт.
// Строка длиннее limit режется посередине, но не внутри символа UTF-8 и не
// внутри HTML-сущности вида &amp;.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			cut := cutPoint(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// Самая длинная сущность, которую дает html.EscapeString
const maxEntityLength = len("&#34;")

// cutPoint возвращает позицию разреза s не дальше limit. s длиннее limit.
func cutPoint(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	// незакрытая сущность перед разрезом переносится в следующую часть
	if amp := strings.LastIndexByte(s[max(0, cut-maxEntityLength+1):cut], '&'); amp >= 0 {
		amp += max(0, cut-maxEntityLength+1)
		if !strings.Contains(s[amp:cut], ";") {
			cut = amp
		}
	}
	if cut == 0 {
		// лимит меньше одного символа; режем по байтам
		return limit
	}
	return cut
}
