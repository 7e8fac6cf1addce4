package main

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ivanoskov/ledger_bot/internal/bot"
	"github.com/ivanoskov/ledger_bot/internal/config"
	"github.com/ivanoskov/ledger_bot/internal/container"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Request структура входящего запроса от API Gateway
type Request struct {
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
}

// Response структура ответа для API Gateway
type Response struct {
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

func Handler(ctx context.Context, request Request) (*Response, error) {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err)
	}

	if !secretMatches(cfg.WebhookSecret, request.Headers) {
		return &Response{StatusCode: http.StatusUnauthorized, Body: "invalid secret token"}, nil
	}

	c, err := container.NewContainer(cfg)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err)
	}
	defer c.Close()

	// Инициализация бота
	b, err := bot.NewBot(cfg.TelegramToken, c.Controller, c.Charts, c.Log)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err)
	}

	// Обработка webhook-обновления
	if err := b.HandleWebhook(ctx, []byte(request.Body)); err != nil {
		c.Log.WithError(err).Error("Не удалось обработать webhook")
		return errorResponse(http.StatusBadRequest, err)
	}

	return &Response{
		StatusCode: http.StatusOK,
		Body:       "",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

// secretMatches проверяет заголовок с секретом webhook. Пустой секрет
// отключает проверку. Имена заголовков сравниваются без учета регистра.
func secretMatches(secret string, headers map[string]string) bool {
	if secret == "" {
		return true
	}
	for name, value := range headers {
		if strings.EqualFold(name, secretHeader) {
			return subtle.ConstantTimeCompare([]byte(value), []byte(secret)) == 1
		}
	}
	return false
}

func errorResponse(status int, err error) (*Response, error) {
	return &Response{
		StatusCode: status,
		Body:       err.Error(),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func main() {
	// Точка входа для локального тестирования
}
