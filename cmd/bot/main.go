package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ivanoskov/ledger_bot/internal/bot"
	"github.com/ivanoskov/ledger_bot/internal/config"
	"github.com/ivanoskov/ledger_bot/internal/container"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	c, err := container.NewContainer(cfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			c.Log.WithError(err).Error("Ошибка при закрытии зависимостей")
		}
	}()

	b, err := bot.NewBot(cfg.TelegramToken, c.Controller, c.Charts, c.Log)
	if err != nil {
		c.Log.WithError(err).Error("Не удалось запустить бота")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.Log.Info("Бот запущен")
	if err := b.Start(ctx); err != nil {
		c.Log.WithError(err).Error("Бот остановлен с ошибкой")
	}
}
