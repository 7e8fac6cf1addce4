// Package logging настраивает logrus для всех компонентов бота.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Стандартные имена полей структурированного лога
const (
	FieldUserID    = "user_id"
	FieldChatID    = "chat_id"
	FieldStatus    = "status"
	FieldNext      = "next_status"
	FieldRecordID  = "record_id"
	FieldCommand   = "command"
	FieldCategory  = "category"
	FieldCount     = "count"
	FieldEventType = "event_type"
	FieldStorage   = "storage"
)

// New создает логгер с заданным уровнем ("debug", "info", ...) и форматом
// ("json" или "text"). Неизвестный уровень заменяется на info.
func New(level, format string) *logrus.Logger {
	logger := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

// Discard возвращает логгер, который ничего не пишет. Используется в тестах.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
