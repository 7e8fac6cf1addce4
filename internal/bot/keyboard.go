package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const keyboardColumns = 2

// mainKeyboard раскладывает ключевые слова команд по две кнопки в ряд.
// Нажатие кнопки отправляет ключевое слово как обычный текст.
func mainKeyboard(keywords []string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(keywords); i += keyboardColumns {
		end := min(i+keyboardColumns, len(keywords))

		var row []tgbotapi.KeyboardButton
		for _, kw := range keywords[i:end] {
			row = append(row, tgbotapi.NewKeyboardButton(kw))
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(row...))
	}

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}
