package common

import (
	"context"
	"strconv"
)

// Sender отправляет текстовое сообщение в чат. Реализуется транспортом
// бота; обработчики фич зависят только от этого интерфейса.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Names возвращает отображаемое имя пользователя для ответов и отчётов.
type Names interface {
	DisplayName(ctx context.Context, userID int64) string
}

// ParseDays разбирает необязательный аргумент «число дней».
// Пусто — def; не число или меньше 1 — ошибка валидации.
func ParseDays(args []string, def int) (int, error) {
	if len(args) == 0 {
		return def, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, NewValidationError("days", "число дней должно быть целым и больше нуля")
	}
	return n, nil
}
