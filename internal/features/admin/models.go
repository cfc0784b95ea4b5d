// Package admin реализует админ-доступ к списаниям: вход по паролю в личных
// сообщениях, сессии с ограниченным сроком жизни, ручное списание и возврат.
// models.go описывает сессии, попытки входа и состояние диалога.
package admin

import "time"

// Ограничения входа: MaxAttempts неудачных попыток за AttemptWindow
// блокируют вход до конца окна.
const (
	MaxAttempts   = 3
	AttemptWindow = time.Hour
	stateTTL      = 5 * time.Minute
)

// Session — активная сессия администратора.
type Session struct {
	UserID          int64
	Token           string
	AuthenticatedAt time.Time
	ExpiresAt       time.Time
}

// AdminState — состояние диалога с админом.
type AdminState struct {
	State     string
	ExpiresAt time.Time
}

// Возможные состояния админ-диалога
const (
	StateNone             = ""
	StateAwaitingPassword = "awaiting_password" // после /login без пароля
)
