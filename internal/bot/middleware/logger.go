// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники и rate-limiting.
package middleware

import (
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
)

// LogMessage логирует входящее сообщение.
// Записывает: user_id, chat_id, username, текст (первые 50 символов).
// Текст из личных сообщений не пишется: там бывают пароли.
func LogMessage(message *telego.Message) {
	if message == nil || message.From == nil {
		return
	}

	fields := log.Fields{
		"user_id":  message.From.ID,
		"chat_id":  message.Chat.ID,
		"username": message.From.Username,
	}
	if message.Chat.Type != telego.ChatTypePrivate {
		text := []rune(message.Text)
		if len(text) > 50 {
			text = append(text[:50], []rune("...")...)
		}
		fields["text"] = string(text)
	}
	log.WithFields(fields).Debug("Входящее сообщение")
}
