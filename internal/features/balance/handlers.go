// Package balance — handlers.go обрабатывает команду !баланс.
package balance

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
)

// Handler отвечает на команды баланса.
type Handler struct {
	service *Service
	sender  common.Sender
}

// NewHandler создаёт обработчик команд баланса.
func NewHandler(service *Service, sender common.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleBalance обрабатывает !баланс.
//
// Формат ответа:
//
//	💰 Баланс: 42 балла
//	🤜 Благодарностей: 17
//	🏆 Золотых жетонов: 1 (×25)
//	🛒 Потрачено: 0 баллов
func (h *Handler) HandleBalance(ctx context.Context, chatID, userID int64) {
	sum, err := h.service.Summary(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения баланса")
		h.send(ctx, chatID, "❌ Ошибка получения баланса")
		return
	}

	text := fmt.Sprintf("💰 Баланс: %s\n🤜 Благодарностей: %s\n🏆 Золотых жетонов: %d (×%d)\n🛒 Потрачено: %s",
		common.FormatBalance(sum.Balance),
		common.FormatNumber(sum.Received),
		sum.Golden, h.service.cfg.GoldMultiplier,
		common.FormatBalance(sum.Spent),
	)
	h.send(ctx, chatID, text)
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if err := h.sender.SendText(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
