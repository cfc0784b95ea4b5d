// Package golden — handlers.go обрабатывает передачу жетона (🏆 @user
// или !золото @user) и команду !держатель.
package golden

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/features/ledger"
)

// Handler отвечает на команды золотого жетона.
type Handler struct {
	service *Service
	names   common.Names
	sender  common.Sender
}

// NewHandler создаёт обработчик золотого жетона.
func NewHandler(service *Service, names common.Names, sender common.Sender) *Handler {
	return &Handler{service: service, names: names, sender: sender}
}

// HandleHandoff передаёт жетон единственному получателю из receivers.
// Объявление уходит в GOLDEN_CHAT_ID, если он задан, иначе в исходный чат.
func (h *Handler) HandleHandoff(ctx context.Context, chatID, giverID int64, receivers []int64, text string) {
	if len(receivers) != 1 {
		h.send(ctx, chatID, "❌ Золотой жетон передаётся ровно одному человеку: "+h.service.cfg.GoldenTrigger+" @username за что")
		return
	}

	g, err := h.service.Handoff(ctx, HandoffInput{
		Giver:    giverID,
		Receiver: receivers[0],
		Message:  text,
		ChatID:   chatID,
	})
	if err != nil {
		var verr *common.ValidationError
		switch {
		case errors.As(err, &verr):
			h.send(ctx, chatID, "❌ "+verr.Reason)
		case errors.Is(err, common.ErrNotFound):
			h.send(ctx, chatID, "❌ Золотой жетон ещё никому не выдан")
		default:
			log.WithError(err).WithField("giver", giverID).Error("Ошибка передачи золотого жетона")
			h.send(ctx, chatID, "❌ Не удалось передать жетон, попробуйте позже")
		}
		return
	}

	announce := chatID
	if id := h.service.cfg.GoldenChatID; id != 0 {
		announce = id
	}
	msg := fmt.Sprintf("🏆 Золотой жетон переходит от %s к %s!",
		h.names.DisplayName(ctx, g.Giver), h.names.DisplayName(ctx, g.Receiver))
	if trimmed := ledger.TrimMessage(text, h.service.cfg.GoldenTrigger, h.service.cfg.RecognizeTrigger); trimmed != "" {
		msg += "\n«" + trimmed + "»"
	}
	h.send(ctx, announce, msg)
}

// HandleHolder обрабатывает !держатель.
func (h *Handler) HandleHolder(ctx context.Context, chatID int64) {
	g, err := h.service.Holder(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			h.send(ctx, chatID, "🏆 Золотой жетон ещё никому не выдан")
			return
		}
		log.WithError(err).Error("Ошибка получения держателя жетона")
		h.send(ctx, chatID, "❌ Ошибка получения держателя жетона")
		return
	}

	msg := fmt.Sprintf("🏆 Золотой жетон у %s с %s",
		h.names.DisplayName(ctx, g.Receiver),
		common.FormatDateTime(g.CreatedAt, h.service.cfg.Location()))
	if g.Trimmed != "" {
		msg += "\n«" + g.Trimmed + "»"
	}
	h.send(ctx, chatID, msg)
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if err := h.sender.SendText(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
