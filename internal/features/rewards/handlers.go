// Package rewards — handlers.go обрабатывает !награды и !купить <id>.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/config"
	"serotonyl.ru/recognition-bot/internal/features/balance"
)

// Handler отвечает на команды наград.
type Handler struct {
	service *Service
	balance *balance.Service
	cfg     *config.Config
	names   common.Names
	sender  common.Sender
}

// NewHandler создаёт обработчик наград.
func NewHandler(service *Service, b *balance.Service, cfg *config.Config, names common.Names, sender common.Sender) *Handler {
	return &Handler{service: service, balance: b, cfg: cfg, names: names, sender: sender}
}

// HandleCatalog обрабатывает !награды — каталог и текущий баланс.
func (h *Handler) HandleCatalog(ctx context.Context, chatID, userID int64) {
	bal, err := h.balance.Balance(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения баланса")
		h.send(ctx, chatID, "❌ Ошибка получения баланса")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🎁 Награды\nВаш баланс: %s\n\n", common.FormatBalance(bal))
	for _, r := range h.service.Catalog().Rewards {
		fmt.Fprintf(&sb, "• %s (%s): %s\n", r.Name, r.ID, common.FormatBalance(r.Cost))
		if r.Description != "" {
			fmt.Fprintf(&sb, "  %s\n", r.Description)
		}
	}
	sb.WriteString("\nКупить: !купить <id>")
	h.send(ctx, chatID, sb.String())
}

// HandleRedeem обрабатывает !купить <id>. Администраторы получают
// уведомление в личку, чтобы выдать награду.
func (h *Handler) HandleRedeem(ctx context.Context, chatID, userID int64, args []string) {
	if len(args) == 0 {
		h.send(ctx, chatID, "❌ Формат: !купить <id>, список: !награды")
		return
	}

	d, r, err := h.service.Redeem(ctx, userID, args[0])
	switch {
	case errors.Is(err, common.ErrUnknownReward):
		h.send(ctx, chatID, "❌ Такой награды нет, список: !награды")
		return
	case errors.Is(err, common.ErrInsufficientBalance):
		bal, _ := h.balance.Balance(ctx, userID)
		h.send(ctx, chatID, fmt.Sprintf("❌ Недостаточно баллов: нужно %s, у вас %s",
			common.FormatBalance(r.Cost), common.FormatBalance(bal)))
		return
	case err != nil:
		log.WithError(err).WithField("user_id", userID).Error("Ошибка покупки награды")
		h.send(ctx, chatID, "❌ Не удалось купить награду, попробуйте позже")
		return
	}

	h.send(ctx, chatID, fmt.Sprintf("✅ %s: списано %s. Номер списания: %s",
		r.Name, common.FormatBalance(r.Cost), d.ID))

	note := fmt.Sprintf("🛒 %s купил(а) «%s» за %s.\nСписание %s, отменить: !возврат %s",
		h.names.DisplayName(ctx, userID), r.Name, common.FormatBalance(r.Cost), d.ID, d.ID)
	for _, admin := range h.cfg.AdminIDs {
		h.send(ctx, admin, note)
	}
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if err := h.sender.SendText(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
