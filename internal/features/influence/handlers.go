// Package influence — handlers.go обрабатывает команду !влияние [дни].
package influence

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
)

// Handler отвечает на команду !влияние.
type Handler struct {
	service *Service
	names   common.Names
	sender  common.Sender
}

const maxTextLength = 200

// NewHandler создаёт обработчик анализа влияния.
func NewHandler(service *Service, names common.Names, sender common.Sender) *Handler {
	return &Handler{service: service, names: names, sender: sender}
}

// HandleInfluence обрабатывает !влияние [дни].
func (h *Handler) HandleInfluence(ctx context.Context, chatID int64, args []string) {
	days, err := common.ParseDays(args, DefaultDays)
	if err != nil {
		h.send(ctx, chatID, "❌ Формат: !влияние [дни]")
		return
	}

	r, err := h.service.Influential(ctx, "", days)
	if err != nil {
		log.WithError(err).Error("Ошибка анализа влияния")
		h.send(ctx, chatID, "❌ Ошибка анализа влияния")
		return
	}
	if len(r.Messages) == 0 {
		h.send(ctx, chatID, fmt.Sprintf(
			"📭 За %d %s нет благодарностей, которые подхватили другие.\nВлиятельная благодарность: исходная, на которую ответили +1 с тем же текстом.",
			days, common.PluralizeDays(days)))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🌊 Самые влиятельные благодарности за %d %s\n", days, common.PluralizeDays(days))
	for i, m := range r.Messages {
		fmt.Fprintf(&sb, "\n%d. «%s»\n   автор: %s, %s\n   подхватили: %d (разных людей: %d)\n",
			i+1,
			common.Truncate(m.Text, maxTextLength),
			h.names.DisplayName(ctx, m.Originator),
			common.FormatDateTime(m.OriginAt, h.service.ledger.Config().Location()),
			m.EchoCount, m.UniqueEchoers,
		)
	}
	if r.Influential > len(r.Messages) {
		fmt.Fprintf(&sb, "\nПоказаны %d из %d.\n", len(r.Messages), r.Influential)
	}
	h.send(ctx, chatID, sb.String())
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if err := h.sender.SendText(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
