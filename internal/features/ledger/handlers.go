package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/model"
)

// Handler отвечает на благодарности в чате.
type Handler struct {
	service *Service
	names   common.Names
	sender  common.Sender
}

// NewHandler создаёт обработчик благодарностей.
func NewHandler(service *Service, names common.Names, sender common.Sender) *Handler {
	return &Handler{service: service, names: names, sender: sender}
}

// HandleGratitude записывает благодарность и отвечает в чат.
// unknown — упомянутые @username, которых бот ещё не видел; если они
// есть, ничего не записывается.
func (h *Handler) HandleGratitude(ctx context.Context, in GratitudeInput, unknown []string) {
	if len(unknown) > 0 {
		h.send(ctx, in.ChatID, fmt.Sprintf("❌ Не знаю %s. Пусть напишут в чат хотя бы одно сообщение",
			strings.Join(unknown, ", ")))
		return
	}

	grants, err := h.service.Gratitude(ctx, in)
	if err != nil {
		var verr *common.ValidationError
		if errors.As(err, &verr) {
			h.send(ctx, in.ChatID, "❌ Благодарность не засчитана:\n"+verr.Reason)
			return
		}
		log.WithError(err).WithField("giver", in.Giver).Error("Ошибка записи благодарности")
		h.send(ctx, in.ChatID, "❌ Внутренняя ошибка, попробуйте позже")
		return
	}

	var names []string
	seen := make(map[int64]bool)
	for _, g := range grants {
		if !seen[g.Receiver] {
			seen[g.Receiver] = true
			names = append(names, h.names.DisplayName(ctx, g.Receiver))
		}
	}

	var sb strings.Builder
	giver := h.names.DisplayName(ctx, in.Giver)
	if in.Source == model.SourceEcho {
		fmt.Fprintf(&sb, "✅ %s подхватил(а) благодарность: %s", giver, strings.Join(names, ", "))
	} else {
		fmt.Fprintf(&sb, "✅ %s → %s", giver, strings.Join(names, ", "))
		if in.Count > 1 {
			fmt.Fprintf(&sb, " ×%d", in.Count)
		}
	}

	remaining, err := h.service.DailyRemaining(ctx, in.Giver, in.Timezone)
	if err != nil {
		log.WithError(err).Warn("Не удалось посчитать остаток лимита")
	} else if remaining != Unlimited {
		fmt.Fprintf(&sb, "\nОсталось на сегодня: %d", remaining)
	}
	h.send(ctx, in.ChatID, sb.String())
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if err := h.sender.SendText(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
