// Package leaderboard — handlers.go обрабатывает команду !лидеры [дни].
package leaderboard

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
)

// Handler отвечает на команды рейтинга.
type Handler struct {
	service *Service
	names   common.Names
	sender  common.Sender
}

// NewHandler создаёт обработчик рейтинга.
func NewHandler(service *Service, names common.Names, sender common.Sender) *Handler {
	return &Handler{service: service, names: names, sender: sender}
}

var medals = []string{"🥇", "🥈", "🥉"}

// HandleLeaderboard обрабатывает !лидеры [дни].
//
// Формат ответа:
//
//	🏅 Рейтинг за 30 дней
//
//	Отправители (с весом подхваченных):
//	🥇 Иван: 4.5
//	...
func (h *Handler) HandleLeaderboard(ctx context.Context, chatID int64, args []string) {
	days, err := common.ParseDays(args, DefaultDays)
	if err != nil {
		h.send(ctx, chatID, "❌ Формат: !лидеры [дни]")
		return
	}

	board, err := h.service.Leaderboard(ctx, "", days)
	if err != nil {
		log.WithError(err).Error("Ошибка построения рейтинга")
		h.send(ctx, chatID, "❌ Ошибка построения рейтинга")
		return
	}
	if board.Empty() {
		h.send(ctx, chatID, fmt.Sprintf("📭 За %d %s благодарностей не было", days, common.PluralizeDays(days)))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏅 Рейтинг за %d %s\n", days, common.PluralizeDays(days))
	h.section(ctx, &sb, "Отправители (подхваченные весят 0.5)", board.WeightedGivers)
	h.section(ctx, &sb, "Получатели", board.Receivers)
	h.section(ctx, &sb, "Щедрость с учётом разнообразия", board.Givers)
	h.section(ctx, &sb, "Исходные благодарности", board.InitialGivers)
	h.send(ctx, chatID, sb.String())
}

func (h *Handler) section(ctx context.Context, sb *strings.Builder, title string, entries []Entry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n%s:\n", title)
	for i, e := range entries {
		place := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			place = medals[i]
		}
		fmt.Fprintf(sb, "%s %s: %s\n", place, h.names.DisplayName(ctx, e.User), formatScore(e.Score))
	}
}

func formatScore(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if err := h.sender.SendText(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
