// Package report — handlers.go обрабатывает команды !статистика и !отчёт.
package report

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
)

// DefaultDays — окно команд отчётов по умолчанию.
const DefaultDays = 30

const barWidth = 20

// Handler отвечает на команды отчётов.
type Handler struct {
	service *Service
	sender  common.Sender
}

// NewHandler создаёт обработчик отчётов.
func NewHandler(service *Service, sender common.Sender) *Handler {
	return &Handler{service: service, sender: sender}
}

// HandleStats обрабатывает !статистика [дни]: сводка и дневной ряд.
//
// Формат ряда:
//
//	06-10 ████████ 8
//	06-11  0
func (h *Handler) HandleStats(ctx context.Context, chatID int64, args []string) {
	days, err := common.ParseDays(args, DefaultDays)
	if err != nil {
		h.send(ctx, chatID, "❌ Формат: !статистика [дни]")
		return
	}

	sum, err := h.service.ChannelSummary(ctx, "", days)
	if err != nil {
		log.WithError(err).Error("Ошибка построения статистики")
		h.send(ctx, chatID, "❌ Ошибка построения статистики")
		return
	}
	series, err := h.service.DailySeries(ctx, "", days)
	if err != nil {
		log.WithError(err).Error("Ошибка построения дневного ряда")
		h.send(ctx, chatID, "❌ Ошибка построения статистики")
		return
	}

	var sb strings.Builder
	sb.WriteString(h.service.FormatSummary(ctx, sum))
	if sum.Grants > 0 {
		sb.WriteString("\nПо дням:\n")
		sb.WriteString(renderSeries(series))
	}
	h.send(ctx, chatID, sb.String())
}

func renderSeries(series []DayPoint) string {
	peak := 0
	for _, p := range series {
		peak = max(peak, p.Count)
	}
	var sb strings.Builder
	for _, p := range series {
		bar := 0
		if peak > 0 {
			bar = p.Count * barWidth / peak
		}
		fmt.Fprintf(&sb, "%s %s %d\n", p.Date[5:], strings.Repeat("█", bar), p.Count)
	}
	return sb.String()
}

// HandleUserReport обрабатывает !отчёт [@user] [дни] для уже найденного user.
func (h *Handler) HandleUserReport(ctx context.Context, chatID, user int64, args []string) {
	days, err := common.ParseDays(args, DefaultDays)
	if err != nil {
		h.send(ctx, chatID, "❌ Формат: !отчёт [@username] [дни]")
		return
	}

	r, err := h.service.UserReport(ctx, user, "", days)
	if err != nil {
		log.WithError(err).WithField("user_id", user).Error("Ошибка построения отчёта")
		h.send(ctx, chatID, "❌ Ошибка построения отчёта")
		return
	}

	name := h.service.names.DisplayName(ctx, user)
	if r.Total == 0 {
		h.send(ctx, chatID, fmt.Sprintf("📭 %s не получал(а) благодарностей за %d %s", name, days, common.PluralizeDays(days)))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 %s: %s %s за %d %s\n", name,
		common.FormatNumber(int64(r.Total)), common.PluralizeThanks(int64(r.Total)),
		days, common.PluralizeDays(days))
	sb.WriteString("\nЗа что благодарили:\n")
	for i, m := range r.TopMessages {
		fmt.Fprintf(&sb, "%d. «%s» ×%d\n", i+1, common.Truncate(m.Message, 120), m.Count)
	}
	sb.WriteString("\nПо неделям:\n")
	for _, w := range r.Weekly {
		fmt.Fprintf(&sb, "с %s: %d\n", w.WeekStart, w.Count)
	}
	h.send(ctx, chatID, sb.String())
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if err := h.sender.SendText(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
