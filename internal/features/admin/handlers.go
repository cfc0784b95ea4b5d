// Package admin — handlers.go обрабатывает /login, !списать и !возврат.
// Вход возможен только в личных сообщениях.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
)

// Handler обрабатывает админ-команды.
type Handler struct {
	service *Service
	names   common.Names
	sender  common.Sender
}

// NewHandler создаёт обработчик админ-команд.
func NewHandler(service *Service, names common.Names, sender common.Sender) *Handler {
	return &Handler{service: service, names: names, sender: sender}
}

// HandleLogin обрабатывает /login [пароль]. Без пароля бот ждёт его
// следующим сообщением.
func (h *Handler) HandleLogin(ctx context.Context, chatID, userID int64, private bool, args []string) {
	if !h.service.IsAdmin(userID) {
		h.send(ctx, chatID, "❌ "+common.ErrNotAdmin.Error())
		return
	}
	if !private {
		h.send(ctx, chatID, "🔐 Вход только в личных сообщениях с ботом")
		return
	}
	if len(args) == 0 {
		h.service.SetState(userID, StateAwaitingPassword)
		h.send(ctx, chatID, "🔐 Введите пароль:")
		return
	}
	h.login(ctx, chatID, userID, strings.Join(args, " "))
}

// HandleAdminMessage перехватывает обычное сообщение в личке, если
// бот ждёт от админа пароль. Возвращает true, если сообщение обработано.
func (h *Handler) HandleAdminMessage(ctx context.Context, chatID, userID int64, text string) bool {
	state := h.service.GetState(userID)
	if state == nil || state.State != StateAwaitingPassword {
		return false
	}
	h.service.ClearState(userID)
	h.login(ctx, chatID, userID, strings.TrimSpace(text))
	return true
}

func (h *Handler) login(ctx context.Context, chatID, userID int64, password string) {
	session, err := h.service.Login(ctx, userID, password)
	if err != nil {
		h.send(ctx, chatID, "❌ "+err.Error())
		return
	}
	loc := h.service.cfg.Location()
	h.send(ctx, chatID, fmt.Sprintf("✅ Вход выполнен. Сессия действует до %s", common.FormatDateTime(session.ExpiresAt, loc)))
}

// HandleLogout обрабатывает /logout.
func (h *Handler) HandleLogout(ctx context.Context, chatID, userID int64) {
	h.service.Logout(userID)
	h.send(ctx, chatID, "👋 Сессия закрыта")
}

// HandleDeduct обрабатывает !списать @user N [причина]; user уже найден.
func (h *Handler) HandleDeduct(ctx context.Context, chatID, admin, user int64, args []string) {
	if len(args) == 0 {
		h.send(ctx, chatID, "❌ Формат: !списать @username сумма [причина]")
		return
	}
	value, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || value <= 0 {
		h.send(ctx, chatID, "❌ Сумма должна быть положительным числом")
		return
	}
	reason := strings.Join(args[1:], " ")
	if reason == "" {
		reason = "ручное списание"
	}

	d, err := h.service.Deduct(ctx, admin, user, value, reason)
	if err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	h.send(ctx, chatID, fmt.Sprintf("✅ У %s списано %s %s\nСписание %s, отменить: !возврат %s",
		h.names.DisplayName(ctx, user), common.FormatNumber(d.Value), common.PluralizePoints(d.Value), d.ID, d.ID))
}

// HandleRefund обрабатывает !возврат <id>.
func (h *Handler) HandleRefund(ctx context.Context, chatID, admin int64, args []string) {
	if len(args) != 1 {
		h.send(ctx, chatID, "❌ Формат: !возврат id_списания")
		return
	}
	res, err := h.service.Refund(ctx, admin, args[0])
	if err != nil {
		h.sendError(ctx, chatID, err)
		return
	}
	name := h.names.DisplayName(ctx, res.Debit.User)
	if !res.Changed {
		h.send(ctx, chatID, fmt.Sprintf("ℹ️ Списание %s уже возвращено", res.Debit.ID))
		return
	}
	h.send(ctx, chatID, fmt.Sprintf("↩️ %s возвращено %s %s",
		name, common.FormatNumber(res.Debit.Value), common.PluralizePoints(res.Debit.Value)))
}

func (h *Handler) sendError(ctx context.Context, chatID int64, err error) {
	switch {
	case errors.Is(err, common.ErrNotAdmin), errors.Is(err, common.ErrSessionExpired):
		h.send(ctx, chatID, "🔐 "+err.Error()+" (/login в личных сообщениях)")
	case errors.Is(err, common.ErrNotFound):
		h.send(ctx, chatID, "❌ Списание не найдено")
	case errors.Is(err, common.ErrValidation):
		h.send(ctx, chatID, "❌ "+err.Error())
	default:
		log.WithError(err).Error("Ошибка админ-команды")
		h.send(ctx, chatID, "❌ Внутренняя ошибка, попробуйте позже")
	}
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if err := h.sender.SendText(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
