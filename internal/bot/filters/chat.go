// Package filters решает, отвечает ли бот на сообщение: основной чат,
// чат золотого жетона и личные сообщения участников основного чата.
package filters

import (
	"context"
	"errors"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/features/members"
)

// MembershipChecker спрашивает Telegram, состоит ли пользователь в чате.
type MembershipChecker interface {
	IsChatMember(ctx context.Context, chatID, userID int64) (bool, error)
}

type ChatFilter struct {
	mainChatID    int64
	goldenChatID  int64
	memberService *members.Service
	checker       MembershipChecker
	sender        common.Sender
}

// NewChatFilter создаёт фильтр. mainChatID == 0 — бот отвечает везде.
func NewChatFilter(mainChatID, goldenChatID int64, memberService *members.Service, checker MembershipChecker, sender common.Sender) *ChatFilter {
	return &ChatFilter{
		mainChatID:    mainChatID,
		goldenChatID:  goldenChatID,
		memberService: memberService,
		checker:       checker,
		sender:        sender,
	}
}

func (f *ChatFilter) CheckAccess(ctx context.Context, message *telego.Message) bool {
	if message == nil {
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Debug("nil message.From (service/channel message?)")
		return false
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	logger := log.WithFields(log.Fields{
		"component":    "ChatFilter",
		"chat_id":      chatID,
		"chat_type":    message.Chat.Type,
		"user_id":      userID,
		"main_chat_id": f.mainChatID,
	})

	// 1) Без основного чата ограничений нет
	if f.mainChatID == 0 {
		return true
	}

	// 2) Разрешённые чаты
	if chatID == f.mainChatID || (f.goldenChatID != 0 && chatID == f.goldenChatID) {
		return true
	}

	if message.Chat.Type != telego.ChatTypePrivate {
		logger.Debug("deny: foreign group")
		return false
	}

	// 3) Личка: сначала справочник
	_, err := f.memberService.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		return true
	case !errors.Is(err, common.ErrNotFound):
		logger.WithError(err).Error("member check failed (store)")
		return false
	}

	// 3.1) Справочник не знает пользователя: спрашиваем Telegram
	ok, err := f.checker.IsChatMember(ctx, f.mainChatID, userID)
	if err != nil {
		logger.WithError(err).Error("member check failed (telegram GetChatMember)")
		return false
	}
	if !ok {
		logger.Info("deny: private (not a chat member)")
		if sendErr := f.sender.SendText(ctx, chatID, "❌ Бот работает только для участников основного чата"); sendErr != nil {
			logger.WithError(sendErr).Warn("failed to send deny message")
		}
		return false
	}

	if err := f.memberService.EnsureMember(ctx, members.UserInfo{
		UserID:    userID,
		Username:  message.From.Username,
		FirstName: message.From.FirstName,
		LastName:  message.From.LastName,
		IsBot:     message.From.IsBot,
	}); err != nil {
		logger.WithError(err).Warn("failed to backfill member (allowing anyway)")
	}
	logger.Info("allow: private (telegram member, backfilled)")
	return true
}
