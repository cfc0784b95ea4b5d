package bot

import (
	"context"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// TelegramSender отправляет сообщения и проверяет членство через Bot API.
type TelegramSender struct {
	api *telego.Bot
}

// NewTelegramSender оборачивает клиент telego.
func NewTelegramSender(api *telego.Bot) *TelegramSender {
	return &TelegramSender{api: api}
}

func (s *TelegramSender) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := s.api.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	return err
}

// IsChatMember — состоит ли пользователь в чате (включая админов
// и ограниченных участников).
func (s *TelegramSender) IsChatMember(ctx context.Context, chatID, userID int64) (bool, error) {
	cm, err := s.api.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: tu.ID(chatID),
		UserID: userID,
	})
	if err != nil {
		return false, err
	}
	switch cm.MemberStatus() {
	case "creator", "administrator", "member", "restricted":
		return true, nil
	}
	return false, nil
}
