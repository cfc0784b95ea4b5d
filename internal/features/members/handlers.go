// Package members — handlers.go обрабатывает вступление новых участников.
package members

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает события участников.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик событий участников.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleNewChatMembers регистрирует каждого вступившего. Ошибка одного
// пользователя не мешает остальным.
func (h *Handler) HandleNewChatMembers(ctx context.Context, users []UserInfo) {
	for _, u := range users {
		if err := h.service.HandleNewMember(ctx, u); err != nil {
			log.WithError(err).WithField("user_id", u.UserID).Error("Ошибка регистрации нового участника")
		}
	}
}
