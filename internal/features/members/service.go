// Package members — service.go содержит регистрацию участников
// и поиск по @username.
package members

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/config"
	"serotonyl.ru/recognition-bot/internal/model"
	"serotonyl.ru/recognition-bot/internal/store"
)

// Service управляет справочником участников.
type Service struct {
	store store.Store
	cfg   *config.Config
	now   common.Clock
}

// NewService создаёт сервис участников.
func NewService(st store.Store, cfg *config.Config, clock common.Clock) *Service {
	if clock == nil {
		clock = common.SystemClock
	}
	return &Service{store: st, cfg: cfg, now: clock}
}

func (s *Service) timeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// HandleNewMember регистрирует вступившего пользователя.
// Если он уже есть (перезашёл) — обновляет имя и username.
func (s *Service) HandleNewMember(ctx context.Context, u UserInfo) error {
	if u.UserID == 0 {
		return common.NewValidationError("user_id", "не указан пользователь")
	}
	now := s.now().UTC()
	m := &model.Member{
		UserID:    u.UserID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsBot:     u.IsBot,
		JoinedAt:  now,
		UpdatedAt: now,
	}

	ctx, cancel := s.timeout(ctx)
	defer cancel()
	if err := s.store.UpsertMember(ctx, m); err != nil {
		return fmt.Errorf("ошибка регистрации участника: %w", err)
	}

	log.WithFields(log.Fields{
		"user_id":  u.UserID,
		"username": u.Username,
	}).Info("Участник зарегистрирован")
	return nil
}

// EnsureMember гарантирует, что пользователь есть в справочнике и его
// данные актуальны. Пишет в хранилище, только если что-то изменилось.
func (s *Service) EnsureMember(ctx context.Context, u UserInfo) error {
	existing, err := s.GetByUserID(ctx, u.UserID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	if existing != nil &&
		existing.Username == u.Username &&
		existing.FirstName == u.FirstName &&
		existing.LastName == u.LastName &&
		existing.IsBot == u.IsBot {
		return nil
	}
	return s.HandleNewMember(ctx, u)
}

// GetByUserID возвращает участника по Telegram user ID.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*model.Member, error) {
	ctx, cancel := s.timeout(ctx)
	defer cancel()
	return s.store.GetMember(ctx, userID)
}

// GetByUsername возвращает участника по @username (с @ или без, без учёта регистра).
func (s *Service) GetByUsername(ctx context.Context, username string) (*model.Member, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, common.NewValidationError("username", "укажите @username")
	}
	ctx, cancel := s.timeout(ctx)
	defer cancel()
	return s.store.GetMemberByUsername(ctx, username)
}

// Resolve находит участников по списку @username. Неизвестные имена
// возвращаются отдельно, чтобы бот мог о них сказать.
func (s *Service) Resolve(ctx context.Context, usernames []string) ([]*model.Member, []string, error) {
	var (
		found   []*model.Member
		missing []string
	)
	for _, name := range usernames {
		m, err := s.GetByUsername(ctx, name)
		switch {
		case errors.Is(err, common.ErrNotFound):
			missing = append(missing, name)
		case err != nil:
			return nil, nil, err
		default:
			found = append(found, m)
		}
	}
	return found, missing, nil
}

// DisplayName — имя для ответов. Незнакомый пользователь отображается как id<N>.
func (s *Service) DisplayName(ctx context.Context, userID int64) string {
	if userID == model.SystemUserID {
		return "система"
	}
	m, err := s.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			log.WithError(err).WithField("user_id", userID).Warn("Не удалось получить имя участника")
		}
		return fmt.Sprintf("id%d", userID)
	}
	if name := m.DisplayName(); name != "" {
		return name
	}
	return fmt.Sprintf("id%d", userID)
}
