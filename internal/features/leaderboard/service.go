package leaderboard

import (
	"context"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/config"
	"serotonyl.ru/recognition-bot/internal/features/ledger"
)

// DefaultDays — окно рейтинга, если дни не указаны.
const DefaultDays = 30

// Service строит рейтинги по журналу.
type Service struct {
	ledger *ledger.Service
	cfg    *config.Config
}

// NewService создаёт сервис рейтингов.
func NewService(l *ledger.Service, cfg *config.Config) *Service {
	return &Service{ledger: l, cfg: cfg}
}

// Leaderboard — рейтинги за последние days дней в поясе tz.
// days <= 0 — за всё время; пустое окно — пустые списки без ошибки.
func (s *Service) Leaderboard(ctx context.Context, tz string, days int) (*Board, error) {
	grants, err := s.ledger.Grants(ctx, ledger.Query{Timezone: tz, Days: days})
	if err != nil {
		return nil, err
	}
	b := Rank(grants, s.cfg.LeaderboardSize)
	b.Days = days

	log.WithFields(log.Fields{
		"days":   days,
		"grants": len(grants),
	}).Debug("Рейтинг построен")
	return b, nil
}
