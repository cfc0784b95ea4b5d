package influence

import (
	"context"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/features/ledger"
)

// DefaultDays — окно анализа по умолчанию.
const DefaultDays = 30

// Service анализирует влияние по журналу.
type Service struct {
	ledger *ledger.Service
}

// NewService создаёт сервис анализа влияния.
func NewService(l *ledger.Service) *Service {
	return &Service{ledger: l}
}

// Influential — влиятельные сообщения за days дней в поясе tz.
func (s *Service) Influential(ctx context.Context, tz string, days int) (*Report, error) {
	grants, err := s.ledger.Grants(ctx, ledger.Query{Timezone: tz, Days: days})
	if err != nil {
		return nil, err
	}
	r := Analyze(grants, TopSize)
	r.Days = days

	log.WithFields(log.Fields{
		"days":        days,
		"grants":      len(grants),
		"influential": r.Influential,
	}).Debug("Анализ влияния выполнен")
	return r, nil
}
