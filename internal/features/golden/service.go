// Package golden — золотой жетон: у него всегда ровно один держатель,
// и только держатель может передать его дальше. Держатель не хранится
// отдельно, это получатель последней записи в журнале жетона.
package golden

import (
	"context"
	"strconv"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/config"
	"serotonyl.ru/recognition-bot/internal/events"
	"serotonyl.ru/recognition-bot/internal/features/ledger"
	"serotonyl.ru/recognition-bot/internal/model"
)

const lockKey = "golden"

// Service управляет золотым жетоном.
type Service struct {
	ledger *ledger.Service
	cfg    *config.Config
	pub    events.Publisher
}

// NewService создаёт сервис золотого жетона.
func NewService(l *ledger.Service, cfg *config.Config, pub events.Publisher) *Service {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	return &Service{ledger: l, cfg: cfg, pub: pub}
}

// HandoffInput — передача жетона.
type HandoffInput struct {
	Giver    int64
	Receiver int64
	Message  string
	ChatID   int64
}

// Holder возвращает последнюю запись журнала жетона; её Receiver и есть
// держатель. Если журнал пуст, записывает стартовое событие
// (GOLDEN_INITIAL_HOLDER, GOLDEN_BOOTSTRAP_AT). Без стартового
// держателя в конфигурации — NotFoundError.
func (s *Service) Holder(ctx context.Context) (*model.Grant, error) {
	latest, err := s.ledger.LatestGolden(ctx)
	if err != nil || latest != nil {
		return latest, err
	}

	err = s.ledger.RunLocked(ctx, lockKey, func(tx *ledger.Service) error {
		latest, err = holder(ctx, tx, s.cfg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return latest, nil
}

func holder(ctx context.Context, l *ledger.Service, cfg *config.Config) (*model.Grant, error) {
	latest, err := l.LatestGolden(ctx)
	if err != nil || latest != nil {
		return latest, err
	}
	if cfg.GoldenInitialHolder == 0 {
		return nil, common.NewNotFoundError("держатель золотого жетона", "GOLDEN_INITIAL_HOLDER")
	}

	seed, err := l.RecordGoldenSeed(ctx, cfg.GoldenInitialHolder, cfg.GoldenBootstrapAt)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"holder": seed.Receiver,
		"at":     seed.CreatedAt,
	}).Info("Золотой жетон выдан стартовому держателю")
	return seed, nil
}

// Handoff передаёт жетон. Передать может только текущий держатель и
// только другому человеку. Проверка и запись идут под одной блокировкой,
// поэтому из двух одновременных передач пройдёт одна.
func (s *Service) Handoff(ctx context.Context, in HandoffInput) (*model.Grant, error) {
	if in.Receiver == 0 {
		return nil, common.NewValidationError("receiver", "укажите, кому передать жетон")
	}
	if in.Receiver == in.Giver {
		return nil, common.NewValidationError("receiver", "нельзя передать жетон самому себе")
	}

	var (
		g        *model.Grant
		previous int64
	)
	err := s.ledger.RunLocked(ctx, lockKey, func(tx *ledger.Service) error {
		current, err := holder(ctx, tx, s.cfg)
		if err != nil {
			return err
		}
		if current.Receiver != in.Giver {
			return common.NewValidationError("giver",
				"жетон сейчас у другого участника (id"+strconv.FormatInt(current.Receiver, 10)+")")
		}
		previous = current.Receiver
		g, err = tx.RecordGolden(ctx, ledger.GrantInput{
			Giver:    in.Giver,
			Receiver: in.Receiver,
			Message:  in.Message,
			ChatID:   in.ChatID,
			Source:   model.SourceOrigin,
			Tags:     ledger.TagsIn(in.Message),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"from": previous,
		"to":   g.Receiver,
	}).Info("Золотой жетон передан")
	events.PublishBestEffort(ctx, s.pub, events.TopicGoldenHandoff, events.GoldenHandoff{Grant: g, Previous: previous})
	return g, nil
}

// History — передачи жетона за days дней, от новых к старым, без стартового события.
func (s *Service) History(ctx context.Context, days int) ([]*model.Grant, error) {
	grants, err := s.ledger.GoldenGrants(ctx, ledger.Query{Days: days, ExcludeSystem: true})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(grants)-1; i < j; i, j = i+1, j-1 {
		grants[i], grants[j] = grants[j], grants[i]
	}
	return grants, nil
}
