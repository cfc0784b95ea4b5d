package balance

import (
	"context"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/config"
	"serotonyl.ru/recognition-bot/internal/features/ledger"
	"serotonyl.ru/recognition-bot/internal/metrics"
	"serotonyl.ru/recognition-bot/internal/model"
)

// Service считает балансы по журналу.
type Service struct {
	ledger *ledger.Service
	cfg    *config.Config
}

// NewService создаёт сервис баланса.
func NewService(l *ledger.Service, cfg *config.Config) *Service {
	return &Service{ledger: l, cfg: cfg}
}

// Summary возвращает разбивку баланса за всё время.
func (s *Service) Summary(ctx context.Context, user int64) (*Summary, error) {
	return summarize(ctx, s.ledger, s.cfg.GoldMultiplier, user)
}

// Balance — earned - spent.
func (s *Service) Balance(ctx context.Context, user int64) (int64, error) {
	sum, err := s.Summary(ctx, user)
	if err != nil {
		return 0, err
	}
	return sum.Balance, nil
}

func summarize(ctx context.Context, l *ledger.Service, multiplier int64, user int64) (*Summary, error) {
	if user == 0 {
		return nil, common.NewValidationError("user", "не указан пользователь")
	}
	received, err := l.CountGrants(ctx, ledger.Query{User: user, Role: model.RoleReceiver})
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта благодарностей: %w", err)
	}
	// стартовая выдача жетона (от SystemUserID) баллов держателю не даёт
	golden, err := l.CountGolden(ctx, ledger.Query{User: user, Role: model.RoleReceiver, ExcludeSystem: true})
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта золотых жетонов: %w", err)
	}
	spent, err := l.SumDebits(ctx, ledger.DebitQuery{User: user, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта списаний: %w", err)
	}

	earned := received + multiplier*golden
	return &Summary{
		User:     user,
		Received: received,
		Golden:   golden,
		Earned:   earned,
		Spent:    spent,
		Balance:  earned - spent,
	}, nil
}

// Spend списывает баллы, только если их хватает. Проверка и запись
// выполняются под блокировкой пользователя, поэтому две параллельные
// покупки не уведут баланс в минус.
func (s *Service) Spend(ctx context.Context, in SpendInput) (*model.Debit, error) {
	if in.Value <= 0 {
		return nil, common.NewValidationError("value", "сумма должна быть положительной")
	}

	var debit *model.Debit
	key := "balance:" + strconv.FormatInt(in.User, 10)
	err := s.ledger.RunLocked(ctx, key, func(tx *ledger.Service) error {
		sum, err := summarize(ctx, tx, s.cfg.GoldMultiplier, in.User)
		if err != nil {
			return err
		}
		if sum.Balance < in.Value {
			metrics.Rejected("spend", "insufficient_balance")
			log.WithFields(log.Fields{
				"user_id": in.User,
				"balance": sum.Balance,
				"value":   in.Value,
			}).Info("Недостаточно баллов")
			return common.ErrInsufficientBalance
		}
		debit, err = tx.RecordDebit(ctx, ledger.DebitInput{
			User:      in.User,
			Value:     in.Value,
			Message:   in.Message,
			CreatedBy: in.CreatedBy,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return debit, nil
}
