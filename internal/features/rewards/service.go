package rewards

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/features/balance"
	"serotonyl.ru/recognition-bot/internal/model"
)

// Service продаёт награды за баллы.
type Service struct {
	catalog *Catalog
	balance *balance.Service
}

// NewService создаёт сервис наград.
func NewService(catalog *Catalog, b *balance.Service) *Service {
	return &Service{catalog: catalog, balance: b}
}

// Catalog возвращает каталог.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Redeem покупает награду rewardID. Баланс проверяется и списывается
// атомарно в balance.Spend.
func (s *Service) Redeem(ctx context.Context, user int64, rewardID string) (*model.Debit, Reward, error) {
	r, ok := s.catalog.Find(rewardID)
	if !ok {
		return nil, Reward{}, fmt.Errorf("%w: %s", common.ErrUnknownReward, rewardID)
	}
	d, err := s.balance.Spend(ctx, balance.SpendInput{
		User:      user,
		Value:     r.Cost,
		Message:   "награда: " + r.Name,
		CreatedBy: user,
	})
	if err != nil {
		return nil, r, err
	}

	log.WithFields(log.Fields{
		"user_id":  user,
		"reward":   r.ID,
		"cost":     r.Cost,
		"debit_id": d.ID,
	}).Info("Награда куплена")
	return d, r, nil
}
