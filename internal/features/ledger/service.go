// Package ledger — service.go содержит запись и чтение журнала.
package ledger

import (
	"context"
	"iter"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/config"
	"serotonyl.ru/recognition-bot/internal/events"
	"serotonyl.ru/recognition-bot/internal/idgen"
	"serotonyl.ru/recognition-bot/internal/metrics"
	"serotonyl.ru/recognition-bot/internal/model"
	"serotonyl.ru/recognition-bot/internal/store"
)

// Service — доступ к журналу.
type Service struct {
	store store.Store
	cfg   *config.Config
	pub   events.Publisher
	now   common.Clock
}

// NewService создаёт сервис журнала. clock == nil — системные часы.
func NewService(st store.Store, cfg *config.Config, pub events.Publisher, clock common.Clock) *Service {
	if clock == nil {
		clock = common.SystemClock
	}
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	return &Service{store: st, cfg: cfg, pub: pub, now: clock}
}

// Now — текущее время по часам сервиса.
func (s *Service) Now() time.Time {
	return s.now()
}

// Config возвращает конфигурацию, с которой создан сервис.
func (s *Service) Config() *config.Config {
	return s.cfg
}

func (s *Service) timeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// RecordGrant записывает обычную благодарность.
func (s *Service) RecordGrant(ctx context.Context, in GrantInput) (*model.Grant, error) {
	return s.record(ctx, model.CollectionGrants, model.KindStandard, in)
}

// RecordGolden записывает передачу золотого жетона.
func (s *Service) RecordGolden(ctx context.Context, in GrantInput) (*model.Grant, error) {
	return s.record(ctx, model.CollectionGolden, model.KindGolden, in)
}

// RecordGoldenSeed записывает стартовое событие золотого жетона от
// SystemUserID с фиксированным временем at.
func (s *Service) RecordGoldenSeed(ctx context.Context, receiver int64, at time.Time) (*model.Grant, error) {
	if receiver == 0 {
		return nil, common.NewValidationError("receiver", "не задан стартовый держатель")
	}
	g := &model.Grant{
		Giver:     model.SystemUserID,
		Receiver:  receiver,
		Message:   "стартовый держатель",
		Trimmed:   "стартовый держатель",
		Source:    model.SourceOrigin,
		Kind:      model.KindGolden,
		CreatedAt: at.UTC(),
	}
	ctx, cancel := s.timeout(ctx)
	defer cancel()
	if err := s.store.InsertGrant(ctx, model.CollectionGolden, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) record(ctx context.Context, c model.Collection, kind model.Kind, in GrantInput) (*model.Grant, error) {
	if in.Giver == 0 {
		return nil, common.NewValidationError("giver", "не указан отправитель")
	}
	if in.Receiver == 0 {
		return nil, common.NewValidationError("receiver", "не указан получатель")
	}
	if in.Giver == in.Receiver {
		return nil, common.NewValidationError("receiver", "нельзя благодарить самого себя")
	}
	if in.Source == "" {
		in.Source = model.SourceOrigin
	}
	if !in.Source.Valid() {
		return nil, common.NewValidationError("source", "неизвестный источник "+string(in.Source))
	}
	if in.Trimmed == "" {
		in.Trimmed = TrimMessage(in.Message, s.cfg.RecognizeTrigger, s.cfg.GoldenTrigger)
	}
	if in.Trimmed == "" {
		return nil, common.NewValidationError("message", "текст благодарности пуст")
	}

	g := &model.Grant{
		Giver:     in.Giver,
		Receiver:  in.Receiver,
		Message:   in.Message,
		Trimmed:   in.Trimmed,
		ChatID:    in.ChatID,
		Source:    in.Source,
		Kind:      kind,
		Tags:      in.Tags,
		CreatedAt: s.now().UTC(),
	}

	sctx, cancel := s.timeout(ctx)
	defer cancel()
	done := metrics.ObserveStore("insert_grant")
	err := s.store.InsertGrant(sctx, c, g)
	done()
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"giver":    in.Giver,
			"receiver": in.Receiver,
			"kind":     kind,
		}).Error("Ошибка записи благодарности")
		return nil, err
	}

	metrics.GrantRecorded(string(kind), string(g.Source))
	if kind == model.KindStandard {
		events.PublishBestEffort(ctx, s.pub, events.TopicGrantRecorded, events.GrantRecorded{Grant: g})
	}
	return g, nil
}

// RecordDebit списывает value баллов. Баланс здесь не проверяется,
// для покупок используйте balance.Service.Spend.
func (s *Service) RecordDebit(ctx context.Context, in DebitInput) (*model.Debit, error) {
	if in.User == 0 {
		return nil, common.NewValidationError("user", "не указан пользователь")
	}
	if in.Value <= 0 {
		return nil, common.NewValidationError("value", "сумма должна быть положительной")
	}
	id, err := idgen.Debit()
	if err != nil {
		return nil, err
	}
	d := &model.Debit{
		ID:        id,
		User:      in.User,
		Value:     in.Value,
		Message:   in.Message,
		CreatedBy: in.CreatedBy,
		CreatedAt: s.now().UTC(),
	}

	sctx, cancel := s.timeout(ctx)
	defer cancel()
	if err := s.store.InsertDebit(sctx, d); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"debit_id": d.ID,
		"user_id":  d.User,
		"value":    d.Value,
	}).Info("Списание записано")
	metrics.DebitRecorded()
	events.PublishBestEffort(ctx, s.pub, events.TopicDebitRecorded, events.DebitRecorded{Debit: d})
	return d, nil
}

// RefundDebit помечает списание возвращённым. Неизвестный id —
// NotFoundError; повторный возврат — успех с Changed == false.
func (s *Service) RefundDebit(ctx context.Context, id string) (*RefundResult, error) {
	if id == "" {
		return nil, common.NewValidationError("id", "не указан номер списания")
	}
	sctx, cancel := s.timeout(ctx)
	defer cancel()

	changed, err := s.store.MarkRefunded(sctx, id, s.now().UTC())
	if err != nil {
		return nil, err
	}
	d, err := s.store.GetDebit(sctx, id)
	if err != nil {
		return nil, err
	}

	if changed {
		log.WithFields(log.Fields{"debit_id": id, "user_id": d.User, "value": d.Value}).Info("Списание возвращено")
		metrics.DebitRefunded()
		events.PublishBestEffort(ctx, s.pub, events.TopicDebitRefunded, events.DebitRefunded{Debit: d})
	}
	return &RefundResult{Debit: d, Changed: changed}, nil
}

// Filter переводит Query в типизированный фильтр хранилища.
func (s *Service) Filter(q Query) (model.Filter, error) {
	tz := q.Timezone
	if tz == "" {
		tz = s.cfg.AppTimezone
	}
	w, err := common.ResolveWindow(tz, q.Days, s.now())
	if err != nil {
		return nil, err
	}

	var filters []model.Filter
	if q.User != 0 {
		if q.Role != model.RoleGiver && q.Role != model.RoleReceiver {
			return nil, common.NewValidationError("role", "роль должна быть giver или receiver")
		}
		filters = append(filters, model.ByUser{Role: q.Role, User: q.User})
	}
	if !w.Unbounded() {
		filters = append(filters, model.ByWindow{Since: w.Since})
	}
	if q.ExcludeSystem {
		filters = append(filters, model.NotFrom{User: model.SystemUserID})
	}
	return model.All(filters...), nil
}

// QueryGrants возвращает ленивую последовательность благодарностей.
// Каждый проход по ней заново выполняет запрос.
func (s *Service) QueryGrants(ctx context.Context, q Query) iter.Seq2[*model.Grant, error] {
	return func(yield func(*model.Grant, error) bool) {
		grants, err := s.Grants(ctx, q)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, g := range grants {
			if !yield(g, nil) {
				return
			}
		}
	}
}

// Grants — благодарности по запросу, от старых к новым.
func (s *Service) Grants(ctx context.Context, q Query) ([]*model.Grant, error) {
	return s.find(ctx, model.CollectionGrants, q)
}

// GoldenGrants — передачи золотого жетона по запросу.
func (s *Service) GoldenGrants(ctx context.Context, q Query) ([]*model.Grant, error) {
	return s.find(ctx, model.CollectionGolden, q)
}

func (s *Service) find(ctx context.Context, c model.Collection, q Query) ([]*model.Grant, error) {
	f, err := s.Filter(q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.timeout(ctx)
	defer cancel()
	defer metrics.ObserveStore("find_grants")()
	return s.store.FindGrants(ctx, c, f, store.FindOptions{})
}

// CountGrants — число благодарностей по запросу.
func (s *Service) CountGrants(ctx context.Context, q Query) (int64, error) {
	return s.count(ctx, model.CollectionGrants, q)
}

// CountGolden — число передач золотого жетона по запросу.
func (s *Service) CountGolden(ctx context.Context, q Query) (int64, error) {
	return s.count(ctx, model.CollectionGolden, q)
}

func (s *Service) count(ctx context.Context, c model.Collection, q Query) (int64, error) {
	f, err := s.Filter(q)
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.timeout(ctx)
	defer cancel()
	return s.store.CountGrants(ctx, c, f)
}

// GroupGrants группирует благодарности по ключу.
func (s *Service) GroupGrants(ctx context.Context, q Query, key model.GroupKey, limit int) ([]model.Group, error) {
	f, err := s.Filter(q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.timeout(ctx)
	defer cancel()
	return s.store.GroupGrants(ctx, model.CollectionGrants, f, key, limit)
}

// LatestGolden — последнее событие золотого жетона (nil, если их нет).
func (s *Service) LatestGolden(ctx context.Context) (*model.Grant, error) {
	ctx, cancel := s.timeout(ctx)
	defer cancel()
	return s.store.LatestGrant(ctx, model.CollectionGolden, nil)
}

func debitFilter(q DebitQuery) model.Filter {
	var f []model.Filter
	if q.User != 0 {
		f = append(f, model.ByUser{Role: model.RoleOwner, User: q.User})
	}
	if q.ActiveOnly {
		f = append(f, model.Unrefunded{})
	}
	return model.All(f...)
}

// Debits — списания по запросу.
func (s *Service) Debits(ctx context.Context, q DebitQuery) ([]*model.Debit, error) {
	ctx, cancel := s.timeout(ctx)
	defer cancel()
	return s.store.FindDebits(ctx, debitFilter(q))
}

// SumDebits — сумма списаний по запросу.
func (s *Service) SumDebits(ctx context.Context, q DebitQuery) (int64, error) {
	ctx, cancel := s.timeout(ctx)
	defer cancel()
	return s.store.SumDebits(ctx, debitFilter(q))
}

// RunLocked выполняет fn под блокировкой key; fn получает сервис,
// работающий внутри той же блокировки (для postgres — той же транзакции).
func (s *Service) RunLocked(ctx context.Context, key string, fn func(tx *Service) error) error {
	return s.store.RunLocked(ctx, key, func(tx store.Store) error {
		return fn(&Service{store: tx, cfg: s.cfg, pub: s.pub, now: s.now})
	})
}
