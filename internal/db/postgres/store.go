package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/model"
	"serotonyl.ru/recognition-bot/internal/store"
)

// Store реализует store.Store поверх PostgreSQL.
// Внутри RunLocked тот же тип работает на транзакции (pool == nil).
type Store struct {
	pool *pgxpool.Pool
	q    querier
}

var _ store.Store = (*Store)(nil)

// NewStore оборачивает готовый пул. Пул закрывается через Close.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

func (s *Store) InsertGrant(ctx context.Context, c model.Collection, g *model.Grant) error {
	return queryInsertGrant(ctx, s.q, c, g)
}

func (s *Store) FindGrants(ctx context.Context, c model.Collection, f model.Filter, opts store.FindOptions) ([]*model.Grant, error) {
	return queryFindGrants(ctx, s.q, c, f, opts)
}

func (s *Store) CountGrants(ctx context.Context, c model.Collection, f model.Filter) (int64, error) {
	return queryCountGrants(ctx, s.q, c, f)
}

func (s *Store) LatestGrant(ctx context.Context, c model.Collection, f model.Filter) (*model.Grant, error) {
	return queryLatestGrant(ctx, s.q, c, f)
}

func (s *Store) GroupGrants(ctx context.Context, c model.Collection, f model.Filter, key model.GroupKey, limit int) ([]model.Group, error) {
	return queryGroupGrants(ctx, s.q, c, f, key, limit)
}

func (s *Store) InsertDebit(ctx context.Context, d *model.Debit) error {
	return queryInsertDebit(ctx, s.q, d)
}

func (s *Store) GetDebit(ctx context.Context, id string) (*model.Debit, error) {
	return queryGetDebit(ctx, s.q, id)
}

func (s *Store) FindDebits(ctx context.Context, f model.Filter) ([]*model.Debit, error) {
	return queryFindDebits(ctx, s.q, f)
}

func (s *Store) SumDebits(ctx context.Context, f model.Filter) (int64, error) {
	return querySumDebits(ctx, s.q, f)
}

func (s *Store) MarkRefunded(ctx context.Context, id string, at time.Time) (bool, error) {
	return queryMarkRefunded(ctx, s.q, id, at)
}

func (s *Store) UpsertMember(ctx context.Context, m *model.Member) error {
	return queryUpsertMember(ctx, s.q, m)
}

func (s *Store) GetMember(ctx context.Context, userID int64) (*model.Member, error) {
	return queryGetMember(ctx, s.q, userID)
}

func (s *Store) GetMemberByUsername(ctx context.Context, username string) (*model.Member, error) {
	return queryGetMemberByUsername(ctx, s.q, username)
}

func (s *Store) ListMembers(ctx context.Context) ([]*model.Member, error) {
	return queryListMembers(ctx, s.q)
}

// RunLocked открывает транзакцию, берёт pg_advisory_xact_lock по ключу
// и вызывает fn с хранилищем на этой транзакции. Блокировка снимается
// при commit/rollback. Вложенный вызов переиспользует транзакцию.
func (s *Store) RunLocked(ctx context.Context, key string, fn func(tx store.Store) error) error {
	if s.pool == nil {
		if _, err := s.q.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
			return common.WrapStore("advisory lock", err)
		}
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return common.WrapStore("begin", err)
	}
	// Откатываем транзакцию, если что-то пошло не так
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
		return common.WrapStore("advisory lock", err)
	}
	if err := fn(&Store{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return common.WrapStore("commit", fmt.Errorf("ключ %s: %w", key, err))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		_, err := s.q.Exec(ctx, "SELECT 1")
		return common.WrapStore("ping", err)
	}
	return common.WrapStore("ping", s.pool.Ping(ctx))
}

// Close закрывает пул. Для хранилища-транзакции ничего не делает.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
