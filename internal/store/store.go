// Package store описывает интерфейс хранилища журнала благодарностей.
// Реализации: memory (разработка и тесты) и db/postgres (продакшен).
package store

import (
	"context"
	"time"

	"serotonyl.ru/recognition-bot/internal/model"
)

// FindOptions — сортировка и ограничение выборки благодарностей.
type FindOptions struct {
	// Newest — сортировать от новых к старым (по умолчанию от старых).
	Newest bool
	// Limit — не больше Limit записей, 0 — без ограничения.
	Limit int
}

// Store — хранилище событий: две коллекции благодарностей, списания
// и справочник участников.
type Store interface {
	// Благодарности
	InsertGrant(ctx context.Context, c model.Collection, g *model.Grant) error
	FindGrants(ctx context.Context, c model.Collection, f model.Filter, opts FindOptions) ([]*model.Grant, error)
	CountGrants(ctx context.Context, c model.Collection, f model.Filter) (int64, error)
	// LatestGrant — последняя по времени запись; nil, если подходящих нет.
	LatestGrant(ctx context.Context, c model.Collection, f model.Filter) (*model.Grant, error)
	// GroupGrants — количество записей по ключу, по убыванию, не больше limit.
	GroupGrants(ctx context.Context, c model.Collection, f model.Filter, key model.GroupKey, limit int) ([]model.Group, error)

	// Списания
	InsertDebit(ctx context.Context, d *model.Debit) error
	GetDebit(ctx context.Context, id string) (*model.Debit, error)
	FindDebits(ctx context.Context, f model.Filter) ([]*model.Debit, error)
	SumDebits(ctx context.Context, f model.Filter) (int64, error)
	// MarkRefunded помечает списание возвращённым. false — уже было возвращено.
	MarkRefunded(ctx context.Context, id string, at time.Time) (bool, error)

	// Участники
	UpsertMember(ctx context.Context, m *model.Member) error
	GetMember(ctx context.Context, userID int64) (*model.Member, error)
	GetMemberByUsername(ctx context.Context, username string) (*model.Member, error)
	// ListMembers — все участники по возрастанию user_id.
	ListMembers(ctx context.Context) ([]*model.Member, error)

	// RunLocked выполняет fn под эксклюзивной блокировкой ключа key.
	// Для postgres это транзакция с advisory lock; ошибки fn
	// возвращаются как есть.
	RunLocked(ctx context.Context, key string, fn func(tx Store) error) error

	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
	Close() error
}
