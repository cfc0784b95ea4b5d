// Package memory — хранилище в памяти процесса. Используется в тестах
// и при STORAGE_DRIVER=memory для локальной разработки.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/model"
	"serotonyl.ru/recognition-bot/internal/store"
)

// Store реализует store.Store поверх map и срезов.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	grants  map[model.Collection][]*model.Grant
	debits  map[string]*model.Debit
	order   []string
	members map[int64]*model.Member

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

var _ store.Store = (*Store)(nil)

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		grants:  make(map[model.Collection][]*model.Grant),
		debits:  make(map[string]*model.Debit),
		members: make(map[int64]*model.Member),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Store) InsertGrant(ctx context.Context, c model.Collection, g *model.Grant) error {
	if err := ctx.Err(); err != nil {
		return common.WrapStore("insert grant", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	cp := *g
	cp.ID = s.nextID
	cp.Tags = append([]string(nil), g.Tags...)
	g.ID = cp.ID
	s.grants[c] = append(s.grants[c], &cp)
	return nil
}

func (s *Store) FindGrants(ctx context.Context, c model.Collection, f model.Filter, opts store.FindOptions) ([]*model.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.WrapStore("find grants", err)
	}
	s.mu.RLock()
	out := s.matching(c, f)
	s.mu.RUnlock()

	// При равном времени порядок задаёт ID (порядок вставки).
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if opts.Newest {
			a, b = b, a
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *Store) CountGrants(ctx context.Context, c model.Collection, f model.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, common.WrapStore("count grants", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matching(c, f))), nil
}

func (s *Store) LatestGrant(ctx context.Context, c model.Collection, f model.Filter) (*model.Grant, error) {
	found, err := s.FindGrants(ctx, c, f, store.FindOptions{Newest: true, Limit: 1})
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

func (s *Store) GroupGrants(ctx context.Context, c model.Collection, f model.Filter, key model.GroupKey, limit int) ([]model.Group, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.WrapStore("group grants", err)
	}
	s.mu.RLock()
	matched := s.matching(c, f)
	s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, g := range matched {
		counts[groupValue(g, key)]++
	}
	out := make([]model.Group, 0, len(counts))
	for k, n := range counts {
		out = append(out, model.Group{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func groupValue(g *model.Grant, key model.GroupKey) string {
	switch key {
	case model.GroupByReceiver:
		return strconv.FormatInt(g.Receiver, 10)
	case model.GroupByGiver:
		return strconv.FormatInt(g.Giver, 10)
	default:
		return g.Trimmed
	}
}

// matching возвращает копии подходящих записей. Вызывать под s.mu.
func (s *Store) matching(c model.Collection, f model.Filter) []*model.Grant {
	var out []*model.Grant
	for _, g := range s.grants[c] {
		if model.MatchGrant(f, g) {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out
}

func (s *Store) InsertDebit(ctx context.Context, d *model.Debit) error {
	if err := ctx.Err(); err != nil {
		return common.WrapStore("insert debit", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.debits[d.ID]; ok {
		return common.NewValidationError("id", "списание с таким ID уже есть")
	}
	cp := *d
	s.debits[d.ID] = &cp
	s.order = append(s.order, d.ID)
	return nil
}

func (s *Store) GetDebit(ctx context.Context, id string) (*model.Debit, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.WrapStore("get debit", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.debits[id]
	if !ok {
		return nil, common.NewNotFoundError("списание", id)
	}
	cp := *d
	return &cp, nil
}

func (s *Store) FindDebits(ctx context.Context, f model.Filter) ([]*model.Debit, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.WrapStore("find debits", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Debit
	for _, id := range s.order {
		d := s.debits[id]
		if model.MatchDebit(f, d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) SumDebits(ctx context.Context, f model.Filter) (int64, error) {
	debits, err := s.FindDebits(ctx, f)
	if err != nil {
		return 0, err
	}
	var sum int64
	for _, d := range debits {
		sum += d.Value
	}
	return sum, nil
}

func (s *Store) MarkRefunded(ctx context.Context, id string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, common.WrapStore("refund debit", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.debits[id]
	if !ok {
		return false, common.NewNotFoundError("списание", id)
	}
	if d.Refunded {
		return false, nil
	}
	d.Refunded = true
	d.RefundedAt = &at
	return true, nil
}

func (s *Store) UpsertMember(ctx context.Context, m *model.Member) error {
	if err := ctx.Err(); err != nil {
		return common.WrapStore("upsert member", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *m
	if existing, ok := s.members[m.UserID]; ok && !existing.JoinedAt.IsZero() {
		cp.JoinedAt = existing.JoinedAt
	}
	s.members[m.UserID] = &cp
	return nil
}

func (s *Store) GetMember(ctx context.Context, userID int64) (*model.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.WrapStore("get member", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[userID]
	if !ok {
		return nil, common.NewNotFoundError("участник", strconv.FormatInt(userID, 10))
	}
	cp := *m
	return &cp, nil
}

func (s *Store) GetMemberByUsername(ctx context.Context, username string) (*model.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.WrapStore("get member", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.members {
		if strings.EqualFold(m.Username, username) {
			cp := *m
			return &cp, nil
		}
	}
	return nil, common.NewNotFoundError("участник", "@"+username)
}

func (s *Store) ListMembers(ctx context.Context) ([]*model.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.WrapStore("list members", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Member, 0, len(s.members))
	for _, m := range s.members {
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// RunLocked сериализует вызовы с одинаковым ключом.
func (s *Store) RunLocked(ctx context.Context, key string, fn func(tx store.Store) error) error {
	s.locksMu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.locksMu.Unlock()

	l.Lock()
	defer l.Unlock()
	if err := ctx.Err(); err != nil {
		return common.WrapStore("lock "+key, err)
	}
	return fn(s)
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}
