package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/model"
	"serotonyl.ru/recognition-bot/internal/store"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func grant(giver, receiver int64, msg string, at time.Duration) *model.Grant {
	return &model.Grant{
		Giver:     giver,
		Receiver:  receiver,
		Message:   msg,
		Trimmed:   msg,
		Source:    model.SourceOrigin,
		Kind:      model.KindStandard,
		CreatedAt: base.Add(at),
	}
}

func TestGrantsFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.InsertGrant(ctx, model.CollectionGrants, grant(1, 2, "a", 2*time.Hour)))
	require.NoError(t, s.InsertGrant(ctx, model.CollectionGrants, grant(1, 3, "b", time.Hour)))
	require.NoError(t, s.InsertGrant(ctx, model.CollectionGrants, grant(2, 3, "b", 3*time.Hour)))
	require.NoError(t, s.InsertGrant(ctx, model.CollectionGolden, grant(9, 3, "gold", 0)))

	all, err := s.FindGrants(ctx, model.CollectionGrants, nil, store.FindOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "b", all[0].Message)
	assert.Equal(t, "a", all[1].Message)

	byGiver, err := s.FindGrants(ctx, model.CollectionGrants, model.ByUser{Role: model.RoleGiver, User: 1}, store.FindOptions{})
	require.NoError(t, err)
	assert.Len(t, byGiver, 2)

	windowed, err := s.CountGrants(ctx, model.CollectionGrants, model.All(
		model.ByUser{Role: model.RoleReceiver, User: 3},
		model.ByWindow{Since: base.Add(90 * time.Minute)},
	))
	require.NoError(t, err)
	assert.EqualValues(t, 1, windowed)

	golden, err := s.CountGrants(ctx, model.CollectionGolden, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, golden)
}

func TestLatestGrant(t *testing.T) {
	ctx := context.Background()
	s := New()

	latest, err := s.LatestGrant(ctx, model.CollectionGolden, nil)
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, s.InsertGrant(ctx, model.CollectionGolden, grant(1, 2, "first", time.Hour)))
	require.NoError(t, s.InsertGrant(ctx, model.CollectionGolden, grant(2, 3, "tie-a", 2*time.Hour)))
	require.NoError(t, s.InsertGrant(ctx, model.CollectionGolden, grant(3, 4, "tie-b", 2*time.Hour)))

	latest, err = s.LatestGrant(ctx, model.CollectionGolden, nil)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "tie-b", latest.Message)
}

func TestGroupGrants(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, g := range []*model.Grant{
		grant(1, 5, "x", 0), grant(2, 5, "x", 0), grant(3, 6, "y", 0),
	} {
		require.NoError(t, s.InsertGrant(ctx, model.CollectionGrants, g))
	}

	groups, err := s.GroupGrants(ctx, model.CollectionGrants, nil, model.GroupByMessage, 10)
	require.NoError(t, err)
	assert.Equal(t, []model.Group{{Key: "x", Count: 2}, {Key: "y", Count: 1}}, groups)

	top, err := s.GroupGrants(ctx, model.CollectionGrants, nil, model.GroupByReceiver, 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Group{{Key: "5", Count: 2}}, top)
}

func TestDebits(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.InsertDebit(ctx, &model.Debit{ID: "d1", User: 7, Value: 10, CreatedAt: base}))
	require.NoError(t, s.InsertDebit(ctx, &model.Debit{ID: "d2", User: 7, Value: 5, CreatedAt: base}))
	require.NoError(t, s.InsertDebit(ctx, &model.Debit{ID: "d3", User: 8, Value: 1, CreatedAt: base}))

	sum, err := s.SumDebits(ctx, model.All(model.ByUser{Role: model.RoleOwner, User: 7}, model.Unrefunded{}))
	require.NoError(t, err)
	assert.EqualValues(t, 15, sum)

	changed, err := s.MarkRefunded(ctx, "d1", base)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.MarkRefunded(ctx, "d1", base)
	require.NoError(t, err)
	assert.False(t, changed)

	sum, err = s.SumDebits(ctx, model.All(model.ByUser{Role: model.RoleOwner, User: 7}, model.Unrefunded{}))
	require.NoError(t, err)
	assert.EqualValues(t, 5, sum)

	_, err = s.MarkRefunded(ctx, "missing", base)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = s.GetDebit(ctx, "missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestMembers(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.UpsertMember(ctx, &model.Member{UserID: 1, Username: "Alice", FirstName: "Алиса", JoinedAt: base}))
	require.NoError(t, s.UpsertMember(ctx, &model.Member{UserID: 1, Username: "alice_new", FirstName: "Алиса", JoinedAt: base.Add(time.Hour)}))

	m, err := s.GetMemberByUsername(ctx, "ALICE_NEW")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.UserID)
	assert.True(t, base.Equal(m.JoinedAt))

	_, err = s.GetMember(ctx, 404)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	require.NoError(t, s.UpsertMember(ctx, &model.Member{UserID: 3, FirstName: "Вера"}))
	list, err := s.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].UserID)
	assert.Equal(t, int64(3), list[1].UserID)
}

func TestRunLockedSerializes(t *testing.T) {
	ctx := context.Background()
	s := New()

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.RunLocked(ctx, "user:1", func(tx store.Store) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)

	sentinel := errors.New("boom")
	err := s.RunLocked(ctx, "user:1", func(store.Store) error { return sentinel })
	assert.Same(t, sentinel, err)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().InsertGrant(ctx, model.CollectionGrants, grant(1, 2, "x", 0))
	assert.True(t, errors.Is(err, common.ErrStore))
	assert.True(t, errors.Is(err, context.Canceled))
}
