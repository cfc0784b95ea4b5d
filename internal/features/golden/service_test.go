package golden

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/config"
	"serotonyl.ru/recognition-bot/internal/features/ledger"
	"serotonyl.ru/recognition-bot/internal/model"
	"serotonyl.ru/recognition-bot/internal/store/memory"
	"serotonyl.ru/recognition-bot/internal/testutil"
)

type topics struct {
	mu   sync.Mutex
	list []string
}

func (p *topics) Publish(_ context.Context, topic string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.list = append(p.list, topic)
	return nil
}

func (p *topics) Close() error { return nil }

func setup(t *testing.T, initial int64) (*Service, *ledger.Service, *topics, *config.Config) {
	t.Helper()
	cfg := testutil.Config()
	cfg.GoldenInitialHolder = initial
	clock := testutil.NewClock(time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))
	l := ledger.NewService(memory.New(), cfg, nil, clock.Now)
	pub := &topics{}
	return NewService(l, cfg, pub), l, pub, cfg
}

func TestHolderSeedsOnce(t *testing.T) {
	svc, l, _, cfg := setup(t, 7)
	ctx := context.Background()

	g, err := svc.Holder(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), g.Receiver)
	assert.Equal(t, model.SystemUserID, g.Giver)
	assert.True(t, cfg.GoldenBootstrapAt.Equal(g.CreatedAt))

	_, err = svc.Holder(ctx)
	require.NoError(t, err)
	n, err := l.CountGolden(ctx, ledger.Query{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestHolderWithoutInitial(t *testing.T) {
	svc, _, _, _ := setup(t, 0)

	_, err := svc.Holder(context.Background())
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestHandoff(t *testing.T) {
	svc, _, pub, _ := setup(t, 7)
	ctx := context.Background()

	g, err := svc.Handoff(ctx, HandoffInput{Giver: 7, Receiver: 8, Message: "🏆 @u2 за поддержку #дежурство"})
	require.NoError(t, err)
	assert.Equal(t, model.KindGolden, g.Kind)
	assert.Equal(t, []string{"дежурство"}, g.Tags)

	holder, err := svc.Holder(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), holder.Receiver)
	assert.Equal(t, []string{"recognition.golden.handoff"}, pub.list)

	history, err := svc.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(8), history[0].Receiver)
}

func TestHandoffValidation(t *testing.T) {
	svc, _, pub, _ := setup(t, 7)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    HandoffInput
		field string
	}{
		{"not holder", HandoffInput{Giver: 8, Receiver: 9}, "giver"},
		{"self", HandoffInput{Giver: 7, Receiver: 7}, "receiver"},
		{"no receiver", HandoffInput{Giver: 7}, "receiver"},
		{"no text", HandoffInput{Giver: 7, Receiver: 8, Message: "@bob 🏆"}, "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Handoff(ctx, tt.in)
			var verr *common.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Empty(t, pub.list)
}

func TestConcurrentHandoffsOneWins(t *testing.T) {
	svc, _, _, _ := setup(t, 7)
	ctx := context.Background()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won []int64
	)
	for r := int64(10); r < 15; r++ {
		wg.Add(1)
		go func(receiver int64) {
			defer wg.Done()
			if _, err := svc.Handoff(ctx, HandoffInput{Giver: 7, Receiver: receiver, Message: "за дежурство"}); err == nil {
				mu.Lock()
				won = append(won, receiver)
				mu.Unlock()
			}
		}(r)
	}
	wg.Wait()

	require.Len(t, won, 1)
	holder, err := svc.Holder(ctx)
	require.NoError(t, err)
	assert.Equal(t, won[0], holder.Receiver)
}

func TestHandlers(t *testing.T) {
	svc, _, _, cfg := setup(t, 7)
	cfg.GoldenChatID = 500
	sender := &testutil.Sender{}
	h := NewHandler(svc, testutil.Names{7: "Аня", 8: "Боря"}, sender)
	ctx := context.Background()

	h.HandleHandoff(ctx, 1, 7, []int64{8, 9}, "🏆")
	assert.Contains(t, sender.Last(), "ровно одному")

	h.HandleHandoff(ctx, 1, 9, []int64{8}, "🏆 @b")
	assert.Contains(t, sender.Last(), "жетон сейчас у другого")

	h.HandleHandoff(ctx, 1, 7, []int64{8}, "🏆 @b за релиз")
	last := sender.Messages[len(sender.Messages)-1]
	assert.Equal(t, int64(500), last.ChatID)
	assert.Equal(t, "🏆 Золотой жетон переходит от Аня к Боря!\n«за релиз»", last.Text)

	h.HandleHolder(ctx, 1)
	assert.Contains(t, sender.Last(), "Золотой жетон у Боря с 10.06.2024 12:00")
}
