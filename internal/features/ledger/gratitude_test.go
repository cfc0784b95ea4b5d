package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/model"
	"serotonyl.ru/recognition-bot/internal/store/memory"
)

const longMessage = "🤜 @bob спасибо за помощь с миграцией базы #команда"

func TestGratitudeRecordsPerReceiverAndCount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	grants, err := svc.Gratitude(ctx, GratitudeInput{
		Giver:     1,
		Receivers: []Receiver{{ID: 2}, {ID: 3}},
		Count:     2,
		Message:   longMessage,
		Source:    model.SourceOrigin,
	})
	require.NoError(t, err)
	assert.Len(t, grants, 4)
	assert.Equal(t, []string{"команда"}, grants[0].Tags)
	assert.Equal(t, "спасибо за помощь с миграцией базы #команда", grants[0].Trimmed)

	remaining, err := svc.DailyRemaining(ctx, 1, "UTC")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestGratitudeDailyLimit(t *testing.T) {
	svc, clock, _ := newTestService(t)
	ctx := context.Background()

	in := GratitudeInput{Giver: 1, Receivers: []Receiver{{ID: 2}}, Count: 5, Message: longMessage}
	_, err := svc.Gratitude(ctx, in)
	require.NoError(t, err)

	in.Count = 1
	_, err = svc.Gratitude(ctx, in)
	assert.True(t, errors.Is(err, common.ErrValidation))

	// Лимит обнуляется в локальную полночь
	clock.Advance(10 * time.Hour)
	_, err = svc.Gratitude(ctx, in)
	assert.NoError(t, err)
}

func TestGratitudeExemptUser(t *testing.T) {
	cfg := testConfig()
	cfg.DailyLimitExempt = []int64{1}
	svc := NewService(memory.New(), cfg, nil, nil)

	remaining, err := svc.DailyRemaining(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, Unlimited, remaining)

	grants, err := svc.Gratitude(context.Background(), GratitudeInput{
		Giver: 1, Receivers: []Receiver{{ID: 2}}, Count: 9, Message: longMessage,
	})
	require.NoError(t, err)
	assert.Len(t, grants, 9)
}

func TestGratitudeCollectsAllReasons(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Gratitude(context.Background(), GratitudeInput{
		Giver:      1,
		GiverIsBot: true,
		Receivers:  []Receiver{{ID: 1}, {ID: 5, IsBot: true}},
		Message:    "🤜 коротко",
	})
	require.Error(t, err)

	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	for _, want := range []string{"самого себя", "боты не могут", "ботов благодарить", "не короче 20"} {
		assert.Contains(t, verr.Reason, want)
	}
}

func TestGratitudeEchoSkipsLengthCheck(t *testing.T) {
	svc, _, _ := newTestService(t)

	grants, err := svc.Gratitude(context.Background(), GratitudeInput{
		Giver:     3,
		Receivers: []Receiver{{ID: 2}},
		Message:   "🤜 @bob спс",
		Source:    model.SourceEcho,
	})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, model.SourceEcho, grants[0].Source)
}

func TestGratitudeEchoOfMentionOnlyMessage(t *testing.T) {
	svc, _, _ := newTestService(t)

	grants, err := svc.Gratitude(context.Background(), GratitudeInput{
		Giver:     3,
		Receivers: []Receiver{{ID: 2}},
		Message:   "🤜 @bob",
		Source:    model.SourceEcho,
	})
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Contains(t, err.Error(), "нужен текст")
	assert.Empty(t, grants)
}

func TestMessageHelpers(t *testing.T) {
	assert.Equal(t, []string{"bob", "Alice"}, MentionsIn("@bob и @Alice и снова @BOB"))
	assert.Equal(t, 3, CountIn("🤜🤜 молодец 🤜", "🤜"))
	assert.Equal(t, 1, CountIn("без триггера", "🤜"))
	assert.Equal(t, []string{"релиз", "qa_team"}, TagsIn("за #релиз и #qa_team"))
	assert.Equal(t, "за релиз", TrimMessage("  🤜  @bob   за релиз 🏆 ", "🤜", "🏆"))
}
