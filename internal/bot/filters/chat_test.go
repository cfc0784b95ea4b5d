package filters

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/recognition-bot/internal/features/members"
	"serotonyl.ru/recognition-bot/internal/store/memory"
	"serotonyl.ru/recognition-bot/internal/testutil"
)

type fakeChecker struct {
	members map[int64]bool
	err     error
	calls   int
}

func (c *fakeChecker) IsChatMember(_ context.Context, _ int64, userID int64) (bool, error) {
	c.calls++
	return c.members[userID], c.err
}

func message(chatID int64, chatType string, userID int64) *telego.Message {
	return &telego.Message{
		Chat: telego.Chat{ID: chatID, Type: chatType},
		From: &telego.User{ID: userID, FirstName: "Аня", Username: "anya"},
		Text: "привет",
	}
}

func setup(t *testing.T, mainChat int64, checker *fakeChecker) (*ChatFilter, *members.Service, *testutil.Sender) {
	t.Helper()
	svc := members.NewService(memory.New(), testutil.Config(), nil)
	sender := &testutil.Sender{}
	return NewChatFilter(mainChat, -200, svc, checker, sender), svc, sender
}

func TestCheckAccessGroups(t *testing.T) {
	f, _, _ := setup(t, -100, &fakeChecker{})
	ctx := context.Background()

	assert.True(t, f.CheckAccess(ctx, message(-100, "supergroup", 1)))
	assert.True(t, f.CheckAccess(ctx, message(-200, "supergroup", 1)))
	assert.False(t, f.CheckAccess(ctx, message(-300, "supergroup", 1)))
	assert.False(t, f.CheckAccess(ctx, &telego.Message{Chat: telego.Chat{ID: -100}}))

	open, _, _ := setup(t, 0, &fakeChecker{})
	assert.True(t, open.CheckAccess(ctx, message(-300, "group", 1)))
}

func TestCheckAccessPrivate(t *testing.T) {
	checker := &fakeChecker{members: map[int64]bool{1: true}}
	f, svc, sender := setup(t, -100, checker)
	ctx := context.Background()

	// Не участник: отказ с пояснением
	assert.False(t, f.CheckAccess(ctx, message(2, telego.ChatTypePrivate, 2)))
	assert.Contains(t, sender.Last(), "только для участников")

	// Участник по Telegram: пускаем и запоминаем
	assert.True(t, f.CheckAccess(ctx, message(1, telego.ChatTypePrivate, 1)))
	m, err := svc.GetByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "anya", m.Username)

	// Второй раз Telegram не спрашиваем
	calls := checker.calls
	assert.True(t, f.CheckAccess(ctx, message(1, telego.ChatTypePrivate, 1)))
	assert.Equal(t, calls, checker.calls)
}

func TestCheckAccessTelegramError(t *testing.T) {
	f, _, sender := setup(t, -100, &fakeChecker{err: errors.New("timeout")})
	assert.False(t, f.CheckAccess(context.Background(), message(3, telego.ChatTypePrivate, 3)))
	assert.Empty(t, sender.Messages)
}
