package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/config"
	"serotonyl.ru/recognition-bot/internal/features/ledger"
	"serotonyl.ru/recognition-bot/internal/model"
	"serotonyl.ru/recognition-bot/internal/store/memory"
	"serotonyl.ru/recognition-bot/internal/testutil"
)

type fixture struct {
	svc    *Service
	ledger *ledger.Service
	clock  *testutil.Clock
	cfg    *config.Config
}

// Среда, 12 июня 2024, 15:00 UTC.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testutil.Config()
	clock := testutil.NewClock(time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC))
	l := ledger.NewService(memory.New(), cfg, nil, clock.Now)
	names := testutil.Names{1: "Аня", 2: "Боря", 3: "Вера"}
	return &fixture{svc: NewService(l, cfg, names, nil), ledger: l, clock: clock, cfg: cfg}
}

func (f *fixture) give(t *testing.T, giver, receiver int64, msg string, src model.Source) {
	t.Helper()
	_, err := f.ledger.RecordGrant(context.Background(), ledger.GrantInput{Giver: giver, Receiver: receiver, Message: msg, Source: src})
	require.NoError(t, err)
}

func TestDailySeriesZeroFilled(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(-48 * time.Hour) // 10 июня
	f.give(t, 1, 2, "a", model.SourceOrigin)
	f.give(t, 3, 2, "a", model.SourceOrigin)
	f.clock.Advance(48 * time.Hour) // 12 июня
	f.give(t, 1, 3, "b", model.SourceOrigin)

	series, err := f.svc.DailySeries(context.Background(), "UTC", 4)
	require.NoError(t, err)
	assert.Equal(t, []DayPoint{
		{Date: "2024-06-09", Count: 0},
		{Date: "2024-06-10", Count: 2},
		{Date: "2024-06-11", Count: 0},
		{Date: "2024-06-12", Count: 1},
	}, series)

	_, err = f.svc.DailySeries(context.Background(), "UTC", 0)
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestDailySeriesUsesLocalDays(t *testing.T) {
	f := newFixture(t)
	// 22:30 UTC 12 июня = 01:30 13 июня по Москве
	f.clock.Advance(7*time.Hour + 30*time.Minute)
	f.give(t, 1, 2, "ночью", model.SourceOrigin)

	series, err := f.svc.DailySeries(context.Background(), "Europe/Moscow", 2)
	require.NoError(t, err)
	assert.Equal(t, []DayPoint{{Date: "2024-06-12", Count: 0}, {Date: "2024-06-13", Count: 1}}, series)
}

func TestUserReport(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(-7 * 24 * time.Hour) // среда 5 июня
	f.give(t, 1, 2, "за ревью", model.SourceOrigin)
	f.clock.Advance(7 * 24 * time.Hour)
	f.give(t, 3, 2, "за ревью", model.SourceOrigin)
	f.give(t, 1, 2, "за релиз", model.SourceOrigin)
	f.give(t, 2, 1, "не считается", model.SourceOrigin)

	r, err := f.svc.UserReport(context.Background(), 2, "UTC", 14)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Total)
	assert.Equal(t, []MessageCount{{Message: "за ревью", Count: 2}, {Message: "за релиз", Count: 1}}, r.TopMessages)
	assert.Equal(t, []WeekPoint{
		{WeekStart: "2024-05-27", Count: 0},
		{WeekStart: "2024-06-03", Count: 1},
		{WeekStart: "2024-06-10", Count: 2},
	}, r.Weekly)
}

func TestChannelSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.give(t, 1, 2, "a", model.SourceOrigin)
	f.give(t, 3, 2, "a", model.SourceEcho)
	f.give(t, 2, 3, "b", model.SourceOrigin)
	_, err := f.ledger.RecordGoldenSeed(ctx, 1, f.cfg.GoldenBootstrapAt)
	require.NoError(t, err)

	sum, err := f.svc.ChannelSummary(ctx, "", 7)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Grants)
	assert.Equal(t, 1, sum.Echoes)
	assert.Equal(t, 3, sum.Givers)
	assert.Equal(t, 2, sum.Receivers)
	assert.Zero(t, sum.Golden)
	require.NotEmpty(t, sum.TopReceivers)
	assert.Equal(t, int64(2), sum.TopReceivers[0].User)

	text := f.svc.FormatSummary(ctx, sum)
	assert.Contains(t, text, "Итоги за 7 дней")
	assert.Contains(t, text, "3 благодарности (подхвачено: 1)")
	assert.Contains(t, text, "1. Боря: 2")
}

func TestRunChannelReportsIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	f.cfg.ReportChatIDs = []int64{10, 20, 30}
	f.give(t, 1, 2, "a", model.SourceOrigin)

	boom := errors.New("chat not found")
	sender := &testutil.Sender{FailChats: map[int64]error{20: boom}}
	res, err := f.svc.RunChannelReports(context.Background(), sender)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, boom, res.Errors[20])
	require.Len(t, sender.Messages, 2)
	assert.Equal(t, int64(10), sender.Messages[0].ChatID)
	assert.Equal(t, int64(30), sender.Messages[1].ChatID)
}

func TestHandlers(t *testing.T) {
	f := newFixture(t)
	f.give(t, 1, 2, "за помощь", model.SourceOrigin)
	sender := &testutil.Sender{}
	h := NewHandler(f.svc, sender)
	ctx := context.Background()

	h.HandleStats(ctx, 1, []string{"3"})
	assert.Contains(t, sender.Last(), "По дням:")
	assert.Contains(t, sender.Last(), "06-12 "+strings.Repeat("█", barWidth)+" 1")

	h.HandleUserReport(ctx, 1, 2, nil)
	assert.Contains(t, sender.Last(), "Боря: 1 благодарность за 30 дней")
	assert.Contains(t, sender.Last(), "«за помощь» ×1")

	h.HandleUserReport(ctx, 1, 3, nil)
	assert.Contains(t, sender.Last(), "Вера не получал(а)")
}
