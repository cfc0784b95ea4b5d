package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"serotonyl.ru/recognition-bot/internal/model"
	"serotonyl.ru/recognition-bot/internal/testutil"
)

func TestHandleGratitude(t *testing.T) {
	svc, _, _ := newTestService(t)
	sender := &testutil.Sender{}
	h := NewHandler(svc, testutil.Names{1: "Аня", 2: "Боря", 3: "Вера"}, sender)
	ctx := context.Background()

	h.HandleGratitude(ctx, GratitudeInput{Giver: 1, Message: longMessage, ChatID: 7}, []string{"@ghost"})
	assert.Contains(t, sender.Last(), "Не знаю @ghost")

	h.HandleGratitude(ctx, GratitudeInput{
		Giver: 1, Receivers: []Receiver{{ID: 2}, {ID: 3}}, Count: 2, Message: longMessage, ChatID: 7,
	}, nil)
	assert.Equal(t, "✅ Аня → Боря, Вера ×2\nОсталось на сегодня: 1", sender.Last())

	h.HandleGratitude(ctx, GratitudeInput{
		Giver: 1, Receivers: []Receiver{{ID: 2}}, Message: "🤜 @bob мерси", ChatID: 7,
	}, nil)
	assert.Contains(t, sender.Last(), "Благодарность не засчитана")
	assert.Contains(t, sender.Last(), "не короче 20 символов")

	h.HandleGratitude(ctx, GratitudeInput{
		Giver: 3, Receivers: []Receiver{{ID: 2}}, Message: longMessage, ChatID: 7, Source: model.SourceEcho,
	}, nil)
	assert.Contains(t, sender.Last(), "Вера подхватил(а) благодарность: Боря")
	assert.Equal(t, int64(7), sender.Messages[len(sender.Messages)-1].ChatID)
}
