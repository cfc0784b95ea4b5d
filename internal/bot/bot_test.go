package bot

import (
	"context"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/recognition-bot/internal/bot/filters"
	"serotonyl.ru/recognition-bot/internal/features/admin"
	"serotonyl.ru/recognition-bot/internal/features/balance"
	"serotonyl.ru/recognition-bot/internal/features/golden"
	"serotonyl.ru/recognition-bot/internal/features/influence"
	"serotonyl.ru/recognition-bot/internal/features/leaderboard"
	"serotonyl.ru/recognition-bot/internal/features/ledger"
	"serotonyl.ru/recognition-bot/internal/features/members"
	"serotonyl.ru/recognition-bot/internal/features/report"
	"serotonyl.ru/recognition-bot/internal/features/rewards"
	"serotonyl.ru/recognition-bot/internal/model"
	"serotonyl.ru/recognition-bot/internal/store/memory"
	"serotonyl.ru/recognition-bot/internal/testutil"
)

const chat = int64(-100)

var (
	anya = telego.User{ID: 1, FirstName: "Аня", Username: "anya"}
	bob  = telego.User{ID: 2, FirstName: "Боря", Username: "bob"}
	vera = telego.User{ID: 3, FirstName: "Вера", Username: "vera"}
)

type fixture struct {
	bot     *Bot
	sender  *testutil.Sender
	ledger  *ledger.Service
	members *members.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testutil.Config()
	cfg.RateLimitPerSec = 0
	st := memory.New()
	sender := &testutil.Sender{}

	l := ledger.NewService(st, cfg, nil, nil)
	m := members.NewService(st, cfg, nil)
	b := balance.NewService(l, cfg)
	rep := report.NewService(l, cfg, m, nil)

	h := Handlers{
		Ledger:      ledger.NewHandler(l, m, sender),
		Balance:     balance.NewHandler(b, sender),
		Golden:      golden.NewHandler(golden.NewService(l, cfg, nil), m, sender),
		Leaderboard: leaderboard.NewHandler(leaderboard.NewService(l, cfg), m, sender),
		Influence:   influence.NewHandler(influence.NewService(l), m, sender),
		Report:      report.NewHandler(rep, sender),
		Rewards:     rewards.NewHandler(rewards.NewService(rewards.DefaultCatalog(), b), b, cfg, m, sender),
		Admin:       admin.NewHandler(admin.NewService(l, cfg), m, sender),
		Members:     members.NewHandler(m),
	}
	filter := filters.NewChatFilter(cfg.MainChatID, cfg.GoldenChatID, m, nil, sender)
	return &fixture{
		bot:     New(nil, cfg, sender, m, h, filter),
		sender:  sender,
		ledger:  l,
		members: m,
	}
}

func (f *fixture) say(from telego.User, text string) *telego.Message {
	msg := &telego.Message{
		Chat: telego.Chat{ID: chat, Type: "supergroup"},
		From: &from,
		Text: text,
	}
	f.bot.handleUpdate(context.Background(), telego.Update{Message: msg})
	return msg
}

func (f *fixture) join(users ...telego.User) {
	f.bot.handleUpdate(context.Background(), telego.Update{Message: &telego.Message{
		Chat:           telego.Chat{ID: chat, Type: "supergroup"},
		NewChatMembers: users,
	}})
}

func (f *fixture) received(t *testing.T, user int64) int64 {
	t.Helper()
	n, err := f.ledger.CountGrants(context.Background(), ledger.Query{User: user, Role: model.RoleReceiver})
	require.NoError(t, err)
	return n
}

func TestGratitudeFromGroupMessage(t *testing.T) {
	f := newFixture(t)
	f.join(anya, bob, vera)

	f.say(anya, "🤜🤜 @bob @vera спасибо за помощь с релизом")
	assert.Equal(t, "✅ @anya → @bob, @vera ×2\nОсталось на сегодня: 1", f.sender.Last())
	assert.EqualValues(t, 2, f.received(t, 2))
	assert.EqualValues(t, 2, f.received(t, 3))
}

func TestGratitudeUnknownUser(t *testing.T) {
	f := newFixture(t)
	f.join(anya)

	f.say(anya, "🤜 @ghost спасибо за помощь с релизом")
	assert.Contains(t, f.sender.Last(), "Не знаю @ghost")
}

func TestGratitudeViaTextMention(t *testing.T) {
	f := newFixture(t)
	f.join(anya)
	noUsername := telego.User{ID: 5, FirstName: "Гоша"}

	msg := &telego.Message{
		Chat:     telego.Chat{ID: chat, Type: "supergroup"},
		From:     &anya,
		Text:     "🤜 Гоша спасибо за помощь с релизом",
		Entities: []telego.MessageEntity{{Type: "text_mention", Offset: 3, Length: 4, User: &noUsername}},
	}
	f.bot.handleUpdate(context.Background(), telego.Update{Message: msg})

	assert.Equal(t, "✅ @anya → Гоша\nОсталось на сегодня: 4", f.sender.Last())
	assert.EqualValues(t, 1, f.received(t, 5))
}

func TestEchoReply(t *testing.T) {
	f := newFixture(t)
	f.join(anya, bob, vera)

	original := f.say(anya, "🤜 @bob спасибо за помощь с релизом")
	reply := &telego.Message{
		Chat:           telego.Chat{ID: chat, Type: "supergroup"},
		From:           &vera,
		Text:           "+1",
		ReplyToMessage: original,
	}
	f.bot.handleUpdate(context.Background(), telego.Update{Message: reply})

	assert.Contains(t, f.sender.Last(), "@vera подхватил(а) благодарность: @bob")
	assert.EqualValues(t, 2, f.received(t, 2))

	// своё сообщение не подхватывается
	self := *reply
	self.From = &anya
	before := len(f.sender.Messages)
	f.bot.handleUpdate(context.Background(), telego.Update{Message: &self})
	assert.Len(t, f.sender.Messages, before)
	assert.EqualValues(t, 2, f.received(t, 2))
}

func TestPrivateChatIgnoresTriggers(t *testing.T) {
	f := newFixture(t)
	f.join(anya, bob)

	msg := &telego.Message{
		Chat: telego.Chat{ID: 1, Type: telego.ChatTypePrivate},
		From: &anya,
		Text: "🤜 @bob спасибо за помощь с релизом",
	}
	f.bot.handleUpdate(context.Background(), telego.Update{Message: msg})
	assert.Empty(t, f.sender.Messages)
	assert.Zero(t, f.received(t, 2))
}

func TestCommands(t *testing.T) {
	f := newFixture(t)
	f.join(anya, bob)
	f.say(anya, "🤜 @bob спасибо за помощь с релизом")

	f.say(bob, "!баланс")
	assert.Contains(t, f.sender.Last(), "🤜 Благодарностей: 1")

	f.say(anya, "/help@recognition_bot")
	assert.Contains(t, f.sender.Last(), "!баланс")

	f.say(anya, ".отчёт @bob")
	assert.Contains(t, f.sender.Last(), "@bob: 1 благодарность за 30 дней")

	f.say(anya, "!отчёт @nobody")
	assert.Equal(t, "❌ Не знаю @nobody", f.sender.Last())

	f.say(anya, "!списать")
	assert.Contains(t, f.sender.Last(), "Формат: !списать")
}

func TestMembersRegisteredOnFirstMessage(t *testing.T) {
	f := newFixture(t)
	f.say(vera, "всем привет")

	m, err := f.members.GetByUsername(context.Background(), "@VERA")
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.UserID)
	assert.Empty(t, f.sender.Messages)
}

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()
	tests := []struct {
		text string
		cmd  string
		args []string
		ok   bool
	}{
		{"!баланс", "баланс", nil, true},
		{"  .Лидеры 7 ", "лидеры", []string{"7"}, true},
		{"/login@my_bot secret", "login", []string{"secret"}, true},
		{"спасибо", "", nil, false},
		{"!", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, args, ok := p.ParseCommand(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestIsEcho(t *testing.T) {
	assert.True(t, isEcho("+1", "🤜"))
	assert.True(t, isEcho(" + ", "🤜"))
	assert.True(t, isEcho("🤜", "🤜"))
	assert.True(t, isEcho("🤜 🤜", "🤜"))
	assert.False(t, isEcho("+100500", "🤜"))
	assert.False(t, isEcho("🤜 @bob", "🤜"))
	assert.False(t, isEcho("", "🤜"))
}
