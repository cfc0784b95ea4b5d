// Package bot — Telegram-транспорт: long polling, фильтр доступа,
// разбор сообщений и маршрутизация в обработчики фич.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/bot/filters"
	"serotonyl.ru/recognition-bot/internal/bot/middleware"
	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/config"
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
)

const helpText = `Как благодарить:
%[1]s @username за что спасибо (не короче %[3]d символов)
%[1]s%[1]s — две благодарности сразу
Ответьте «+1» на чужую благодарность, чтобы присоединиться
%[2]s @username — передать золотой жетон (если он у вас)

Команды:
!баланс — ваши баллы
!лидеры [дни] — рейтинг
!влияние [дни] — самые подхватываемые благодарности
!статистика [дни] — сводка по чату
!отчёт [@username] [дни] — за что благодарили
!жетон — у кого золотой жетон
!награды — каталог, !купить id — обменять баллы`

// Handlers — обработчики фич, между которыми маршрутизирует бот.
type Handlers struct {
	Ledger      *ledger.Handler
	Balance     *balance.Handler
	Golden      *golden.Handler
	Leaderboard *leaderboard.Handler
	Influence   *influence.Handler
	Report      *report.Handler
	Rewards     *rewards.Handler
	Admin       *admin.Handler
	Members     *members.Handler
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api    *telego.Bot
	cfg    *config.Config
	sender common.Sender

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	memberService *members.Service
	h             Handlers

	parser *CommandParser

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт бота. api нужен только для Start: без него бот
// обрабатывает апдейты, переданные напрямую (тесты).
func New(
	api *telego.Bot,
	cfg *config.Config,
	sender common.Sender,
	memberService *members.Service,
	handlers Handlers,
	chatFilter *filters.ChatFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:           api,
		cfg:           cfg,
		sender:        sender,
		chatFilter:    chatFilter,
		rateLimiter:   middleware.NewRateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst),
		memberService: memberService,
		h:             handlers,
		parser:        NewCommandParser(),
		inflight:      make(chan struct{}, maxInFlight),
	}
}

// Start запускает long polling и блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("telegram клиент не инициализирован")
	}
	defer b.rateLimiter.Close()

	updates, err := b.api.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: b.cfg.BotUpdateTimeoutSeconds,
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.drain()
			return nil

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				b.drain()
				return nil
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd telego.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// drain ждёт завершения уже запущенных обработчиков.
func (b *Bot) drain() {
	for i := 0; i < cap(b.inflight); i++ {
		b.inflight <- struct{}{}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	defer middleware.RecoverFromPanic("bot.handleUpdate")

	message := update.Message
	if message == nil {
		return
	}

	// Вступление новых участников
	if len(message.NewChatMembers) > 0 {
		if b.cfg.MainChatID == 0 || message.Chat.ID == b.cfg.MainChatID {
			users := make([]members.UserInfo, 0, len(message.NewChatMembers))
			for _, u := range message.NewChatMembers {
				users = append(users, userInfo(u))
			}
			b.h.Members.HandleNewChatMembers(ctx, users)
		}
		return
	}

	if message.Text == "" || message.From == nil {
		return
	}

	middleware.LogMessage(message)

	if !b.chatFilter.CheckAccess(ctx, message) {
		return
	}

	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	// Без справочника не будет ни @username, ни имён в отчётах
	if err := b.memberService.EnsureMember(ctx, userInfo(*message.From)); err != nil {
		log.WithError(err).WithField("user_id", message.From.ID).Warn("EnsureMember failed")
	}

	private := message.Chat.Type == telego.ChatTypePrivate
	if private && b.h.Admin.HandleAdminMessage(ctx, message.Chat.ID, message.From.ID, message.Text) {
		return
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if isCommand {
		log.WithFields(log.Fields{"cmd": cmd, "args": len(args)}).Debug("parsed command")
		b.routeCommand(ctx, message, cmd, args)
		return
	}
	if private {
		return
	}

	switch {
	case message.ReplyToMessage != nil && isEcho(message.Text, b.cfg.RecognizeTrigger):
		b.handleEcho(ctx, message)
	case b.cfg.GoldenTrigger != "" && strings.Contains(message.Text, b.cfg.GoldenTrigger):
		b.handleGolden(ctx, message)
	case b.cfg.RecognizeTrigger != "" && strings.Contains(message.Text, b.cfg.RecognizeTrigger):
		b.handleGratitude(ctx, message, message.From, model.SourceOrigin)
	}
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, message *telego.Message, cmd string, args []string) {
	chatID := message.Chat.ID
	userID := message.From.ID

	switch cmd {
	case "start", "help", "помощь":
		b.send(ctx, chatID, b.help())

	case "login":
		b.h.Admin.HandleLogin(ctx, chatID, userID, message.Chat.Type == telego.ChatTypePrivate, args)

	case "logout":
		b.h.Admin.HandleLogout(ctx, chatID, userID)

	case "баланс":
		b.h.Balance.HandleBalance(ctx, chatID, userID)

	case "лидеры", "рейтинг":
		b.h.Leaderboard.HandleLeaderboard(ctx, chatID, args)

	case "влияние":
		b.h.Influence.HandleInfluence(ctx, chatID, args)

	case "статистика":
		b.h.Report.HandleStats(ctx, chatID, args)

	case "отчёт", "отчет":
		target, rest, ok := b.targetUser(ctx, message, args)
		if !ok {
			return
		}
		if target == 0 {
			target = userID
		}
		b.h.Report.HandleUserReport(ctx, chatID, target, rest)

	case "жетон", "золото":
		b.h.Golden.HandleHolder(ctx, chatID)

	case "награды":
		b.h.Rewards.HandleCatalog(ctx, chatID, userID)

	case "купить":
		b.h.Rewards.HandleRedeem(ctx, chatID, userID, args)

	case "списать":
		target, rest, ok := b.targetUser(ctx, message, args)
		if !ok {
			return
		}
		if target == 0 {
			b.send(ctx, chatID, "❌ Формат: !списать @username сумма [причина]")
			return
		}
		b.h.Admin.HandleDeduct(ctx, chatID, userID, target, rest)

	case "возврат":
		b.h.Admin.HandleRefund(ctx, chatID, userID, args)
	}
}

func (b *Bot) help() string {
	return fmt.Sprintf(helpText, b.cfg.RecognizeTrigger, b.cfg.GoldenTrigger, b.cfg.MinMessageLength)
}

// targetUser достаёт адресата команды из первого аргумента (@username)
// или из text_mention. target == 0 — адресат не указан. ok == false —
// ответ пользователю уже отправлен.
func (b *Bot) targetUser(ctx context.Context, message *telego.Message, args []string) (target int64, rest []string, ok bool) {
	if mentioned := textMentions(message); len(mentioned) > 0 {
		// имя из text_mention попадает в args словами, их отбрасываем до первого числа
		for len(args) > 0 && !isNumber(args[0]) {
			args = args[1:]
		}
		return mentioned[0].ID, args, true
	}
	if len(args) == 0 || !strings.HasPrefix(args[0], "@") {
		return 0, args, true
	}
	m, err := b.memberService.GetByUsername(ctx, args[0])
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			b.send(ctx, message.Chat.ID, "❌ Не знаю "+args[0])
		} else {
			log.WithError(err).Error("Ошибка поиска участника")
			b.send(ctx, message.Chat.ID, "❌ Внутренняя ошибка, попробуйте позже")
		}
		return 0, nil, false
	}
	return m.UserID, args[1:], true
}

// receivers собирает получателей из @упоминаний и text_mention.
// Неизвестные @username возвращаются отдельно.
func (b *Bot) receivers(ctx context.Context, message *telego.Message) ([]ledger.Receiver, []string, error) {
	found, missing, err := b.memberService.Resolve(ctx, ledger.MentionsIn(message.Text))
	if err != nil {
		return nil, nil, err
	}

	var out []ledger.Receiver
	seen := make(map[int64]bool)
	for _, m := range found {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			out = append(out, ledger.Receiver{ID: m.UserID, IsBot: m.IsBot})
		}
	}
	for _, u := range textMentions(message) {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		if err := b.memberService.EnsureMember(ctx, userInfo(u)); err != nil {
			log.WithError(err).WithField("user_id", u.ID).Warn("EnsureMember failed")
		}
		out = append(out, ledger.Receiver{ID: u.ID, IsBot: u.IsBot})
	}

	unknown := make([]string, 0, len(missing))
	for _, name := range missing {
		unknown = append(unknown, "@"+name)
	}
	return out, unknown, nil
}

// handleGratitude — благодарность из текста message от giver.
func (b *Bot) handleGratitude(ctx context.Context, message *telego.Message, giver *telego.User, source model.Source) {
	recv, unknown, err := b.receivers(ctx, message)
	if err != nil {
		log.WithError(err).Error("Ошибка поиска получателей")
		b.send(ctx, message.Chat.ID, "❌ Внутренняя ошибка, попробуйте позже")
		return
	}
	count := 1
	if source == model.SourceOrigin {
		count = ledger.CountIn(message.Text, b.cfg.RecognizeTrigger)
	}
	b.h.Ledger.HandleGratitude(ctx, ledger.GratitudeInput{
		Giver:      giver.ID,
		GiverIsBot: giver.IsBot,
		Receivers:  recv,
		Count:      count,
		Message:    message.Text,
		ChatID:     message.Chat.ID,
		Source:     source,
	}, unknown)
}

// handleEcho — «+1» в ответ на благодарность: та же благодарность
// тем же получателям от нового автора.
func (b *Bot) handleEcho(ctx context.Context, message *telego.Message) {
	original := message.ReplyToMessage
	if original.From == nil || original.From.ID == message.From.ID {
		return
	}
	if !strings.Contains(original.Text, b.cfg.RecognizeTrigger) {
		return
	}
	echo := *original
	echo.Chat = message.Chat
	b.handleGratitude(ctx, &echo, message.From, model.SourceEcho)
}

func (b *Bot) handleGolden(ctx context.Context, message *telego.Message) {
	recv, unknown, err := b.receivers(ctx, message)
	if err != nil {
		log.WithError(err).Error("Ошибка поиска получателей")
		b.send(ctx, message.Chat.ID, "❌ Внутренняя ошибка, попробуйте позже")
		return
	}
	if len(unknown) > 0 {
		b.send(ctx, message.Chat.ID, "❌ Не знаю "+strings.Join(unknown, ", "))
		return
	}
	ids := make([]int64, 0, len(recv))
	for _, r := range recv {
		ids = append(ids, r.ID)
	}
	b.h.Golden.HandleHandoff(ctx, message.Chat.ID, message.From.ID, ids, message.Text)
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if err := b.sender.SendText(ctx, chatID, text); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

func isNumber(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func userInfo(u telego.User) members.UserInfo {
	return members.UserInfo{
		UserID:    u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsBot:     u.IsBot,
	}
}
