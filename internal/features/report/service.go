package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/config"
	"serotonyl.ru/recognition-bot/internal/events"
	"serotonyl.ru/recognition-bot/internal/features/leaderboard"
	"serotonyl.ru/recognition-bot/internal/features/ledger"
	"serotonyl.ru/recognition-bot/internal/metrics"
	"serotonyl.ru/recognition-bot/internal/model"
)

const dateLayout = "2006-01-02"

// Service строит отчёты.
type Service struct {
	ledger *ledger.Service
	cfg    *config.Config
	names  common.Names
	pub    events.Publisher
}

// NewService создаёт сервис отчётов.
func NewService(l *ledger.Service, cfg *config.Config, names common.Names, pub events.Publisher) *Service {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	return &Service{ledger: l, cfg: cfg, names: names, pub: pub}
}

func (s *Service) location(tz string) (*time.Location, string, error) {
	if tz == "" {
		tz = s.cfg.AppTimezone
	}
	loc, err := common.LoadLocation(tz)
	return loc, tz, err
}

func requireDays(days int) error {
	if days < 1 {
		return common.NewValidationError("days", "окно отчёта должно быть не меньше 1 дня")
	}
	return nil
}

// DailySeries — по точке на каждый локальный день окна, дни без
// благодарностей идут с нулём.
func (s *Service) DailySeries(ctx context.Context, tz string, days int) ([]DayPoint, error) {
	if err := requireDays(days); err != nil {
		return nil, err
	}
	loc, tz, err := s.location(tz)
	if err != nil {
		return nil, err
	}
	grants, err := s.ledger.Grants(ctx, ledger.Query{Timezone: tz, Days: days})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, g := range grants {
		counts[g.CreatedAt.In(loc).Format(dateLayout)]++
	}

	start := common.StartOfDay(s.ledger.Now(), loc)
	points := make([]DayPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := time.Date(start.Year(), start.Month(), start.Day()-i, 0, 0, 0, 0, loc).Format(dateLayout)
		points = append(points, DayPoint{Date: day, Count: counts[day]})
	}
	return points, nil
}

func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
}

// UserReport — что и сколько раз пользователь получил за окно.
func (s *Service) UserReport(ctx context.Context, user int64, tz string, days int) (*UserReport, error) {
	if err := requireDays(days); err != nil {
		return nil, err
	}
	loc, tz, err := s.location(tz)
	if err != nil {
		return nil, err
	}
	q := ledger.Query{User: user, Role: model.RoleReceiver, Timezone: tz, Days: days}

	grants, err := s.ledger.Grants(ctx, q)
	if err != nil {
		return nil, err
	}
	groups, err := s.ledger.GroupGrants(ctx, q, model.GroupByMessage, TopMessagesSize)
	if err != nil {
		return nil, err
	}

	r := &UserReport{User: user, Days: days, Total: len(grants), TopMessages: make([]MessageCount, 0, len(groups))}
	for _, g := range groups {
		r.TopMessages = append(r.TopMessages, MessageCount{Message: g.Key, Count: g.Count})
	}

	counts := make(map[string]int)
	for _, g := range grants {
		counts[weekStart(g.CreatedAt.In(loc)).Format(dateLayout)]++
	}
	w, err := common.ResolveWindow(tz, days, s.ledger.Now())
	if err != nil {
		return nil, err
	}
	last := weekStart(s.ledger.Now().In(loc))
	for wk := weekStart(w.Since.In(loc)); !wk.After(last); wk = time.Date(wk.Year(), wk.Month(), wk.Day()+7, 0, 0, 0, 0, loc) {
		key := wk.Format(dateLayout)
		r.Weekly = append(r.Weekly, WeekPoint{WeekStart: key, Count: counts[key]})
	}
	return r, nil
}

// ChannelSummary — итоги окна по всем чатам.
func (s *Service) ChannelSummary(ctx context.Context, tz string, days int) (*Summary, error) {
	if err := requireDays(days); err != nil {
		return nil, err
	}
	q := ledger.Query{Timezone: tz, Days: days}
	grants, err := s.ledger.Grants(ctx, q)
	if err != nil {
		return nil, err
	}
	q.ExcludeSystem = true
	golden, err := s.ledger.CountGolden(ctx, q)
	if err != nil {
		return nil, err
	}

	givers := make(map[int64]struct{})
	receivers := make(map[int64]struct{})
	sum := &Summary{Days: days, Grants: len(grants), Golden: int(golden)}
	for _, g := range grants {
		givers[g.Giver] = struct{}{}
		receivers[g.Receiver] = struct{}{}
		if g.Source == model.SourceEcho {
			sum.Echoes++
		}
	}
	sum.Givers = len(givers)
	sum.Receivers = len(receivers)
	sum.TopReceivers = leaderboard.Rank(grants, 5).Receivers
	return sum, nil
}

// FormatSummary — текст сводки для чата.
func (s *Service) FormatSummary(ctx context.Context, sum *Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Итоги за %d %s\n\n", sum.Days, common.PluralizeDays(sum.Days))
	if sum.Grants == 0 {
		sb.WriteString("Благодарностей не было. Самое время сказать спасибо! " + s.cfg.RecognizeTrigger)
		return sb.String()
	}
	fmt.Fprintf(&sb, "%s %s %s (подхвачено: %d)\n", s.cfg.RecognizeTrigger,
		common.FormatNumber(int64(sum.Grants)), common.PluralizeThanks(int64(sum.Grants)), sum.Echoes)
	fmt.Fprintf(&sb, "👥 Благодарили: %d, получали: %d\n", sum.Givers, sum.Receivers)
	if sum.Golden > 0 {
		fmt.Fprintf(&sb, "%s Передач золотого жетона: %d\n", s.cfg.GoldenTrigger, sum.Golden)
	}
	if len(sum.TopReceivers) > 0 {
		sb.WriteString("\nЧаще всех благодарили:\n")
		for i, e := range sum.TopReceivers {
			fmt.Fprintf(&sb, "%d. %s: %d\n", i+1, s.names.DisplayName(ctx, e.User), e.Total)
		}
	}
	return sb.String()
}

// RunChannelReports рассылает сводку в каждый чат из REPORT_CHAT_IDS.
// Ошибка отправки в один чат записывается в BatchResult и не прерывает
// рассылку. Ошибка построения сводки общая для всех, она возвращается сразу.
func (s *Service) RunChannelReports(ctx context.Context, sender common.Sender) (*BatchResult, error) {
	sum, err := s.ChannelSummary(ctx, "", s.cfg.ReportDays)
	if err != nil {
		return nil, fmt.Errorf("ошибка построения сводки: %w", err)
	}
	text := s.FormatSummary(ctx, sum)

	res := &BatchResult{Errors: make(map[int64]error)}
	for _, chatID := range s.cfg.ReportChatIDs {
		if err := ctx.Err(); err != nil {
			res.Failed++
			res.Errors[chatID] = err
			continue
		}
		if err := sender.SendText(ctx, chatID, text); err != nil {
			log.WithError(err).WithField("chat_id", chatID).Warn("Не удалось отправить отчёт")
			res.Failed++
			res.Errors[chatID] = err
			continue
		}
		res.Succeeded++
	}

	metrics.ReportTargets(res.Succeeded, res.Failed)
	log.WithFields(log.Fields{
		"succeeded": res.Succeeded,
		"failed":    res.Failed,
	}).Info("Рассылка отчётов завершена")
	events.PublishBestEffort(ctx, s.pub, events.TopicReportsSent, events.ReportsSent{
		Succeeded: res.Succeeded,
		Failed:    res.Failed,
		At:        s.ledger.Now(),
	})
	return res, nil
}
