package ledger

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/metrics"
	"serotonyl.ru/recognition-bot/internal/model"
)

// DailyRemaining — сколько благодарностей giver ещё может отправить
// сегодня (по локальной полуночи пояса tz). Для освобождённых — Unlimited.
func (s *Service) DailyRemaining(ctx context.Context, giver int64, tz string) (int, error) {
	if s.cfg.IsLimitExempt(giver) {
		return Unlimited, nil
	}
	given, err := s.CountGrants(ctx, Query{User: giver, Role: model.RoleGiver, Timezone: tz, Days: 1})
	if err != nil {
		return 0, err
	}
	remaining := s.cfg.DailyLimit - int(given)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Gratitude проверяет благодарность из чата и записывает count благодарностей
// каждому получателю. Все нарушения собираются в одну ValidationError.
func (s *Service) Gratitude(ctx context.Context, in GratitudeInput) ([]*model.Grant, error) {
	if in.Count < 1 {
		in.Count = 1
	}
	trimmed := TrimMessage(in.Message, s.cfg.RecognizeTrigger, s.cfg.GoldenTrigger)

	var reasons []string
	if len(in.Receivers) == 0 {
		reasons = append(reasons, "укажите, кого благодарите: @username")
	}
	for _, r := range in.Receivers {
		if r.ID == in.Giver {
			reasons = append(reasons, "нельзя благодарить самого себя")
			break
		}
	}
	if in.GiverIsBot {
		reasons = append(reasons, "боты не могут благодарить")
	}
	for _, r := range in.Receivers {
		if r.IsBot {
			reasons = append(reasons, "ботов благодарить нельзя")
			break
		}
	}
	if trimmed == "" {
		reasons = append(reasons, "нужен текст: за что благодарите")
	} else if in.Source != model.SourceEcho && len([]rune(trimmed)) < s.cfg.MinMessageLength {
		reasons = append(reasons, fmt.Sprintf("сообщение должно быть не короче %d символов", s.cfg.MinMessageLength))
	}

	remaining, err := s.DailyRemaining(ctx, in.Giver, in.Timezone)
	if err != nil {
		return nil, err
	}
	cost := len(in.Receivers) * in.Count
	if remaining != Unlimited && cost > remaining {
		reasons = append(reasons, fmt.Sprintf("в день можно отправить не больше %d %s (осталось %d)",
			s.cfg.DailyLimit, common.PluralizeThanks(int64(s.cfg.DailyLimit)), remaining))
	}

	if len(reasons) > 0 {
		metrics.Rejected("gratitude", "validation")
		log.WithFields(log.Fields{
			"giver":   in.Giver,
			"reasons": reasons,
		}).Debug("Благодарность отклонена")
		return nil, common.NewValidationError("", "- "+strings.Join(reasons, "\n- "))
	}

	tags := TagsIn(in.Message)
	grants := make([]*model.Grant, 0, cost)
	for _, r := range in.Receivers {
		for i := 0; i < in.Count; i++ {
			g, err := s.RecordGrant(ctx, GrantInput{
				Giver:    in.Giver,
				Receiver: r.ID,
				Message:  in.Message,
				Trimmed:  trimmed,
				ChatID:   in.ChatID,
				Source:   in.Source,
				Tags:     tags,
			})
			if err != nil {
				return grants, err
			}
			grants = append(grants, g)
		}
	}

	log.WithFields(log.Fields{
		"giver":     in.Giver,
		"receivers": len(in.Receivers),
		"count":     in.Count,
		"source":    in.Source,
	}).Info("Благодарность записана")
	return grants, nil
}
