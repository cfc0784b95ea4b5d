// Package events публикует события журнала во внешнюю шину (NATS).
package events

import (
	"context"
	"time"

	"serotonyl.ru/recognition-bot/internal/model"
)

// Темы событий
const (
	TopicGrantRecorded  = "recognition.grant.recorded"
	TopicGoldenHandoff  = "recognition.golden.handoff"
	TopicDebitRecorded  = "recognition.debit.recorded"
	TopicDebitRefunded  = "recognition.debit.refunded"
	TopicReportsSent    = "recognition.report.sent"
	TopicBackupFinished = "recognition.backup.finished"
)

type GrantRecorded struct {
	Grant *model.Grant `json:"grant"`
}

type GoldenHandoff struct {
	Grant    *model.Grant `json:"grant"`
	Previous int64        `json:"previous_holder"`
}

type DebitRecorded struct {
	Debit *model.Debit `json:"debit"`
}

type DebitRefunded struct {
	Debit *model.Debit `json:"debit"`
}

type ReportsSent struct {
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	At        time.Time `json:"at"`
}

type BackupFinished struct {
	Key     string    `json:"key"`
	Records int       `json:"records"`
	At      time.Time `json:"at"`
}

// Publisher — интерфейс отправки событий.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
