package backup

import (
	"bytes"
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/events"
	"serotonyl.ru/recognition-bot/internal/store"
)

// Result — итог одной выгрузки.
type Result struct {
	Key     string
	Records int
	Bytes   int
}

// Service делает выгрузку и отправляет её в Destination.
type Service struct {
	store  store.Store
	dest   Destination
	prefix string
	pub    events.Publisher
	now    common.Clock
}

// NewService создаёт сервис бэкапов.
func NewService(st store.Store, dest Destination, prefix string, pub events.Publisher, clock common.Clock) *Service {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	if clock == nil {
		clock = common.SystemClock
	}
	return &Service{store: st, dest: dest, prefix: prefix, pub: pub, now: clock}
}

// Key — имя объекта выгрузки для момента at.
func (s *Service) Key(at time.Time) string {
	return s.prefix + "ledger-" + at.UTC().Format("20060102T150405Z") + ".jsonl"
}

// Run выгружает журнал целиком.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	at := s.now()

	var buf bytes.Buffer
	records, err := Export(ctx, s.store, &buf, at)
	if err != nil {
		return nil, err
	}

	key := s.Key(at)
	if err := s.dest.Put(ctx, key, buf.Bytes()); err != nil {
		return nil, err
	}

	res := &Result{Key: key, Records: records, Bytes: buf.Len()}
	log.WithFields(log.Fields{
		"key":     res.Key,
		"records": res.Records,
		"bytes":   res.Bytes,
	}).Info("Бэкап журнала выгружен")
	events.PublishBestEffort(ctx, s.pub, events.TopicBackupFinished, events.BackupFinished{
		Key:     key,
		Records: records,
		At:      at,
	})
	return res, nil
}
