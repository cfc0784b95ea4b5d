// Package jobs управляет фоновыми задачами (cron): рассылка отчётов
// и бэкап журнала.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/metrics"
)

// JobFunc — тело фоновой задачи.
type JobFunc func(ctx context.Context) error

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location
	ctx  context.Context
}

// NewScheduler создаёт планировщик в поясе loc.
func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		loc:  loc,
		ctx:  context.Background(),
	}
}

// Add регистрирует задачу по cron-выражению (5 полей).
// Пустое выражение отключает задачу.
func (s *Scheduler) Add(name, spec string, fn JobFunc) error {
	if spec == "" {
		log.WithField("job", name).Info("[CRON] Задача отключена")
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, fn) }); err != nil {
		return fmt.Errorf("задача %s: некорректное расписание %q: %w", name, spec, err)
	}
	log.WithFields(log.Fields{"job": name, "spec": spec}).Info("[CRON] Задача запланирована")
	return nil
}

func (s *Scheduler) run(name string, fn JobFunc) {
	start := time.Now()
	err := fn(s.ctx)
	metrics.JobRun(name, err)

	entry := log.WithFields(log.Fields{
		"job":      name,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	})
	if err != nil {
		entry.WithError(err).Error("[CRON] Ошибка задачи")
		return
	}
	entry.Info("[CRON] Задача выполнена")
}

// Len — число запланированных задач.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start запускает все фоновые задачи. ctx передаётся в задачи.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	log.WithField("tz", s.loc.String()).Info("Планировщик задач запущен")
}

// Stop останавливает планировщик и ждёт завершения задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
