package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler периодически сбрасывает изменённые чаты в хранилище
type Scheduler struct {
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	interval  time.Duration
	flushFunc func(ctx context.Context)
	entry     cron.EntryID
	running   bool
}

// New создает планировщик с заданным интервалом сброса
func New(interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cron.VerbosePrintfLogger(log.StandardLogger())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(logger),
			// пропускаем тик, если предыдущий сброс ещё идёт
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:      ctx,
		cancel:   cancel,
		interval: interval,
	}
}

// SetFlushFunction устанавливает функцию сброса
func (s *Scheduler) SetFlushFunction(f func(ctx context.Context)) {
	s.flushFunc = f
}

// Start запускает периодический сброс
func (s *Scheduler) Start() error {
	if s.flushFunc == nil {
		return errors.New("flush function not set")
	}
	if s.IsRunning() {
		return nil
	}

	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.flushFunc(s.ctx)
	})
	if err != nil {
		return err
	}

	s.entry = id
	s.running = true
	s.cron.Start()
	log.Infof("📅 Scheduler started - flushing every %s", s.interval)
	return nil
}

// Stop останавливает планировщик, дожидается текущего сброса и выполняет финальный
func (s *Scheduler) Stop() {
	if !s.IsRunning() {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	if s.flushFunc != nil {
		s.flushFunc(context.Background())
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Info("📅 Scheduler stopped")
}

// IsRunning проверяет, запущен ли планировщик
func (s *Scheduler) IsRunning() bool {
	return s.running && len(s.cron.Entries()) > 0
}
