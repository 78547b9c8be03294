package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

// Scheduler запускает прогоны по расписанию и по запросу; одновременно идёт не больше одного.
type Scheduler struct {
	service *DatasetService
	tracker *RunTracker
	group   singleflight.Group
	// triggered занят с момента Trigger до конца фонового прогона
	triggered atomic.Bool
	cron      *cron.Cron
	wg        sync.WaitGroup
	logger    *slog.Logger
}

// NewScheduler создаёт планировщик
func NewScheduler(service *DatasetService, tracker *RunTracker, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		service: service,
		tracker: tracker,
		cron:    cron.New(),
		logger:  logger,
	}
}

// RunOnce выполняет прогон; конкурентные вызовы получают результат уже идущего прогона.
func (s *Scheduler) RunOnce(ctx context.Context) (RunSummary, error) {
	v, err, shared := s.group.Do("run", func() (any, error) {
		return s.service.Run(ctx)
	})
	if shared {
		s.logger.Debug("joined running harvest")
	}
	summary, _ := v.(RunSummary)
	return summary, err
}

// Trigger запускает прогон в фоне. Возвращает false, если прогон уже идёт.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.triggered.CompareAndSwap(false, true) {
		return false
	}
	if s.tracker.Status().Running {
		s.triggered.Store(false)
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.triggered.Store(false)
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("triggered run failed", "error", err)
		}
	}()
	return true
}

// Start регистрирует расписание expr (стандартный 5-польный формат cron) и запускает его.
func (s *Scheduler) Start(ctx context.Context, expr string) error {
	_, err := s.cron.AddFunc(expr, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", expr, err)
	}
	s.cron.Start()
	s.logger.Info("schedule started", "cron", expr)
	return nil
}

// Stop останавливает расписание и ждёт завершения идущих прогонов.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
}
