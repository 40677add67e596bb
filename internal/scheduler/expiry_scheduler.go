package scheduler

import (
	"context"
	"fmt"
	"time"

	"event-ticket-gate/pkg/logger"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Expirer moves valid tickets whose check-in window has closed to expired.
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

type ExpiryScheduler struct {
	scheduler gocron.Scheduler
	expirer   Expirer
	interval  time.Duration
	timeout   time.Duration
}

func NewExpiryScheduler(expirer Expirer, interval time.Duration) (*ExpiryScheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("expiry interval must be positive, got %s", interval)
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}
	return &ExpiryScheduler{
		scheduler: s,
		expirer:   expirer,
		interval:  interval,
		timeout:   interval,
	}, nil
}

// Start registers the sweep and starts the scheduler. Runs never overlap.
func (s *ExpiryScheduler) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.sweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return err
	}

	s.scheduler.Start()
	logger.WithComponent("scheduler").Info("expiry sweep started", zap.Duration("interval", s.interval))
	return nil
}

func (s *ExpiryScheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}

func (s *ExpiryScheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.expirer.ExpireDue(ctx)
	if err != nil {
		logger.WithComponent("scheduler").Error("expiry sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		logger.WithComponent("scheduler").Info("expired tickets", zap.Int("count", n))
	}
}
