package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/wattlehq/partnerdesk/internal/dashboard/store"
)

// HousekeepingService periodically clears expired password reset tokens and
// stale lockouts. Both also self-heal lazily on access; the loop just keeps
// the data tidy so stale state never lingers on dormant accounts.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the service. A non-positive interval
// defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress pass finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup runs each sweep independently; one failing does not stop the other.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.Store.Users().DeleteExpiredResetTokens(ctx, now); err != nil {
		s.Logger.Error("failed to clear expired reset tokens", "error", err)
	}
	if err := s.Store.Users().ClearExpiredLockouts(ctx, now); err != nil {
		s.Logger.Error("failed to clear expired lockouts", "error", err)
	}
	s.Logger.Debug("housekeeping pass completed")
}
