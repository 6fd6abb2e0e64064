package service

import (
	"context"
	"log/slog"
	"time"
)

// DefaultPendingSetupTTL is how long a setup may stay unconfirmed.
const DefaultPendingSetupTTL = 30 * time.Minute

// HousekeepingService periodically aborts two-factor setups that were never
// confirmed so stale pending secrets do not linger in storage.
type HousekeepingService struct {
	TwoFactor       *TwoFactorService
	Logger          *slog.Logger
	Interval        time.Duration
	PendingSetupTTL time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService defaults a non-positive interval to 10 minutes and a
// non-positive ttl to DefaultPendingSetupTTL.
func NewHousekeepingService(tf *TwoFactorService, logger *slog.Logger, interval, ttl time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if ttl <= 0 {
		ttl = DefaultPendingSetupTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		TwoFactor:       tf,
		Logger:          logger,
		Interval:        interval,
		PendingSetupTTL: ttl,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to end it.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		"interval", s.Interval, "pending_setup_ttl", s.PendingSetupTTL)
}

// Stop blocks until an in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs a single sweep and returns the number of setups expired.
func (s *HousekeepingService) RunOnce(ctx context.Context) int {
	n, err := s.TwoFactor.ExpireStaleSetups(ctx, s.PendingSetupTTL)
	if err != nil {
		s.Logger.Error("failed to expire pending two-factor setups", "error", err)
		return 0
	}
	if n > 0 {
		s.Logger.Info("expired pending two-factor setups", "count", n)
	} else {
		s.Logger.Debug("no pending two-factor setups to expire")
	}
	return n
}
