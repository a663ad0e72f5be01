package holds

import (
	"context"
	"errors"
	"sync"
	"time"

	"ticketing/internal/shared/apperr"
	"ticketing/pkg/logger"

	"github.com/hashicorp/go-multierror"
)

// SweeperConfig contains configuration for the expiry sweeper
type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
	// Clock overrides time.Now when selecting due holds
	Clock func() time.Time
}

// DefaultSweeperConfig returns default sweeper configuration
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		Interval:  1 * time.Minute, // a quarter of the default hold TTL or less
		BatchSize: 100,
	}
}

// SweepResult summarises one sweep
type SweepResult struct {
	Expired    int `json:"expired"`
	Released   int `json:"released"`
	Reconciled int `json:"reconciled"`
	Skipped    int `json:"skipped"`
}

// SweeperStats are cumulative counters exposed to operators
type SweeperStats struct {
	IsRunning        bool      `json:"is_running"`
	Interval         string    `json:"interval"`
	BatchSize        int       `json:"batch_size"`
	Runs             int64     `json:"runs"`
	TotalExpired     int64     `json:"total_expired"`
	TotalReleased    int64     `json:"total_released"`
	TotalReconciled  int64     `json:"total_reconciled"`
	LastScanTime     time.Time `json:"last_scan_time"`
	LastExpiredCount int       `json:"last_expired_count"`
	LastError        string    `json:"last_error,omitempty"`
}

// Sweeper expires pending holds past their TTL and frees seats left held by
// holds that are no longer pending. Every step is guarded by the hold state,
// so concurrent replicas are safe.
type Sweeper struct {
	repo    Repository
	service Service
	locker  Locker
	config  *SweeperConfig
	log     *logger.Logger

	done     chan struct{}
	stopOnce sync.Once

	mu      sync.RWMutex
	running bool
	stats   SweeperStats
}

// NewSweeper creates a sweeper. locker may be nil.
func NewSweeper(repo Repository, service Service, locker Locker, config *SweeperConfig) *Sweeper {
	if config == nil {
		config = DefaultSweeperConfig()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSweeperConfig().Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSweeperConfig().BatchSize
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	return &Sweeper{
		repo:    repo,
		service: service,
		locker:  locker,
		config:  config,
		log:     logger.GetDefault(),
		done:    make(chan struct{}),
		stats: SweeperStats{
			Interval:  config.Interval.String(),
			BatchSize: config.BatchSize,
		},
	}
}

// Start runs the sweeper in the background
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		_ = s.Run(ctx)
	}()
}

// Run sweeps on every tick until ctx is cancelled or Stop is called
func (s *Sweeper) Run(ctx context.Context) error {
	s.setRunning(true)
	defer s.setRunning(false)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.log.Info("expiry sweeper started", "interval", s.config.Interval.String(), "batch_size", s.config.BatchSize)

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.log.WithError(err).Error("sweep finished with errors")
			}
		case <-s.done:
			s.log.Info("expiry sweeper stopped")
			return nil
		case <-ctx.Done():
			s.log.Info("expiry sweeper stopped")
			return nil
		}
	}
}

// Stop stops the background loop
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// RunOnce performs a single sweep: expire due holds in batches, then free
// orphaned seats.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx)
		if err != nil {
			// The lock is an optimisation; sweep anyway
			s.log.Warn("sweeper lock unavailable", "error", err)
		} else if !ok {
			s.log.Debug("sweep skipped, another replica holds the lock")
			return result, nil
		} else {
			defer func() {
				if err := s.locker.Unlock(context.WithoutCancel(ctx)); err != nil {
					s.log.Warn("failed to release sweeper lock", "error", err)
				}
			}()
		}
	}

	var errs *multierror.Error
	if err := s.expireDue(ctx, &result); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := s.reconcileOrphans(ctx, &result); err != nil {
		errs = multierror.Append(errs, err)
	}

	err := errs.ErrorOrNil()
	s.record(result, err)

	if result.Expired > 0 || result.Reconciled > 0 {
		s.log.Info("sweep completed",
			"expired", result.Expired,
			"released", result.Released,
			"reconciled", result.Reconciled,
			"skipped", result.Skipped)
	}
	return result, err
}

func (s *Sweeper) expireDue(ctx context.Context, result *SweepResult) error {
	var errs *multierror.Error
	for {
		due, err := s.repo.ListDue(ctx, s.config.Clock(), s.config.BatchSize)
		if err != nil {
			return multierror.Append(errs, err).ErrorOrNil()
		}

		failed := false
		for _, hold := range due {
			released, err := s.service.Expire(ctx, hold.ID)
			switch {
			case err == nil:
				result.Expired++
				result.Released += released
			case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrNotFound):
				// Confirmed or released between selection and action
				result.Skipped++
			default:
				failed = true
				errs = multierror.Append(errs, err)
			}
		}

		// Failed holds stay due; leave them for the next tick
		if len(due) < s.config.BatchSize || failed || ctx.Err() != nil {
			break
		}
	}
	return errs.ErrorOrNil()
}

func (s *Sweeper) reconcileOrphans(ctx context.Context, result *SweepResult) error {
	orphans, err := s.repo.ListOrphanedSeats(ctx, s.config.BatchSize)
	if err != nil {
		return err
	}

	var errs *multierror.Error
	for _, seat := range orphans {
		err := s.service.ReconcileSeat(ctx, seat)
		switch {
		case err == nil:
			result.Reconciled++
		case errors.Is(err, apperr.ErrConflict):
			result.Skipped++
		default:
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

func (s *Sweeper) record(result SweepResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Runs++
	s.stats.TotalExpired += int64(result.Expired)
	s.stats.TotalReleased += int64(result.Released)
	s.stats.TotalReconciled += int64(result.Reconciled)
	s.stats.LastScanTime = s.config.Clock()
	s.stats.LastExpiredCount = result.Expired
	s.stats.LastError = ""
	if err != nil {
		s.stats.LastError = err.Error()
	}
}

func (s *Sweeper) setRunning(running bool) {
	s.mu.Lock()
	s.running = running
	s.mu.Unlock()
}

// GetStats returns a snapshot of the sweeper counters
func (s *Sweeper) GetStats() SweeperStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.IsRunning = s.running
	return stats
}
