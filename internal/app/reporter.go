package app

import (
	"context"
	"time"

	"github.com/bft-labs/frameship/internal/domain"
	"github.com/bft-labs/frameship/internal/ports"
)

// DefaultStatsInterval is how often the reporter logs and persists statistics.
const DefaultStatsInterval = 30 * time.Second

// StatusProvider produces status reports.
type StatusProvider interface {
	Status() domain.StatusReport
}

// Reporter periodically logs statistics and saves them through a
// StatusRepository. repo may be nil, in which case reports are only logged.
type Reporter struct {
	provider StatusProvider
	repo     ports.StatusRepository
	logger   ports.Logger
	interval time.Duration
}

// NewReporter creates a reporter that fires every interval.
func NewReporter(provider StatusProvider, repo ports.StatusRepository, logger ports.Logger, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = DefaultStatsInterval
	}
	return &Reporter{
		provider: provider,
		repo:     repo,
		logger:   logger,
		interval: interval,
	}
}

// Run reports on every tick until ctx is canceled, then saves a final report.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// ctx is gone; the final save gets its own short deadline
			saveCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			r.report(saveCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			r.report(ctx)
		}
	}
}

func (r *Reporter) report(ctx context.Context) {
	report := r.provider.Status()

	r.logger.Info("stream stats",
		ports.Uint64("captured", report.Captured),
		ports.Uint64("sent", report.Sent),
		ports.Uint64("dropped", report.Dropped),
		ports.Uint64("capture_errors", report.CaptureErrors),
		ports.Int("buffered", report.Buffered),
		ports.TargetFPS(report.TargetFPS),
		ports.Bool("running", report.Running),
	)

	if r.repo == nil {
		return
	}
	if err := r.repo.Save(ctx, report); err != nil {
		r.logger.Error("failed to save status", ports.Err(err))
	}
}
