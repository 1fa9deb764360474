package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/leonberkemeier/PortfolioSimulation/internal/modules/analytics"
)

// SnapshotJob records a daily NAV snapshot for every active portfolio.
type SnapshotJob struct {
	analytics *analytics.Service
	log       zerolog.Logger
}

// NewSnapshotJob creates a new snapshot job.
func NewSnapshotJob(service *analytics.Service, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		analytics: service,
		log:       log.With().Str("job", "snapshot").Logger(),
	}
}

// Name returns the job name.
func (j *SnapshotJob) Name() string {
	return "daily_snapshot"
}

// Run records snapshots for all active portfolios.
func (j *SnapshotJob) Run() error {
	recorded, err := j.analytics.SnapshotAll()
	if err != nil {
		return err
	}
	j.log.Info().Int("recorded", recorded).Msg("Daily snapshots recorded")
	return nil
}
