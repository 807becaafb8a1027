package scheduler

import (
	"context"

	"github.com/vypdev/vaultstadio-sub005/internal/retention"

	"github.com/rs/zerolog"
)

// RetentionSweepJob prunes sync history past the configured horizon.
type RetentionSweepJob struct {
	Name        string
	Log         zerolog.Logger
	Retention   retention.Service
	HorizonDays int
}

func (j *RetentionSweepJob) Run() {
	j.Log.Info().Int("horizon_days", j.HorizonDays).Msg("Starting retention sweep job")
	ctx := context.Background()

	pruned, err := j.Retention.PruneOldData(ctx, j.HorizonDays)
	if err != nil {
		j.Log.Error().Err(err).Msg("Retention sweep failed")
		return
	}

	j.Log.Info().Int64("pruned", pruned).Msg("Retention sweep job finished")
}
