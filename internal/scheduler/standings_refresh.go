package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const standingsRefreshJobName = "standings_refresh"

// Refresher recomputes stale standings. *standings.Service satisfies it.
type Refresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// RegisterStandingsRefreshJob recomputes every active season on cronExpr so
// reads after out-of-band writes stay fast. Each run is bounded by timeout.
func RegisterStandingsRefreshJob(refresher Refresher, cronExpr string, timeout time.Duration) error {
	if refresher == nil {
		return fmt.Errorf("standings refresh job requires a refresher")
	}
	_, err := addJob(jobSpec{
		name:     standingsRefreshJobName,
		cronExpr: cronExpr,
		timeout:  timeout,
		task:     refreshTask(refresher),
	})
	return err
}

func refreshTask(refresher Refresher) Task {
	return func(ctx context.Context) error {
		refreshed, err := refresher.RefreshAll(ctx)
		if err != nil {
			return fmt.Errorf("standings refresh after %d seasons: %w", refreshed, err)
		}
		log.Ctx(ctx).Info().Int("refreshed", refreshed).Msg("Standings refresh completed")
		return nil
	}
}
