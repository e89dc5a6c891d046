package reload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Schedule rebuilds every interval until ctx is cancelled. A tick that
// arrives while a rebuild is still running is skipped.
func (r *Reloader) Schedule(ctx context.Context, interval time.Duration) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("reload: create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			_, _ = r.Rebuild(ctx)
		}),
		gocron.WithName("periodic-rebuild"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("reload: schedule rebuild: %w", err)
	}

	r.logger.Info("scheduler: started", slog.String("interval", interval.String()))
	s.Start()
	<-ctx.Done()
	r.logger.Info("scheduler: stopped")
	return s.Shutdown()
}
