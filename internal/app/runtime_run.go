package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

func (r *Runtime) Run(ctx context.Context) error {
	r.logger.Info("dealbot runtime starting",
		"addr", r.cfg.HTTPAddr,
		"timezone", r.cfg.Timezone,
		"environment", r.cfg.Environment,
	)

	group, groupCtx := errgroup.WithContext(ctx)

	if r.cfg.ConnectorEnabled {
		group.Go(func() error {
			return r.connector.Start(groupCtx)
		})
	} else {
		r.logger.Info("chat connector disabled by config")
	}

	group.Go(func() error {
		return r.checker.Start(groupCtx)
	})

	if r.cfg.JobsEnabled {
		group.Go(func() error {
			return r.jobs.Start(groupCtx)
		})
	} else {
		r.logger.Info("scheduled jobs disabled by config")
	}

	if r.cfg.RosterWatchEnabled {
		group.Go(func() error {
			if err := r.roster.Watch(groupCtx); err != nil {
				r.logger.Warn("roster watch unavailable", "error", err)
			}
			return nil
		})
	}

	if !r.cfg.HealthListenDisabled {
		group.Go(func() error {
			err := r.httpServer.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		group.Go(func() error {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return r.httpServer.Shutdown(shutdownCtx)
		})
	}

	return group.Wait()
}
