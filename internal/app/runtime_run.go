package app

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

func (r *Runtime) Run(ctx context.Context) error {
	r.logger.Info("hinabot runtime starting", "data_dir", r.cfg.DataDir)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return r.watcher.Start(groupCtx)
	})
	group.Go(func() error {
		return r.scheduler.Start(groupCtx)
	})
	for _, conn := range r.connectors {
		connector := conn
		group.Go(func() error {
			r.logger.Info("connector starting", "connector", strings.ToLower(connector.Name()))
			return connector.Start(groupCtx)
		})
	}

	return group.Wait()
}
