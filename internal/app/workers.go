package app

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/Alijeyrad/dentlab_backend/config"
	"github.com/Alijeyrad/dentlab_backend/internal/realtime"
	"github.com/Alijeyrad/dentlab_backend/internal/service/cases"
)

// WorkerModule starts the background loops: the realtime bridge and the
// archival sweeper.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc      fx.Lifecycle
	Cfg     *config.Config
	Bus     *realtime.Bus
	Sweeper *cases.Sweeper
}

func RegisterWorkers(p WorkerParams) {
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Bus.Start(); err != nil {
				return err
			}
			if p.Cfg.Cases.SweepSchedule == "" {
				slog.Info("sweeper: no schedule configured, archival runs on demand only")
				return nil
			}
			return p.Sweeper.Start(p.Cfg.Cases.SweepSchedule, location(p.Cfg))
		},
		OnStop: func(ctx context.Context) error {
			if err := p.Sweeper.Stop(ctx); err != nil {
				slog.Warn("sweeper: stop interrupted", "err", err)
			}
			// NATS drain is handled by ProvideNatsClient
			return p.Bus.Stop()
		},
	})
}
