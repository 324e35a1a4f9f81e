package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/dentlab_backend/config"
	"github.com/Alijeyrad/dentlab_backend/internal/realtime"
	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
	"github.com/Alijeyrad/dentlab_backend/pkg/database"
	"github.com/Alijeyrad/dentlab_backend/pkg/email"
	"github.com/Alijeyrad/dentlab_backend/pkg/observability"
	pasetotoken "github.com/Alijeyrad/dentlab_backend/pkg/paseto"
	redispkg "github.com/Alijeyrad/dentlab_backend/pkg/redis"
	s3pkg "github.com/Alijeyrad/dentlab_backend/pkg/s3"
	"github.com/Alijeyrad/dentlab_backend/pkg/sms"
)

// InfraModule provides all infrastructure dependencies.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideRepoClient),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideAuthorization),
	fx.Provide(ProvideEmailClient),
	fx.Provide(ProvideSMSClient),
	fx.Provide(ProvideOTel),
	fx.Provide(ProvideS3Client),
	fx.Provide(ProvideNatsClient),
	fx.Provide(ProvidePasetoManager),
	fx.Provide(realtime.NewHub),
	fx.Provide(realtime.NewBus),
	fx.Provide(ProvidePresence),
)

// closeOnStop releases a resource when the app stops.
func closeOnStop(lc fx.Lifecycle, what string, stop func(context.Context) error) {
	lc.Append(fx.StopHook(func(ctx context.Context) error {
		slog.Debug("closing", "resource", what)
		return stop(ctx)
	}))
}

func ProvideRepoClient(lc fx.Lifecycle, cfg *config.Config) (*repo.Client, error) {
	client, err := database.NewRepoClient(cfg.Database)
	if err != nil {
		return nil, err
	}
	closeOnStop(lc, "database", func(context.Context) error { return client.Close() })
	return client, nil
}

func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	rdb, err := redispkg.NewRedisFromCentral(cfg.Redis)
	if err != nil {
		return nil, err
	}
	closeOnStop(lc, "redis", func(context.Context) error { return rdb.Close() })
	return rdb, nil
}

// ProvideAuthorization opens the Casbin enforcer and makes sure the role
// policies exist before the first request is checked.
func ProvideAuthorization(lc fx.Lifecycle, cfg *config.Config) (authorize.IAuthorization, error) {
	dsn := database.NewDSN(cfg.CasbinDatabase)
	enforcer, cleanup, err := authorize.NewEnforcer(authorize.FromCentralConfig(cfg.Authorization), dsn)
	if err != nil {
		return nil, err
	}
	auth, err := authorize.NewAuthorization(enforcer, authorize.WithSuperadminBypass(cfg.Authorization.SuperadminBypass))
	if err != nil {
		cleanup(context.Background())
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := authorize.SeedDefaultPolicies(ctx, auth); err != nil {
		cleanup(context.Background())
		return nil, err
	}

	if cfg.Authorization.EnableAudit {
		auth = authorize.NewAuditedAuthorization(auth, slog.Default())
	}
	closeOnStop(lc, "casbin watcher", func(ctx context.Context) error {
		cleanup(ctx)
		return nil
	})
	return auth, nil
}

func ProvideEmailClient(cfg *config.Config) (*email.Client, error) {
	return email.NewFromCentral(cfg.Email)
}

func ProvideSMSClient(cfg *config.Config) (*sms.Client, error) {
	return sms.NewFromConfig(cfg.SMS)
}

func ProvideS3Client(cfg *config.Config) (*s3pkg.Client, error) {
	return s3pkg.New(cfg.S3)
}

// ProvideNatsClient returns nil when no URL is configured; the realtime bus
// then delivers in-process only.
func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	if cfg.Nats.URL == "" {
		return nil, nil
	}
	nc, err := nats.Connect(cfg.Nats.URL, nats.Name("dentlab"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	closeOnStop(lc, "nats", func(context.Context) error { return nc.Drain() })
	return nc, nil
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.FromCentralConfig(cfg))
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}
	slog.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	closeOnStop(lc, "telemetry", provider.Shutdown)
	return provider, nil
}

func ProvidePasetoManager(cfg *config.Config) (*pasetotoken.Manager, error) {
	return pasetotoken.NewPasetoManager(cfg)
}

func ProvidePresence(rdb *redis.Client, cfg *config.Config) *realtime.Presence {
	return realtime.NewPresence(rdb, time.Duration(cfg.Realtime.PresenceTTLMinutes)*time.Minute)
}
