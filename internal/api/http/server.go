package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/dentlab_backend/config"
	"github.com/Alijeyrad/dentlab_backend/internal/api/http/handler"
	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/internal/api/http/router"
	"github.com/Alijeyrad/dentlab_backend/pkg/observability"
)

// Module provides the HTTP Server to the fx graph.
var Module = fx.Module("http", fx.Provide(NewServer))

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	Redis     *redis.Client
	Router    *router.Router
	Socket    *handler.SocketHandler
	OTel      *observability.Provider `optional:"true"`
}

func NewServer(p Params) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:     "dentlab",
		BodyLimit:   32 << 20,
		ReadTimeout: time.Duration(p.Cfg.Server.TimeoutSeconds) * time.Second,
	})

	if p.OTel != nil && p.Cfg.Observability.Tracing.Enabled {
		app.Use(observability.FiberMiddleware())
	}

	configureGlobalMiddleware(app, p.Cfg, p.Redis)

	p.Router.Register(app)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			addr := fmt.Sprintf(":%d", p.Cfg.Server.Port)
			go func() {
				if err := app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
					slog.Error("HTTP server error", "error", err)
				}
			}()
			slog.Info("HTTP server listening", "addr", addr, "base_path", p.Cfg.Server.BasePath)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// sockets first so their presence cleanup still has Redis
			if err := p.Socket.Shutdown(ctx); err != nil {
				slog.Warn("socket shutdown interrupted", "err", err)
			}
			return app.ShutdownWithContext(ctx)
		},
	})

	return app
}

func configureGlobalMiddleware(app *fiber.App, cfg *config.Config, rdb *redis.Client) {
	app.Use(middleware.RequestID())
	app.Use(recoverer.New())

	if cfg.Server.CORS.Enabled {
		app.Use(cors.New(corsConfig(cfg.Server.CORS)))
	}

	if cfg.Server.Environment == "production" {
		app.Use(helmet.New(helmetConfig(cfg.Server.Headers)))
		app.Use(middleware.NewLimiterWithRedis(rdb))
	}

	app.Use(logger.New(logger.Config{
		Format: "${ip} - [${time}] [req_id=${respHeader:X-Request-Id}] ${method} ${url} ${status} ${latency}\n",
	}))
}

func corsConfig(c config.CORSConfig) cors.Config {
	return cors.Config{
		AllowOrigins:     c.AllowOrigins,
		AllowMethods:     c.AllowMethods,
		AllowHeaders:     c.AllowHeaders,
		ExposeHeaders:    append(c.ExposeHeaders, middleware.HeaderRequestID, handler.HeaderDegraded, handler.HeaderDegraded+"-Effects"),
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAgeSeconds,
	}
}

func helmetConfig(h config.HeadersConfig) helmet.Config {
	return helmet.Config{
		XSSProtection:             h.XSSProtection,
		ContentTypeNosniff:        h.ContentTypeNosniff,
		XFrameOptions:             h.XFrameOptions,
		ReferrerPolicy:            h.ReferrerPolicy,
		CrossOriginEmbedderPolicy: h.CrossOriginEmbedderPolicy,
		CrossOriginOpenerPolicy:   h.CrossOriginOpenerPolicy,
		CrossOriginResourcePolicy: h.CrossOriginResourcePolicy,
		OriginAgentCluster:        h.OriginAgentCluster,
		XDNSPrefetchControl:       h.XDNSPrefetchControl,
		XDownloadOptions:          h.XDownloadOptions,
		XPermittedCrossDomain:     h.XPermittedCrossDomain,
	}
}
