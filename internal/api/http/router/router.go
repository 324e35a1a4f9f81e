package router

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/dentlab_backend/config"
	"github.com/Alijeyrad/dentlab_backend/internal/api/http/handler"
	"github.com/Alijeyrad/dentlab_backend/internal/api/http/middleware"
	"github.com/Alijeyrad/dentlab_backend/internal/realtime"
	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/internal/service/admin"
	"github.com/Alijeyrad/dentlab_backend/internal/service/auth"
	"github.com/Alijeyrad/dentlab_backend/internal/service/cases"
	"github.com/Alijeyrad/dentlab_backend/internal/service/clinic"
	"github.com/Alijeyrad/dentlab_backend/internal/service/conversation"
	"github.com/Alijeyrad/dentlab_backend/internal/service/file"
	"github.com/Alijeyrad/dentlab_backend/internal/service/notification"
	"github.com/Alijeyrad/dentlab_backend/internal/service/product"
	"github.com/Alijeyrad/dentlab_backend/internal/service/search"
	"github.com/Alijeyrad/dentlab_backend/internal/service/settings"
	"github.com/Alijeyrad/dentlab_backend/internal/service/user"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
	"github.com/Alijeyrad/dentlab_backend/pkg/constants"
	pasetotoken "github.com/Alijeyrad/dentlab_backend/pkg/paseto"
)

// Module provides the Router and the socket endpoint to the fx graph.
var Module = fx.Module("router",
	fx.Provide(NewRouter),
	fx.Provide(NewSocketHandler),
)

type Params struct {
	fx.In

	Cfg             *config.Config
	Redis           *redis.Client
	Auth            authorize.IAuthorization
	DB              *repo.Client
	PasetoMgr       *pasetotoken.Manager
	AuthSvc         auth.Service
	UserSvc         user.Service
	AdminSvc        admin.Service
	CaseSvc         cases.Service
	ClinicSvc       clinic.Service `name:"clinics"`
	LabSvc          clinic.Service `name:"labs"`
	ProductSvc      product.Service
	NotificationSvc notification.Service
	ConversationSvc conversation.Service
	SettingsSvc     settings.Service
	SearchSvc       *search.Service
	FileSvc         file.Service
	Socket          *handler.SocketHandler
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

// NewSocketHandler builds the /ws endpoint; the server closes it on stop.
func NewSocketHandler(cfg *config.Config, bus *realtime.Bus, presence *realtime.Presence, convs conversation.Service) *handler.SocketHandler {
	return handler.NewSocketHandler(bus, presence, convs, realtime.OptionsFromConfig(cfg.Realtime))
}

// guards bundles the middleware every route file picks from.
type guards struct {
	auth     fiber.Handler
	optional fiber.Handler
	limiter  fiber.Handler
	perm     func(authorize.Resource, authorize.Action) fiber.Handler
	roles    func(string, ...constants.Role) fiber.Handler
}

func (r *Router) Register(app *fiber.App) {
	// 1. Health & Metrics
	r.registerSystemRoutes(app)

	// 2. Middlewares
	g := guards{
		auth:     middleware.AuthRequired(r.p.PasetoMgr, r.p.AuthSvc, r.p.UserSvc),
		optional: middleware.OptionalAuth(r.p.PasetoMgr, r.p.AuthSvc, r.p.UserSvc),
		limiter:  middleware.CredentialLimiter(middleware.RedisStorage(r.p.Redis)),
		perm: func(res authorize.Resource, act authorize.Action) fiber.Handler {
			return middleware.RequirePermission(r.p.Auth, res, act)
		},
		roles: middleware.RequireRoles,
	}

	// 3. Handlers
	files := r.p.FileSvc
	authH := handler.NewAuthHandler(r.p.AuthSvc, r.p.Cfg.Authentication.Cookie, r.p.PasetoMgr.RefreshTTL())
	userH := handler.NewUserHandler(r.p.UserSvc, files)
	adminH := handler.NewAdminHandler(r.p.AdminSvc, files)
	caseH := handler.NewCaseHandler(r.p.CaseSvc, files)
	clinicH := handler.NewOrgHandler(r.p.ClinicSvc)
	labH := handler.NewOrgHandler(r.p.LabSvc)
	productH := handler.NewProductHandler(r.p.ProductSvc, files)
	notificationH := handler.NewNotificationHandler(r.p.NotificationSvc)
	messageH := handler.NewMessageHandler(r.p.ConversationSvc, files)
	searchH := handler.NewSearchHandler(r.p.SearchSvc)
	settingsH := handler.NewSettingsHandler(r.p.SettingsSvc, files)
	fileH := handler.NewFileHandler(files)

	base := r.p.Cfg.Server.BasePath
	if base == "" {
		base = "/api/v1"
	}
	api := app.Group(base)

	// 4. Delegate to sub-files
	r.registerAuthRoutes(api, authH, adminH, g)
	r.registerUserRoutes(api, userH, authH, g)
	r.registerAdminRoutes(api, adminH, g)
	r.registerCaseRoutes(api, caseH, g)
	r.registerClinicRoutes(api, clinicH, g)
	r.registerLabRoutes(api, labH, g)
	r.registerProductRoutes(api, productH, g)
	r.registerNotificationRoutes(api, notificationH, g)
	r.registerMessageRoutes(api, messageH, g)
	r.registerSearchRoutes(api, searchH, g)
	r.registerSettingsRoutes(api, settingsH, g)
	r.registerFileRoutes(api, fileH, g)

	app.Get("/ws", r.p.Socket.Handshake, g.optional, r.p.Socket.Upgrade)
}

// ready probes every dependency a request may touch.
func (r *Router) ready(c fiber.Ctx) bool {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()
	if err := r.p.DB.Ping(ctx); err != nil {
		return false
	}
	if err := r.p.Redis.Ping(ctx).Err(); err != nil {
		return false
	}
	return !r.p.Cfg.Authorization.HealthCheckEnabled || authorize.IsPolicyHealthy()
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get("/healthz/live", healthcheck.New())
	app.Get("/healthz/ready", healthcheck.New(healthcheck.Config{Probe: r.ready}))
	app.Get("/healthz/startup", healthcheck.New())

	if r.p.Cfg.Observability.Enabled && r.p.Cfg.Observability.Metrics.Enabled {
		path := r.p.Cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
