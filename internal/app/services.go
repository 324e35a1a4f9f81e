package app

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/dentlab_backend/config"
	"github.com/Alijeyrad/dentlab_backend/internal/realtime"
	"github.com/Alijeyrad/dentlab_backend/internal/repo"
	"github.com/Alijeyrad/dentlab_backend/internal/service/admin"
	"github.com/Alijeyrad/dentlab_backend/internal/service/auth"
	"github.com/Alijeyrad/dentlab_backend/internal/service/cases"
	"github.com/Alijeyrad/dentlab_backend/internal/service/clinic"
	"github.com/Alijeyrad/dentlab_backend/internal/service/conversation"
	svcfile "github.com/Alijeyrad/dentlab_backend/internal/service/file"
	"github.com/Alijeyrad/dentlab_backend/internal/service/notification"
	"github.com/Alijeyrad/dentlab_backend/internal/service/product"
	"github.com/Alijeyrad/dentlab_backend/internal/service/search"
	"github.com/Alijeyrad/dentlab_backend/internal/service/settings"
	"github.com/Alijeyrad/dentlab_backend/internal/service/user"
	"github.com/Alijeyrad/dentlab_backend/pkg/authorize"
	"github.com/Alijeyrad/dentlab_backend/pkg/email"
	pasetotoken "github.com/Alijeyrad/dentlab_backend/pkg/paseto"
	s3pkg "github.com/Alijeyrad/dentlab_backend/pkg/s3"
	"github.com/Alijeyrad/dentlab_backend/pkg/sms"
	"github.com/Alijeyrad/dentlab_backend/pkg/util/otp"
	"github.com/Alijeyrad/dentlab_backend/pkg/util/password"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideHasher,
		ProvideSweeper,
		ProvideAuthService,
		fx.Annotate(ProvideUserService, fx.As(new(user.Service))),
		ProvideAdminService,
		ProvideCaseService,
		fx.Annotate(ProvideClinicService, fx.ResultTags(`name:"clinics"`)),
		fx.Annotate(ProvideLabService, fx.ResultTags(`name:"labs"`)),
		ProvideProductService,
		ProvideNotificationService,
		ProvideConversationService,
		ProvideSettingsService,
		ProvideSearchService,
		ProvideFileService,
	),
)

// location resolves the configured business timezone, falling back to UTC.
func location(cfg *config.Config) *time.Location {
	loc, err := time.LoadLocation(cfg.Cases.SweepTimezone)
	if err != nil {
		slog.Warn("unknown timezone, using UTC", "timezone", cfg.Cases.SweepTimezone, "err", err)
		return time.UTC
	}
	return loc
}

func ProvideHasher(cfg *config.Config) *password.Hasher {
	return password.NewHasher(password.FromCentralConfig(cfg.Password))
}

func ProvideSweeper(db *repo.Client, cfg *config.Config) *cases.Sweeper {
	return cases.NewSweeper(db.Case, cases.Rules(cfg.Cases))
}

func ProvideAuthService(
	db *repo.Client,
	rdb *redis.Client,
	mailer *email.Client,
	tokens *pasetotoken.Manager,
	hasher *password.Hasher,
	authz authorize.IAuthorization,
	cfg *config.Config,
) (auth.Service, error) {
	codes, err := otp.NewStore(rdb, otp.FromCentralConfig(cfg.OTP, cfg.Authentication))
	if err != nil {
		return nil, err
	}
	return auth.New(db.Admin, db.User, auth.NewRedisSessions(rdb), codes, mailer, tokens, hasher, authz), nil
}

func ProvideUserService(db *repo.Client, mailer *email.Client, hasher *password.Hasher, authz authorize.IAuthorization, cfg *config.Config) *user.UserService {
	return user.New(db.User, db.Clinic, db.Lab, mailer, hasher, authz, user.Options{
		PhoneRegion: cfg.Phone.DefaultRegion,
		Location:    location(cfg),
	})
}

func ProvideAdminService(db *repo.Client, authz authorize.IAuthorization, cfg *config.Config) admin.Service {
	return admin.New(db.Admin, authz, cfg.Phone.DefaultRegion)
}

// ProvideCaseService wires the side effects of case transitions. The SMS
// texter is attached only when technician texts are switched on.
func ProvideCaseService(
	db *repo.Client,
	sweeper *cases.Sweeper,
	notifications notification.Service,
	bus *realtime.Bus,
	mailer *email.Client,
	texter *sms.Client,
	cfg *config.Config,
) cases.Service {
	effects := cases.Effects{
		Notifier: notifications,
		Realtime: bus,
		Mailer:   mailer,
	}
	if cfg.Cases.NotifyTechnicianBySMS && texter.IsEnabled() {
		effects.Texter = texter
	}
	return cases.New(db.Case, db.User, sweeper, effects, cfg.Cases)
}

func ProvideClinicService(db *repo.Client, cfg *config.Config) clinic.Service {
	return clinic.NewClinics(db.Clinic, cfg.Phone.DefaultRegion)
}

func ProvideLabService(db *repo.Client, cfg *config.Config) clinic.Service {
	return clinic.NewLabs(db.Lab, cfg.Phone.DefaultRegion)
}

func ProvideProductService(db *repo.Client) product.Service {
	return product.New(db.Product)
}

func ProvideNotificationService(db *repo.Client, bus *realtime.Bus) notification.Service {
	return notification.New(db.Notification, bus)
}

func ProvideConversationService(db *repo.Client, bus *realtime.Bus) conversation.Service {
	return conversation.New(db.Conversation, conversation.NewDirectory(db.User, db.Admin), bus)
}

func ProvideSettingsService(db *repo.Client) settings.Service {
	return settings.New(db.Setting)
}

func ProvideSearchService(db *repo.Client, caseSvc cases.Service) *search.Service {
	return search.New(db.User, db.Product, caseSvc, db.Clinic, db.Lab)
}

func ProvideFileService(s3 *s3pkg.Client) svcfile.Service {
	return svcfile.New(s3)
}
