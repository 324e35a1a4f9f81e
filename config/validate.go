package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ApplyDefaults fills zero values that the service cannot run without.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.TimeoutSeconds == 0 {
		c.Server.TimeoutSeconds = 30
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/api/v1"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "development"
	}

	a := &c.Authentication
	if a.OTPTTLMinutes == 0 {
		a.OTPTTLMinutes = 10
	}
	if a.OTPMaxAttempts == 0 {
		a.OTPMaxAttempts = 5
	}
	if a.OTPLockoutMinutes == 0 {
		a.OTPLockoutMinutes = 15
	}
	if a.ResetTokenTTLMinutes == 0 {
		a.ResetTokenTTLMinutes = 15
	}
	if a.DefaultPasswordLength == 0 {
		a.DefaultPasswordLength = 12
	}
	if a.Paseto.AccessTTLMinutes == 0 {
		a.Paseto.AccessTTLMinutes = 15
	}
	if a.Paseto.RefreshTTLDays == 0 {
		a.Paseto.RefreshTTLDays = 7
	}

	cs := &c.Cases
	if cs.SweepSchedule == "" {
		cs.SweepSchedule = "0 2 * * *"
	}
	if cs.SweepTimezone == "" {
		cs.SweepTimezone = "Asia/Dhaka"
	}
	if cs.CompletedArchiveDays == 0 {
		cs.CompletedArchiveDays = 10
	}
	if cs.ApprovedArchiveDays == 0 {
		cs.ApprovedArchiveDays = 14
	}

	if c.Realtime.SendBuffer == 0 {
		c.Realtime.SendBuffer = 64
	}
	if c.Realtime.PingIntervalSeconds == 0 {
		c.Realtime.PingIntervalSeconds = 30
	}
	if c.Realtime.PresenceTTLMinutes == 0 {
		c.Realtime.PresenceTTLMinutes = 60
	}
	if c.Phone.DefaultRegion == "" {
		c.Phone.DefaultRegion = "BD"
	}
	if c.S3.MaxUploadMB == 0 {
		c.S3.MaxUploadMB = 20
	}
	if c.Authorization.CasbinModelPath == "" {
		c.Authorization.CasbinModelPath = "casbin_model.conf"
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = "dentlab_backend"
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		errs = append(errs, fmt.Errorf("server.base_path must start with '/': %q", c.Server.BasePath))
	}

	switch c.Authentication.Paseto.Mode {
	case "", "local", "public":
	default:
		errs = append(errs, fmt.Errorf("authentication.paseto.mode must be local or public, got %q", c.Authentication.Paseto.Mode))
	}

	if _, err := time.LoadLocation(c.Cases.SweepTimezone); err != nil {
		errs = append(errs, fmt.Errorf("cases.sweep_timezone: %w", err))
	}
	if _, err := cron.ParseStandard(c.Cases.SweepSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cases.sweep_schedule: %w", err))
	}
	if c.Cases.CompletedArchiveDays < 0 || c.Cases.ApprovedArchiveDays < 0 {
		errs = append(errs, errors.New("cases archive thresholds must not be negative"))
	}

	if c.Email.Enabled && c.Email.SMTP.Host == "" {
		errs = append(errs, errors.New("email.smtp.host is required when email is enabled"))
	}
	if c.SMS.Enabled && c.SMS.SMSIR.APIKey == "" {
		errs = append(errs, errors.New("sms.smsir.api_key is required when sms is enabled"))
	}

	return errors.Join(errs...)
}
