package email

import (
	"time"

	"github.com/Alijeyrad/dentlab_backend/config"
)

type Config struct {
	Enabled bool
	From    string

	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	SMTPUseTLS         bool
	SMTPTimeoutSeconds int

	// used in templates
	AppName  string
	LoginURL string
}

func DefaultConfig() Config {
	return Config{
		Enabled:            false,
		SMTPPort:           587,
		SMTPUseTLS:         true,
		SMTPTimeoutSeconds: 30,
		AppName:            "DentLab",
	}
}

func (c Config) SMTPTimeout() time.Duration {
	if c.SMTPTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.SMTPTimeoutSeconds) * time.Second
}

func FromCentralConfig(c config.EmailConfig) Config {
	out := DefaultConfig()
	out.Enabled = c.Enabled
	out.From = c.From
	out.SMTPHost = c.SMTP.Host
	if c.SMTP.Port > 0 {
		out.SMTPPort = c.SMTP.Port
	}
	out.SMTPUsername = c.SMTP.Username
	out.SMTPPassword = c.SMTP.Password
	out.SMTPUseTLS = c.SMTP.UseTLS
	out.SMTPTimeoutSeconds = c.SMTP.TimeoutSeconds
	out.LoginURL = c.LoginURL
	return out
}
