package email

import (
	"context"
	"crypto/tls"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/Alijeyrad/dentlab_backend/config"
)

// Message is one outgoing mail. At least one of TextBody and HTMLBody must
// be set; with both, HTML is sent as the alternative part.
type Message struct {
	To       []string
	CC       []string
	BCC      []string
	Subject  string
	TextBody string
	HTMLBody string
	Headers  map[string]string
}

// Client sends mail over SMTP through gomail.
type Client struct {
	cfg    Config
	dialer *gomail.Dialer
}

func NewFromCentral(cfg config.EmailConfig) (*Client, error) {
	return New(FromCentralConfig(cfg))
}

func New(cfg Config) (*Client, error) {
	if cfg.Enabled && strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, malformed("smtp host missing while email is enabled")
	}
	if cfg.AppName == "" {
		cfg.AppName = "DentLab"
	}
	return &Client{cfg: cfg, dialer: dialer(cfg)}, nil
}

func dialer(cfg Config) *gomail.Dialer {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	if !cfg.SMTPUseTLS {
		return d
	}
	// 465 speaks TLS from the first byte, anything else upgrades via STARTTLS
	d.SSL = cfg.SMTPPort == 465
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost, MinVersion: tls.VersionTLS12}
	return d
}

func (c *Client) Enabled() bool { return c.cfg.Enabled }

// Send blocks until the SMTP exchange finishes, ctx is done or the
// configured SMTP timeout passes, whichever is first.
func (c *Client) Send(ctx context.Context, m Message) error {
	if !c.cfg.Enabled {
		return ErrDisabled
	}
	msg, err := buildMessage(c.cfg.From, m)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.SMTPTimeout())
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- c.dialer.DialAndSend(msg) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-result:
		if err != nil {
			return &DeliveryError{Host: c.cfg.SMTPHost, Err: err}
		}
		return nil
	}
}

func buildMessage(from string, m Message) (*gomail.Message, error) {
	from, subject := strings.TrimSpace(from), strings.TrimSpace(m.Subject)
	switch {
	case from == "":
		return nil, malformed("no sender")
	case subject == "":
		return nil, malformed("no subject")
	case blank(m.TextBody) && blank(m.HTMLBody):
		return nil, malformed("no body")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("Subject", subject)
	for header, addrs := range map[string][]string{"To": m.To, "Cc": m.CC, "Bcc": m.BCC} {
		if list := addresses(addrs); len(list) > 0 {
			msg.SetHeader(header, list...)
		}
	}
	for k, v := range m.Headers {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			msg.SetHeader(k, v)
		}
	}

	if blank(m.TextBody) {
		msg.SetBody("text/html", m.HTMLBody)
		return msg, nil
	}
	msg.SetBody("text/plain", m.TextBody)
	if !blank(m.HTMLBody) {
		msg.AddAlternative("text/html", m.HTMLBody)
	}
	return msg, nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func addresses(in []string) []string {
	var out []string
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
