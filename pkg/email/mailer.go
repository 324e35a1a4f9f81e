package email

import "context"

// SendResetOTP, SendCredentials and SendCaseRejected are the messages the
// services send. They return ErrDisabled when email is off.

func (c *Client) SendResetOTP(ctx context.Context, to, name, code string, ttlMinutes int) error {
	m, err := BuildResetOTPEmail(c.cfg.AppName, to, name, code, ttlMinutes)
	if err != nil {
		return err
	}
	return c.Send(ctx, m)
}

func (c *Client) SendCredentials(ctx context.Context, to, name, password string) error {
	m, err := BuildCredentialsEmail(c.cfg.AppName, to, name, password, c.cfg.LoginURL)
	if err != nil {
		return err
	}
	return c.Send(ctx, m)
}

func (c *Client) SendCaseRejected(ctx context.Context, to, name, caseRef, reason string) error {
	m, err := BuildCaseRejectedEmail(c.cfg.AppName, to, name, caseRef, reason)
	if err != nil {
		return err
	}
	return c.Send(ctx, m)
}
