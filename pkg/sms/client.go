// Package sms sends templated text messages through sms.ir.
package sms

import (
	"context"
	"fmt"
	"strings"

	"github.com/arsmn/go-smsir/smsir"

	"github.com/Alijeyrad/dentlab_backend/config"
)

type Client struct {
	client     *smsir.Client
	enabled    bool
	assignedID string
	otpID      string
}

// NewFromConfig returns a client that no-ops when SMS is disabled.
func NewFromConfig(cfg config.SMSConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{enabled: false}, nil
	}
	if cfg.SMSIR.APIKey == "" {
		return nil, fmt.Errorf("sms.ir API key required when SMS enabled")
	}
	return &Client{
		client:     smsir.NewClient().WithAuthentication(cfg.SMSIR.APIKey, cfg.SMSIR.SecretKey),
		enabled:    true,
		assignedID: cfg.SMSIR.AssignedTemplateID,
		otpID:      cfg.SMSIR.TemplateID,
	}, nil
}

func (c *Client) IsEnabled() bool { return c.enabled }

// SendCaseAssigned tells a technician a case is waiting. The template takes
// a "case" parameter.
func (c *Client) SendCaseAssigned(ctx context.Context, phone, caseRef string) error {
	return c.send(ctx, phone, c.assignedID, smsir.UltraFastParameter{Key: "case", Value: caseRef})
}

// SendOTP is the SMS fallback for reset codes; the template takes "code".
func (c *Client) SendOTP(ctx context.Context, phone, code string) error {
	return c.send(ctx, phone, c.otpID, smsir.UltraFastParameter{Key: "code", Value: code})
}

func (c *Client) send(ctx context.Context, phone, templateID string, params ...smsir.UltraFastParameter) error {
	if !c.enabled {
		return nil
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("phone number is required")
	}
	if templateID == "" {
		return fmt.Errorf("template ID is required")
	}
	for _, p := range params {
		if p.Value == "" {
			return fmt.Errorf("template parameter %q is empty", p.Key)
		}
	}

	_, err := c.client.Verification.UltraFastSend(ctx, &smsir.UltraFastSendRequest{
		Mobile:     phone,
		TemplateID: templateID,
		Parameters: params,
	})
	if err != nil {
		return fmt.Errorf("sms.ir send failed: %w", err)
	}
	return nil
}
