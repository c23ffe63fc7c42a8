package payment

import (
	"errors"
	"strings"
)

const (
	paypalLiveURL    = "https://api-m.paypal.com"
	paypalSandboxURL = "https://api-m.sandbox.paypal.com"
)

// PayPalConfig contains configuration for the PayPal REST API
type PayPalConfig struct {
	// ClientID is the REST application client ID
	ClientID string
	// Secret is the REST application secret
	Secret string
	// IsSandbox selects the sandbox environment
	IsSandbox bool
	// Currency is the ISO 4217 code orders are created in
	Currency string
	// BrandName is shown on the PayPal approval page
	BrandName string
	// BaseURL overrides the environment URL (tests)
	BaseURL string
}

// Errors for configuration validation
var (
	ErrPayPalMissingClientID = errors.New("paypal: missing client ID")
	ErrPayPalMissingSecret   = errors.New("paypal: missing secret")
	ErrPayPalInvalidCurrency = errors.New("paypal: currency must be a 3-letter ISO code")
)

// Validate validates the configuration
func (c *PayPalConfig) Validate() error {
	if c.ClientID == "" {
		return ErrPayPalMissingClientID
	}
	if c.Secret == "" {
		return ErrPayPalMissingSecret
	}
	if c.Currency == "" {
		c.Currency = "USD"
	}
	if len(c.Currency) != 3 {
		return ErrPayPalInvalidCurrency
	}
	c.Currency = strings.ToUpper(c.Currency)
	if c.BrandName == "" {
		c.BrandName = "GameStore"
	}
	return nil
}

// APIBaseURL returns the REST base URL for the configured environment
func (c *PayPalConfig) APIBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if c.IsSandbox {
		return paypalSandboxURL
	}
	return paypalLiveURL
}
