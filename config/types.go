package config

import (
	"time"

	"github.com/gaborage/mercadopago-go/observability"
)

// Config represents the configuration of a Mercado Pago client.
// It groups the HTTP client settings, logging preferences, telemetry export
// and the webhook notification secret.
type Config struct {
	Client        ClientConfig         `koanf:"client" json:"client" yaml:"client" mapstructure:"client"`
	Log           LogConfig            `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
	Observability observability.Config `koanf:"observability" json:"observability" yaml:"observability" mapstructure:"observability"`
	Notification  NotificationConfig   `koanf:"notification" json:"notification" yaml:"notification" mapstructure:"notification"`
}

// ClientConfig holds the REST client settings.
type ClientConfig struct {
	// AccessToken is the Mercado Pago bearer credential. Required.
	AccessToken string `koanf:"accesstoken" json:"-" yaml:"accesstoken" mapstructure:"accesstoken"`
	// BaseURL is the API root. Default: https://api.mercadopago.com.
	BaseURL string `koanf:"baseurl" json:"baseurl" yaml:"baseurl" mapstructure:"baseurl"`
	// Timeout bounds one HTTP attempt end to end. Default: 30s.
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	// ConnectTimeout bounds TCP dialing. Default: 10s.
	ConnectTimeout time.Duration `koanf:"connecttimeout" json:"connecttimeout" yaml:"connecttimeout" mapstructure:"connecttimeout"`
	// MaxRetries is the number of extra sends allowed after a 429. Default: 3.
	MaxRetries int `koanf:"maxretries" json:"maxretries" yaml:"maxretries" mapstructure:"maxretries"`

	Rate    RateConfig    `koanf:"rate" json:"rate" yaml:"rate" mapstructure:"rate"`
	Payload PayloadConfig `koanf:"payload" json:"payload" yaml:"payload" mapstructure:"payload"`
}

// RateConfig holds the optional client-side rate limit. A zero Limit disables it.
type RateConfig struct {
	Limit float64 `koanf:"limit" json:"limit" yaml:"limit" mapstructure:"limit"` // requests per second
	Burst int     `koanf:"burst" json:"burst" yaml:"burst" mapstructure:"burst"`
}

// PayloadConfig controls request/response body logging.
type PayloadConfig struct {
	Log      bool `koanf:"log" json:"log" yaml:"log" mapstructure:"log"`
	MaxBytes int  `koanf:"maxbytes" json:"maxbytes" yaml:"maxbytes" mapstructure:"maxbytes"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" mapstructure:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty" mapstructure:"pretty"`
}

// NotificationConfig holds webhook settings.
type NotificationConfig struct {
	// Secret is the signing secret from the Mercado Pago dashboard.
	// Empty disables x-signature verification.
	Secret string `koanf:"secret" json:"-" yaml:"secret" mapstructure:"secret"`
}
