// Package config loads the service configuration.
//
// Priority (highest to lowest):
//  1. Environment variables with ETIMS_ prefix (e.g. ETIMS_FISCAL_MODE, ETIMS_LOCAL_SEED)
//  2. The config file passed to Load (yaml, toml or json by extension), or ./etims.* when none is given
//  3. Built-in defaults
package config

import (
	"strings"
	"time"

	"github.com/alapierre/go-etims-receipts/etims"
	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

type Config struct {
	App    AppConfig
	Log    LogConfig
	Source SourceConfig
	Fiscal FiscalConfig
	Local  LocalConfig
	QR     QRConfig
	Trader TraderConfig
	PDF    PDFConfig
}

type AppConfig struct {
	Port int `validate:"min=1,max=65535"`
	Env  string
}

type LogConfig struct {
	Level  string `validate:"oneof=trace debug info warn warning error"`
	Format string `validate:"oneof=text json"`
}

type SourceConfig struct {
	Path string `validate:"required"`
}

// FiscalConfig selects and configures the fiscalisation variant. One variant serves a whole run.
type FiscalConfig struct {
	Mode        string `validate:"oneof=local remote"`
	Environment etims.Environment
	// Endpoint overrides the environment's invoice endpoint.
	Endpoint      string        `validate:"omitempty,url"`
	AuthToken     string
	Timeout       time.Duration `validate:"gt=0"`
	RateLimit     float64       `validate:"gte=0"` // requests per second, 0 disables limiting
	RateBurst     int           `validate:"gte=0"`
	SuccessCodes  []string      `validate:"min=1,dive,required"`
	InvoicePrefix string
	Currency      string `validate:"required,len=3"`
	ItemCodesFile string
}

// InvoicesEndpoint returns Endpoint when set, the environment default otherwise.
func (c FiscalConfig) InvoicesEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return c.Environment.InvoicesEndpoint()
}

type LocalConfig struct {
	Seed               int64  `validate:"gte=0"`
	TraderPIN          string `validate:"required"`
	SCUID              string `validate:"required"`
	SigningKeyFile     string
	SigningKeyPassword string
}

type QRConfig struct {
	Size  int    `validate:"gte=64,lte=2048"`
	Level string `validate:"oneof=low medium high highest"`
}

type TraderConfig struct {
	Name string `validate:"required"`
}

type PDFConfig struct {
	// RemoteURL points at a running Chrome DevTools endpoint; empty starts a local browser.
	RemoteURL string        `validate:"omitempty,url"`
	Timeout   time.Duration `validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", 3000)
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("source.path", "data.xml")
	v.SetDefault("fiscal.mode", ModeLocal)
	v.SetDefault("fiscal.environment", "sandbox")
	v.SetDefault("fiscal.endpoint", "")
	v.SetDefault("fiscal.auth_token", "")
	v.SetDefault("fiscal.timeout", "30s")
	v.SetDefault("fiscal.rate_limit", 0)
	v.SetDefault("fiscal.rate_burst", 1)
	v.SetDefault("fiscal.success_codes", "SUCCESS,SUCCES")
	v.SetDefault("fiscal.invoice_prefix", "VIVO-")
	v.SetDefault("fiscal.currency", "KES")
	v.SetDefault("fiscal.item_codes_file", "")
	v.SetDefault("local.seed", 10000)
	v.SetDefault("local.trader_pin", "P000000000Z")
	v.SetDefault("local.scu_id", "KRACU0300003629")
	v.SetDefault("local.signing_key_file", "")
	v.SetDefault("local.signing_key_password", "")
	v.SetDefault("qr.size", 256)
	v.SetDefault("qr.level", "medium")
	v.SetDefault("trader.name", "Vivo Energy")
	v.SetDefault("pdf.remote_url", "")
	v.SetDefault("pdf.timeout", "30s")
}

// Load reads the configuration. path may be empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	} else {
		v.SetConfigName("etims")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config file")
			}
		}
	}

	v.SetEnvPrefix("ETIMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Port: v.GetInt("app.port"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Source: SourceConfig{
			Path: v.GetString("source.path"),
		},
		Fiscal: FiscalConfig{
			Mode:          strings.ToLower(v.GetString("fiscal.mode")),
			Endpoint:      v.GetString("fiscal.endpoint"),
			AuthToken:     v.GetString("fiscal.auth_token"),
			Timeout:       v.GetDuration("fiscal.timeout"),
			RateLimit:     v.GetFloat64("fiscal.rate_limit"),
			RateBurst:     v.GetInt("fiscal.rate_burst"),
			SuccessCodes:  splitList(v.GetStringSlice("fiscal.success_codes")),
			InvoicePrefix: v.GetString("fiscal.invoice_prefix"),
			Currency:      v.GetString("fiscal.currency"),
			ItemCodesFile: v.GetString("fiscal.item_codes_file"),
		},
		Local: LocalConfig{
			Seed:               v.GetInt64("local.seed"),
			TraderPIN:          v.GetString("local.trader_pin"),
			SCUID:              v.GetString("local.scu_id"),
			SigningKeyFile:     v.GetString("local.signing_key_file"),
			SigningKeyPassword: v.GetString("local.signing_key_password"),
		},
		QR: QRConfig{
			Size:  v.GetInt("qr.size"),
			Level: strings.ToLower(v.GetString("qr.level")),
		},
		Trader: TraderConfig{
			Name: v.GetString("trader.name"),
		},
		PDF: PDFConfig{
			RemoteURL: v.GetString("pdf.remote_url"),
			Timeout:   v.GetDuration("pdf.timeout"),
		},
	}

	if err := cfg.Fiscal.Environment.UnmarshalText([]byte(v.GetString("fiscal.environment"))); err != nil {
		return nil, errors.Wrap(err, "fiscal.environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fe.Namespace()+" failed "+fe.Tag())
			}
			return errors.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return errors.Wrap(err, "invalid configuration")
	}
	if c.Fiscal.Mode == ModeRemote && c.Fiscal.AuthToken == "" {
		logger.Warn("Remote fiscalisation configured without fiscal.auth_token")
	}
	return nil
}

// splitList accepts both real lists and comma separated strings (env variables).
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
