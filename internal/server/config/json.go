package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gmapauth/internal/flagx"
	"github.com/dmitrijs2005/gmapauth/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations accept
// both "15m"-style strings and integer nanoseconds. Only the keys present in
// the file override the current values.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	RequestTimeout               timex.Duration `json:"request_timeout"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`

	FrontendBaseURL    string   `json:"frontend_base_url"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins"`

	MailTransport      string `json:"mail_transport"`
	MailFrom           string `json:"mail_from"`
	SMTPHost           string `json:"smtp_host"`
	SMTPPort           int    `json:"smtp_port"`
	SMTPUsername       string `json:"smtp_username"`
	SMTPPassword       string `json:"smtp_password"`
	SMTPUseSSL         *bool  `json:"smtp_use_ssl"`
	SESRegion          string `json:"ses_region"`
	SESAccessKeyID     string `json:"ses_access_key_id"`
	SESSecretAccessKey string `json:"ses_secret_access_key"`

	VerificationTokenTTL timex.Duration  `json:"verification_token_ttl"`
	ResetOTPTTL          timex.Duration  `json:"reset_otp_ttl"`
	ResetTokenTTL        timex.Duration  `json:"reset_token_ttl"`
	ResetOTPMaxAttempts  int             `json:"reset_otp_max_attempts"`
	JanitorInterval      *timex.Duration `json:"janitor_interval"`

	LogFormat string `json:"log_format"`
	LogLevel  string `json:"log_level"`
}

// parseJson loads the file named by -c/-config into config. Without the flag
// nothing happens; an unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.RequestTimeout, c.RequestTimeout)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)

	setString(&config.FrontendBaseURL, c.FrontendBaseURL)
	if c.CORSAllowedOrigins != nil {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}

	setString(&config.MailTransport, c.MailTransport)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != 0 {
		config.SMTPPort = c.SMTPPort
	}
	setString(&config.SMTPUsername, c.SMTPUsername)
	setString(&config.SMTPPassword, c.SMTPPassword)
	if c.SMTPUseSSL != nil {
		config.SMTPUseSSL = *c.SMTPUseSSL
	}
	setString(&config.SESRegion, c.SESRegion)
	setString(&config.SESAccessKeyID, c.SESAccessKeyID)
	setString(&config.SESSecretAccessKey, c.SESSecretAccessKey)

	setDuration(&config.VerificationTokenTTL, c.VerificationTokenTTL)
	setDuration(&config.ResetOTPTTL, c.ResetOTPTTL)
	setDuration(&config.ResetTokenTTL, c.ResetTokenTTL)
	if c.ResetOTPMaxAttempts != 0 {
		config.ResetOTPMaxAttempts = c.ResetOTPMaxAttempts
	}
	// janitor_interval may be 0 on purpose
	if c.JanitorInterval != nil {
		config.JanitorInterval = c.JanitorInterval.Duration
	}

	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.IsSet() {
		*dst = v.Duration
	}
}
