package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8000", c.HTTPAddr)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, 30*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, "https://localhost:8080", c.FrontendBaseURL)
	assert.Contains(t, c.CORSAllowedOrigins, "http://localhost:5173")
	assert.Equal(t, MailTransportLog, c.MailTransport)
	assert.Equal(t, 24*time.Hour, c.VerificationTokenTTL)
	assert.Equal(t, 10*time.Minute, c.ResetOTPTTL)
	assert.Equal(t, 15*time.Minute, c.ResetTokenTTL)
	assert.Equal(t, 5, c.ResetOTPMaxAttempts)
	require.NoError(t, c.Validate())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}
	t.Chdir(t.TempDir())

	c := LoadConfig()
	require.NotNil(t, c, "LoadConfig must not return nil")

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, *c)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	t.Chdir(t.TempDir())

	path := writeTempJSON(t, "", "", map[string]any{
		"http_addr":         ":7000",
		"secret_key":        "from-json",
		"frontend_base_url": "https://json.example",
	})
	t.Setenv("AUTH_SECRET_KEY", "from-env")
	t.Setenv("AUTH_FRONTEND_BASE_URL", "https://env.example")

	os.Args = []string{"testbin", "-c", path, "-f", "https://flag.example"}

	c := LoadConfig()
	assert.Equal(t, ":7000", c.HTTPAddr)
	assert.Equal(t, "from-env", c.SecretKey)
	assert.Equal(t, "https://flag.example", c.FrontendBaseURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "empty secret", mutate: func(c *Config) { c.SecretKey = "" }, wantErr: "secret key is empty"},
		{name: "relative frontend url", mutate: func(c *Config) { c.FrontendBaseURL = "/verify" }, wantErr: "not absolute"},
		{name: "unknown transport", mutate: func(c *Config) { c.MailTransport = "pigeon" }, wantErr: "unknown mail transport"},
		{name: "smtp without host", mutate: func(c *Config) { c.MailTransport = MailTransportSMTP; c.SMTPHost = "" }, wantErr: "smtp transport needs host and port"},
		{name: "ses without region", mutate: func(c *Config) { c.MailTransport = MailTransportSES; c.SESRegion = "" }, wantErr: "ses transport needs a region"},
		{name: "ses half a key pair", mutate: func(c *Config) { c.MailTransport = MailTransportSES; c.SESAccessKeyID = "AKIA" }, wantErr: "ses access key id and secret must be set together"},
		{name: "zero attempts", mutate: func(c *Config) { c.ResetOTPMaxAttempts = 0 }, wantErr: "at least 1"},
		{name: "negative janitor", mutate: func(c *Config) { c.JanitorInterval = -time.Second }, wantErr: "janitor interval"},
		{name: "janitor disabled", mutate: func(c *Config) { c.JanitorInterval = 0 }},
		{name: "zero ttl", mutate: func(c *Config) { c.ResetTokenTTL = 0 }, wantErr: "lifetimes must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)

			err := c.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), err.Error())
		})
	}
}
