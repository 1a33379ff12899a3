package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/burst/internal/config"
)

func seconds(n int) *time.Duration {
	d := time.Duration(n) * time.Second
	return &d
}

func validConfig() config.Config {
	return config.Config{
		Host:    "http://localhost:8080",
		Method:  config.MethodGet,
		Load:    100,
		Workers: 10,
		Timeout: 20 * time.Second,
		Log:     config.LogConfig{Level: "warn", Format: "console"},
		Tracing: config.TracingConfig{Protocol: "grpc", SampleRate: 1},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "unsupported method",
			mutate: func(c *config.Config) { c.Method = "DELETE" },
			want:   `method "delete" is not supported`,
		},
		{
			name:   "missing host",
			mutate: func(c *config.Config) { c.Host = "" },
			want:   "host is required",
		},
		{
			name:   "non http host",
			mutate: func(c *config.Config) { c.Host = "ftp://example.com" },
			want:   "host must be an http or https URL",
		},
		{
			name:   "interval without duration",
			mutate: func(c *config.Config) { c.Interval = seconds(1) },
			want:   "interval requires duration",
		},
		{
			name:   "exact without duration",
			mutate: func(c *config.Config) { c.Exact = true },
			want:   "exact requires duration",
		},
		{
			name:   "zero workers",
			mutate: func(c *config.Config) { c.Workers = 0 },
			want:   "workers must be >= 1",
		},
		{
			name:   "negative load",
			mutate: func(c *config.Config) { c.Load = -1 },
			want:   "load must be >= 0",
		},
		{
			name:   "zero timeout",
			mutate: func(c *config.Config) { c.Timeout = 0 },
			want:   "timeout must be > 0",
		},
		{
			name: "negative duration",
			mutate: func(c *config.Config) {
				d := -time.Second
				c.Duration = &d
			},
			want: "duration must be >= 0",
		},
		{
			name: "body and body file",
			mutate: func(c *config.Config) {
				c.Body = "x"
				c.BodyFile = "body.json"
			},
			want: "body and body_file are mutually exclusive",
		},
		{
			name: "basic and bearer",
			mutate: func(c *config.Config) {
				c.Credentials = &config.Credentials{User: "u"}
				c.BearerToken = "t"
			},
			want: "mutually exclusive",
		},
		{
			name:   "bad log level",
			mutate: func(c *config.Config) { c.Log.Level = "loud" },
			want:   "log.level",
		},
		{
			name:   "sample rate above one",
			mutate: func(c *config.Config) { c.Tracing.SampleRate = 1.5 },
			want:   "tracing.sample_rate must be <= 1",
		},
		{
			name:   "header with newline",
			mutate: func(c *config.Config) { c.Headers = map[string]string{"X-Bad": "a\r\nb"} },
			want:   "headers: invalid value",
		},
		{
			name:   "metrics address without port",
			mutate: func(c *config.Config) { c.MetricsAddr = "localhost" },
			want:   "metrics_addr must be host:port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verr config.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateAcceptsEphemeralMetricsPort(t *testing.T) {
	cfg := validConfig()
	cfg.MetricsAddr = "127.0.0.1:0"
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllIssues(t *testing.T) {
	cfg := validConfig()
	cfg.Host = ""
	cfg.Method = "TRACE"
	cfg.Exact = true

	var verr config.ValidationError
	require.ErrorAs(t, cfg.Validate(), &verr)
	assert.Len(t, verr.Issues(), 3, "issues: %v", verr.Issues())
}

func TestPassWithoutUserRejected(t *testing.T) {
	cfg, err := hermeticLoader(nil).Load([]string{"--host", "http://x.test", "--pass", "secret"})
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "pass requires user")
}

func TestLoadRejectsDeleteMethod(t *testing.T) {
	cfg, err := hermeticLoader(nil).Load([]string{"--host", "http://x.test", "--method", "delete"})
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestWarnings(t *testing.T) {
	cfg := validConfig()
	cfg.Body = "ignored"
	cfg.Workers = 600
	cfg.Load = 0
	cfg.Duration = seconds(5)

	joined := strings.Join(cfg.Warnings(), "\n")
	for _, want := range []string{"body is ignored", "high worker count", "load is 0"} {
		assert.Contains(t, joined, want)
	}
}

func TestMethodHasBody(t *testing.T) {
	tests := map[config.Method]bool{
		config.MethodGet:   false,
		config.MethodPost:  true,
		config.MethodPut:   true,
		config.MethodPatch: true,
	}
	for method, want := range tests {
		assert.Equal(t, want, method.HasBody(), "%s.HasBody()", method)
	}
}

func TestTracingConfigEnabled(t *testing.T) {
	tc := config.TracingConfig{}
	assert.False(t, tc.Enabled())
	assert.False(t, tc.ShouldPropagate())

	tc.Endpoint = "localhost:4317"
	tc.Propagate = true
	assert.True(t, tc.Enabled())
	assert.True(t, tc.ShouldPropagate())
}
