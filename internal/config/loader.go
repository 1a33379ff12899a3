package config

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files, the environment and
// command-line arguments, in increasing order of precedence.
type Loader struct {
	// LookupEnv overrides environment lookups; tests use it to stay hermetic.
	LookupEnv func(key string) (string, bool)
	// Out receives --help output. Defaults to stdout.
	Out io.Writer
}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// envPrefix namespaces environment overrides, e.g. BURST_HOST or BURST_LOG_LEVEL.
const envPrefix = "BURST"

// settingKeys are the keys read from config files and the environment.
var settingKeys = []string{
	"host", "method", "body", "body_file", "user", "pass", "bearer_token",
	"load", "workers", "duration", "interval", "exact", "timeout", "rate",
	"verbose", "metrics_addr", "lock_file",
	"log.level", "log.format",
	"tracing.endpoint", "tracing.protocol", "tracing.service_name",
	"tracing.sample_rate", "tracing.insecure", "tracing.propagate",
}

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
// The result still needs Validate before use.
func (l Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if l.Out != nil {
		cmd.SetOut(l.Out)
	}
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if wantsHelp, err := flagSet.GetBool("help"); err == nil && wantsHelp {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
	}

	configPath := strings.TrimSpace(flagSet.Lookup("config").Value.String())
	settings, err := l.readSettings(configPath)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Method:     MethodGet,
		Headers:    map[string]string{},
		Load:       defaultLoad,
		Workers:    defaultWorkers,
		Timeout:    defaultTimeoutSeconds * time.Second,
		ConfigFile: configPath,
		Log:        LogConfig{Level: "warn", Format: "console"},
		Tracing:    TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
	creds := &credentialInput{}

	if err := applyConfigSettings(cfg, creds, settings); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cfg, creds, flagSet); err != nil {
		return nil, err
	}
	creds.apply(cfg)

	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Method = Method(strings.ToUpper(strings.TrimSpace(string(cfg.Method))))
	cfg.BodyFile = strings.TrimSpace(cfg.BodyFile)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(cfg.Tracing.Protocol))

	return cfg, nil
}

// readSettings merges the optional config file with BURST_* environment
// variables. Unset keys are absent from the result so callers can tell
// "not configured" from zero.
func (l Loader) readSettings(configPath string) (map[string]interface{}, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	lookup := l.LookupEnv
	for _, key := range settingKeys {
		if lookup == nil {
			if err := v.BindEnv(key); err != nil {
				return nil, err
			}
			continue
		}
		envKey := envPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
		if val, ok := lookup(envKey); ok {
			v.Set(key, val)
		}
	}

	return v.AllSettings(), nil
}

// credentialInput collects user/pass from every source before deciding
// whether basic auth is configured.
type credentialInput struct {
	user    string
	pass    string
	hasPass bool
}

func (c *credentialInput) apply(cfg *Config) {
	user := strings.TrimSpace(c.user)
	if user == "" {
		cfg.Credentials = nil
		cfg.passWithoutUser = c.hasPass && c.pass != ""
		return
	}
	creds := &Credentials{User: user}
	if c.hasPass {
		pass := c.pass
		creds.Password = &pass
	}
	cfg.Credentials = creds
}

// applyConfigSettings applies settings from a config file or the environment
// to the Config struct.
func applyConfigSettings(cfg *Config, creds *credentialInput, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "host", "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("host: %w", err)
		}
		cfg.Host = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "method"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("method: %w", err)
		}
		if val != "" {
			cfg.Method = Method(val)
		}
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(strings.TrimSpace(k))] = v
		}
	}

	if raw, ok := lookupSetting(settings, "body"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("body: %w", err)
		}
		cfg.Body = val
	}

	if raw, ok := lookupSetting(settings, "body_file", "bodyfile"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("body_file: %w", err)
		}
		cfg.BodyFile = val
	}

	if raw, ok := lookupSetting(settings, "user"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("user: %w", err)
		}
		creds.user = val
	}

	if raw, ok := lookupSetting(settings, "pass", "password"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("pass: %w", err)
		}
		creds.pass = val
		creds.hasPass = true
	}

	if raw, ok := lookupSetting(settings, "bearer_token", "bearertoken"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("bearer_token: %w", err)
		}
		cfg.BearerToken = strings.TrimSpace(val)
	}

	intSettings := []struct {
		key string
		dst *int
	}{
		{"load", &cfg.Load},
		{"workers", &cfg.Workers},
		{"rate", &cfg.Rate},
	}
	for _, s := range intSettings {
		if raw, ok := lookupSetting(settings, s.key); ok {
			val, err := asInt(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.key, err)
			}
			*s.dst = val
		}
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asSeconds(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asSeconds(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = &dur
	}

	if raw, ok := lookupSetting(settings, "interval"); ok {
		dur, err := asSeconds(raw)
		if err != nil {
			return fmt.Errorf("interval: %w", err)
		}
		cfg.Interval = &dur
	}

	boolSettings := []struct {
		key string
		dst *bool
	}{
		{"exact", &cfg.Exact},
		{"verbose", &cfg.Verbose},
	}
	for _, s := range boolSettings {
		if raw, ok := lookupSetting(settings, s.key); ok {
			val, err := asBool(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", s.key, err)
			}
			*s.dst = val
		}
	}

	if raw, ok := lookupSetting(settings, "metrics_addr", "metricsaddr"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("metrics_addr: %w", err)
		}
		cfg.MetricsAddr = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "lock_file", "lockfile"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("lock_file: %w", err)
		}
		cfg.LockFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "log"); ok {
		logSettings, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("log: %w", err)
		}
		if err := applyLogSettings(&cfg.Log, logSettings); err != nil {
			return fmt.Errorf("log: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracingSettings, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		if err := applyTracingSettings(&cfg.Tracing, tracingSettings); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

func applyLogSettings(logCfg *LogConfig, settings map[string]interface{}) error {
	if raw, ok := lookupSetting(settings, "level"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("level: %w", err)
		}
		logCfg.Level = val
	}
	if raw, ok := lookupSetting(settings, "format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("format: %w", err)
		}
		logCfg.Format = val
	}
	return nil
}

func applyTracingSettings(tc *TracingConfig, settings map[string]interface{}) error {
	for key, dst := range map[string]*string{
		"endpoint":     &tc.Endpoint,
		"protocol":     &tc.Protocol,
		"service_name": &tc.ServiceName,
	} {
		if raw, ok := lookupSetting(settings, key); ok {
			val, err := asString(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = strings.TrimSpace(val)
		}
	}
	if raw, ok := lookupSetting(settings, "sample_rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
		tc.SampleRate = val
	}
	for key, dst := range map[string]*bool{
		"insecure":  &tc.Insecure,
		"propagate": &tc.Propagate,
	} {
		if raw, ok := lookupSetting(settings, key); ok {
			val, err := asBool(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = val
		}
	}
	return nil
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file and environment.
func applyFlagOverrides(cfg *Config, creds *credentialInput, fs *pflag.FlagSet) error {
	stringFlags := []struct {
		name string
		set  func(string)
	}{
		{"host", func(v string) { cfg.Host = strings.TrimSpace(v) }},
		{"method", func(v string) { cfg.Method = Method(v) }},
		{"body", func(v string) { cfg.Body = v; cfg.BodyFile = "" }},
		{"body-file", func(v string) { cfg.BodyFile = v; cfg.Body = "" }},
		{"user", func(v string) { creds.user = v }},
		{"pass", func(v string) { creds.pass = v; creds.hasPass = true }},
		{"bearer-token", func(v string) { cfg.BearerToken = strings.TrimSpace(v) }},
		{"log-level", func(v string) { cfg.Log.Level = v }},
		{"log-format", func(v string) { cfg.Log.Format = v }},
		{"trace-endpoint", func(v string) { cfg.Tracing.Endpoint = strings.TrimSpace(v) }},
		{"trace-protocol", func(v string) { cfg.Tracing.Protocol = v }},
		{"trace-service-name", func(v string) { cfg.Tracing.ServiceName = strings.TrimSpace(v) }},
		{"metrics-addr", func(v string) { cfg.MetricsAddr = strings.TrimSpace(v) }},
		{"lock-file", func(v string) { cfg.LockFile = strings.TrimSpace(v) }},
	}
	for _, f := range stringFlags {
		if !fs.Changed(f.name) {
			continue
		}
		val, err := fs.GetString(f.name)
		if err != nil {
			return err
		}
		f.set(val)
	}

	intFlags := []struct {
		name string
		dst  *int
	}{
		{"load", &cfg.Load},
		{"workers", &cfg.Workers},
		{"rate", &cfg.Rate},
	}
	for _, f := range intFlags {
		if !fs.Changed(f.name) {
			continue
		}
		val, err := fs.GetInt(f.name)
		if err != nil {
			return err
		}
		*f.dst = val
	}

	if fs.Changed("timeout") {
		val, err := fs.GetInt("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = time.Duration(val) * time.Second
	}
	if fs.Changed("duration") {
		val, err := fs.GetInt("duration")
		if err != nil {
			return err
		}
		dur := time.Duration(val) * time.Second
		cfg.Duration = &dur
	}
	if fs.Changed("interval") {
		val, err := fs.GetInt("interval")
		if err != nil {
			return err
		}
		dur := time.Duration(val) * time.Second
		cfg.Interval = &dur
	}

	boolFlags := []struct {
		name string
		dst  *bool
	}{
		{"exact", &cfg.Exact},
		{"verbose", &cfg.Verbose},
		{"print-config", &cfg.PrintConfig},
		{"trace-insecure", &cfg.Tracing.Insecure},
		{"trace-propagate", &cfg.Tracing.Propagate},
	}
	for _, f := range boolFlags {
		if !fs.Changed(f.name) {
			continue
		}
		val, err := fs.GetBool(f.name)
		if err != nil {
			return err
		}
		*f.dst = val
	}

	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}

	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	for _, entry := range vals {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("header must be in key=value format: %s", entry)
		}
		key := http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))
		if key == "" {
			return fmt.Errorf("header key cannot be empty")
		}
		cfg.Headers[key] = strings.TrimSpace(parts[1])
	}

	return nil
}

// asSeconds reads a duration where bare numbers mean whole seconds, matching
// the CLI flags. Strings with a unit ("1m30s") are parsed as Go durations.
func asSeconds(value interface{}) (time.Duration, error) {
	if s, ok := value.(string); ok {
		trimmed := strings.TrimSpace(s)
		if n, err := strconv.Atoi(trimmed); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		return asDuration(trimmed)
	}
	return asDuration(value)
}
