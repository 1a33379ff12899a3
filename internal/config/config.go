package config

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Method is an HTTP method the generator knows how to send.
type Method string

const (
	MethodGet   Method = http.MethodGet
	MethodPost  Method = http.MethodPost
	MethodPut   Method = http.MethodPut
	MethodPatch Method = http.MethodPatch
)

// HasBody reports whether requests with this method carry the configured body.
func (m Method) HasBody() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch:
		return true
	default:
		return false
	}
}

// Config is built once per process and never mutated after Validate.
type Config struct {
	Host        string            `mapstructure:"host" yaml:"host" validate:"required,http_url"`
	Method      Method            `mapstructure:"method" yaml:"method" validate:"oneof=GET POST PUT PATCH"`
	Headers     map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
	Body        string            `mapstructure:"body" yaml:"body,omitempty"`
	BodyFile    string            `mapstructure:"body_file" yaml:"body_file,omitempty"`
	Load        int               `mapstructure:"load" yaml:"load" validate:"gte=0"`
	Workers     int               `mapstructure:"workers" yaml:"workers" validate:"gte=1"`
	Timeout     time.Duration     `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	Duration    *time.Duration    `mapstructure:"duration" yaml:"duration,omitempty" validate:"omitempty,gte=0"`
	Interval    *time.Duration    `mapstructure:"interval" yaml:"interval,omitempty" validate:"omitempty,gte=0"`
	Exact       bool              `mapstructure:"exact" yaml:"exact"`
	Credentials *Credentials      `mapstructure:"credentials" yaml:"credentials,omitempty"`
	BearerToken string            `mapstructure:"bearer_token" yaml:"bearer_token,omitempty"`
	Verbose     bool              `mapstructure:"verbose" yaml:"verbose"`
	Rate        int               `mapstructure:"rate" yaml:"rate,omitempty" validate:"gte=0"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
	Tracing     TracingConfig     `mapstructure:"tracing" yaml:"tracing,omitempty"`
	MetricsAddr string            `mapstructure:"metrics_addr" yaml:"metrics_addr,omitempty" validate:"omitempty,tcp_addr"`
	LockFile    string            `mapstructure:"lock_file" yaml:"lock_file,omitempty"`
	PrintConfig bool              `mapstructure:"-" yaml:"-"`
	ConfigFile  string            `mapstructure:"-" yaml:"-"`

	// passWithoutUser records a password supplied with no user; kept
	// private so it only surfaces as a validation issue.
	passWithoutUser bool
}

// Credentials hold HTTP basic authentication values. A nil Password sends
// the user with an empty password.
type Credentials struct {
	User     string  `mapstructure:"user" yaml:"user"`
	Password *string `mapstructure:"pass" yaml:"pass,omitempty"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=console json"`
}

// TracingConfig controls OTLP span export around each request.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Protocol    string  `mapstructure:"protocol" yaml:"protocol,omitempty" validate:"omitempty,oneof=grpc http"`
	ServiceName string  `mapstructure:"service_name" yaml:"service_name,omitempty"`
	SampleRate  float64 `mapstructure:"sample_rate" yaml:"sample_rate,omitempty" validate:"gte=0,lte=1"`
	Insecure    bool    `mapstructure:"insecure" yaml:"insecure,omitempty"`
	Propagate   bool    `mapstructure:"propagate" yaml:"propagate,omitempty"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether W3C trace headers go out with requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Enabled() && t.Propagate
}

// DurationValue returns the run duration, treating an absent value as zero.
func (c Config) DurationValue() time.Duration {
	if c.Duration == nil {
		return 0
	}
	return *c.Duration
}

// IntervalValue returns the pause between bursts, treating an absent value as zero.
func (c Config) IntervalValue() time.Duration {
	if c.Interval == nil {
		return 0
	}
	return *c.Interval
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under the same names users type in config files.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks field ranges and the cross-field rules between duration,
// interval, exact and credentials. Every problem is reported at once.
func (c Config) Validate() error {
	var issues []string

	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			issues = append(issues, describeFieldError(fe))
		}
	}

	if c.Interval != nil && c.Duration == nil {
		issues = append(issues, "interval requires duration")
	}
	if c.Exact && c.Duration == nil {
		issues = append(issues, "exact requires duration")
	}
	if c.passWithoutUser {
		issues = append(issues, "pass requires user")
	}
	if c.Credentials != nil && strings.TrimSpace(c.Credentials.User) == "" {
		issues = append(issues, "credentials: user cannot be empty")
	}
	if c.Credentials != nil && strings.TrimSpace(c.BearerToken) != "" {
		issues = append(issues, "basic credentials and bearer_token are mutually exclusive")
	}
	if strings.TrimSpace(c.Body) != "" && strings.TrimSpace(c.BodyFile) != "" {
		issues = append(issues, "body and body_file are mutually exclusive")
	}
	for key, value := range c.Headers {
		if strings.TrimSpace(key) == "" || strings.ContainsAny(key, "\r\n") {
			issues = append(issues, fmt.Sprintf("headers: invalid key %q", key))
			continue
		}
		if strings.ContainsAny(value, "\r\n") {
			issues = append(issues, fmt.Sprintf("headers: invalid value for %s", key))
		}
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// Warnings lists settings that are legal but probably not what the user meant.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Method == MethodGet && (c.Body != "" || c.BodyFile != "") {
		warnings = append(warnings, "body is ignored for GET requests")
	}
	if c.Workers > 500 {
		warnings = append(warnings, fmt.Sprintf("high worker count configured (%d). Ensure you have authorization to test the target system.", c.Workers))
	}
	if c.Load == 0 && c.DurationValue() > 0 && c.IntervalValue() == 0 {
		warnings = append(warnings, "load is 0 with no interval; timed runs will loop without sending requests")
	}
	if c.Load > 0 && c.Workers > c.Load {
		warnings = append(warnings, fmt.Sprintf("workers (%d) exceed load (%d); only %d will be busy", c.Workers, c.Load, c.Load))
	}
	return warnings
}

func describeFieldError(fe validator.FieldError) string {
	name := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required (use --help for usage information)", name)
	case "http_url":
		return fmt.Sprintf("%s must be an http or https URL, got %q", name, fmt.Sprint(fe.Value()))
	case "tcp_addr":
		return fmt.Sprintf("%s must be host:port, got %q", name, fmt.Sprint(fe.Value()))
	case "oneof":
		choices := strings.ToLower(strings.Join(strings.Fields(fe.Param()), ", "))
		return fmt.Sprintf("%s %q is not supported (use one of: %s)", name, strings.ToLower(fmt.Sprint(fe.Value())), choices)
	case "gte":
		return fmt.Sprintf("%s must be >= %s", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx != -1 {
		return ns[idx+1:]
	}
	return fe.Field()
}
