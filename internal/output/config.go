package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/torosent/burst/internal/config"
)

const redacted = "********"

// PrintConfig writes the effective configuration as YAML. Secrets are masked
// so the dump can be pasted into tickets.
func PrintConfig(w io.Writer, cfg config.Config) error {
	safe := cfg
	if cfg.Credentials != nil {
		creds := *cfg.Credentials
		if creds.Password != nil {
			mask := redacted
			creds.Password = &mask
		}
		safe.Credentials = &creds
	}
	if safe.BearerToken != "" {
		safe.BearerToken = redacted
	}
	if len(cfg.Headers) == 0 {
		safe.Headers = nil
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(safe); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
