package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	defaultLoad           = 100
	defaultWorkers        = 10
	defaultTimeoutSeconds = 20
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "burst --host <url> [flags]",
		Short:         "Sends bursts of requests to a specified host.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set. -h belongs to
// --host, so help is only reachable through --help.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.StringP("host", "h", "", "URL to send the requests to")
	flags.StringP("method", "m", "get", "HTTP method: get, post, put or patch")
	flags.StringP("body", "b", "", "Request body for post, put and patch")
	flags.String("body-file", "", "Path to a file containing the request body")
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.StringP("user", "u", "", "User for basic authentication")
	flags.StringP("pass", "p", "", "Password for basic authentication (requires --user)")
	flags.String("bearer-token", "", "Static bearer token sent in the Authorization header")

	// Load control flags
	flags.IntP("load", "l", defaultLoad, "Amount of requests to send per burst")
	flags.IntP("workers", "w", defaultWorkers, "Number of requests in flight at once")
	flags.IntP("duration", "d", 0, "Seconds to keep sending bursts (0 sends a single burst)")
	flags.IntP("interval", "i", 0, "Seconds to pause between bursts (requires --duration)")
	flags.BoolP("exact", "e", false, "Stop exactly when --duration elapses, abandoning in-flight requests")
	flags.IntP("timeout", "t", defaultTimeoutSeconds, "Timeout in seconds for each request")
	flags.Int("rate", 0, "Requests per second within a burst (0 means unlimited)")

	// Output flags
	flags.BoolP("verbose", "v", false, "Print the status of every request")
	flags.String("log-level", "warn", "Diagnostic log level: debug, info, warn or error")
	flags.String("log-format", "console", "Diagnostic log format: console or json")
	flags.Bool("print-config", false, "Print the effective configuration as YAML and exit")
	flags.String("config", "", "Path to configuration file (JSON, YAML or TOML)")

	// Observability flags
	flags.String("trace-endpoint", "", "OTLP collector endpoint for request spans")
	flags.String("trace-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.String("trace-service-name", "", "Service name reported on spans")
	flags.Float64("trace-sample-rate", 1.0, "Fraction of requests traced (0.0-1.0)")
	flags.Bool("trace-insecure", false, "Disable TLS towards the OTLP collector")
	flags.Bool("trace-propagate", false, "Send W3C traceparent headers to the target")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on host:port while running")

	flags.String("lock-file", "", "Refuse to start while another run holds this lock file")

	flags.Bool("help", false, "Show this help message")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\nUsage: %s\n\nFlags:\n", cmd.Short, cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}
