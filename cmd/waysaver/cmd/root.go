package cmd

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/thesavant42/waysaver/internal/request"
	"github.com/thesavant42/waysaver/internal/ui"
)

const version = "0.3.0"

var (
	flagRetries   int
	flagBackoff   time.Duration
	flagDecay     int
	flagTimeout   time.Duration
	flagUserAgent string
	flagLogFile   string
	flagVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "waysaver",
	Short: "Save URLs to the Wayback Machine and query their capture history",
	Long: `waysaver submits URLs to the Internet Archive's Save Page Now endpoint
and queries the CDX timemap for a URL's capture history.

Transient failures (rate limits, gateway errors, timeouts) are retried with
a decaying backoff; Retry-After hints from the archive are honored.`,
	Version:      version,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		ui.PrintBanner(version)
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load .env if present (silently ignore if not found)
		_ = godotenv.Load()
		if flagUserAgent == "" {
			flagUserAgent = os.Getenv("WAYSAVER_USER_AGENT")
		}
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagRetries, "retries", 3, "retries per request after the first attempt")
	rootCmd.PersistentFlags().DurationVar(&flagBackoff, "backoff", 60*time.Second, "wait before the first retry")
	rootCmd.PersistentFlags().IntVar(&flagDecay, "decay", 50, "percentage the backoff shrinks to after each retry (1-100)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 180*time.Second, "per-request HTTP timeout")
	rootCmd.PersistentFlags().StringVar(&flagUserAgent, "user-agent", "", "override the request User-Agent (or WAYSAVER_USER_AGENT)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "append structured logs to this file instead of stderr")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log at debug level")
}

// buildPolicy assembles the retry policy from the shared flags plus a
// per-pipeline jitter.
func buildPolicy(jitter time.Duration) request.Policy {
	return request.Policy{
		InitialBackoff: flagBackoff,
		MaxRetries:     flagRetries,
		DecayPercent:   flagDecay,
		JitterBase:     jitter,
	}
}

// buildLogger creates the CLI logger. With --log-file it appends to that
// file, falling back to stderr if the file cannot be opened.
func buildLogger() *log.Logger {
	out := os.Stderr
	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			out = f
		}
	}

	level := log.InfoLevel
	if flagVerbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
}
