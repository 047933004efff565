package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/thesavant42/waysaver/internal/archive"
	"github.com/thesavant42/waysaver/internal/ui"
)

var (
	saveUsePost   bool
	saveJitter    time.Duration
	saveInputFile string
)

var saveCmd = &cobra.Command{
	Use:   "save [url...]",
	Short: "Submit URLs for capture, in order, one at a time",
	Long: `Submit each URL to the Save Page Now endpoint through the retry layer.
URLs are processed sequentially in input order. A URL that keeps failing is
recorded and the batch moves on; results collected before an interrupt are
always printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, err := collectTargets(args)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return fmt.Errorf("no URLs to save; pass them as arguments or via --input")
		}

		logger := buildLogger()
		client := archive.NewSaveClient(logger, flagTimeout)
		client.Policy = buildPolicy(saveJitter)
		if saveUsePost {
			client.Method = http.MethodPost
		}
		if flagUserAgent != "" {
			client.UserAgent = flagUserAgent
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		results, runErr := client.SaveAll(ctx, targets, ui.PrintProgress)

		// Partial results are always emitted, interrupt or not.
		fmt.Println()
		ui.PrintSaveResults(results)

		switch {
		case runErr == nil:
			return nil
		case errors.Is(runErr, context.Canceled):
			ui.PrintWarning(fmt.Sprintf("Interrupted: %d of %d URLs processed", len(results), len(targets)))
			return runErr
		default:
			ui.PrintError(runErr.Error())
			return runErr
		}
	},
}

func init() {
	saveCmd.Flags().BoolVar(&saveUsePost, "post", false, "submit with POST and the capture_all form instead of GET")
	saveCmd.Flags().DurationVar(&saveJitter, "jitter", 5*time.Second, "pacing sleep after each successful save, scaled by a random factor; 0 disables")
	saveCmd.Flags().StringVarP(&saveInputFile, "input", "i", "", "read URLs from a file, one per line (# comments allowed)")
	rootCmd.AddCommand(saveCmd)
}

// collectTargets merges positional URLs with the optional input file,
// preserving order: file entries first, then arguments.
func collectTargets(args []string) ([]string, error) {
	var targets []string

	if saveInputFile != "" {
		f, err := os.Open(saveInputFile)
		if err != nil {
			return nil, fmt.Errorf("open input file: %w", err)
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			targets = append(targets, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read input file: %w", err)
		}
	}

	return append(targets, args...), nil
}
