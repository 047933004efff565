package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"
	"github.com/thesavant42/waysaver/internal/archive"
	"github.com/thesavant42/waysaver/internal/timemap"
	"github.com/thesavant42/waysaver/internal/ui"
)

var (
	tmMatchType  string
	tmCollapse   string
	tmOutput     string
	tmFields     string
	tmFilter     string
	tmLimit      int
	tmParseTimes bool
	tmDomain     bool
	tmJitter     time.Duration
	tmNoSpinner  bool
)

var timemapCmd = &cobra.Command{
	Use:   "timemap <url>",
	Short: "Query a URL's capture history",
	Long: `Fetch the CDX timemap for a URL: every capture the archive holds,
as one record per capture group. With --domain the argument is reduced to
its registrable root domain and the whole site's history is queried.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]

		query := archive.Query{
			URL:             target,
			MatchType:       tmMatchType,
			Collapse:        tmCollapse,
			Output:          tmOutput,
			Filter:          tmFilter,
			Limit:           tmLimit,
			ParseTimestamps: tmParseTimes,
		}
		if tmFields != "" {
			query.Fields = strings.Split(tmFields, ",")
		}
		if tmDomain {
			root, err := archive.RootDomain(target)
			if err != nil {
				return err
			}
			query.URL = root
			query.MatchType = "domain"
		}

		logger := buildLogger()
		client := archive.NewTimemapClient(logger, flagTimeout)
		client.Policy = buildPolicy(tmJitter)
		if flagUserAgent != "" {
			client.UserAgent = flagUserAgent
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var records []timemap.Record
		fetch := func(ctx context.Context) error {
			var err error
			records, err = client.Fetch(ctx, query)
			return err
		}

		var err error
		if tmNoSpinner {
			err = fetch(ctx)
		} else {
			err = spinner.New().
				Title(fmt.Sprintf("Fetching timemap for %s...", query.URL)).
				Context(ctx).
				ActionWithErr(fetch).
				Run()
		}
		if err != nil {
			ui.PrintError(err.Error())
			return err
		}

		if len(records) == 0 {
			ui.PrintWarning(fmt.Sprintf("No captures found for %s", query.URL))
			return nil
		}

		ui.PrintRecordTable(fmt.Sprintf("Captures for %s", query.URL), records, query.Fields)
		return nil
	},
}

func init() {
	timemapCmd.Flags().StringVar(&tmMatchType, "match-type", "", "CDX matchType: exact, prefix, host, or domain")
	timemapCmd.Flags().StringVar(&tmCollapse, "collapse", "", "collapse captures on a field, e.g. urlkey or timestamp:8")
	timemapCmd.Flags().StringVar(&tmOutput, "output", "json", "payload format to request: json or csv")
	timemapCmd.Flags().StringVar(&tmFields, "fields", "", "comma-separated field list (default original,mimetype,timestamp,endtimestamp,groupcount,uniqcount)")
	timemapCmd.Flags().StringVar(&tmFilter, "filter", "", "CDX filter expression, e.g. statuscode:200")
	timemapCmd.Flags().IntVar(&tmLimit, "limit", 0, "maximum records to return (0 = server default)")
	timemapCmd.Flags().BoolVar(&tmParseTimes, "parse-timestamps", false, "parse 14-digit timestamps into datetime columns")
	timemapCmd.Flags().BoolVar(&tmDomain, "domain", false, "query the whole root domain of the argument")
	timemapCmd.Flags().DurationVar(&tmJitter, "jitter", 0, "pacing sleep after the query, for scripted repeated runs; 0 disables")
	timemapCmd.Flags().BoolVar(&tmNoSpinner, "no-spinner", false, "disable the progress spinner (for scripts)")
	rootCmd.AddCommand(timemapCmd)
}
