package main

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chrisconley/gareport/internal"
)

// requestFlags holds the query description shared by query and export.
type requestFlags struct {
	profile    string
	start      string
	end        string
	metrics    []string
	dimensions []string
	filter     string
	sort       []string
	segment    string
	maxResults int
}

func (f *requestFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.profile, "profile", "p", "", "profile (view) id (required)")
	flags.StringVar(&f.start, "start", "", "start date, yyyy-mm-dd (required)")
	flags.StringVar(&f.end, "end", "", "end date, yyyy-mm-dd (default today)")
	flags.StringSliceVarP(&f.metrics, "metrics", "m", nil, "metrics to query")
	flags.StringSliceVarP(&f.dimensions, "dimensions", "d", nil, "dimensions to break metrics down by")
	flags.StringVarP(&f.filter, "filter", "f", "", "filter expression, e.g. ga:country==Ireland;ga:sessions>10")
	flags.StringSliceVarP(&f.sort, "sort", "s", nil, "sort fields, prefix with - for descending")
	flags.StringVar(&f.segment, "segment", "", "segment id, e.g. gaid::-1")
	flags.IntVar(&f.maxResults, "max-results", internal.DefaultMaxResults, "maximum rows to collect")
}

// build runs the flags through the staged request builder.
func (f *requestFlags) build() (internal.RequestConfiguration, error) {
	if f.profile == "" || f.start == "" {
		return internal.RequestConfiguration{}, fmt.Errorf("%w: --profile and --start are required", internal.ErrInvalidArgument)
	}
	start, err := civil.ParseDate(f.start)
	if err != nil {
		return internal.RequestConfiguration{}, fmt.Errorf("%w: invalid --start: %v", internal.ErrInvalidArgument, err)
	}
	var end []civil.Date
	if f.end != "" {
		endDate, err := civil.ParseDate(f.end)
		if err != nil {
			return internal.RequestConfiguration{}, fmt.Errorf("%w: invalid --end: %v", internal.ErrInvalidArgument, err)
		}
		end = append(end, endDate)
	}

	stage := internal.NewRequest().
		WithProfileID(f.profile).
		ForDateRange(start, end...).
		WithMetrics(f.metrics...).
		WithDimensions(f.dimensions...).
		WithCustomFilter(f.filter)
	for _, field := range f.sort {
		name, descending := strings.CutPrefix(strings.TrimSpace(field), "-")
		stage = stage.SortBy(name, descending)
	}
	return stage.
		Custom(func(c *internal.CustomConfigurer) {
			c.Segment(f.segment).MaxResults(f.maxResults)
		}).
		Build()
}

var queryRequest requestFlags

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a single report query",
	Long: `Run one report query and print the merged result.

Examples:
  gareport query -p 12345 --start 2024-01-01 -m sessions,pageviews -d date -s -sessions
  gareport query -p 12345 --start 2024-01-01 -m sessions -f "ga:country==Ireland" -o json`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	queryRequest.register(queryCmd.Flags())
}

func runQuery(cmd *cobra.Command, _ []string) error {
	request, err := queryRequest.build()
	if err != nil {
		return err
	}

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	result := client.Query(cmd.Context(), request)
	if err := writeResult(cmd.OutOrStdout(), settings.GetString("output"), result); err != nil {
		return err
	}
	return failedQueries(result)
}
