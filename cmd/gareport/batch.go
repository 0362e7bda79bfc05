package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chrisconley/gareport/internal"
)

var concurrency int

var batchCmd = &cobra.Command{
	Use:   "batch <request.json>...",
	Short: "Run saved request documents concurrently",
	Long: `Load request documents written by 'gareport export' and run them concurrently.
Results are printed in argument order; the command fails if any query failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "maximum queries in flight (0 for unbounded)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	requests := make([]internal.RequestConfiguration, len(args))
	for i, path := range args {
		request, err := internal.LoadFrom(path)
		if err != nil {
			return err
		}
		requests[i] = request
	}

	client, err := newClient(cmd.Context())
	if err != nil {
		return err
	}

	results := client.QueryAll(cmd.Context(), requests, concurrency)
	out := cmd.OutOrStdout()
	format := settings.GetString("output")
	for i, result := range results {
		if format == formatTable || format == "" {
			fmt.Fprintf(out, "# %s\n", args[i])
		}
		if err := writeResult(out, format, result); err != nil {
			return err
		}
	}
	return failedQueries(results...)
}
