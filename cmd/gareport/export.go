package main

import (
	"github.com/spf13/cobra"
)

var (
	exportRequest requestFlags
	exportPath    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Save a request document without running it",
	Long: `Build a request from flags and write it as a JSON document, to --file or stdout.
Saved documents can be run with 'gareport batch'.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportRequest.register(exportCmd.Flags())
	exportCmd.Flags().StringVar(&exportPath, "file", "", "write the document to this path")
}

func runExport(cmd *cobra.Command, _ []string) error {
	request, err := exportRequest.build()
	if err != nil {
		return err
	}
	if exportPath != "" {
		return request.ExportToFile(exportPath)
	}
	return request.ExportTo(cmd.OutOrStdout())
}
