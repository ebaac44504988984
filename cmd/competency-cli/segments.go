package main

import (
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/competencymatrix/internal/models"
)

var segmentsCmd = &cobra.Command{
	Use:   "segments <pdf>",
	Short: "List the job cards found in a PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runSegments,
}

func init() {
	rootCmd.AddCommand(segmentsCmd)
}

func runSegments(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	parser, err := rt.JobParser(cmd.Context())
	if err != nil {
		return err
	}
	res, err := parser.Process(cmd.Context(), models.JobParseRequest{GCSUri: args[0]})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res.Listing)
}
