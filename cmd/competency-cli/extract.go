package main

import (
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/competencymatrix/internal/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf>",
	Short: "Extract the fields of one job card",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var (
	extractJob int
	extractOut string
)

func init() {
	extractCmd.Flags().IntVarP(&extractJob, "job", "j", 0, "Index of the job card, as listed by segments (required)")
	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "", "Write the extracted job JSON here instead of stdout")
	if err := extractCmd.MarkFlagRequired("job"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	parser, err := rt.JobParser(cmd.Context())
	if err != nil {
		return err
	}
	res, err := parser.Process(cmd.Context(), models.JobParseRequest{GCSUri: args[0], SelectedJobIndex: &extractJob})
	if err != nil {
		return err
	}
	return writeJSONFile(cmd.OutOrStdout(), extractOut, res.Extracted)
}
