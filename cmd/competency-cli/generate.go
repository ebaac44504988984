package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/competencymatrix/internal/models"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Synthesize a competency record for an extracted job",
	Long:  "Reads a job JSON (the output of extract, or a bare job payload) and prints either a validated competency record or a clarification request.",
	RunE:  runGenerate,
}

var (
	generateJobFile  string
	generateChoose   string
	generateRulebook string
	generateOut      string
)

func init() {
	generateCmd.Flags().StringVarP(&generateJobFile, "job-file", "f", "", "Path to the job JSON (required)")
	generateCmd.Flags().StringVarP(&generateChoose, "choose", "c", "", "Competency to commit to, answering an earlier clarification")
	generateCmd.Flags().StringVar(&generateRulebook, "rulebook", "", "Reference PDF path or gs:// URI (overrides RULEBOOK_PDF_PATH)")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "Write the response JSON here instead of stdout")
	if err := generateCmd.MarkFlagRequired("job-file"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(generateCmd)
}

// loadJob accepts both an ExtractedJob document and a bare JobPayload.
func loadJob(path string) (models.JobPayload, error) {
	var extracted models.ExtractedJob
	if err := readJSONFile(path, &extracted); err != nil {
		return models.JobPayload{}, err
	}
	if extracted.Job.JobTitle != nil {
		return extracted.Job, nil
	}
	var job models.JobPayload
	if err := readJSONFile(path, &job); err != nil {
		return models.JobPayload{}, err
	}
	if job.JobTitle == nil {
		return models.JobPayload{}, fmt.Errorf("%s holds no job_title", path)
	}
	return job, nil
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	job, err := loadJob(generateJobFile)
	if err != nil {
		return err
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	generator, err := rt.CompetencyGenerator(cmd.Context())
	if err != nil {
		return err
	}
	res, err := generator.Process(cmd.Context(), models.CompetencyRequest{
		Job:              job,
		ChosenCompetency: generateChoose,
		RulebookGCSUri:   generateRulebook,
	})
	if err != nil {
		return err
	}
	return writeJSONFile(cmd.OutOrStdout(), generateOut, res)
}
