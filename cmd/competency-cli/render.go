package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/competencymatrix/internal/models"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a competency record onto the template",
	RunE:  runRender,
}

var (
	renderRecordFile string
	renderJobFile    string
	renderTitle      string
	renderName       string
	renderOutDir     string
	renderLayout     string
	renderNonStrict  bool
)

func init() {
	renderCmd.Flags().StringVarP(&renderRecordFile, "record", "r", "", "Path to the competency record JSON, or a generate response (required)")
	renderCmd.Flags().StringVarP(&renderJobFile, "job-file", "f", "", "Job JSON whose classification fills the slide headers")
	renderCmd.Flags().StringVar(&renderTitle, "title", "", "Job title used to name the deck")
	renderCmd.Flags().StringVar(&renderName, "name", "", "Explicit deck file name")
	renderCmd.Flags().StringVarP(&renderOutDir, "out-dir", "o", ".", "Directory for decks that were not uploaded")
	renderCmd.Flags().StringVar(&renderLayout, "layout", "", "Template layout name (overrides TEMPLATE_LAYOUT)")
	renderCmd.Flags().BoolVar(&renderNonStrict, "non-strict", false, "Skip placeholders missing from the template instead of failing")
	if err := renderCmd.MarkFlagRequired("record"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(renderCmd)
}

// loadRecord accepts a bare record, a one-element record array, or a generate response.
func loadRecord(path string) (any, error) {
	var raw any
	if err := readJSONFile(path, &raw); err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s holds an empty array", path)
		}
		return v[0], nil
	case map[string]any:
		if rec, ok := v["record"]; ok {
			if rec == nil {
				return nil, fmt.Errorf("%s holds a response without a record (mode %v)", path, v["mode"])
			}
			return rec, nil
		}
	}
	return raw, nil
}

func runRender(cmd *cobra.Command, _ []string) error {
	record, err := loadRecord(renderRecordFile)
	if err != nil {
		return err
	}
	req := models.RenderRequest{
		Record:         record,
		JobTitle:       renderTitle,
		OutputFilename: renderName,
		LayoutName:     renderLayout,
	}
	if renderNonStrict {
		strict := false
		req.Strict = &strict
	}
	if renderJobFile != "" {
		job, err := loadJob(renderJobFile)
		if err != nil {
			return err
		}
		classification := models.ClassificationOf(job)
		req.Classification = &classification
		if req.JobTitle == "" {
			req.JobTitle = job.Title()
		}
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	renderer, err := rt.DeckRenderer(cmd.Context())
	if err != nil {
		return err
	}
	res, err := renderer.Process(cmd.Context(), req)
	if err != nil {
		return err
	}
	path, err := saveArtifact(renderOutDir, res)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if path != "" {
		fmt.Fprintf(out, "Deck saved to %s\n", path)
	}
	fmt.Fprintln(out, res.FinalMessage)
	return nil
}
