package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/render"
	"github.com/Lllllllleong/competencymatrix/internal/services"
)

var runCmd = &cobra.Command{
	Use:   "run <pdf>",
	Short: "Run extraction, generation and rendering end to end",
	Long: "Without --job or --all, prints the job listing. With --job, runs one job card; with --all, " +
		"runs every job card concurrently. A run pauses when the synthesizer asks for clarification; " +
		"answer it with --choose.",
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	runJob         int
	runAll         bool
	runChoose      string
	runRulebook    string
	runOutDir      string
	runConcurrency int
)

func init() {
	runCmd.Flags().IntVarP(&runJob, "job", "j", -1, "Index of the job card to run")
	runCmd.Flags().BoolVar(&runAll, "all", false, "Run every job card")
	runCmd.Flags().StringVarP(&runChoose, "choose", "c", "", "Competency to commit to, answering an earlier clarification")
	runCmd.Flags().StringVar(&runRulebook, "rulebook", "", "Reference PDF path or gs:// URI (overrides RULEBOOK_PDF_PATH)")
	runCmd.Flags().StringVarP(&runOutDir, "out-dir", "o", ".", "Directory for decks that were not uploaded")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 3, "Job cards processed at once with --all")
	runCmd.MarkFlagsMutuallyExclusive("job", "all")
	rootCmd.AddCommand(runCmd)
}

// runOutcome summarizes one job card of a run.
type runOutcome struct {
	Index         int                          `json:"index"`
	Title         string                       `json:"title"`
	Stage         string                       `json:"stage"`
	DeckPath      string                       `json:"deck_path,omitempty"`
	Render        *models.RenderResult         `json:"render,omitempty"`
	Clarification *models.ClarificationRequest `json:"clarification,omitempty"`
	Error         string                       `json:"error,omitempty"`
}

func runRun(cmd *cobra.Command, args []string) error {
	if runConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1, got %d", runConcurrency)
	}
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	pipeline, err := rt.Pipeline(cmd.Context())
	if err != nil {
		return err
	}
	base := services.PipelineRequest{
		SourceURI:        args[0],
		ChosenCompetency: runChoose,
		RulebookURI:      runRulebook,
	}

	switch {
	case runAll:
		outcomes, err := runAllJobs(cmd.Context(), pipeline, base, runConcurrency)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), outcomes)
	case runJob >= 0:
		base.JobIndex = &runJob
		res, err := pipeline.Run(cmd.Context(), base)
		if err != nil {
			return err
		}
		outcome, err := summarize(runJob, res)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), outcome)
	default:
		res, err := pipeline.Run(cmd.Context(), base)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res.Listing)
	}
}

// runAllJobs runs every listed job card with at most limit in flight. A failing card is
// recorded in its outcome and does not stop the others.
func runAllJobs(ctx context.Context, p *services.Pipeline, base services.PipelineRequest, limit int) ([]runOutcome, error) {
	listing, err := p.Run(ctx, base)
	if err != nil {
		return nil, err
	}
	jobs := listing.Listing.Jobs
	outcomes := make([]runOutcome, len(jobs))
	now := time.Now()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, seg := range jobs {
		g.Go(func() error {
			res, err := p.Run(gctx, cardRequest(base, seg, now))
			outcome := runOutcome{Index: seg.Index, Title: seg.Title}
			if err == nil {
				outcome, err = summarize(seg.Index, res)
			}
			if err != nil {
				slog.Error("Job card failed.", "index", seg.Index, "title", seg.Title, "error", err)
				outcome.Error = err.Error()
			}
			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// cardRequest selects seg and names its deck after the card index, so cards sharing a
// title on the same day neither overwrite each other's object nor race on a local path.
func cardRequest(base services.PipelineRequest, seg models.JobSegment, now time.Time) services.PipelineRequest {
	req := base
	req.JobIndex = &seg.Index
	stem := strings.TrimSuffix(render.OutputName(seg.Title, now), ".pptx")
	req.OutputFilename = fmt.Sprintf("%s_%02d.pptx", stem, seg.Index)
	return req
}

func summarize(index int, res *services.PipelineResult) (runOutcome, error) {
	outcome := runOutcome{Index: index, Stage: res.Stage}
	if res.Extracted != nil {
		outcome.Title = res.Extracted.Job.Title()
	}
	if res.Competency != nil {
		outcome.Clarification = res.Competency.Clarification
	}
	if res.Render != nil {
		path, err := saveArtifact(runOutDir, res.Render)
		if err != nil {
			return outcome, err
		}
		outcome.DeckPath = path
		outcome.Render = res.Render
	}
	return outcome, nil
}
