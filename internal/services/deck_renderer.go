package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Lllllllleong/competencymatrix/internal/contract"
	"github.com/Lllllllleong/competencymatrix/internal/gcp"
	"github.com/Lllllllleong/competencymatrix/internal/models"
	"github.com/Lllllllleong/competencymatrix/internal/render"
)

// PPTXContentType is the MIME type of rendered decks.
const PPTXContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"

type DeckRendererConfig struct {
	TemplatePath string
	LayoutName   string
	Strict       bool
}

// DeckRenderer renders a competency record onto the template and publishes the deck.
type DeckRenderer struct {
	store  ArtifactStore
	config DeckRendererConfig
	now    func() time.Time
}

// NewDeckRenderer wires a renderer. A nil store reports every upload as unconfigured.
func NewDeckRenderer(store ArtifactStore, config DeckRendererConfig) *DeckRenderer {
	if config.LayoutName == "" {
		config.LayoutName = render.DefaultLayoutName
	}
	return &DeckRenderer{store: store, config: config, now: time.Now}
}

// Process renders req.Record. Template mismatches are fatal; upload failures are reported
// in the result, which then carries the deck bytes instead.
func (f *DeckRenderer) Process(ctx context.Context, req models.RenderRequest) (*models.RenderResult, error) {
	runID := uuid.NewString()
	logCtx := slog.With("runId", runID, "executionId", req.ExecutionID)

	rec, err := contract.CoerceRecord(req.Record)
	if err != nil {
		return nil, &InputError{Message: "record does not match the competency contract", Cause: err}
	}
	if err := contract.ValidateRecord(rec); err != nil {
		return nil, &InputError{Message: "record does not match the competency contract", Cause: err}
	}

	outName := deckFilename(req.OutputFilename, req.JobTitle, f.now())
	logCtx = logCtx.With("outputFilename", outName)

	tempDir, err := os.MkdirTemp("", "deck-renderer-"+runID+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	strict := f.config.Strict
	if req.Strict != nil {
		strict = *req.Strict
	}
	layoutName := f.config.LayoutName
	if req.LayoutName != "" {
		layoutName = req.LayoutName
	}

	outPath, err := render.Render(f.config.TemplatePath, filepath.Join(tempDir, outName), rec, render.Options{
		LayoutName:     layoutName,
		NonStrict:      !strict,
		Classification: req.Classification,
		Logger:         logCtx,
	})
	if err != nil {
		logCtx.Error("Render failed.", "error", err)
		return nil, err
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered deck: %w", err)
	}
	logCtx.Info("Deck rendered.", "slides", len(rec.Topics), "bytes", len(data))

	result := &models.RenderResult{
		OutputFilename:  outName,
		SlidesGenerated: len(rec.Topics),
	}
	f.publish(ctx, logCtx, result, data)
	return result, nil
}

func (f *DeckRenderer) publish(ctx context.Context, logCtx *slog.Logger, result *models.RenderResult, data []byte) {
	var (
		info *gcp.UploadInfo
		err  = gcp.ErrBucketNotSet
	)
	if f.store != nil {
		if bucket := f.store.Bucket(); bucket != "" {
			object := f.store.ObjectName(result.OutputFilename)
			result.GCSBucket = &bucket
			result.GCSObject = &object
		}
		info, err = f.store.Upload(ctx, result.OutputFilename, data, PPTXContentType)
	}

	if err != nil {
		logCtx.Warn("Upload failed, returning deck bytes.", "error", err)
		msg := err.Error()
		result.UploadError = &msg
		result.ArtifactBytes = data
		result.FinalMessage = uploadFailedMessage(result.OutputFilename, msg)
		return
	}

	result.GCSBucket = &info.Bucket
	result.GCSObject = &info.Object
	result.GCSURL = &info.ConsoleURL
	if info.SignedURL != "" {
		result.SignedURL = &info.SignedURL
	}
	result.FinalMessage = successMessage(result.OutputFilename, info.ConsoleURL, info.SignedURL)
}

// deckFilename prefers an explicit name and always ends in .pptx.
func deckFilename(explicit, jobTitle string, now time.Time) string {
	name := strings.TrimSpace(filepath.Base(strings.TrimSpace(explicit)))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return render.OutputName(jobTitle, now)
	}
	if !strings.EqualFold(filepath.Ext(name), ".pptx") {
		name += ".pptx"
	}
	return name
}

func successMessage(name, url, signedURL string) string {
	msg := "تم إنشاء مصفوفة الكفاءات بنجاح\n\n" +
		fmt.Sprintf("يمكنك الوصول إلى المستند من هنا: [%s](%s)", name, url)
	if signedURL != "" {
		msg += fmt.Sprintf("\n\n(رابط موقع): [%s](%s)", name, signedURL)
	}
	return msg
}

func uploadFailedMessage(name, uploadErr string) string {
	return "تم إنشاء مصفوفة الكفاءات بنجاح، ولكن تعذر الرفع إلى السحابة.\n" +
		fmt.Sprintf("الخطأ: (%s)\n", uploadErr) +
		fmt.Sprintf("\nالملف متاح كـ Artifact باسم: %s", name)
}
