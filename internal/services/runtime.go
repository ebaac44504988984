package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"

	"github.com/Lllllllleong/competencymatrix/internal/config"
	"github.com/Lllllllleong/competencymatrix/internal/gcp"
	"github.com/Lllllllleong/competencymatrix/internal/synth"
)

// Runtime turns a Config into wired services. Cloud clients are created on first use, so a
// local run that never touches GCS or Firestore needs no credentials.
type Runtime struct {
	Config *config.Config
	// PersistSegments selects the Firestore segment cache over the in-memory one.
	PersistSegments bool

	mu         sync.Mutex
	storage    *storage.Client
	firestore  *firestore.Client
	executions *executions.Client
	synths     *gcp.Synthesizers
	synthsDone bool
	memCache   *MemorySegmentCache
}

func NewRuntime(cfg *config.Config) *Runtime {
	return &Runtime{Config: cfg, memCache: NewMemorySegmentCache()}
}

func (r *Runtime) storageClient(ctx context.Context) (*storage.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.storage == nil {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Storage client: %w", err)
		}
		r.storage = client
	}
	return r.storage, nil
}

func (r *Runtime) firestoreClient(ctx context.Context) (*firestore.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.firestore == nil {
		client, err := gcp.NewFirestoreClient(ctx, r.Config.GCP.ProjectID)
		if err != nil {
			return nil, err
		}
		r.firestore = client
	}
	return r.firestore, nil
}

func (r *Runtime) executionsClient(ctx context.Context) (*executions.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.executions == nil {
		client, err := executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
		r.executions = client
	}
	return r.executions, nil
}

// synthesizers returns nil when no synthesizer target is configured.
func (r *Runtime) synthesizers(ctx context.Context) (*gcp.Synthesizers, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.synthsDone {
		return r.synths, nil
	}
	cfg := r.Config
	if !cfg.SynthEnabled() {
		slog.Warn("No synthesizer target configured, running degraded.", "provider", cfg.Synth.Provider)
		r.synthsDone = true
		return nil, nil
	}
	synths, err := gcp.NewSynthesizers(ctx, gcp.SynthesizerSettings{
		Provider:        cfg.Synth.Provider,
		ProjectID:       cfg.GCP.ProjectID,
		Location:        cfg.GCP.Location,
		APIKey:          cfg.Synth.APIKey,
		ExtractorModel:  cfg.Synth.ExtractorModel,
		CompetencyModel: cfg.Synth.CompetencyModel,
	})
	if err != nil {
		return nil, err
	}
	r.synths, r.synthsDone = synths, true
	return synths, nil
}

// SynthTarget names what the synthesizers are bound to, or "" in degraded mode.
func (r *Runtime) SynthTarget() string {
	cfg := r.Config
	if !cfg.SynthEnabled() {
		return ""
	}
	if cfg.Synth.Provider == config.ProviderGeminiAPI {
		return config.ProviderGeminiAPI
	}
	return cfg.GCP.ProjectID
}

// Source reads gs:// URIs through the lazily created Storage client and everything else
// from the local file system.
func (r *Runtime) Source() SourceReader {
	return MultiSource{GCS: runtimeGCSSource{r}, Local: FileSource{}}
}

type runtimeGCSSource struct {
	r *Runtime
}

func (s runtimeGCSSource) Read(ctx context.Context, uri string) ([]byte, error) {
	client, err := s.r.storageClient(ctx)
	if err != nil {
		return nil, err
	}
	return gcp.ReadObject(ctx, client, uri)
}

func (r *Runtime) segmentCache(ctx context.Context) (SegmentCache, error) {
	if !r.PersistSegments {
		return r.memCache, nil
	}
	client, err := r.firestoreClient(ctx)
	if err != nil {
		return nil, err
	}
	return gcp.NewFirestoreSegmentCache(client, r.Config.Firestore.SegmentCollection), nil
}

// JobParser wires a parser from the configuration.
func (r *Runtime) JobParser(ctx context.Context) (*JobParser, error) {
	cfg := r.Config
	cache, err := r.segmentCache(ctx)
	if err != nil {
		return nil, err
	}
	synths, err := r.synthesizers(ctx)
	if err != nil {
		return nil, err
	}

	var (
		extractor = extractorOf(synths)
		snapshots SnapshotWriter
	)
	if cfg.Storage.SnapshotJobs && cfg.Storage.Bucket != "" {
		client, err := r.storageClient(ctx)
		if err != nil {
			return nil, err
		}
		snapshots = gcp.NewSnapshotStore(client, cfg.Storage.Bucket, cfg.Storage.SnapshotsPath)
	}

	return NewJobParser(r.Source(), cache, extractor, snapshots, JobParserConfig{
		SynthTarget:          r.SynthTarget(),
		ScannedTextThreshold: cfg.Extraction.ScannedTextThreshold,
		VisionDPI:            cfg.Extraction.VisionDPI,
	}), nil
}

// CompetencyGenerator wires a generator from the configuration.
func (r *Runtime) CompetencyGenerator(ctx context.Context) (*CompetencyGenerator, error) {
	synths, err := r.synthesizers(ctx)
	if err != nil {
		return nil, err
	}
	return NewCompetencyGenerator(competencyOf(synths), r.Source(), CompetencyGeneratorConfig{
		SynthTarget:  r.SynthTarget(),
		MaxAttempts:  r.Config.Synth.MaxAttempts,
		RulebookPath: r.Config.Extraction.RulebookPath,
	})
}

// DeckRenderer wires a renderer. Without a bucket every upload reports ErrBucketNotSet.
func (r *Runtime) DeckRenderer(ctx context.Context) (*DeckRenderer, error) {
	cfg := r.Config
	var store ArtifactStore
	if cfg.Storage.Bucket != "" {
		client, err := r.storageClient(ctx)
		if err != nil {
			return nil, err
		}
		store = gcp.NewGCSArtifactStore(client, gcp.GCSArtifactStoreConfig{
			Bucket:       cfg.Storage.Bucket,
			Prefix:       cfg.ObjectPrefix(),
			SignedURL:    cfg.Storage.SignedURL,
			SignedURLTTL: cfg.Storage.SignedURLTTL,
		})
	}
	return NewDeckRenderer(store, DeckRendererConfig{
		TemplatePath: cfg.Template.Path,
		LayoutName:   cfg.Template.LayoutName,
		Strict:       cfg.Template.Strict,
	}), nil
}

// DocumentIntake wires the upload handler. It needs a project for Firestore; the workflow
// hand-off is skipped when no workflow ID is configured.
func (r *Runtime) DocumentIntake(ctx context.Context) (*DocumentIntake, error) {
	cfg := r.Config
	if cfg.GCP.ProjectID == "" {
		return nil, errors.New("GOOGLE_CLOUD_PROJECT environment variable must be set")
	}
	fs, err := r.firestoreClient(ctx)
	if err != nil {
		return nil, err
	}
	cache, err := r.segmentCache(ctx)
	if err != nil {
		return nil, err
	}

	var workflow WorkflowTrigger
	if cfg.Workflow.ID != "" {
		client, err := r.executionsClient(ctx)
		if err != nil {
			return nil, err
		}
		workflow = gcp.NewWorkflowTrigger(client, cfg.GCP.ProjectID, cfg.Workflow.Location, cfg.Workflow.ID)
	} else {
		slog.Warn("WORKFLOW_ID not set, segmented documents will not be handed off.")
	}

	return NewDocumentIntake(r.Source(), gcp.NewFirestoreDocumentStore(fs, cfg.Firestore.Collection), cache, workflow), nil
}

// Pipeline wires all three steps.
func (r *Runtime) Pipeline(ctx context.Context) (*Pipeline, error) {
	parser, err := r.JobParser(ctx)
	if err != nil {
		return nil, err
	}
	generator, err := r.CompetencyGenerator(ctx)
	if err != nil {
		return nil, err
	}
	renderer, err := r.DeckRenderer(ctx)
	if err != nil {
		return nil, err
	}
	return &Pipeline{Parser: parser, Generator: generator, Renderer: renderer}, nil
}

// Close releases every client that was created.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	if r.synths != nil {
		errs = append(errs, r.synths.Close())
	}
	if r.storage != nil {
		errs = append(errs, r.storage.Close())
	}
	if r.firestore != nil {
		errs = append(errs, r.firestore.Close())
	}
	if r.executions != nil {
		errs = append(errs, r.executions.Close())
	}
	return errors.Join(errs...)
}

func extractorOf(s *gcp.Synthesizers) synth.Synthesizer {
	if s == nil {
		return nil
	}
	return s.Extractor
}

func competencyOf(s *gcp.Synthesizers) synth.Synthesizer {
	if s == nil {
		return nil
	}
	return s.Competency
}
