package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/Lllllllleong/competencymatrix/internal/gcp"
	"github.com/Lllllllleong/competencymatrix/internal/models"
)

// SourceReader loads a source document by URI.
type SourceReader interface {
	Read(ctx context.Context, uri string) ([]byte, error)
}

// SegmentCache remembers segment lists per source-document hash. Entries are advisory:
// a miss or a failing cache only costs a rescan.
type SegmentCache interface {
	Get(ctx context.Context, hash string) ([]models.JobSegment, bool, error)
	Put(ctx context.Context, hash string, segments []models.JobSegment) error
}

// ArtifactStore publishes rendered decks.
type ArtifactStore interface {
	Bucket() string
	ObjectName(filename string) string
	Upload(ctx context.Context, filename string, data []byte, contentType string) (*gcp.UploadInfo, error)
}

// SnapshotWriter persists write-once JSON snapshots.
type SnapshotWriter interface {
	Save(ctx context.Context, name, content string) error
}

// DocumentStore tracks uploaded documents and their segmentation status.
type DocumentStore interface {
	FindByHash(ctx context.Context, fileHash string) (string, error)
	Create(ctx context.Context, doc models.Document) (string, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

// WorkflowTrigger starts the orchestration workflow for a segmented document.
type WorkflowTrigger interface {
	Trigger(ctx context.Context, payload any) (string, error)
}

// FileSource reads local paths, with or without a file:// scheme.
type FileSource struct{}

func (FileSource) Read(_ context.Context, uri string) ([]byte, error) {
	path := strings.TrimPrefix(uri, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// MultiSource dispatches gs:// URIs to GCS and everything else to the local file system.
type MultiSource struct {
	GCS   SourceReader
	Local SourceReader
}

func (m MultiSource) Read(ctx context.Context, uri string) ([]byte, error) {
	if strings.HasPrefix(uri, "gs://") {
		if m.GCS == nil {
			return nil, fmt.Errorf("no GCS reader configured for %s", uri)
		}
		return m.GCS.Read(ctx, uri)
	}
	local := m.Local
	if local == nil {
		local = FileSource{}
	}
	return local.Read(ctx, uri)
}

// MemorySegmentCache is a process-local SegmentCache.
type MemorySegmentCache struct {
	mu      sync.RWMutex
	entries map[string][]models.JobSegment
}

func NewMemorySegmentCache() *MemorySegmentCache {
	return &MemorySegmentCache{entries: make(map[string][]models.JobSegment)}
}

func (c *MemorySegmentCache) Get(_ context.Context, hash string) ([]models.JobSegment, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	segs, ok := c.entries[hash]
	if !ok {
		return nil, false, nil
	}
	return append([]models.JobSegment{}, segs...), true, nil
}

func (c *MemorySegmentCache) Put(_ context.Context, hash string, segments []models.JobSegment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = append([]models.JobSegment{}, segments...)
	return nil
}
