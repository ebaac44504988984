package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/competencymatrix/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// IsNotFound reports whether err is a gRPC NotFound status.
func IsNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

type segmentCacheEntry struct {
	Segments  []models.JobSegment `firestore:"segments"`
	CreatedAt time.Time           `firestore:"createdAt"`
}

// FirestoreSegmentCache stores detected segments keyed by the SHA-256 of the source PDF.
type FirestoreSegmentCache struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreSegmentCache(client *firestore.Client, collection string) *FirestoreSegmentCache {
	return &FirestoreSegmentCache{client: client, collection: collection}
}

// Get returns the cached segments for hash; ok is false on a miss.
func (c *FirestoreSegmentCache) Get(ctx context.Context, hash string) ([]models.JobSegment, bool, error) {
	snap, err := c.client.Collection(c.collection).Doc(hash).Get(ctx)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read segment cache entry %s: %w", hash, err)
	}
	var entry segmentCacheEntry
	if err := snap.DataTo(&entry); err != nil {
		return nil, false, fmt.Errorf("failed to decode segment cache entry %s: %w", hash, err)
	}
	if entry.Segments == nil {
		entry.Segments = []models.JobSegment{}
	}
	return entry.Segments, true, nil
}

// Put overwrites the entry for hash.
func (c *FirestoreSegmentCache) Put(ctx context.Context, hash string, segments []models.JobSegment) error {
	entry := segmentCacheEntry{Segments: segments, CreatedAt: time.Now()}
	if _, err := c.client.Collection(c.collection).Doc(hash).Set(ctx, entry); err != nil {
		return fmt.Errorf("failed to write segment cache entry %s: %w", hash, err)
	}
	return nil
}

// FirestoreDocumentStore keeps one Document per uploaded PDF.
type FirestoreDocumentStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreDocumentStore(client *firestore.Client, collection string) *FirestoreDocumentStore {
	return &FirestoreDocumentStore{client: client, collection: collection}
}

// FindByHash returns the ID of a document with the same file hash, or "".
func (s *FirestoreDocumentStore) FindByHash(ctx context.Context, fileHash string) (string, error) {
	docs, err := s.client.Collection(s.collection).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return docs[0].Ref.ID, nil
	}
	return "", nil
}

func (s *FirestoreDocumentStore) Create(ctx context.Context, doc models.Document) (string, error) {
	ref, _, err := s.client.Collection(s.collection).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create master document: %w", err)
	}
	return ref.ID, nil
}

// Update applies field updates keyed by Firestore field path.
func (s *FirestoreDocumentStore) Update(ctx context.Context, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	if _, err := s.client.Collection(s.collection).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("failed to update document %s: %w", id, err)
	}
	return nil
}
