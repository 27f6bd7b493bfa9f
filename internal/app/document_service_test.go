package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"researchrag/internal/model"
)

// fakeDocumentStore keeps documents in memory, keyed like the real table.
type fakeDocumentStore struct {
	byID   map[uuid.UUID]*model.Document
	byHash map[string]*model.Document
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{
		byID:   make(map[uuid.UUID]*model.Document),
		byHash: make(map[string]*model.Document),
	}
}

func (f *fakeDocumentStore) Create(doc *model.Document) error {
	if _, exists := f.byHash[doc.FileHash]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	f.byID[doc.ID] = doc
	f.byHash[doc.FileHash] = doc
	return nil
}

func (f *fakeDocumentStore) GetByID(id uuid.UUID) (*model.Document, error) {
	return f.byID[id], nil
}

func (f *fakeDocumentStore) GetByIDWithChunks(id uuid.UUID) (*model.Document, error) {
	return f.byID[id], nil
}

func (f *fakeDocumentStore) GetByHash(fileHash string) (*model.Document, error) {
	return f.byHash[fileHash], nil
}

func (f *fakeDocumentStore) List(offset, limit int) ([]model.Document, error) {
	var docs []model.Document
	for _, doc := range f.byID {
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (f *fakeDocumentStore) Delete(id uuid.UUID) error {
	if doc, ok := f.byID[id]; ok {
		delete(f.byHash, doc.FileHash)
		delete(f.byID, id)
	}
	return nil
}

type fakeChunkReader struct {
	chunks map[uuid.UUID]*model.Chunk
}

func (f *fakeChunkReader) GetByIDAndDocumentID(id, documentID uuid.UUID) (*model.Chunk, error) {
	chunk, ok := f.chunks[id]
	if !ok || chunk.DocumentID != documentID {
		return nil, nil
	}
	return chunk, nil
}

type fakeIngestQueue struct {
	published []uuid.UUID
	err       error
}

func (f *fakeIngestQueue) Publish(_ context.Context, documentID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func newTestDocumentService(t *testing.T, store DocumentStore, queue IngestQueue) *DocumentService {
	t.Helper()
	return NewDocumentService(store, &fakeChunkReader{}, nil, queue, t.TempDir(), t.TempDir(), zap.NewNop())
}

func uploadInput(content string) UploadInput {
	return UploadInput{
		OriginalFilename: "paper.pdf",
		Reader:           bytes.NewReader([]byte(content)),
	}
}

func TestUpload_NewDocumentStoredAndEnqueued(t *testing.T) {
	store := newFakeDocumentStore()
	queue := &fakeIngestQueue{}
	svc := newTestDocumentService(t, store, queue)

	result, err := svc.Upload(context.Background(), uploadInput("%PDF-1.4 content"))
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.True(t, result.Enqueued)
	require.Len(t, queue.published, 1)
	assert.Equal(t, result.Document.ID, queue.published[0])

	info, err := os.Stat(result.Document.FilePath)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), result.Document.FileSize)
}

func TestUpload_IdenticalBytesResolveToOneDocument(t *testing.T) {
	store := newFakeDocumentStore()
	queue := &fakeIngestQueue{}
	svc := newTestDocumentService(t, store, queue)
	ctx := context.Background()

	first, err := svc.Upload(ctx, uploadInput("%PDF-1.4 same bytes"))
	require.NoError(t, err)

	second, err := svc.Upload(ctx, uploadInput("%PDF-1.4 same bytes"))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Document.ID, second.Document.ID)

	// Only the first stored file survives and no second job is queued.
	entries, err := os.ReadDir(svc.uploadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Len(t, queue.published, 1)
	assert.Len(t, store.byID, 1)
}

// racingStore models a concurrent upload of the same bytes: the hash
// pre-check misses, Create collides with the row the other upload inserted,
// and the retry lookup finds that row.
type racingStore struct {
	*fakeDocumentStore
	winner      *model.Document
	hashLookups int
}

func (r *racingStore) Create(*model.Document) error {
	return errors.New("duplicate key value violates unique constraint")
}

func (r *racingStore) GetByHash(string) (*model.Document, error) {
	r.hashLookups++
	if r.hashLookups == 1 {
		return nil, nil
	}
	return r.winner, nil
}

func TestUpload_RacingDuplicateFallsBackToWinner(t *testing.T) {
	winner := &model.Document{ID: uuid.New()}
	store := &racingStore{fakeDocumentStore: newFakeDocumentStore(), winner: winner}
	svc := newTestDocumentService(t, store, &fakeIngestQueue{})

	result, err := svc.Upload(context.Background(), uploadInput("%PDF-1.4 raced bytes"))
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, winner.ID, result.Document.ID)
	assert.Equal(t, 2, store.hashLookups)

	entries, err := os.ReadDir(svc.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "losing upload's file must be removed")
}

func TestUpload_MissingInputRejected(t *testing.T) {
	svc := newTestDocumentService(t, newFakeDocumentStore(), &fakeIngestQueue{})
	_, err := svc.Upload(context.Background(), UploadInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetChunk_ScopedToDocument(t *testing.T) {
	docID := uuid.New()
	chunk := &model.Chunk{ID: uuid.New(), DocumentID: docID}
	reader := &fakeChunkReader{chunks: map[uuid.UUID]*model.Chunk{chunk.ID: chunk}}
	svc := NewDocumentService(newFakeDocumentStore(), reader, nil, &fakeIngestQueue{}, t.TempDir(), t.TempDir(), zap.NewNop())

	got, err := svc.GetChunk(docID, chunk.ID)
	require.NoError(t, err)
	assert.Equal(t, chunk.ID, got.ID)

	_, err = svc.GetChunk(uuid.New(), chunk.ID)
	assert.ErrorIs(t, err, ErrChunkNotFound)
}
