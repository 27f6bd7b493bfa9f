package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"researchrag/internal/model"
)

// IngestQueue schedules background processing of an uploaded document.
type IngestQueue interface {
	Publish(ctx context.Context, documentID uuid.UUID) error
}

// DocumentStore is the document persistence contract; satisfied by
// repository.DocumentRepository.
type DocumentStore interface {
	Create(doc *model.Document) error
	GetByID(id uuid.UUID) (*model.Document, error)
	GetByIDWithChunks(id uuid.UUID) (*model.Document, error)
	GetByHash(fileHash string) (*model.Document, error)
	List(offset, limit int) ([]model.Document, error)
	Delete(id uuid.UUID) error
}

// ChunkReader resolves single chunks; satisfied by repository.ChunkRepository.
type ChunkReader interface {
	GetByIDAndDocumentID(id, documentID uuid.UUID) (*model.Chunk, error)
}

type DocumentService struct {
	docRepo   DocumentStore
	chunkRepo ChunkReader
	ingestion *IngestionService
	queue     IngestQueue
	uploadDir string
	imageDir  string
	log       *zap.Logger
}

func NewDocumentService(
	docRepo DocumentStore,
	chunkRepo ChunkReader,
	ingestion *IngestionService,
	queue IngestQueue,
	uploadDir, imageDir string,
	log *zap.Logger,
) *DocumentService {
	return &DocumentService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		ingestion: ingestion,
		queue:     queue,
		uploadDir: uploadDir,
		imageDir:  imageDir,
		log:       log,
	}
}

type UploadInput struct {
	OriginalFilename string
	Reader           io.Reader
	// Sync processes inline instead of enqueueing; used when no queue is
	// configured or the caller wants the result immediately.
	Sync bool
}

type UploadResult struct {
	Document  *model.Document `json:"document"`
	Duplicate bool            `json:"duplicate"`
	Enqueued  bool            `json:"enqueued"`
}

// Upload stores the PDF bytes under a fresh UUID filename, deduplicates by
// content hash, and schedules processing. Re-uploading identical bytes
// returns the existing document without writing a second copy.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if input.OriginalFilename == "" || input.Reader == nil {
		return nil, fmt.Errorf("%w: missing file", ErrInvalidInput)
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	id := uuid.New()
	filename := id.String() + ".pdf"
	path := filepath.Join(s.uploadDir, filename)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(dst, hasher), input.Reader)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("store upload: %w", err)
	}
	fileHash := hex.EncodeToString(hasher.Sum(nil))

	existing, err := s.docRepo.GetByHash(fileHash)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	if existing != nil {
		os.Remove(path)
		s.log.Info("duplicate upload",
			zap.String("document_id", existing.ID.String()),
			zap.String("filename", input.OriginalFilename))
		return &UploadResult{Document: existing, Duplicate: true}, nil
	}

	doc := &model.Document{
		ID:               id,
		Filename:         filename,
		OriginalFilename: input.OriginalFilename,
		FilePath:         path,
		FileSize:         size,
		FileHash:         fileHash,
	}
	if err := s.docRepo.Create(doc); err != nil {
		// A racing upload of the same bytes can win the unique index; fall
		// back to the row it created.
		if winner, hashErr := s.docRepo.GetByHash(fileHash); hashErr == nil && winner != nil {
			os.Remove(path)
			return &UploadResult{Document: winner, Duplicate: true}, nil
		}
		os.Remove(path)
		return nil, err
	}

	if input.Sync || s.queue == nil {
		processed, err := s.ingestion.ProcessDocument(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		return &UploadResult{Document: processed}, nil
	}

	if err := s.queue.Publish(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("enqueue ingestion: %w", err)
	}
	return &UploadResult{Document: doc, Enqueued: true}, nil
}

func (s *DocumentService) List(offset, limit int) ([]model.Document, error) {
	return s.docRepo.List(offset, limit)
}

func (s *DocumentService) GetWithChunks(id uuid.UUID) (*model.Document, error) {
	doc, err := s.docRepo.GetByIDWithChunks(id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return doc, nil
}

// Delete removes the document row, its stored PDF, and its extracted figure
// images. Chunk rows cascade at the database level.
func (s *DocumentService) Delete(id uuid.UUID) error {
	doc, err := s.docRepo.GetByID(id)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}

	if err := s.docRepo.Delete(id); err != nil {
		return err
	}

	if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
		s.log.Warn("remove uploaded file failed",
			zap.String("path", doc.FilePath), zap.Error(err))
	}
	images, _ := filepath.Glob(filepath.Join(s.imageDir, id.String()+"_fig_*"))
	for _, img := range images {
		if err := os.Remove(img); err != nil {
			s.log.Warn("remove figure image failed",
				zap.String("path", img), zap.Error(err))
		}
	}
	return nil
}

// GetChunk returns one chunk scoped to its owning document, so a chunk id
// from another document 404s instead of leaking.
func (s *DocumentService) GetChunk(documentID, chunkID uuid.UUID) (*model.Chunk, error) {
	chunk, err := s.chunkRepo.GetByIDAndDocumentID(chunkID, documentID)
	if err != nil {
		return nil, err
	}
	if chunk == nil {
		return nil, fmt.Errorf("%w: %s", ErrChunkNotFound, chunkID)
	}
	return chunk, nil
}

// Reprocess re-runs the full ingestion pipeline for an already-uploaded
// document, replacing its chunks.
func (s *DocumentService) Reprocess(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	return s.ingestion.ProcessDocument(ctx, id)
}
