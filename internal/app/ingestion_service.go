package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"researchrag/internal/ai"
	"researchrag/internal/model"
	"researchrag/internal/pkg/pdfextract"
	"researchrag/internal/pkg/textchunk"
	"researchrag/internal/repository"
)

// chunkDraft is an extracted unit before it gets an embedding and an ID.
type chunkDraft struct {
	content   string
	mediaType string
	page      *int
	bbox      *pdfextract.BBox
	metadata  map[string]any
}

// IngestionService runs the extract-chunk-embed-store pipeline for one
// document. Processing is idempotent: each run replaces the document's chunk
// set wholesale.
type IngestionService struct {
	docRepo   *repository.DocumentRepository
	chunkRepo *repository.ChunkRepository
	embedder  *ai.EmbeddingService
	chunker   *textchunk.Chunker
	imageDir  string
	urlPrefix string
	log       *zap.Logger

	locks sync.Map // documentID -> *sync.Mutex
}

func NewIngestionService(
	docRepo *repository.DocumentRepository,
	chunkRepo *repository.ChunkRepository,
	embedder *ai.EmbeddingService,
	chunker *textchunk.Chunker,
	imageDir string,
	log *zap.Logger,
) *IngestionService {
	return &IngestionService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		embedder:  embedder,
		chunker:   chunker,
		imageDir:  imageDir,
		urlPrefix: "/static/images",
		log:       log,
	}
}

func (s *IngestionService) lockFor(documentID uuid.UUID) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(documentID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// ProcessDocument extracts, chunks, embeds, and stores one document. Runs for
// the same document are serialized; concurrent runs for different documents
// proceed in parallel.
func (s *IngestionService) ProcessDocument(ctx context.Context, documentID uuid.UUID) (*model.Document, error) {
	lock := s.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.docRepo.GetByID(documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
	}

	started := time.Now()
	s.log.Info("processing document",
		zap.String("document_id", documentID.String()),
		zap.String("filename", doc.OriginalFilename))

	// Re-processing replaces everything from the previous run.
	if err := s.chunkRepo.DeleteByDocumentID(documentID); err != nil {
		return nil, err
	}

	result, err := pdfextract.Extract(doc.FilePath, doc.ID.String(), s.imageDir, s.urlPrefix)
	if err != nil {
		s.log.Error("extraction failed",
			zap.String("document_id", documentID.String()),
			zap.Error(err))
		return nil, err
	}

	drafts := s.assembleDrafts(result)
	if len(drafts) == 0 {
		s.log.Warn("document produced no chunks",
			zap.String("document_id", documentID.String()))
	}

	contents := make([]string, len(drafts))
	for i, d := range drafts {
		contents[i] = d.content
	}
	vectors := s.embedder.EmbedBatch(ctx, contents)

	now := time.Now()
	chunks := make([]model.Chunk, len(drafts))
	for i, d := range drafts {
		chunks[i] = model.Chunk{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			Content:    d.content,
			Vector:     pgvector.NewVector(vectors[i]),
			MediaType:  d.mediaType,
			PageNumber: d.page,
			ChunkIndex: i,
			Metadata:   encodeMetadata(d.metadata),
		}
		if d.bbox != nil {
			chunks[i].BBox = encodeMetadata(map[string]any{
				"x1": d.bbox.X1, "y1": d.bbox.Y1,
				"x2": d.bbox.X2, "y2": d.bbox.Y2,
			})
		}
	}
	docMeta := encodeMetadata(map[string]any{
		"source":       doc.OriginalFilename,
		"table_count":  len(result.Tables),
		"figure_count": len(result.Figures),
		"processed_at": now.UTC().Format(time.RFC3339),
	})
	if err := s.docRepo.CommitProcessed(doc.ID, chunks, result.PageCount, docMeta, now); err != nil {
		return nil, err
	}

	s.log.Info("document processed",
		zap.String("document_id", documentID.String()),
		zap.Int("pages", result.PageCount),
		zap.Int("chunks", len(chunks)),
		zap.Duration("elapsed", time.Since(started)))

	doc.PageCount = &result.PageCount
	doc.Processed = &now
	doc.Metadata = docMeta
	return doc, nil
}

// assembleDrafts orders chunk candidates as prose pieces, then tables, then
// figures, matching the chunk_index ordering readers see.
func (s *IngestionService) assembleDrafts(result *pdfextract.Result) []chunkDraft {
	var drafts []chunkDraft

	for _, piece := range s.chunker.Chunk(result.Prose) {
		drafts = append(drafts, chunkDraft{
			content:   piece.Content,
			mediaType: model.MediaTypeText,
			metadata:  map[string]any{"char_start": piece.CharStart},
		})
	}

	for i, table := range result.Tables {
		page := table.Page
		drafts = append(drafts, chunkDraft{
			content:   table.Markdown,
			mediaType: model.MediaTypeTable,
			page:      &page,
			metadata:  map[string]any{"table_index": i},
		})
	}

	for i, fig := range result.Figures {
		meta := map[string]any{
			"figure_index": i,
			"image_url":    fig.URL,
		}
		if fig.Caption != nil {
			meta["caption"] = *fig.Caption
		}
		drafts = append(drafts, chunkDraft{
			content:   describeFigure(fig, i),
			mediaType: model.MediaTypeImage,
			page:      fig.Page,
			bbox:      fig.BBox,
			metadata:  meta,
		})
	}

	return drafts
}

// describeFigure produces the text stand-in that gets embedded for an image
// chunk, so figures are findable by semantic search.
func describeFigure(fig pdfextract.Figure, index int) string {
	page := "an unknown page"
	if fig.Page != nil {
		page = fmt.Sprintf("page %d", *fig.Page)
	}
	if fig.Caption != nil && *fig.Caption != "" {
		return fmt.Sprintf("[Figure %d on %s]: %s", index+1, page, *fig.Caption)
	}
	return fmt.Sprintf("[Figure %d: image, diagram, or chart on %s without a detected caption]", index+1, page)
}
