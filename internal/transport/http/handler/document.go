package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"researchrag/internal/app"
	"researchrag/internal/pkg/pdfextract"
	"researchrag/internal/transport/http/response"
)

type DocumentHandler struct {
	documentService *app.DocumentService
	maxUploadBytes  int64
}

func NewDocumentHandler(documentService *app.DocumentService, maxUploadMB int) *DocumentHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &DocumentHandler{
		documentService: documentService,
		maxUploadBytes:  int64(maxUploadMB) << 20,
	}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file field")
		return
	}
	if !strings.EqualFold(filepath.Ext(fileHeader.Filename), ".pdf") {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "only pdf files are accepted")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeBadRequest, "file exceeds upload size limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "unreadable upload")
		return
	}
	defer file.Close()

	result, err := h.documentService.Upload(c.Request.Context(), app.UploadInput{
		OriginalFilename: fileHeader.Filename,
		Reader:           file,
		Sync:             c.Query("process") == "sync",
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, pdfextract.ErrExtraction):
			response.Error(c, http.StatusUnprocessableEntity, response.CodeUnprocessable, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "upload failed")
		}
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, response.APIResponse{Code: response.CodeOK, Message: "ok", Data: result})
}

func (h *DocumentHandler) List(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	docs, err := h.documentService.List(offset, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.documentService.GetWithChunks(id)
	if err != nil {
		h.renderError(c, err, "get document failed")
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) Chunks(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.documentService.GetWithChunks(id)
	if err != nil {
		h.renderError(c, err, "get document chunks failed")
		return
	}
	response.OK(c, gin.H{"document_id": doc.ID, "chunks": doc.Chunks})
}

func (h *DocumentHandler) GetChunk(c *gin.Context) {
	documentID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	chunkID, ok := parseUUIDParam(c, "chunk_id")
	if !ok {
		return
	}

	chunk, err := h.documentService.GetChunk(documentID, chunkID)
	if err != nil {
		h.renderError(c, err, "get chunk failed")
		return
	}
	response.OK(c, chunk)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.documentService.Delete(id); err != nil {
		h.renderError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted_document_id": id})
}

func (h *DocumentHandler) Process(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.documentService.Reprocess(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		case errors.Is(err, pdfextract.ErrExtraction):
			response.Error(c, http.StatusUnprocessableEntity, response.CodeUnprocessable, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "process document failed")
		}
		return
	}
	response.OK(c, doc)
}

func (h *DocumentHandler) renderError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrChunkNotFound):
		response.Error(c, http.StatusNotFound, response.CodeChunkNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

// parseUUIDParam reads a path parameter as a UUID, writing the error response
// itself on failure.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
