package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"researchrag/internal/app"
	"researchrag/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type CreateSessionRequest struct {
	Title       *string  `json:"title" binding:"omitempty,max=255"`
	DocumentIDs []string `json:"document_ids"`
}

type SendMessageRequest struct {
	SessionID         string   `json:"session_id"`
	Message           string   `json:"message" binding:"required"`
	AttachDocumentIDs []string `json:"attach_document_ids"`
	FilterDocumentID  *string  `json:"filter_document_id"`
	TopK              int      `json:"top_k" binding:"omitempty,gte=1,lte=50"`
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	docIDs, err := parseUUIDs(req.DocumentIDs)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	session, err := h.chatService.CreateSession(app.CreateSessionInput{
		Title:       req.Title,
		DocumentIDs: docIDs,
	})
	if err != nil {
		h.renderError(c, err, "create session failed")
		return
	}
	response.OK(c, session)
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	sessions, err := h.chatService.ListSessions(offset, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list sessions failed")
		return
	}
	response.OK(c, sessions)
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	session, err := h.chatService.GetSession(id)
	if err != nil {
		h.renderError(c, err, "get session failed")
		return
	}
	response.OK(c, session)
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.chatService.DeleteSession(c.Request.Context(), id); err != nil {
		h.renderError(c, err, "delete session failed")
		return
	}
	response.OK(c, gin.H{"deleted_session_id": id})
}

func (h *ChatHandler) AttachDocument(c *gin.Context) {
	sessionID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	documentID, ok := parseUUIDParam(c, "document_id")
	if !ok {
		return
	}

	session, err := h.chatService.AttachDocument(sessionID, documentID)
	if err != nil {
		h.renderError(c, err, "attach document failed")
		return
	}
	response.OK(c, session)
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	input := app.SendMessageInput{Message: req.Message, TopK: req.TopK}

	if req.SessionID != "" {
		id, err := uuid.Parse(req.SessionID)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid session_id")
			return
		}
		input.SessionID = id
	}
	attach, err := parseUUIDs(req.AttachDocumentIDs)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid attach_document_ids")
		return
	}
	input.AttachDocumentIDs = attach
	if req.FilterDocumentID != nil {
		id, err := uuid.Parse(*req.FilterDocumentID)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid filter_document_id")
			return
		}
		input.FilterDocumentID = &id
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), input)
	if err != nil {
		h.renderError(c, err, "send message failed")
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	session, err := h.chatService.GetSession(id)
	if err != nil {
		h.renderError(c, err, "get history failed")
		return
	}
	response.OK(c, gin.H{"session_id": session.ID, "messages": session.Messages})
}

func (h *ChatHandler) GetChunk(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.chatService.GetChunk(id)
	if err != nil {
		h.renderError(c, err, "get chunk failed")
		return
	}
	response.OK(c, detail)
}

func (h *ChatHandler) renderError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	// A missing generation key is our misconfiguration, not the client's.
	case errors.Is(err, app.ErrLLMConfig):
		response.Error(c, http.StatusServiceUnavailable, response.CodeInternalServer, err.Error())
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, err.Error())
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	case errors.Is(err, app.ErrChunkNotFound):
		response.Error(c, http.StatusNotFound, response.CodeChunkNotFound, err.Error())
	case errors.Is(err, app.ErrRetrieval), errors.Is(err, app.ErrGeneration):
		response.Error(c, http.StatusBadGateway, response.CodeInternalServer, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
