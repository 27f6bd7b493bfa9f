package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"researchrag/internal/ai"
	"researchrag/internal/app"
)

func newChatTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	// Blank API key: SendMessage fails before touching any backend.
	chatService := app.NewChatService(nil, nil, nil, nil, nil,
		ai.NewOpenAICompatibleClient(), ai.ChatConfig{}, nil, 0, 0, zap.NewNop())
	h := NewChatHandler(chatService)

	router := gin.New()
	router.POST("/messages", h.SendMessage)
	return router
}

func TestSendMessage_MissingAPIKeyIsServerFault(t *testing.T) {
	router := newChatTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{"message": "hello"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "api key")
}

func TestSendMessage_InvalidPayloadIsClientFault(t *testing.T) {
	router := newChatTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
