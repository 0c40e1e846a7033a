package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragdesk/internal/model"
	"ragdesk/internal/transport/http/response"
)

type ChatAnswerer interface {
	AnswerWithCitations(ctx context.Context, utterance, sessionID string) (*model.ChatResponse, error)
}

type ChatHandler struct {
	chatService ChatAnswerer
}

func NewChatHandler(chatService ChatAnswerer) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Input == nil {
		response.Error(c, http.StatusUnprocessableEntity, "input: field required")
		return
	}

	sessionID := model.AnonymousSessionID
	if req.SessionID != nil {
		sessionID = *req.SessionID
	}

	result, err := h.chatService.AnswerWithCitations(c.Request.Context(), *req.Input, sessionID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.OK(c, result)
}
