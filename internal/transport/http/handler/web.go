package handler

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed web/index.html
var chatPage []byte

type WebHandler struct{}

func NewWebHandler() *WebHandler {
	return &WebHandler{}
}

// Index serves the development chat page. It calls POST /chat from the browser.
func (h *WebHandler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", chatPage)
}
