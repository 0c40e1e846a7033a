package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ragdesk/internal/bootstrap"
	"ragdesk/internal/transport/http/handler"
	"ragdesk/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(
		middleware.RequestLogger(app.Logger),
		middleware.Recovery(app.Logger),
		middleware.CORS(),
	)

	healthHandler := handler.NewHealthHandler()
	chatHandler := handler.NewChatHandler(app.Chat)
	webHandler := handler.NewWebHandler()

	router.GET("/", webHandler.Index)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/chat", middleware.APIKey(app.Config.Auth.APIKey), chatHandler.Chat)

	return router
}
