package router

import (
	"github.com/labstack/echo/v4"

	"chatsync/internal/adapter/api/handler"
	"chatsync/internal/adapter/api/middleware"
)

func SetupMediaRouter(e *echo.Echo, mediaHandler *handler.MediaHandler, authMiddleware *middleware.AuthMiddleware) {
	group := e.Group("/v1/media")
	group.Use(authMiddleware.Authenticate)

	group.POST("", mediaHandler.Upload) // POST /v1/media
}
