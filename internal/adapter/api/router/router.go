package router

import (
	"github.com/labstack/echo/v4"

	"chatsync/internal/adapter/api/handler"
	"chatsync/internal/adapter/api/middleware"
)

func Setup(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	convHandler *handler.ConversationHandler,
	msgHandler *handler.MessageHandler,
	mediaHandler *handler.MediaHandler,
	wsHandler *handler.WebSocketHandler,
) {
	SetupConversationRouter(e, convHandler, msgHandler, authMiddleware)
	SetupMediaRouter(e, mediaHandler, authMiddleware)
	SetupWebSocketRouter(e, wsHandler)
	SetupHealthRouter(e)
}
