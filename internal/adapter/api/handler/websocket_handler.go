package handler

import (
	"context"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"chatsync/internal/adapter/api/middleware"
	ws "chatsync/internal/infrastructure/websocket"
	"chatsync/internal/usecase"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

type WebSocketHandler struct {
	wsManager      *ws.Manager
	syncUseCase    *usecase.SyncUseCase
	authMiddleware *middleware.AuthMiddleware
	feedWindow     int
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict to known origins in production
	},
}

func NewWebSocketHandler(wsManager *ws.Manager, syncUseCase *usecase.SyncUseCase, authMiddleware *middleware.AuthMiddleware, feedWindow int) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:      wsManager,
		syncUseCase:    syncUseCase,
		authMiddleware: authMiddleware,
		feedWindow:     feedWindow,
	}
}

// HandleFeed upgrades the connection and streams the caller's live
// feeds: the conversation list always, plus the message window of the
// conversation named in ?conversation=. Browsers cannot set headers on
// websocket upgrades, so the ID token arrives as ?token=.
func (h *WebSocketHandler) HandleFeed(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return errors.Unauthorized("token query parameter is required", nil)
	}

	userID, err := h.authMiddleware.GetUIDFromToken(c.Request().Context(), token)
	if err != nil {
		return errors.Unauthorized("invalid or expired token", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	convFeed, err := h.syncUseCase.ConversationFeed(ctx, userID)
	if err != nil {
		cancel()
		return errors.Internal("failed to open conversation feed", err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		cancel()
		return errors.Internal("failed to upgrade connection", err)
	}

	client := ws.NewClient(userID, conn, cancel)
	h.wsManager.Register <- client

	go func() {
		for batch := range convFeed {
			client.PushFrame(ws.Frame{Type: "conversations", Payload: batch})
		}
	}()

	if conversationID := c.QueryParam("conversation"); conversationID != "" {
		feed, err := h.syncUseCase.MessageFeed(ctx, userID, conversationID, h.feedWindow)
		if err != nil {
			logger.Warn("message feed unavailable for %s on %s: %v", userID, conversationID, err)
		} else {
			go func() {
				for batch := range feed {
					client.PushFrame(ws.Frame{Type: "messages", ConversationID: conversationID, Payload: batch})
				}
			}()
		}
	}

	go client.ReadPump(h.wsManager)
	go client.WritePump()

	return nil
}
