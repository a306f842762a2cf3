package router

import (
	"github.com/labstack/echo/v4"

	"chatsync/internal/adapter/api/handler"
	"chatsync/internal/adapter/api/middleware"
)

func SetupConversationRouter(e *echo.Echo, convHandler *handler.ConversationHandler, msgHandler *handler.MessageHandler, authMiddleware *middleware.AuthMiddleware) {
	group := e.Group("/v1/conversations")
	group.Use(authMiddleware.Authenticate)

	// Conversation lifecycle
	group.POST("/direct", convHandler.CreateDirect) // POST /v1/conversations/direct
	group.POST("/group", convHandler.CreateGroup)   // POST /v1/conversations/group
	group.GET("/direct/:userId", convHandler.FindDirect) // GET /v1/conversations/direct/:userId
	group.GET("", convHandler.List)                 // GET  /v1/conversations
	group.GET("/:id", convHandler.Get)              // GET  /v1/conversations/:id
	group.PATCH("/:id", convHandler.UpdateMetadata) // PATCH /v1/conversations/:id
	group.DELETE("/:id", convHandler.Delete)        // DELETE /v1/conversations/:id

	// Membership
	group.POST("/:id/members", convHandler.AddMembers)             // POST /v1/conversations/:id/members
	group.DELETE("/:id/members/:userId", convHandler.RemoveMember) // DELETE /v1/conversations/:id/members/:userId
	group.POST("/:id/leave", convHandler.Leave)                    // POST /v1/conversations/:id/leave
	group.POST("/:id/admins", convHandler.PromoteAdmin)            // POST /v1/conversations/:id/admins

	// Per-member flags
	group.PUT("/:id/flags", convHandler.SetFlags) // PUT /v1/conversations/:id/flags

	// Messages
	group.POST("/:id/messages", msgHandler.Send)                  // POST /v1/conversations/:id/messages
	group.GET("/:id/messages", msgHandler.GetPage)                // GET  /v1/conversations/:id/messages
	group.PUT("/:id/messages/read", msgHandler.MarkRead)          // PUT  /v1/conversations/:id/messages/read
	group.PUT("/:id/messages/delivered", msgHandler.MarkDelivered)// PUT  /v1/conversations/:id/messages/delivered
	group.PUT("/:id/messages/:messageId", msgHandler.Edit)        // PUT  /v1/conversations/:id/messages/:messageId
	group.DELETE("/:id/messages/:messageId", msgHandler.Delete)   // DELETE /v1/conversations/:id/messages/:messageId

	// Reactions
	group.PUT("/:id/messages/:messageId/reactions", msgHandler.AddReaction)       // PUT /v1/conversations/:id/messages/:messageId/reactions
	group.DELETE("/:id/messages/:messageId/reactions", msgHandler.RemoveReaction) // DELETE /v1/conversations/:id/messages/:messageId/reactions
}
