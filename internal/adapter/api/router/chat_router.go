package router

import (
	"github.com/labstack/echo/v4"

	"convo/internal/adapter/api/handler"
	"convo/internal/adapter/api/middleware"
)

// SetupChatRouter sets up all chat-related routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate) // All chat endpoints require authentication

	chatGroup.POST("", chatHandler.CreateChat)             // POST /v1/chats - Create new chat
	chatGroup.GET("", chatHandler.GetUserChats)            // GET /v1/chats - Get user's chats
	chatGroup.GET("/:id", chatHandler.GetChatByID)         // GET /v1/chats/:id - Get specific chat
	chatGroup.PUT("/:id/read", chatHandler.MarkChatAsRead) // PUT /v1/chats/:id/read - Mark chat as read

	chatGroup.POST("/:id/messages", chatHandler.SendMessage)    // POST /v1/chats/:id/messages - Send message
	chatGroup.GET("/:id/messages", chatHandler.GetChatMessages) // GET /v1/chats/:id/messages - Get chat messages
}
