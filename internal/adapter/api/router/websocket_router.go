package router

import (
	"github.com/labstack/echo/v4"

	"convo/internal/adapter/api/handler"
)

// SetupWebSocketRouter sets up WebSocket routes.
// Auth runs inside the handler so rejections surface as WebSocket close codes.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/ws/chats/:id", wsHandler.HandleChatSocket)
}
