package handler

import (
	"net/http"
	"strings"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"convo/internal/usecase"
	"convo/pkg/config"
	apperrors "convo/pkg/errors"
	"convo/pkg/logger"

	ws "convo/internal/infrastructure/websocket"
)

// WebSocketHandler owns the connection handshake: transport upgrade, then
// authentication, then authorization against the chat's participant list.
// No frame is read from the client before both checks pass.
type WebSocketHandler struct {
	authUseCase *usecase.AuthUseCase
	chatUseCase *usecase.ChatUseCase
	registry    *ws.Registry
	tuning      ws.Tuning
	upgrader    gorillaws.Upgrader
}

func NewWebSocketHandler(authUseCase *usecase.AuthUseCase, chatUseCase *usecase.ChatUseCase, registry *ws.Registry, cfg *config.Config) *WebSocketHandler {
	return &WebSocketHandler{
		authUseCase: authUseCase,
		chatUseCase: chatUseCase,
		registry:    registry,
		tuning: ws.Tuning{
			SendQueueSize:  cfg.SendQueueSize,
			MaxMessageSize: cfg.MaxMessageSize,
			WriteWait:      cfg.WriteWait,
			PongWait:       cfg.PongWait,
		},
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // You should restrict this in production
			},
		},
	}
}

// HandleChatSocket serves GET /ws/chats/:id. The credential comes from the
// `token` query parameter or the Authorization header; it is validated before
// the receive loop starts and per-message payloads are never trusted for
// identity.
func (h *WebSocketHandler) HandleChatSocket(c echo.Context) error {
	chatID := c.Param("id")
	token := bearerToken(c)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return apperrors.Internal("Failed to upgrade connection", err)
	}

	ctx := c.Request().Context()

	user, err := h.authUseCase.Identify(ctx, token)
	if err != nil {
		reject(conn, ws.CloseUnauthorized, "unauthorized")
		return nil
	}

	chat, err := h.chatUseCase.Authorize(ctx, user.ID, chatID)
	if err != nil {
		switch {
		case apperrors.Is(err, "NOT_FOUND"):
			reject(conn, ws.CloseChatNotFound, "chat not found")
		case apperrors.Is(err, "FORBIDDEN"):
			reject(conn, ws.CloseForbidden, "forbidden")
		default:
			logger.Error("Authorization failed for chat %s: %v", chatID, err)
			reject(conn, gorillaws.CloseInternalServerErr, "server error")
		}
		return nil
	}

	client := ws.NewClient(conn, user.ID, chat.ID, h.tuning)
	session := ws.NewSession(client, user, chat, h.registry, h.chatUseCase)
	session.Run(ctx)

	return nil
}

func bearerToken(c echo.Context) string {
	if token := c.QueryParam("token"); token != "" {
		return token
	}
	authHeader := c.Request().Header.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

func reject(conn *gorillaws.Conn, code int, reason string) {
	deadline := time.Now().Add(5 * time.Second)
	msg := gorillaws.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(gorillaws.CloseMessage, msg, deadline); err != nil {
		logger.Debug("Failed to write rejection close frame: %v", err)
	}
	conn.Close()
}
