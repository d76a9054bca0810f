package handler

import (
	"github.com/labstack/echo/v4"

	"convo/internal/domain/entity"
	ws "convo/internal/infrastructure/websocket"
	"convo/internal/usecase"
	"convo/pkg/response"
	"convo/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type createChatRequest struct {
	Name           string   `json:"name" validate:"required,max=100"`
	Type           string   `json:"type" validate:"required,oneof=direct group"`
	ParticipantIDs []string `json:"participant_ids" validate:"required,min=1"`
}

type sendMessageRequest struct {
	Content         string `json:"content" validate:"required"`
	MessageType     string `json:"messageType" validate:"omitempty,oneof=text image file"`
	AttachmentURL   string `json:"attachmentUrl" validate:"omitempty,url"`
	ParentMessageID int64  `json:"parentMessageId" validate:"omitempty,gt=0"`
	ReceiverID      string `json:"receiverId"`
}

// CreateChat creates a new chat; the caller must be in the participant list.
func (h *ChatHandler) CreateChat(c echo.Context) error {
	var req createChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.CreateChat(c.Request().Context(), userID, usecase.CreateChatInput{
		Name:           req.Name,
		Type:           req.Type,
		ParticipantIDs: req.ParticipantIDs,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, chat)
}

// GetUserChats lists the authenticated user's chats, most recent activity first.
func (h *ChatHandler) GetUserChats(c echo.Context) error {
	userID := c.Get("uid").(string)
	params := utils.GetPaginationParams(c)

	chats, total, err := h.chatUseCase.ListChats(c.Request().Context(), userID, params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, chats, total, params.Page, params.PageSize)
}

// GetChatByID fetches one chat; participants only.
func (h *ChatHandler) GetChatByID(c echo.Context) error {
	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.Authorize(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

// GetChatMessages returns message history ordered by id descending.
func (h *ChatHandler) GetChatMessages(c echo.Context) error {
	userID := c.Get("uid").(string)
	params := utils.GetPaginationParams(c)

	messages, total, err := h.chatUseCase.ListMessages(c.Request().Context(), userID, c.Param("id"), params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, messages, total, params.Page, params.PageSize)
}

// SendMessage is the HTTP send path; live connections on the chat receive the
// message through the same fan-out as WebSocket sends.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	user := c.Get("user").(*entity.User)

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), user, c.Param("id"), ws.InboundEvent{
		Content:         req.Content,
		MessageType:     req.MessageType,
		AttachmentURL:   req.AttachmentURL,
		ParentMessageID: req.ParentMessageID,
		ReceiverID:      req.ReceiverID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkChatAsRead flips the read flag on messages addressed to the caller.
func (h *ChatHandler) MarkChatAsRead(c echo.Context) error {
	userID := c.Get("uid").(string)

	updated, err := h.chatUseCase.MarkChatRead(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"updated": updated})
}
