package usecase

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"convo/internal/domain/entity"
	"convo/internal/domain/repository"
	ws "convo/internal/infrastructure/websocket"
	"convo/pkg/errors"
	"convo/pkg/logger"
)

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	registry    *ws.Registry
	validate    *validator.Validate

	maxContentLength int

	// Per-chat locks serialize append+fan-out so recipients observe messages
	// in store-assigned id order. Cross-chat traffic is unaffected.
	chatLocks sync.Map // chatID -> *sync.Mutex
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	registry *ws.Registry,
	maxContentLength int,
) *ChatUseCase {
	if maxContentLength <= 0 {
		maxContentLength = 2000
	}
	return &ChatUseCase{
		chatRepo:         chatRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		registry:         registry,
		validate:         validator.New(),
		maxContentLength: maxContentLength,
	}
}

type CreateChatInput struct {
	Name           string   `validate:"required,max=100"`
	Type           string   `validate:"required,oneof=direct group"`
	ParticipantIDs []string `validate:"required,min=1"`
}

// CreateChat creates a chat after checking the participant invariants: the
// creator is a participant, a direct chat has exactly two participants, and
// every participant id resolves to an existing user.
func (uc *ChatUseCase) CreateChat(ctx context.Context, creatorID string, input CreateChatInput) (*entity.Chat, error) {
	if err := uc.validate.Struct(input); err != nil {
		return nil, err
	}

	participants := dedupe(input.ParticipantIDs)

	creatorIncluded := false
	for _, id := range participants {
		if id == creatorID {
			creatorIncluded = true
			break
		}
	}
	if !creatorIncluded {
		return nil, errors.BadRequest("Creator must be a chat participant", nil)
	}

	if input.Type == entity.ChatTypeDirect && len(participants) != 2 {
		return nil, errors.BadRequest("Direct chat requires exactly 2 participants", nil)
	}

	for _, id := range participants {
		if _, err := uc.userRepo.GetByID(ctx, id); err != nil {
			if errors.Is(err, "NOT_FOUND") {
				return nil, errors.NotFound(fmt.Sprintf("User %s", id), err)
			}
			return nil, err
		}
	}

	chat := &entity.Chat{
		Name:         input.Name,
		Type:         input.Type,
		Participants: participants,
	}
	if err := uc.chatRepo.Create(ctx, chat); err != nil {
		return nil, err
	}

	return chat, nil
}

// Authorize resolves the chat and checks membership. Every connection attempt
// and every chat-scoped request goes through here; there is no bypass.
func (uc *ChatUseCase) Authorize(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("Not a chat participant", nil)
	}
	return chat, nil
}

func (uc *ChatUseCase) ListChats(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	return uc.chatRepo.ListByUserID(ctx, userID, limit, offset)
}

func (uc *ChatUseCase) ListMessages(ctx context.Context, userID, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	if _, err := uc.Authorize(ctx, userID, chatID); err != nil {
		return nil, 0, err
	}
	return uc.messageRepo.ListByChat(ctx, chatID, limit, offset)
}

func (uc *ChatUseCase) MarkChatRead(ctx context.Context, userID, chatID string) (int, error) {
	if _, err := uc.Authorize(ctx, userID, chatID); err != nil {
		return 0, err
	}
	return uc.messageRepo.MarkRead(ctx, chatID, userID)
}

// SendMessage is the HTTP send path. It shares the validation, persistence,
// and fan-out core with the WebSocket ingestion path.
func (uc *ChatUseCase) SendMessage(ctx context.Context, sender *entity.User, chatID string, event ws.InboundEvent) (*entity.Message, error) {
	chat, err := uc.Authorize(ctx, sender.ID, chatID)
	if err != nil {
		return nil, err
	}
	return uc.appendAndFanOut(ctx, sender, chat, event, "")
}

// Ingest implements websocket.Ingestor. The sender identity comes from the
// session, never from the payload; unknown JSON fields (senderId, timestamp)
// are discarded by the decoder.
func (uc *ChatUseCase) Ingest(ctx context.Context, sender *entity.User, chat *entity.Chat, connID string, payload []byte) ws.Ack {
	var event ws.InboundEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return ws.Ack{Status: ws.AckStatusRejected, Reason: "malformed event"}
	}

	message, err := uc.appendAndFanOut(ctx, sender, chat, event, connID)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			switch appErr.Code {
			case "VALIDATION_ERROR", "BAD_REQUEST":
				return ws.Ack{Status: ws.AckStatusRejected, Reason: appErr.Message}
			case "STORE_ERROR":
				return ws.Ack{Status: ws.AckStatusError, Reason: "temporary storage failure, please retry"}
			}
		}
		logger.Error("Ingestion failed for chat %s: %v", chat.ID, err)
		return ws.Ack{Status: ws.AckStatusError, Reason: "internal error"}
	}

	return ws.Ack{Status: ws.AckStatusSent, MessageID: message.ID}
}

func (uc *ChatUseCase) appendAndFanOut(ctx context.Context, sender *entity.User, chat *entity.Chat, event ws.InboundEvent, excludeConnID string) (*entity.Message, error) {
	if event.MessageType == "" {
		event.MessageType = entity.MessageTypeText
	}

	if err := uc.validate.Struct(event); err != nil {
		return nil, errors.Validation(validationReason(err))
	}

	content := strings.TrimSpace(event.Content)
	if content == "" {
		return nil, errors.Validation("content must not be empty")
	}
	if utf8.RuneCountInString(content) > uc.maxContentLength {
		return nil, errors.Validation(fmt.Sprintf("content exceeds %d characters", uc.maxContentLength))
	}

	if event.ParentMessageID > 0 {
		if _, err := uc.messageRepo.GetByID(ctx, chat.ID, event.ParentMessageID); err != nil {
			if errors.Is(err, "NOT_FOUND") {
				return nil, errors.Validation("parent message not found in this chat")
			}
			return nil, err
		}
	}

	if event.ReceiverID != "" && !chat.HasParticipant(event.ReceiverID) {
		return nil, errors.Validation("receiver is not a chat participant")
	}

	message := &entity.Message{
		ChatID:          chat.ID,
		SenderID:        sender.ID,
		ReceiverID:      event.ReceiverID,
		Content:         content,
		Type:            event.MessageType,
		AttachmentURL:   event.AttachmentURL,
		ParentMessageID: event.ParentMessageID,
		IsRead:          false,
	}

	lock := uc.chatLock(chat.ID)
	lock.Lock()
	defer lock.Unlock()

	persisted, err := uc.messageRepo.Append(ctx, message)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(ws.Event{Type: ws.EventTypeMessage, Message: persisted})
	if err != nil {
		logger.Error("Failed to marshal fan-out event for chat %s: %v", chat.ID, err)
		return persisted, nil
	}
	uc.registry.FanOut(chat.ID, payload, excludeConnID)

	return persisted, nil
}

func (uc *ChatUseCase) chatLock(chatID string) *sync.Mutex {
	v, _ := uc.chatLocks.LoadOrStore(chatID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

func validationReason(err error) string {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		field := strings.ToLower(verrs[0].Field())
		switch verrs[0].Tag() {
		case "oneof":
			return field + " must be one of: " + verrs[0].Param()
		case "url":
			return field + " must be a valid URL"
		case "gt":
			return field + " must be greater than " + verrs[0].Param()
		}
		return field + " is invalid"
	}
	return "invalid event"
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
