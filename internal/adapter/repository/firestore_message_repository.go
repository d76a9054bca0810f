package repository

import (
	"context"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"convo/internal/domain/entity"
	"convo/internal/domain/repository"
	"convo/pkg/errors"
	"convo/pkg/logger"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

// Append runs a transaction over the chat document so that the id sequence
// and the timestamp clamp are atomic with the message write. The transaction
// either commits completely or leaves the log untouched.
func (r *firestoreMessageRepository) Append(ctx context.Context, message *entity.Message) (*entity.Message, error) {
	chatRef := r.client.Collection("chats").Doc(message.ChatID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(chatRef)
		if err != nil {
			return err
		}

		var chat entity.Chat
		if err := snap.DataTo(&chat); err != nil {
			return err
		}

		message.ID = chat.MessageSeq + 1
		message.Timestamp = time.Now().UTC()
		if message.Timestamp.Before(chat.LastMessageAt) {
			message.Timestamp = chat.LastMessageAt
		}

		msgRef := chatRef.Collection("messages").Doc(strconv.FormatInt(message.ID, 10))
		if err := tx.Set(msgRef, message); err != nil {
			return err
		}

		return tx.Update(chatRef, []firestore.Update{
			{Path: "messageSeq", Value: message.ID},
			{Path: "lastMessage", Value: message.Content},
			{Path: "lastMessageAt", Value: message.Timestamp},
			{Path: "updatedAt", Value: message.Timestamp},
		})
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		logger.Error("Firestore error while appending message to chat %s: %v", message.ChatID, err)
		return nil, errors.Store("Failed to append message", err)
	}

	return message, nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, chatID string, id int64) (*entity.Message, error) {
	doc, err := r.client.Collection("chats").Doc(chatID).
		Collection("messages").Doc(strconv.FormatInt(id, 10)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return &message, nil
}

func (r *firestoreMessageRepository) ListByChat(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.client.Collection("chats").Doc(chatID).
		Collection("messages").OrderBy("id", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while counting messages for chat %s: %v", chatID, err)
		return nil, 0, errors.Internal("Failed to count messages", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	var messages []*entity.Message

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for chat %s: %v", chatID, err)
			return nil, 0, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Error("Error parsing message data for chat %s: %v", chatID, err)
			continue
		}
		messages = append(messages, &message)
	}

	return messages, total, nil
}

func (r *firestoreMessageRepository) MarkRead(ctx context.Context, chatID, userID string) (int, error) {
	iter := r.client.Collection("chats").Doc(chatID).
		Collection("messages").
		Where("receiverId", "==", userID).
		Where("isRead", "==", false).
		Documents(ctx)

	updated := 0
	batch := r.client.Batch()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, errors.Internal("Failed to query unread messages", err)
		}

		batch.Update(doc.Ref, []firestore.Update{{Path: "isRead", Value: true}})
		updated++
	}

	if updated == 0 {
		return 0, nil
	}

	if _, err := batch.Commit(ctx); err != nil {
		return 0, errors.Store("Failed to mark messages as read", err)
	}

	return updated, nil
}
