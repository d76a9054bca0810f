package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"convo/internal/domain/entity"
	ws "convo/internal/infrastructure/websocket"
	"convo/pkg/errors"
)

var (
	alice = &entity.User{ID: "alice", Email: "alice@example.com", Active: true}
	bob   = &entity.User{ID: "bob", Email: "bob@example.com", Active: true}
	carol = &entity.User{ID: "carol", Email: "carol@example.com", Active: true}
)

func newTestUseCase(t *testing.T, chats ...*entity.Chat) (*ChatUseCase, *fakeMessageRepo, *ws.Registry) {
	t.Helper()
	messageRepo := newFakeMessageRepo()
	registry := ws.NewRegistry()
	uc := NewChatUseCase(newFakeChatRepo(chats...), messageRepo, newFakeUserRepo(alice, bob, carol), registry, 2000)
	return uc, messageRepo, registry
}

func groupChat(id string, participants ...string) *entity.Chat {
	return &entity.Chat{ID: id, Name: "room", Type: entity.ChatTypeGroup, Participants: participants}
}

func registerPeer(registry *ws.Registry, userID, chatID string) *ws.Client {
	client := ws.NewClient(nil, userID, chatID, ws.Tuning{SendQueueSize: 8})
	registry.Register(chatID, client)
	return client
}

func decodeEvent(t *testing.T, payload []byte) ws.Event {
	t.Helper()
	var event ws.Event
	require.NoError(t, json.Unmarshal(payload, &event))
	return event
}

func TestIngestPersistsAndFansOutToOtherParticipants(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, messageRepo, registry := newTestUseCase(t, chat)

	sender := registerPeer(registry, "alice", "42")
	peer := registerPeer(registry, "bob", "42")

	ack := uc.Ingest(context.Background(), alice, chat, sender.ConnID, []byte(`{"content":"hi"}`))

	require.Equal(t, ws.AckStatusSent, ack.Status)
	assert.Equal(t, int64(1), ack.MessageID)
	assert.Equal(t, 1, messageRepo.appends)

	payload := <-peer.Receive()
	event := decodeEvent(t, payload)
	assert.Equal(t, ws.EventTypeMessage, event.Type)
	assert.Equal(t, "hi", event.Message.Content)
	assert.Equal(t, "alice", event.Message.SenderID)
	assert.Equal(t, "42", event.Message.ChatID)
	assert.Equal(t, int64(1), event.Message.ID)
	assert.False(t, event.Message.Timestamp.IsZero())
	assert.False(t, event.Message.IsRead)

	select {
	case <-sender.Receive():
		t.Fatal("sender must not receive its own fan-out")
	default:
	}
}

func TestIngestIgnoresClientSuppliedSenderAndTimestamp(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, _, registry := newTestUseCase(t, chat)
	peer := registerPeer(registry, "bob", "42")

	payload := []byte(`{"content":"hi","senderId":"mallory","sender_id":"mallory","timestamp":"1999-01-01T00:00:00Z","id":999}`)
	ack := uc.Ingest(context.Background(), alice, chat, "", payload)

	require.Equal(t, ws.AckStatusSent, ack.Status)
	assert.Equal(t, int64(1), ack.MessageID)

	event := decodeEvent(t, <-peer.Receive())
	assert.Equal(t, "alice", event.Message.SenderID)
	assert.Equal(t, int64(1), event.Message.ID)
	assert.NotEqual(t, 1999, event.Message.Timestamp.Year())
}

func TestIngestRejectsEmptyContent(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, messageRepo, _ := newTestUseCase(t, chat)

	for _, payload := range []string{`{"content":""}`, `{"content":"   "}`, `{}`} {
		ack := uc.Ingest(context.Background(), alice, chat, "", []byte(payload))
		assert.Equal(t, ws.AckStatusRejected, ack.Status, "payload %s", payload)
		assert.NotEmpty(t, ack.Reason)
	}
	assert.Zero(t, messageRepo.appends, "rejected events must not reach the store")
}

func TestIngestRejectsMalformedJSON(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, messageRepo, _ := newTestUseCase(t, chat)

	ack := uc.Ingest(context.Background(), alice, chat, "", []byte(`{"content":`))

	assert.Equal(t, ws.AckStatusRejected, ack.Status)
	assert.Zero(t, messageRepo.appends)
}

func TestIngestRejectsOversizedContent(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, messageRepo, _ := newTestUseCase(t, chat)

	long := make([]byte, 2001)
	for i := range long {
		long[i] = 'a'
	}
	payload, err := json.Marshal(map[string]string{"content": string(long)})
	require.NoError(t, err)

	ack := uc.Ingest(context.Background(), alice, chat, "", payload)

	assert.Equal(t, ws.AckStatusRejected, ack.Status)
	assert.Zero(t, messageRepo.appends)
}

func TestIngestRejectsUnknownMessageType(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, _, _ := newTestUseCase(t, chat)

	ack := uc.Ingest(context.Background(), alice, chat, "", []byte(`{"content":"hi","messageType":"video"}`))

	assert.Equal(t, ws.AckStatusRejected, ack.Status)
}

func TestIngestRejectsInvalidAttachmentURL(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, _, _ := newTestUseCase(t, chat)

	ack := uc.Ingest(context.Background(), alice, chat, "", []byte(`{"content":"hi","messageType":"image","attachmentUrl":"not a url"}`))

	assert.Equal(t, ws.AckStatusRejected, ack.Status)
}

func TestIngestRejectsCrossChatParent(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	other := groupChat("43", "alice", "carol")
	uc, _, _ := newTestUseCase(t, chat, other)

	// Seed message id 1 in the other chat only.
	ack := uc.Ingest(context.Background(), alice, other, "", []byte(`{"content":"root"}`))
	require.Equal(t, ws.AckStatusSent, ack.Status)

	ack = uc.Ingest(context.Background(), alice, chat, "", []byte(`{"content":"reply","parentMessageId":1}`))

	assert.Equal(t, ws.AckStatusRejected, ack.Status)
	assert.Contains(t, ack.Reason, "parent message")
}

func TestIngestAcceptsReplyToSameChatMessage(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, _, _ := newTestUseCase(t, chat)

	ack := uc.Ingest(context.Background(), alice, chat, "", []byte(`{"content":"root"}`))
	require.Equal(t, ws.AckStatusSent, ack.Status)

	ack = uc.Ingest(context.Background(), bob, chat, "", []byte(`{"content":"reply","parentMessageId":1}`))

	assert.Equal(t, ws.AckStatusSent, ack.Status)
	assert.Equal(t, int64(2), ack.MessageID)
}

func TestIngestRejectsReceiverOutsideChat(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, _, _ := newTestUseCase(t, chat)

	ack := uc.Ingest(context.Background(), alice, chat, "", []byte(`{"content":"psst","receiverId":"carol"}`))

	assert.Equal(t, ws.AckStatusRejected, ack.Status)
}

func TestIngestReportsStoreFailureWithoutClosingSession(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, messageRepo, registry := newTestUseCase(t, chat)
	peer := registerPeer(registry, "bob", "42")

	messageRepo.appendErr = errors.Store("Failed to append message", nil)
	ack := uc.Ingest(context.Background(), alice, chat, "", []byte(`{"content":"hi"}`))

	assert.Equal(t, ws.AckStatusError, ack.Status)
	assert.Empty(t, peer.Receive(), "nothing is fanned out on store failure")

	// The failure is transient: the next event on the same session succeeds.
	messageRepo.appendErr = nil
	ack = uc.Ingest(context.Background(), alice, chat, "", []byte(`{"content":"hi again"}`))
	assert.Equal(t, ws.AckStatusSent, ack.Status)
}

func TestSequentialAppendsAreMonotonicPerChat(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, _, registry := newTestUseCase(t, chat)
	peer := registerPeer(registry, "bob", "42")

	first := uc.Ingest(context.Background(), alice, chat, "", []byte(`{"content":"one"}`))
	second := uc.Ingest(context.Background(), alice, chat, "", []byte(`{"content":"two"}`))
	require.Equal(t, ws.AckStatusSent, first.Status)
	require.Equal(t, ws.AckStatusSent, second.Status)
	assert.Greater(t, second.MessageID, first.MessageID)

	one := decodeEvent(t, <-peer.Receive())
	two := decodeEvent(t, <-peer.Receive())
	assert.Equal(t, "one", one.Message.Content)
	assert.Equal(t, "two", two.Message.Content)
	assert.False(t, two.Message.Timestamp.Before(one.Message.Timestamp))
}

func TestSendMessageOverHTTPReachesLiveConnections(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, _, registry := newTestUseCase(t, chat)
	peer := registerPeer(registry, "bob", "42")

	message, err := uc.SendMessage(context.Background(), alice, "42", ws.InboundEvent{Content: "via rest"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), message.ID)

	event := decodeEvent(t, <-peer.Receive())
	assert.Equal(t, "via rest", event.Message.Content)
}

func TestSendMessageRequiresMembership(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, _, _ := newTestUseCase(t, chat)

	_, err := uc.SendMessage(context.Background(), carol, "42", ws.InboundEvent{Content: "hi"})

	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestAuthorize(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, _, _ := newTestUseCase(t, chat)

	resolved, err := uc.Authorize(context.Background(), "alice", "42")
	require.NoError(t, err)
	assert.Equal(t, "42", resolved.ID)

	_, err = uc.Authorize(context.Background(), "carol", "42")
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	_, err = uc.Authorize(context.Background(), "alice", "no-such-chat")
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestCreateChatInvariants(t *testing.T) {
	uc, _, _ := newTestUseCase(t)
	ctx := context.Background()

	_, err := uc.CreateChat(ctx, "alice", CreateChatInput{Name: "pair", Type: entity.ChatTypeDirect, ParticipantIDs: []string{"alice", "bob", "carol"}})
	assert.True(t, errors.Is(err, "BAD_REQUEST"), "direct chat must have exactly 2 participants")

	_, err = uc.CreateChat(ctx, "alice", CreateChatInput{Name: "pair", Type: entity.ChatTypeDirect, ParticipantIDs: []string{"bob", "carol"}})
	assert.True(t, errors.Is(err, "BAD_REQUEST"), "creator must be a participant")

	_, err = uc.CreateChat(ctx, "alice", CreateChatInput{Name: "pair", Type: entity.ChatTypeDirect, ParticipantIDs: []string{"alice", "ghost"}})
	assert.True(t, errors.Is(err, "NOT_FOUND"), "all participants must exist")

	chat, err := uc.CreateChat(ctx, "alice", CreateChatInput{Name: "pair", Type: entity.ChatTypeDirect, ParticipantIDs: []string{"alice", "bob", "alice"}})
	require.NoError(t, err, "duplicate ids collapse before the size check")
	assert.ElementsMatch(t, []string{"alice", "bob"}, chat.Participants)
	assert.NotEmpty(t, chat.ID)
}

func TestMarkChatRead(t *testing.T) {
	chat := groupChat("42", "alice", "bob")
	uc, _, _ := newTestUseCase(t, chat)
	ctx := context.Background()

	ack := uc.Ingest(ctx, alice, chat, "", []byte(`{"content":"for bob","receiverId":"bob"}`))
	require.Equal(t, ws.AckStatusSent, ack.Status)

	updated, err := uc.MarkChatRead(ctx, "bob", "42")
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	updated, err = uc.MarkChatRead(ctx, "bob", "42")
	require.NoError(t, err)
	assert.Zero(t, updated)

	_, err = uc.MarkChatRead(ctx, "carol", "42")
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}
