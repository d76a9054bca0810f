package usecase

import (
	"context"
	"sync"
	"time"

	"convo/internal/domain/entity"
	"convo/pkg/errors"
)

type fakeUserRepo struct {
	users map[string]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]*entity.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.users[user.ID] = user
	return nil
}

type fakeChatRepo struct {
	mu    sync.Mutex
	chats map[string]*entity.Chat
}

func newFakeChatRepo(chats ...*entity.Chat) *fakeChatRepo {
	repo := &fakeChatRepo{chats: make(map[string]*entity.Chat)}
	for _, c := range chats {
		repo.chats[c.ID] = c
	}
	return repo
}

func (r *fakeChatRepo) Create(_ context.Context, chat *entity.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat.ID == "" {
		chat.ID = "chat-" + time.Now().Format("150405.000000000")
	}
	chat.CreatedAt = time.Now()
	r.chats[chat.ID] = chat
	return nil
}

func (r *fakeChatRepo) GetByID(_ context.Context, id string) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return chat, nil
}

func (r *fakeChatRepo) ListByUserID(_ context.Context, userID string, _, _ int) ([]*entity.Chat, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var chats []*entity.Chat
	for _, chat := range r.chats {
		if chat.HasParticipant(userID) {
			chats = append(chats, chat)
		}
	}
	return chats, int64(len(chats)), nil
}

// fakeMessageRepo honors the Message Store contract: per-chat monotonically
// increasing ids and non-decreasing timestamps.
type fakeMessageRepo struct {
	mu        sync.Mutex
	seq       map[string]int64
	lastStamp map[string]time.Time
	messages  map[string]map[int64]*entity.Message
	appendErr error
	appends   int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		seq:       make(map[string]int64),
		lastStamp: make(map[string]time.Time),
		messages:  make(map[string]map[int64]*entity.Message),
	}
}

func (r *fakeMessageRepo) Append(_ context.Context, message *entity.Message) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appends++

	if r.appendErr != nil {
		return nil, r.appendErr
	}

	r.seq[message.ChatID]++
	message.ID = r.seq[message.ChatID]
	message.Timestamp = time.Now().UTC()
	if message.Timestamp.Before(r.lastStamp[message.ChatID]) {
		message.Timestamp = r.lastStamp[message.ChatID]
	}
	r.lastStamp[message.ChatID] = message.Timestamp

	if r.messages[message.ChatID] == nil {
		r.messages[message.ChatID] = make(map[int64]*entity.Message)
	}
	stored := *message
	r.messages[message.ChatID][message.ID] = &stored

	return message, nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, chatID string, id int64) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	message, ok := r.messages[chatID][id]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return message, nil
}

func (r *fakeMessageRepo) ListByChat(_ context.Context, chatID string, _, _ int) ([]*entity.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var messages []*entity.Message
	for id := r.seq[chatID]; id >= 1; id-- {
		if m, ok := r.messages[chatID][id]; ok {
			messages = append(messages, m)
		}
	}
	return messages, int64(len(messages)), nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, chatID, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := 0
	for _, m := range r.messages[chatID] {
		if m.ReceiverID == userID && !m.IsRead {
			m.IsRead = true
			updated++
		}
	}
	return updated, nil
}
