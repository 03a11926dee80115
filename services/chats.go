package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Tgviews/lib/sl"
	"Tgviews/storage"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	chatCacheTTL  = 5 * time.Minute
	chatLocalSize = 100
)

const (
	StatusCreator       = "creator"
	StatusAdministrator = "administrator"
	StatusMember        = "member"
	StatusRestricted    = "restricted"
)

type Chat struct {
	ID       int64
	Title    string
	UserName string
}

type Member struct {
	Status   string
	IsMember bool
}

// Subscribed reports whether the member counts as a channel subscriber
func (m Member) Subscribed() bool {
	switch m.Status {
	case StatusCreator, StatusAdministrator, StatusMember:
		return true
	case StatusRestricted:
		return m.IsMember
	}
	return false
}

// ChatProvider looks chats and members up on the messaging endpoint
type ChatProvider interface {
	ChatMember(ctx context.Context, chatID, userID int64) (Member, error)
	Chat(ctx context.Context, chatID int64) (Chat, error)
}

// Chats serves chat info from a process-local LRU backed by the shared cache
type Chats struct {
	provider ChatProvider
	cache    storage.CacheStorage
	local    *expirable.LRU[int64, Chat]
	log      *slog.Logger
}

func NewChats(provider ChatProvider, cache storage.CacheStorage, log *slog.Logger) *Chats {
	return &Chats{
		provider: provider,
		cache:    cache,
		local:    expirable.NewLRU[int64, Chat](chatLocalSize, nil, chatCacheTTL),
		log:      log.With(sl.Module("services.chats")),
	}
}

func (c *Chats) Get(ctx context.Context, chatID int64) (Chat, error) {
	if chat, ok := c.local.Get(chatID); ok {
		return chat, nil
	}

	key := fmt.Sprintf("get_chat:%d", chatID)
	entry, err := c.cache.GetCache(ctx, key)
	switch {
	case err == nil:
		chat := Chat{ID: chatID}
		chat.Title, _ = entry.Data["title"].(string)
		chat.UserName, _ = entry.Data["username"].(string)
		c.local.Add(chatID, chat)
		return chat, nil
	case !errors.Is(err, storage.ErrNotFound):
		return Chat{}, fmt.Errorf("reading chat cache: %w", err)
	}

	chat, err := c.provider.Chat(ctx, chatID)
	if err != nil {
		return Chat{}, fmt.Errorf("getting chat %d: %w", chatID, err)
	}
	err = c.cache.SetCache(ctx, &storage.CacheEntry{
		Key: key,
		Data: map[string]any{
			"title":    chat.Title,
			"username": chat.UserName,
		},
		ValidUntil: time.Now().UTC().Add(chatCacheTTL),
	})
	if err != nil {
		c.log.Warn("caching chat", slog.Int64("chat_id", chatID), sl.Err(err))
	}
	c.local.Add(chatID, chat)
	return chat, nil
}
