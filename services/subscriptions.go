package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Tgviews/lib/sl"
	"Tgviews/storage"
	"Tgviews/views"
)

const (
	subscriptionCacheTTL = 5 * time.Minute

	DefaultSubscriptionNotice = "⛔ To continue, subscribe to the channel:\n%s\n@%s"
)

type MessageSender interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard views.Keyboard, parseMode string) (int, error)
}

// Subscriptions checks channel membership and remembers the result for a few minutes
type Subscriptions struct {
	provider ChatProvider
	chats    *Chats
	cache    storage.CacheStorage
	sender   MessageSender
	notice   string
	log      *slog.Logger
}

// NewSubscriptions creates the service. The notice is a format with the channel title and username.
func NewSubscriptions(provider ChatProvider, chats *Chats, cache storage.CacheStorage, sender MessageSender, notice string, log *slog.Logger) *Subscriptions {
	if notice == "" {
		notice = DefaultSubscriptionNotice
	}
	return &Subscriptions{
		provider: provider,
		chats:    chats,
		cache:    cache,
		sender:   sender,
		notice:   notice,
		log:      log.With(sl.Module("services.subscriptions")),
	}
}

// Check asks the endpoint whether the user is subscribed; lookup failures count as not subscribed
func (s *Subscriptions) Check(ctx context.Context, chatID, userID int64) bool {
	member, err := s.provider.ChatMember(ctx, chatID, userID)
	if err != nil {
		s.log.Debug("subscription check failed",
			slog.Int64("chat_id", chatID),
			slog.Int64("user_id", userID),
			sl.Err(err),
		)
		return false
	}
	result := member.Subscribed()
	s.log.Debug("subscription checked",
		slog.Int64("chat_id", chatID),
		slog.Int64("user_id", userID),
		slog.String("status", member.Status),
		slog.Bool("subscribed", result),
	)
	return result
}

// Ensure returns the cached subscription result, checking again when there is none or force is set.
// A user who is not subscribed gets a notice with the channel to join.
func (s *Subscriptions) Ensure(ctx context.Context, chatID, userID int64, force bool) (bool, error) {
	key := fmt.Sprintf("chat:%d:user:%d:sub", chatID, userID)
	entry, err := s.cache.GetCache(ctx, key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("reading subscription cache: %w", err)
	}

	if entry == nil || force {
		subscribed := s.Check(ctx, chatID, userID)
		data := map[string]any{"subscribed": subscribed}
		if !subscribed {
			chat, err := s.chats.Get(ctx, chatID)
			if err != nil {
				return false, err
			}
			data["chat_title"] = chat.Title
			data["chat_username"] = chat.UserName
		}
		entry = &storage.CacheEntry{
			Key:        key,
			Data:       data,
			ValidUntil: time.Now().UTC().Add(subscriptionCacheTTL),
		}
		if err = s.cache.SetCache(ctx, entry); err != nil {
			return false, fmt.Errorf("caching subscription: %w", err)
		}
	}

	subscribed, _ := entry.Data["subscribed"].(bool)
	if !subscribed {
		title, _ := entry.Data["chat_title"].(string)
		username, _ := entry.Data["chat_username"].(string)
		if _, err = s.sender.SendMessage(ctx, userID, fmt.Sprintf(s.notice, title, username), nil, ""); err != nil {
			return false, fmt.Errorf("sending subscription notice: %w", err)
		}
	}
	return subscribed, nil
}
