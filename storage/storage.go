package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

// Callback describes one interactive button. It is valid only while present in the owner's current state.
type Callback struct {
	ID         string         `bson:"id"`
	ViewName   string         `bson:"view_name"`
	PageNum    int            `bson:"page_num,omitempty"`
	CreatedAt  time.Time      `bson:"created_at"`
	ViewParams map[string]any `bson:"view_params,omitempty"`
	Params     map[string]any `bson:"params,omitempty"`
}

// NewCallback returns a callback bound to the view with a fresh id
func NewCallback(viewName string) *Callback {
	return &Callback{
		ID:        uuid.New().String(),
		ViewName:  viewName,
		CreatedAt: time.Now().UTC(),
	}
}

// ChatMessage points to a message scheduled for deletion
type ChatMessage struct {
	ChatID    int64 `bson:"chat_id"`
	MessageID int   `bson:"message_id"`
}

type UserState struct {
	ViewName         string               `bson:"view_name"`
	Callbacks        map[string]*Callback `bson:"callbacks"`
	MessagesToDelete []ChatMessage        `bson:"messages_to_delete"`
	CreatedAt        time.Time            `bson:"created_at"`
}

func NewUserState() *UserState {
	return &UserState{
		Callbacks:        make(map[string]*Callback),
		MessagesToDelete: []ChatMessage{},
		CreatedAt:        time.Now().UTC(),
	}
}

func (s *UserState) AddMessageToDelete(chatID int64, messageID int) {
	s.MessagesToDelete = append(s.MessagesToDelete, ChatMessage{ChatID: chatID, MessageID: messageID})
}

// Profile holds the fields refreshed from every incoming event
type Profile struct {
	UserID    int64
	UserName  string
	FirstName string
	LastName  string
}

type User struct {
	UserId      int64          `bson:"user_id"`
	UserName    string         `bson:"username"`
	FirstName   string         `bson:"first_name"`
	LastName    string         `bson:"last_name"`
	State       *UserState     `bson:"state"`
	KeyboardID  int            `bson:"keyboard_id"`
	Constants   map[string]any `bson:"constants"`
	IsSuperuser bool           `bson:"is_superuser"`
}

// normalize fills nil containers after decoding
func (u *User) normalize() {
	if u.State == nil {
		u.State = NewUserState()
	}
	if u.State.Callbacks == nil {
		u.State.Callbacks = make(map[string]*Callback)
	}
	if u.State.MessagesToDelete == nil {
		u.State.MessagesToDelete = []ChatMessage{}
	}
	if u.Constants == nil {
		u.Constants = make(map[string]any)
	}
}

// Lease is one lock record shared by all processes
type Lease struct {
	Key        string     `bson:"key"`
	LockID     string     `bson:"lock_id,omitempty"`
	AcquiredAt *time.Time `bson:"acquired_at,omitempty"`
}

type CacheEntry struct {
	Key        string         `bson:"key" msgpack:"key"`
	Data       map[string]any `bson:"data" msgpack:"data"`
	ValidUntil time.Time      `bson:"valid_until" msgpack:"valid_until"`
}

func (c *CacheEntry) IsValid(now time.Time) bool {
	return c.ValidUntil.After(now)
}

// Link is a persisted callback reachable through a /start deep link
type Link struct {
	ID       string    `bson:"-"`
	Callback *Callback `bson:"callback"`
}

// StartURL is the deep link that opens the bot with this link's callback
func (l *Link) StartURL(botName string) string {
	return fmt.Sprintf("t.me/%s?start=link_%s", botName, l.ID)
}

type UserStorage interface {
	// GetOrCreateUser refreshes the profile fields and returns the stored user, creating it on first contact
	GetOrCreateUser(ctx context.Context, profile Profile) (*User, error)
	// SaveUser persists state, keyboard id and constants of an existing user
	SaveUser(ctx context.Context, user *User) error
	Init(ctx context.Context) error
}

type LockStorage interface {
	// AcquireLease stamps the record with lockID if it is free or older than now-ttl
	AcquireLease(ctx context.Context, key, lockID string, ttl time.Duration, now time.Time) (bool, error)
	// RenewLease refreshes the record only if it is still held by lockID
	RenewLease(ctx context.Context, key, lockID string, now time.Time) (bool, error)
	// ReleaseLease removes the record held by lockID, false when it is already gone
	ReleaseLease(ctx context.Context, key, lockID string) (bool, error)
	Init(ctx context.Context) error
}

type CacheStorage interface {
	// GetCache returns a valid entry or ErrNotFound
	GetCache(ctx context.Context, key string) (*CacheEntry, error)
	SetCache(ctx context.Context, entry *CacheEntry) error
	Init(ctx context.Context) error
}

type LinkStorage interface {
	// GetOrCreateLink returns the link for an equivalent callback, creating it when missing
	GetOrCreateLink(ctx context.Context, callback *Callback) (*Link, error)
	GetLink(ctx context.Context, id string) (*Link, error)
	Init(ctx context.Context) error
}
