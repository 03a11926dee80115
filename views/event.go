package views

import (
	"errors"
	"time"

	"Tgviews/storage"
)

var ErrInvalidEvent = errors.New("event must carry exactly one of message, callback or inline query")

type User struct {
	ID        int64
	UserName  string
	FirstName string
	LastName  string
}

func (u User) Profile() storage.Profile {
	return storage.Profile{
		UserID:    u.ID,
		UserName:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

type Message struct {
	ID       int
	ChatID   int64
	ChatType string
	From     User
	Text     string
	Date     time.Time
}

type CallbackQuery struct {
	ID      string
	From    User
	Message *Message
	Data    string
}

type InlineQuery struct {
	ID       string
	From     User
	Query    string
	Offset   string
	ChatType string
}

// Event is one inbound user action
type Event struct {
	Message  *Message
	Callback *CallbackQuery
	Inline   *InlineQuery
}

func (e Event) Validate() error {
	n := 0
	if e.Message != nil {
		n++
	}
	if e.Callback != nil {
		n++
	}
	if e.Inline != nil {
		n++
	}
	if n != 1 {
		return ErrInvalidEvent
	}
	return nil
}

// From returns the user who triggered the event
func (e Event) From() User {
	switch {
	case e.Message != nil:
		return e.Message.From
	case e.Callback != nil:
		return e.Callback.From
	case e.Inline != nil:
		return e.Inline.From
	}
	return User{}
}

// CanonicalMessage gives uniform access to the chat of any event.
// Inline queries and callbacks without a message get a pseudo-message in the user's private chat.
func (e Event) CanonicalMessage() *Message {
	switch {
	case e.Message != nil:
		return e.Message
	case e.Callback != nil && e.Callback.Message != nil:
		return e.Callback.Message
	case e.Callback != nil:
		return &Message{
			ID:       -1,
			ChatID:   e.Callback.From.ID,
			ChatType: "private",
			From:     e.Callback.From,
			Date:     time.Now().UTC(),
		}
	case e.Inline != nil:
		return &Message{
			ID:       -1,
			ChatID:   e.Inline.From.ID,
			ChatType: e.Inline.ChatType,
			From:     e.Inline.From,
			Text:     e.Inline.Query,
			Date:     time.Now().UTC(),
		}
	}
	return &Message{ID: -1}
}
