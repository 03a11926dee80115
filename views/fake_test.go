package views

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"Tgviews/storage"
)

type sentMessage struct {
	ChatID   int64
	Text     string
	Keyboard Keyboard
}

type editedMessage struct {
	ChatID    int64
	MessageID int
	Text      string
}

type callbackAnswer struct {
	ID    string
	Text  string
	Alert bool
}

// fakeMessenger records every call and returns the configured errors
type fakeMessenger struct {
	mutex sync.Mutex

	nextID    int
	sent      []sentMessage
	edited    []editedMessage
	deleted   []storage.ChatMessage
	answers   []callbackAnswer
	inline    [][]InlineResult
	editErr   error
	answerErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 100}
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string, keyboard Keyboard, _ string) (int, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, Keyboard: keyboard})
	return f.nextID, nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, chatID int64, messageID int, text string, _ Keyboard, _ string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.edited = append(f.edited, editedMessage{ChatID: chatID, MessageID: messageID, Text: text})
	return nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.deleted = append(f.deleted, storage.ChatMessage{ChatID: chatID, MessageID: messageID})
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, callbackID, text string, showAlert bool) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.answerErr != nil {
		return f.answerErr
	}
	f.answers = append(f.answers, callbackAnswer{ID: callbackID, Text: text, Alert: showAlert})
	return nil
}

func (f *fakeMessenger) AnswerInline(_ context.Context, _ string, results []InlineResult, _ string, _ int, _ bool) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.inline = append(f.inline, results)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testUser = User{ID: 42, UserName: "alice", FirstName: "Alice"}

func messageEvent(id int, text string) Event {
	return Event{Message: &Message{
		ID:       id,
		ChatID:   testUser.ID,
		ChatType: "private",
		From:     testUser,
		Text:     text,
	}}
}

func callbackEvent(data string) Event {
	return Event{Callback: &CallbackQuery{
		ID:   "cq-" + data,
		From: testUser,
		Data: data,
		Message: &Message{
			ID:       7,
			ChatID:   testUser.ID,
			ChatType: "private",
			From:     testUser,
		},
	}}
}

func inlineEvent(query string) Event {
	return Event{Inline: &InlineQuery{ID: "iq-1", From: testUser, Query: query, ChatType: "sender"}}
}

// commandResolver matches a text message equal to the command
func commandResolver(command string) Resolver {
	return ResolverFunc(func(_ context.Context, req *Request, _ *Route) (bool, error) {
		return req.Event.Message != nil && req.Event.Message.Text == command, nil
	})
}
