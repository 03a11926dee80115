package views

import (
	"context"
	"errors"
)

var (
	// ErrMessageNotFound means the message to edit or delete is gone or cannot be deleted
	ErrMessageNotFound = errors.New("message not found")
	// ErrMessageNotModified means an edit carried the same text and keyboard
	ErrMessageNotModified = errors.New("message is not modified")
	// ErrQueryTooOld means the callback query can no longer be answered
	ErrQueryTooOld = errors.New("query is too old")
)

type Button struct {
	Text string
	Data string
}

type Keyboard [][]Button

type InlineResult struct {
	ID          string
	Title       string
	Description string
	Text        string
}

// Messenger is the chat transport used by the dispatcher
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard, parseMode string) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, keyboard Keyboard, parseMode string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string, showAlert bool) error
	AnswerInline(ctx context.Context, queryID string, results []InlineResult, nextOffset string, cacheTime int, personal bool) error
}
