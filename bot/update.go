package bot

import (
	"fmt"
	"strings"
	"time"

	"Tgviews/views"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

const chatPrivate = "private"

func convertUser(u *tgbotapi.User) views.User {
	if u == nil {
		return views.User{}
	}
	return views.User{
		ID:        int64(u.ID),
		UserName:  u.UserName,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func convertMessage(m *tgbotapi.Message) *views.Message {
	if m == nil {
		return nil
	}
	msg := &views.Message{
		ID:   m.MessageID,
		From: convertUser(m.From),
		Text: m.Text,
		Date: time.Unix(int64(m.Date), 0).UTC(),
	}
	if m.Chat != nil {
		msg.ChatID = m.Chat.ID
		msg.ChatType = m.Chat.Type
	}
	return msg
}

// eventFromUpdate converts an update into a dispatchable event.
// Updates of other kinds, messages of the bot itself and, unless allowGroups is set, non-private chats are skipped.
func eventFromUpdate(update tgbotapi.Update, botID int, allowGroups bool) (views.Event, bool) {
	switch {
	case update.Message != nil:
		m := update.Message
		if m.From == nil || m.From.ID == botID {
			return views.Event{}, false
		}
		if !allowGroups && (m.Chat == nil || m.Chat.Type != chatPrivate) {
			return views.Event{}, false
		}
		return views.Event{Message: convertMessage(m)}, true

	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.From == nil {
			return views.Event{}, false
		}
		if !allowGroups && cq.Message != nil && cq.Message.Chat != nil && cq.Message.Chat.Type != chatPrivate {
			return views.Event{}, false
		}
		return views.Event{Callback: &views.CallbackQuery{
			ID:      cq.ID,
			From:    convertUser(cq.From),
			Message: convertMessage(cq.Message),
			Data:    cq.Data,
		}}, true

	case update.InlineQuery != nil:
		iq := update.InlineQuery
		if iq.From == nil {
			return views.Event{}, false
		}
		return views.Event{Inline: &views.InlineQuery{
			ID:       iq.ID,
			From:     convertUser(iq.From),
			Query:    iq.Query,
			Offset:   iq.Offset,
			ChatType: "sender",
		}}, true
	}
	return views.Event{}, false
}

func inlineKeyboard(keyboard views.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(keyboard) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// classify maps endpoint error descriptions to the errors the dispatcher reacts to
func classify(err error) error {
	if err == nil {
		return nil
	}
	text := err.Error()
	switch {
	case strings.Contains(text, "message to edit not found"),
		strings.Contains(text, "message to delete not found"),
		strings.Contains(text, "message can't be deleted"):
		return fmt.Errorf("%s: %w", text, views.ErrMessageNotFound)
	case strings.Contains(text, "message is not modified"):
		return fmt.Errorf("%s: %w", text, views.ErrMessageNotModified)
	case strings.Contains(text, "query is too old"):
		return fmt.Errorf("%s: %w", text, views.ErrQueryTooOld)
	}
	return err
}
