package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"Tgviews/lib/sl"

	"golang.org/x/sync/errgroup"
)

// sendKeyboard renders a keyboard view into the user's chat, reusing the last keyboard message when possible
func (d *Dispatcher) sendKeyboard(ctx context.Context, vc *Context) error {
	view, ok := vc.Route.View.(KeyboardView)
	if !ok {
		return nil
	}
	keyboard, err := view.Keyboard(ctx, vc)
	if err != nil {
		return fmt.Errorf("keyboard of %s: %w", vc.Route.Name, err)
	}
	text, err := view.Text(ctx, vc)
	if err != nil {
		return fmt.Errorf("text of %s: %w", vc.Route.Name, err)
	}
	if text == "" {
		return nil
	}

	d.deletePending(ctx, vc)

	user := vc.User
	chatID := vc.Request.Message().ChatID

	if vc.Options.EditKeyboard && user.KeyboardID != 0 {
		err = d.messenger.EditMessage(ctx, chatID, user.KeyboardID, text, keyboard, vc.Options.ParseMode)
		switch {
		case err == nil, errors.Is(err, ErrMessageNotModified):
			return nil
		case errors.Is(err, ErrMessageNotFound):
			vc.Log.Debug("keyboard message is gone, sending a new one", slog.Int("keyboard_id", user.KeyboardID))
			user.KeyboardID = 0
		default:
			return fmt.Errorf("editing keyboard: %w", err)
		}
	}

	if user.KeyboardID != 0 {
		err = d.messenger.DeleteMessage(ctx, chatID, user.KeyboardID)
		if err != nil && !errors.Is(err, ErrMessageNotFound) {
			return fmt.Errorf("deleting keyboard: %w", err)
		}
		user.KeyboardID = 0
	}

	messageID, err := d.messenger.SendMessage(ctx, chatID, text, keyboard, vc.Options.ParseMode)
	if err != nil {
		return fmt.Errorf("sending keyboard: %w", err)
	}
	user.KeyboardID = messageID
	return nil
}

// deletePending issues the deletions scheduled before this dispatch, ignoring their failures
func (d *Dispatcher) deletePending(ctx context.Context, vc *Context) {
	pending := vc.States.takePendingDeletions()
	if len(pending) == 0 {
		return
	}
	var g errgroup.Group
	for _, msg := range pending {
		g.Go(func() error {
			if err := d.messenger.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
				vc.Log.Debug("pending deletion failed",
					slog.Int64("chat_id", msg.ChatID),
					slog.Int("message_id", msg.MessageID),
					sl.Err(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (d *Dispatcher) sendInline(ctx context.Context, vc *Context) error {
	view, ok := vc.Route.View.(InlineView)
	if !ok {
		return nil
	}
	results, nextOffset, err := view.InlineResults(ctx, vc)
	if err != nil {
		return fmt.Errorf("inline results of %s: %w", vc.Route.Name, err)
	}
	if len(results) == 0 {
		return nil
	}
	err = d.messenger.AnswerInline(ctx, vc.Request.Event.Inline.ID, results, nextOffset, vc.Options.InlineCacheTime, vc.Options.InlinePersonal)
	if err != nil {
		return fmt.Errorf("answering inline query: %w", err)
	}
	return nil
}
