package screens

import (
	"context"

	"Tgviews/lib/sl"
	"Tgviews/views"
)

const subscriptionConfirmed = "✅ Subscription confirmed."

// CheckSub checks the subscription again and returns the user to the main menu
type CheckSub struct {
	subs      Subscriber
	channelID int64
}

func NewCheckSub(subs Subscriber, channelID int64) *CheckSub {
	return &CheckSub{subs: subs, channelID: channelID}
}

func (c *CheckSub) Route() *views.Route {
	return &views.Route{Name: CheckSubName, View: c}
}

func (c *CheckSub) Options() views.Options {
	opts := views.DefaultOptions()
	opts.EditKeyboard = false
	opts.Labels = []string{"Subscription check", "Check channel subscription"}
	return opts
}

func (c *CheckSub) Redirect(ctx context.Context, vc *views.Context) (*views.Redirect, error) {
	if c.channelID != 0 && c.subs != nil {
		subscribed, err := c.subs.Ensure(ctx, c.channelID, vc.User.UserId, true)
		if err != nil {
			return nil, err
		}
		if subscribed {
			chatID := vc.Request.Message().ChatID
			if _, err = vc.Messenger().SendMessage(ctx, chatID, subscriptionConfirmed, nil, ""); err != nil {
				vc.Log.Warn("sending confirmation", sl.Err(err))
			}
		}
	}
	return &views.Redirect{
		Route: MainName,
		Configure: func(opts *views.Options) {
			opts.EditKeyboard = true
		},
	}, nil
}
