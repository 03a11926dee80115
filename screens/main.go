// Package screens holds the stock screens: main menu, subscription check and deep links.
package screens

import (
	"context"

	"Tgviews/views"
)

const (
	MainName     = "MAIN"
	CheckSubName = "CHECK_SUB"
	LinksName    = "LINKS"

	StartCommand = "/start"
)

// Subscriber ensures the user follows the channel
type Subscriber interface {
	Ensure(ctx context.Context, chatID, userID int64, force bool) (bool, error)
}

// Main is the main menu. It also catches every event of a user who is not subscribed to the channel.
type Main struct {
	subs      Subscriber
	channelID int64
}

// NewMain creates the main menu; a zero channelID turns the subscription requirement off
func NewMain(subs Subscriber, channelID int64) *Main {
	return &Main{subs: subs, channelID: channelID}
}

func (m *Main) Route() *views.Route {
	return &views.Route{Name: MainName, View: m, Resolver: views.ResolverFunc(m.resolve)}
}

func (m *Main) Options() views.Options {
	opts := views.DefaultOptions()
	opts.EditKeyboard = false
	opts.Labels = []string{"Main menu", "To main menu"}
	return opts
}

func (m *Main) Keyboard(_ context.Context, vc *views.Context) (views.Keyboard, error) {
	button, err := vc.ViewButton(CheckSubName, 1, nil)
	if err != nil {
		return nil, err
	}
	return views.Keyboard{{button}}, nil
}

func (m *Main) Text(_ context.Context, vc *views.Context) (string, error) {
	return vc.Options.Labels[0], nil
}

func (m *Main) resolve(ctx context.Context, req *views.Request, route *views.Route) (bool, error) {
	if m.channelID != 0 && m.subs != nil {
		subscribed, err := m.subs.Ensure(ctx, m.channelID, req.Event.From().ID, false)
		if err != nil {
			return false, err
		}
		if !subscribed {
			return true, nil
		}
	}
	if msg := req.Event.Message; msg != nil && msg.Text == StartCommand {
		return true, nil
	}
	return views.CallbackResolver{}.Resolve(ctx, req, route)
}
