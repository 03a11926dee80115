package screens

import (
	"context"
	"errors"
	"strings"

	"Tgviews/storage"
	"Tgviews/views"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const linkPrefix = "link_"

// Links opens the screen stored behind a /start link_<id> deep link
type Links struct {
	links storage.LinkStorage
}

func NewLinks(links storage.LinkStorage) *Links {
	return &Links{links: links}
}

func (l *Links) Route() *views.Route {
	return &views.Route{Name: LinksName, View: l, Resolver: views.ResolverFunc(l.resolve)}
}

func (l *Links) Options() views.Options {
	return views.DefaultOptions()
}

// Share returns a deep link that opens the callback's screen
func (l *Links) Share(ctx context.Context, botName string, callback *storage.Callback) (string, error) {
	link, err := l.links.GetOrCreateLink(ctx, callback)
	if err != nil {
		return "", err
	}
	return link.StartURL(botName), nil
}

func (l *Links) resolve(_ context.Context, req *views.Request, _ *views.Route) (bool, error) {
	if req.Event.Message == nil {
		return false, nil
	}
	id, ok := parseLinkID(req.Event.Message.Text)
	return ok && primitive.IsValidObjectID(id), nil
}

func (l *Links) Redirect(ctx context.Context, vc *views.Context) (*views.Redirect, error) {
	id, _ := parseLinkID(vc.Request.Message().Text)
	link, err := l.links.GetLink(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		vc.Log.Debug("link not found")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if _, ok := vc.Registry().Get(link.Callback.ViewName); !ok {
		return nil, nil
	}
	return &views.Redirect{
		Route:    link.Callback.ViewName,
		Callback: link.Callback,
		Params:   link.Callback.ViewParams,
	}, nil
}

func parseLinkID(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 || fields[0] != StartCommand {
		return "", false
	}
	return strings.CutPrefix(fields[1], linkPrefix)
}
