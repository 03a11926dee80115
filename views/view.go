package views

import (
	"context"
	"log/slog"
	"maps"

	"Tgviews/storage"
)

const DefaultPageSize = 7

// Options control how the dispatcher treats a view
type Options struct {
	// EditKeyboard edits the user's last keyboard message instead of replacing it
	EditKeyboard bool
	// DeleteIncoming removes the user's message after it was handled
	DeleteIncoming  bool
	IgnoreMessages  bool
	IgnoreCallbacks bool
	HandleInline    bool
	// KeepState carries the persisted state over instead of building a new one
	KeepState bool
	// KeepRoute makes the dispatch result the route of the persisted view
	KeepRoute bool

	PageSize        int
	ParseMode       string
	Labels          []string
	InlineCacheTime int
	InlinePersonal  bool
}

func DefaultOptions() Options {
	return Options{
		EditKeyboard:    true,
		DeleteIncoming:  true,
		PageSize:        DefaultPageSize,
		ParseMode:       "HTML",
		InlineCacheTime: 60,
		InlinePersonal:  true,
	}
}

// View is a screen. Rendering capabilities are discovered through KeyboardView, InlineView and Redirector.
type View interface {
	Options() Options
}

type KeyboardView interface {
	View
	Keyboard(ctx context.Context, vc *Context) (Keyboard, error)
	Text(ctx context.Context, vc *Context) (string, error)
}

type InlineView interface {
	View
	// InlineResults returns the answer to an inline query and the offset of the next page
	InlineResults(ctx context.Context, vc *Context) ([]InlineResult, string, error)
}

// Redirector hands the dispatch over to another route after rendering
type Redirector interface {
	Redirect(ctx context.Context, vc *Context) (*Redirect, error)
}

type Redirect struct {
	Route string
	// Callback of the target view, the current one when nil
	Callback *storage.Callback
	Params   map[string]any
	// Configure adjusts the target's options for this dispatch only
	Configure func(*Options)
}

// Context is what a view sees during one dispatch step
type Context struct {
	Request  *Request
	Route    *Route
	User     *storage.User
	Callback *storage.Callback
	Params   map[string]any
	Options  Options
	States   *StateManager
	Log      *slog.Logger

	dispatcher  *Dispatcher
	answer      string
	answerAlert bool
}

func (c *Context) Messenger() Messenger {
	return c.dispatcher.messenger
}

func (c *Context) Registry() *Registry {
	return c.dispatcher.registry
}

// SetCallbackAnswer sets the notice shown for the pressed button
func (c *Context) SetCallbackAnswer(text string, alert bool) {
	c.answer = text
	c.answerAlert = alert
}

// Param returns a string parameter of the view
func (c *Context) Param(key string) string {
	if v, ok := c.Params[key].(string); ok {
		return v
	}
	return ""
}

// Button registers the callback in the user state and returns a button bound to it
func (c *Context) Button(text string, callback *storage.Callback) Button {
	c.States.AddCallback(callback)
	return Button{Text: text, Data: callback.ID}
}

// ViewButton returns a button leading to the named route, labelled with one of the route's labels
func (c *Context) ViewButton(routeName string, label int, viewParams map[string]any) (Button, error) {
	route, ok := c.Registry().Get(routeName)
	if !ok {
		return Button{}, ErrRouteNotResolved
	}
	text := route.Name
	if labels := route.View.Options().Labels; label >= 0 && label < len(labels) {
		text = labels[label]
	}
	callback := storage.NewCallback(route.Name)
	callback.ViewParams = maps.Clone(viewParams)
	return c.Button(text, callback), nil
}

// Paginator returns a pagination helper bound to the current view
func (c *Context) Paginator() *Paginator {
	return &Paginator{vc: c, pageSize: c.Options.PageSize}
}
