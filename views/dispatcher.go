package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"Tgviews/lib/sl"
	"Tgviews/storage"
)

const (
	DefaultMaxRedirects = 16
	InvalidKeyboardText = "Keyboard Invalid"
)

var ErrRedirectLoop = errors.New("too many redirects")

type Config struct {
	// Apology is sent to the user when dispatch fails, nothing is sent when empty
	Apology      string
	Retention    RetentionPolicy
	MaxRedirects int
}

// Dispatcher routes events to views and commits the resulting user state
type Dispatcher struct {
	registry  *Registry
	users     storage.UserStorage
	messenger Messenger
	conf      Config
	log       *slog.Logger
}

func NewDispatcher(registry *Registry, users storage.UserStorage, messenger Messenger, conf Config, log *slog.Logger) *Dispatcher {
	if conf.MaxRedirects <= 0 {
		conf.MaxRedirects = DefaultMaxRedirects
	}
	return &Dispatcher{
		registry:  registry,
		users:     users,
		messenger: messenger,
		conf:      conf,
		log:       log.With(sl.Module("views.dispatcher")),
	}
}

// Dispatch handles one event and returns the route the user ends up on
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) (*Route, error) {
	if err := event.Validate(); err != nil {
		return nil, err
	}
	from := event.From()
	log := d.log.With(sl.User(from.ID, from.UserName))

	req := NewRequest(event, d.users, d.registry)
	route, err := d.dispatch(ctx, req, log)
	if err != nil {
		log.Error("dispatch failed", sl.Err(err))
		d.apologize(ctx, req, log)
		return nil, err
	}
	log.Debug("dispatched", slog.String("route", route.Name))
	return route, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, req *Request, log *slog.Logger) (*Route, error) {
	user, err := req.User(ctx)
	if err != nil {
		return nil, err
	}
	route, err := req.Route(ctx)
	if err != nil {
		return nil, err
	}

	callback := &storage.Callback{}
	if cq := req.Event.Callback; cq != nil {
		if pressed, ok := user.State.Callbacks[cq.Data]; ok {
			callback = pressed
		}
	}

	next, err := d.runView(ctx, req, route, callback, callback.ViewParams, nil, 0, log)
	if err != nil {
		return nil, err
	}

	user.State.ViewName = next.Name
	if err = d.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("saving user: %w", err)
	}
	return next, nil
}

func (d *Dispatcher) runView(
	ctx context.Context,
	req *Request,
	route *Route,
	callback *storage.Callback,
	params map[string]any,
	configure func(*Options),
	depth int,
	log *slog.Logger,
) (*Route, error) {
	user, err := req.User(ctx)
	if err != nil {
		return nil, err
	}
	opts := route.View.Options()
	if configure != nil {
		configure(&opts)
	}

	vc := &Context{
		Request:     req,
		Route:       route,
		User:        user,
		Callback:    callback,
		Params:      maps.Clone(params),
		Options:     opts,
		States:      NewStateManager(d.conf.Retention),
		Log:         log.With(slog.String("view", route.Name)),
		dispatcher:  d,
		answerAlert: true,
	}
	if vc.Params == nil {
		vc.Params = make(map[string]any)
	}
	vc.States.Begin(user, opts.KeepState)

	event := req.Event
	processed := false
	if (event.Message != nil && !opts.IgnoreMessages) || (event.Callback != nil && !opts.IgnoreCallbacks) {
		if err = d.sendKeyboard(ctx, vc); err != nil {
			return nil, err
		}
		processed = true
	}
	if event.Inline != nil && opts.HandleInline {
		if err = d.sendInline(ctx, vc); err != nil {
			return nil, err
		}
		processed = true
	}

	if processed {
		if redirector, ok := route.View.(Redirector); ok {
			redirect, err := redirector.Redirect(ctx, vc)
			if err != nil {
				return nil, fmt.Errorf("redirect of %s: %w", route.Name, err)
			}
			if redirect != nil {
				return d.follow(ctx, req, vc, redirect, depth, log)
			}
		}
		if err = d.answerCallback(ctx, vc); err != nil {
			return nil, err
		}
		vc.States.Commit()
	}

	if event.Message != nil && opts.DeleteIncoming {
		err = d.messenger.DeleteMessage(ctx, event.Message.ChatID, event.Message.ID)
		if err != nil && !errors.Is(err, ErrMessageNotFound) {
			return nil, fmt.Errorf("deleting incoming message: %w", err)
		}
	}

	if opts.KeepRoute {
		if previous, ok := d.registry.Get(user.State.ViewName); ok {
			return previous, nil
		}
	}
	return route, nil
}

func (d *Dispatcher) follow(ctx context.Context, req *Request, vc *Context, redirect *Redirect, depth int, log *slog.Logger) (*Route, error) {
	if depth+1 > d.conf.MaxRedirects {
		return nil, fmt.Errorf("%s -> %s: %w", vc.Route.Name, redirect.Route, ErrRedirectLoop)
	}
	target, ok := d.registry.Get(redirect.Route)
	if !ok {
		return nil, fmt.Errorf("redirect to %s: %w", redirect.Route, ErrRouteNotResolved)
	}
	callback := redirect.Callback
	if callback == nil {
		callback = vc.Callback
	}
	log.Debug("redirecting", slog.String("from", vc.Route.Name), slog.String("to", target.Name))
	return d.runView(ctx, req, target, callback, redirect.Params, redirect.Configure, depth+1, log)
}

func (d *Dispatcher) answerCallback(ctx context.Context, vc *Context) error {
	cq := vc.Request.Event.Callback
	if cq == nil {
		return nil
	}
	text := vc.answer
	if _, ok := vc.States.Actual.Callbacks[cq.Data]; !ok {
		text = InvalidKeyboardText
	}
	err := d.messenger.AnswerCallback(ctx, cq.ID, text, vc.answerAlert)
	if err != nil && !errors.Is(err, ErrQueryTooOld) {
		return fmt.Errorf("answering callback: %w", err)
	}
	return nil
}

func (d *Dispatcher) apologize(ctx context.Context, req *Request, log *slog.Logger) {
	if d.conf.Apology == "" {
		return
	}
	chatID := req.Message().ChatID
	if chatID == 0 {
		return
	}
	if _, err := d.messenger.SendMessage(context.WithoutCancel(ctx), chatID, d.conf.Apology, nil, ""); err != nil {
		log.Error("sending apology", sl.Err(err))
	}
}
