package views

import (
	"context"
	"errors"
	"fmt"

	"Tgviews/storage"
)

var ErrRouteNotResolved = errors.New("route not resolved")

// Request wraps one event with lazily loaded user and route, both cached for the request lifetime
type Request struct {
	Event Event

	users    storage.UserStorage
	registry *Registry
	message  *Message
	user     *storage.User
	route    *Route
}

func NewRequest(event Event, users storage.UserStorage, registry *Registry) *Request {
	return &Request{
		Event:    event,
		users:    users,
		registry: registry,
	}
}

// Message is the canonical message of the event
func (r *Request) Message() *Message {
	if r.message == nil {
		r.message = r.Event.CanonicalMessage()
	}
	return r.message
}

// User loads the sender, creating the record on first contact and refreshing profile fields otherwise
func (r *Request) User(ctx context.Context) (*storage.User, error) {
	if r.user != nil {
		return r.user, nil
	}
	user, err := r.users.GetOrCreateUser(ctx, r.Event.From().Profile())
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	r.user = user
	return user, nil
}

// Route returns the first registered route whose resolver accepts the request.
// Stale button presses resolve to the fallback screen. Without a match it falls back to the route of the
// persisted view, then to the fallback screen.
func (r *Request) Route(ctx context.Context) (*Route, error) {
	if r.route != nil {
		return r.route, nil
	}
	user, err := r.User(ctx)
	if err != nil {
		return nil, err
	}

	// a press on a button that is not in the current state goes to the fallback screen,
	// which answers it and keeps the persisted screen untouched
	if cq := r.Event.Callback; cq != nil {
		if _, ok := user.State.Callbacks[cq.Data]; !ok {
			if route, ok := r.registry.Get(DummyName); ok {
				r.route = route
				return route, nil
			}
		}
	}

	for _, route := range r.registry.Routes() {
		ok, err := route.resolver().Resolve(ctx, r, route)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", route.Name, err)
		}
		if ok {
			r.route = route
			return route, nil
		}
	}

	if route, ok := r.registry.Get(user.State.ViewName); ok {
		r.route = route
		return route, nil
	}
	if route, ok := r.registry.Get(DummyName); ok {
		r.route = route
		return route, nil
	}
	return nil, ErrRouteNotResolved
}
