package views

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrDuplicateRoute = errors.New("route is already registered")

// Resolver decides whether a route should handle the request
type Resolver interface {
	Resolve(ctx context.Context, req *Request, route *Route) (bool, error)
}

type ResolverFunc func(ctx context.Context, req *Request, route *Route) (bool, error)

func (f ResolverFunc) Resolve(ctx context.Context, req *Request, route *Route) (bool, error) {
	return f(ctx, req, route)
}

// CallbackResolver matches a button press whose callback is bound to the route in the user's current state
type CallbackResolver struct{}

func (CallbackResolver) Resolve(ctx context.Context, req *Request, route *Route) (bool, error) {
	if req.Event.Callback == nil {
		return false, nil
	}
	user, err := req.User(ctx)
	if err != nil {
		return false, err
	}
	callback, ok := user.State.Callbacks[req.Event.Callback.Data]
	return ok && callback.ViewName == route.Name, nil
}

type Route struct {
	Name     string
	View     View
	Resolver Resolver
}

func (r *Route) resolver() Resolver {
	if r.Resolver == nil {
		return CallbackResolver{}
	}
	return r.Resolver
}

// Registry keeps routes in registration order, which is the resolution order
type Registry struct {
	mutex  sync.RWMutex
	routes []*Route
	index  map[string]*Route
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]*Route)}
}

// Init replaces the registered routes with the given ones followed by the fallback screen
func (r *Registry) Init(routes ...*Route) error {
	r.Reset()
	if err := r.Register(routes...); err != nil {
		return err
	}
	if _, ok := r.Get(DummyName); ok {
		return nil
	}
	return r.Register(&Route{Name: DummyName, View: Dummy{}})
}

func (r *Registry) Register(routes ...*Route) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, route := range routes {
		if route == nil || route.Name == "" || route.View == nil {
			return errors.New("route must have a name and a view")
		}
		if _, ok := r.index[route.Name]; ok {
			return fmt.Errorf("%s: %w", route.Name, ErrDuplicateRoute)
		}
		r.index[route.Name] = route
		r.routes = append(r.routes, route)
	}
	return nil
}

func (r *Registry) MustRegister(routes ...*Route) {
	if err := r.Register(routes...); err != nil {
		panic(err)
	}
}

func (r *Registry) Get(name string) (*Route, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	route, ok := r.index[name]
	return route, ok
}

// Routes returns a snapshot in registration order
func (r *Registry) Routes() []*Route {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	routes := make([]*Route, len(r.routes))
	copy(routes, r.routes)
	return routes
}

func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.routes = nil
	r.index = make(map[string]*Route)
}
