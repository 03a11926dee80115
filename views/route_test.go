package views

import (
	"context"
	"testing"

	"Tgviews/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Init(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Init(
		&Route{Name: "A", View: Dummy{}},
		&Route{Name: "B", View: Dummy{}},
	))

	names := make([]string, 0)
	for _, route := range registry.Routes() {
		names = append(names, route.Name)
	}
	assert.Equal(t, []string{"A", "B", DummyName}, names)

	err := registry.Register(&Route{Name: "A", View: Dummy{}})
	assert.ErrorIs(t, err, ErrDuplicateRoute)
	assert.Panics(t, func() { registry.MustRegister(&Route{Name: "B", View: Dummy{}}) })

	require.NoError(t, registry.Init(&Route{Name: "C", View: Dummy{}}))
	_, ok := registry.Get("A")
	assert.False(t, ok, "init replaces previous routes")
	_, ok = registry.Get("C")
	assert.True(t, ok)

	registry.Reset()
	assert.Empty(t, registry.Routes())
}

func TestRegistry_RejectsIncompleteRoute(t *testing.T) {
	registry := NewRegistry()
	assert.Error(t, registry.Register(&Route{Name: "A"}))
	assert.Error(t, registry.Register(&Route{View: Dummy{}}))
}

func TestRequest_FirstMatchWins(t *testing.T) {
	always := ResolverFunc(func(context.Context, *Request, *Route) (bool, error) { return true, nil })

	registry := NewRegistry()
	require.NoError(t, registry.Init(
		&Route{Name: "NEVER", View: Dummy{}, Resolver: commandResolver("/never")},
		&Route{Name: "FIRST", View: Dummy{}, Resolver: always},
		&Route{Name: "SECOND", View: Dummy{}, Resolver: always},
	))

	req := NewRequest(messageEvent(1, "hi"), storage.NewMemoryStorage(), registry)
	route, err := req.Route(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "FIRST", route.Name)

	cached, err := req.Route(context.Background())
	require.NoError(t, err)
	assert.Same(t, route, cached)
}

func TestRequest_DefaultsToPersistedView(t *testing.T) {
	ctx := context.Background()
	users := storage.NewMemoryStorage()
	user, err := users.GetOrCreateUser(ctx, testUser.Profile())
	require.NoError(t, err)
	user.State.ViewName = "HOME"
	require.NoError(t, users.SaveUser(ctx, user))

	registry := NewRegistry()
	require.NoError(t, registry.Init(
		&Route{Name: "HOME", View: Dummy{}, Resolver: commandResolver("/home")},
		&Route{Name: "OTHER", View: Dummy{}, Resolver: commandResolver("/other")},
	))

	route, err := NewRequest(messageEvent(1, "text"), users, registry).Route(ctx)
	require.NoError(t, err)
	assert.Equal(t, "HOME", route.Name)
}

func TestRequest_StaleCallbackResolvesToFallback(t *testing.T) {
	always := ResolverFunc(func(context.Context, *Request, *Route) (bool, error) { return true, nil })

	registry := NewRegistry()
	require.NoError(t, registry.Init(&Route{Name: "ANY", View: Dummy{}, Resolver: always}))

	route, err := NewRequest(callbackEvent("outdated"), storage.NewMemoryStorage(), registry).Route(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DummyName, route.Name)

	route, err = NewRequest(messageEvent(1, "text"), storage.NewMemoryStorage(), registry).Route(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ANY", route.Name)
}

func TestRequest_NotResolvedWithoutFallback(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&Route{Name: "ONLY", View: Dummy{}, Resolver: commandResolver("/only")}))

	_, err := NewRequest(messageEvent(1, "text"), storage.NewMemoryStorage(), registry).Route(context.Background())
	assert.ErrorIs(t, err, ErrRouteNotResolved)
}

func TestCallbackResolver(t *testing.T) {
	ctx := context.Background()
	users := storage.NewMemoryStorage()
	user, err := users.GetOrCreateUser(ctx, testUser.Profile())
	require.NoError(t, err)
	callback := storage.NewCallback("TARGET")
	user.State.Callbacks[callback.ID] = callback
	require.NoError(t, users.SaveUser(ctx, user))

	registry := NewRegistry()
	target := &Route{Name: "TARGET", View: Dummy{}}
	other := &Route{Name: "OTHER", View: Dummy{}}
	require.NoError(t, registry.Init(other, target))

	req := NewRequest(callbackEvent(callback.ID), users, registry)
	ok, err := CallbackResolver{}.Resolve(ctx, req, target)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CallbackResolver{}.Resolve(ctx, req, other)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = CallbackResolver{}.Resolve(ctx, NewRequest(messageEvent(1, callback.ID), users, registry), target)
	require.NoError(t, err)
	assert.False(t, ok, "only button presses resolve")
}

func TestEvent_CanonicalMessage(t *testing.T) {
	msg := inlineEvent("query").CanonicalMessage()
	assert.Equal(t, -1, msg.ID)
	assert.Equal(t, testUser.ID, msg.ChatID)
	assert.Equal(t, "query", msg.Text)

	cb := callbackEvent("x")
	assert.Same(t, cb.Callback.Message, cb.CanonicalMessage())

	cb.Callback.Message = nil
	assert.Equal(t, testUser.ID, cb.CanonicalMessage().ChatID)

	both := Event{Message: &Message{}, Inline: &InlineQuery{}}
	assert.ErrorIs(t, both.Validate(), ErrInvalidEvent)
}
