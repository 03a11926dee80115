package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"Tgviews/core"
	"Tgviews/lib/sl"
	"Tgviews/lock"
	"Tgviews/storage"
	"Tgviews/views"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

// Dispatcher handles one event
type Dispatcher interface {
	Dispatch(ctx context.Context, event views.Event) (*views.Route, error)
}

type TgBot struct {
	conf       *core.Config
	api        *tgbotapi.BotAPI
	dispatcher Dispatcher
	locks      storage.LockStorage
	log        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTgBot(conf *core.Config, log *slog.Logger) (*TgBot, error) {
	api, err := tgbotapi.NewBotAPI(conf.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("creating bot api: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TgBot{
		conf:   conf,
		api:    api,
		log:    log.With(sl.Module("bot")),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// SetDispatcher set the event dispatcher
func (t *TgBot) SetDispatcher(dispatcher Dispatcher) {
	t.dispatcher = dispatcher
}

// SetLocks enables per-user serialization when the config asks for it
func (t *TgBot) SetLocks(locks storage.LockStorage) {
	t.locks = locks
}

func (t *TgBot) UserName() string {
	if t.conf.Telegram.UserName != "" {
		return t.conf.Telegram.UserName
	}
	return t.api.Self.UserName
}

// Start reads updates until Stop is called, each event is dispatched in its own goroutine
func (t *TgBot) Start() error {
	if t.dispatcher == nil {
		return errors.New("dispatcher is not set")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.conf.Telegram.Timeout

	updates, err := t.api.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("getting updates: %w", err)
	}
	t.log.Info("listening for updates", slog.String("username", t.api.Self.UserName))

	for {
		select {
		case <-t.ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			event, ok := eventFromUpdate(update, t.api.Self.ID, t.conf.Bot.AllowGroups)
			if !ok {
				continue
			}
			t.wg.Add(1)
			go func() {
				defer t.wg.Done()
				t.handle(t.ctx, event)
			}()
		}
	}
}

// Stop stops reading updates and waits for running dispatches
func (t *TgBot) Stop() {
	t.api.StopReceivingUpdates()
	t.cancel()
	t.wg.Wait()
}

func (t *TgBot) handle(ctx context.Context, event views.Event) {
	dispatch := func(ctx context.Context) error {
		_, err := t.dispatcher.Dispatch(ctx, event)
		return err
	}

	if !t.conf.Bot.SerializeUsers || t.locks == nil {
		// dispatch failures are logged by the dispatcher
		_ = dispatch(ctx)
		return
	}

	from := event.From()
	l := lock.New(t.locks, fmt.Sprintf("user:%d", from.ID), lock.Options{
		TTL:       t.conf.Bot.LockTTL,
		Wait:      true,
		AutoRenew: true,
	}, t.log)
	if err := l.Do(ctx, dispatch); err != nil {
		t.log.Debug("serialized dispatch", sl.User(from.ID, from.UserName), sl.Err(err))
	}
}
