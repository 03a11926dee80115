package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Tgviews/bot"
	"Tgviews/core"
	"Tgviews/lib/sl"
	"Tgviews/screens"
	"Tgviews/services"
	"Tgviews/storage"
	"Tgviews/views"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	initTimeout = 30 * time.Second
)

type stores struct {
	users storage.UserStorage
	locks storage.LockStorage
	cache storage.CacheStorage
	links storage.LinkStorage
	close func() error
}

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	conf := core.MustLoad(*configPath)
	log := setupLogger(conf.Env)
	log.With(
		slog.String("config", *configPath),
		slog.String("env", conf.Env),
	).Info("starting tgviews bot")

	st := setupStorage(conf, log)

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	for _, s := range []interface{ Init(context.Context) error }{st.users, st.locks, st.cache, st.links} {
		if err := s.Init(ctx); err != nil {
			log.Error("initializing storage", sl.Err(err))
			cancel()
			return
		}
	}
	cancel()

	tgBot, err := bot.NewTgBot(conf, log)
	if err != nil {
		log.Error("creating telegram", sl.Err(err))
		return
	}

	chats := services.NewChats(tgBot, st.cache, log)
	subs := services.NewSubscriptions(tgBot, chats, st.cache, tgBot, conf.Bot.SubscriptionNotice, log)

	registry := views.NewRegistry()
	err = registry.Init(
		screens.NewLinks(st.links).Route(),
		screens.NewCheckSub(subs, conf.Telegram.MainChannel).Route(),
		screens.NewMain(subs, conf.Telegram.MainChannel).Route(),
	)
	if err != nil {
		log.Error("registering routes", sl.Err(err))
		return
	}

	dispatcher := views.NewDispatcher(registry, st.users, tgBot, views.Config{
		Apology:      conf.Bot.Apology,
		MaxRedirects: conf.Bot.MaxRedirects,
		Retention: views.RetentionPolicy{
			MaxCallbacks: conf.Bot.MaxCallbacks,
			MaxAge:       conf.Bot.CallbackMaxAge,
		},
	}, log)
	tgBot.SetDispatcher(dispatcher)
	tgBot.SetLocks(st.locks)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := tgBot.Start(); err != nil {
			log.Error("bot stopped with error", sl.Err(err))
		}
	}()

	log.Info("bot started", slog.String("username", tgBot.UserName()))

	sig := <-sigChan
	log.Info("received signal, shutting down", slog.String("signal", sig.String()))

	tgBot.Stop()

	if err := st.close(); err != nil {
		log.Error("closing storage", sl.Err(err))
	}

	log.Info("shutdown complete")
}

// setupStorage picks mongo when enabled and reachable, memory otherwise; redis replaces the cache when enabled
func setupStorage(conf *core.Config, log *slog.Logger) stores {
	st := stores{
		users: storage.NewMemoryStorage(),
		locks: storage.NewMemoryLockStorage(),
		cache: storage.NewMemoryCacheStorage(),
		links: storage.NewMemoryLinkStorage(),
		close: func() error { return nil },
	}

	if conf.Mongo.Enabled {
		mongoStore, err := storage.NewMongoStorage(conf.MongoURI(), conf.Mongo.Database, log)
		if err != nil {
			log.With(
				slog.String("db", conf.Mongo.Database),
				slog.String("user", conf.Mongo.User),
				slog.String("host", conf.Mongo.Host),
				sl.Secret(conf.Mongo.Password),
			).Error("falling back to memory", sl.Err(err))
		} else {
			client := mongoStore.GetClient()
			database := mongoStore.GetDatabase()
			st.users = mongoStore
			st.locks = storage.NewMongoLockStorage(client, database, log)
			st.cache = storage.NewMongoCacheStorage(client, database, log)
			st.links = storage.NewMongoLinkStorage(client, database, log)
			st.close = mongoStore.Close
			log.Info("using MongoDB storage")
		}
	} else {
		log.Info("using in-memory storage")
	}

	if conf.Redis.Enabled {
		client := storage.NewRedisClient(conf.Redis.Addr, conf.Redis.Password, conf.Redis.DB)
		st.cache = storage.NewRedisCacheStorage(client)
		closeStore := st.close
		st.close = func() error {
			if err := client.Close(); err != nil {
				return err
			}
			return closeStore()
		}
		log.Info("using redis cache", slog.String("addr", conf.Redis.Addr))
	}
	return st
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal, envDev:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
