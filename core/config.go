package core

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	Telegram struct {
		Token       string `yaml:"token" env:"TELEGRAM_TOKEN" env-default:""`
		UserName    string `yaml:"username" env:"TELEGRAM_USERNAME" env-default:""`
		Timeout     int    `yaml:"timeout" env-default:"60"`
		MainChannel int64  `yaml:"main_channel" env:"TELEGRAM_MAIN_CHANNEL" env-default:"0"`
	} `yaml:"telegram"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:"admin"`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"tgviews"`
	} `yaml:"mongo"`
	Redis struct {
		Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
		Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"127.0.0.1:6379"`
		Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
		DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	} `yaml:"redis"`
	Bot struct {
		AllowGroups        bool          `yaml:"allow_groups" env-default:"false"`
		SerializeUsers     bool          `yaml:"serialize_users" env-default:"false"`
		LockTTL            time.Duration `yaml:"lock_ttl" env-default:"30s"`
		Apology            string        `yaml:"apology" env-default:"Sorry, something went wrong. Please try again later."`
		MaxRedirects       int           `yaml:"max_redirects" env-default:"16"`
		MaxCallbacks       int           `yaml:"max_callbacks" env-default:"0"`
		CallbackMaxAge     time.Duration `yaml:"callback_max_age" env-default:"0s"`
		SubscriptionNotice string        `yaml:"subscription_notice" env-default:""`
	} `yaml:"bot"`
}

var instance *Config
var once sync.Once

// Load reads the config file, environment variables override file values
func Load(path string) (*Config, error) {
	conf := &Config{}
	if err := cleanenv.ReadConfig(path, conf); err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("config: %s; %s", err, desc)
	}
	return conf, nil
}

func GetConfig(path string) (*Config, error) {
	var err error
	once.Do(func() {
		instance, err = Load(path)
	})
	return instance, err
}

func MustLoad(path string) *Config {
	conf, err := GetConfig(path)
	if err != nil {
		log.Fatalf("loading config %s: %v", path, err)
	}
	return conf
}

func (c *Config) MongoURI() string {
	return fmt.Sprintf("mongodb://%s:%s@%s:%s", c.Mongo.User, c.Mongo.Password, c.Mongo.Host, c.Mongo.Port)
}
