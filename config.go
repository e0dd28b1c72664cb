package main

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"

	"kanban-api/storage"
)

// Config is read from the environment at startup.
type Config struct {
	StorageConnectionString string `env:"STORAGE_CONNECTION_STRING"`
	ItemsTable              string `env:"ITEMS_TABLE" envDefault:"KanbanItems"`
	FunnelsTable            string `env:"FUNNELS_TABLE" envDefault:"Funnels"`
	ConversationsTable      string `env:"CONVERSATIONS_TABLE" envDefault:"Conversations"`
	UsersTable              string `env:"USERS_TABLE" envDefault:"Users"`
	AttachmentsTable        string `env:"ATTACHMENTS_TABLE" envDefault:"Attachments"`
	EventsQueue             string `env:"EVENTS_QUEUE"`
	ProvisionStorage        bool   `env:"PROVISION_STORAGE"`

	RedisConnectionString string        `env:"REDIS_CONNECTION_STRING"`
	ItemCacheTTL          time.Duration `env:"ITEM_CACHE_TTL" envDefault:"5m"`
	LocalCacheCapacity    uint64        `env:"LOCAL_CACHE_CAPACITY" envDefault:"100000"`

	Auth0Domain    string `env:"AUTH0_DOMAIN"`
	Auth0Audience  string `env:"AUTH0_AUDIENCE"`
	Auth0TestMode  bool   `env:"AUTH0_TEST_MODE"`
	TestJWTSecret  string `env:"TEST_JWT_SECRET"`
	ClaimNamespace string `env:"AUTH0_CLAIM_NAMESPACE"`

	Environment   string `env:"APP_ENV" envDefault:"development"`
	Debug         bool   `env:"DEBUG"`
	DebugEndpoint bool   `env:"DEBUG_ENDPOINT"`
	OTelEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	NotifyWorkers int           `env:"NOTIFY_WORKERS" envDefault:"4"`
	NotifyBuffer  int           `env:"NOTIFY_BUFFER" envDefault:"1024"`
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"30s"`
	NotifyHandoff time.Duration `env:"NOTIFY_HANDOFF" envDefault:"50ms"`

	// Zero lets sonyflake derive the machine id from the private IP.
	MachineID  uint16 `env:"MACHINE_ID"`
	ListenPort string `env:"FUNCTIONS_CUSTOMHANDLER_PORT" envDefault:"8080"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	if c.StorageConnectionString == "" {
		errs = append(errs, errors.New("missing STORAGE_CONNECTION_STRING"))
	}
	if c.ItemCacheTTL <= 0 {
		errs = append(errs, errors.New("ITEM_CACHE_TTL must be greater than zero"))
	}
	if c.Auth0TestMode {
		if c.TestJWTSecret == "" {
			errs = append(errs, errors.New("AUTH0_TEST_MODE requires TEST_JWT_SECRET"))
		}
	} else if c.Auth0Domain == "" || c.Auth0Audience == "" {
		errs = append(errs, errors.New("missing Auth0 config"))
	}
	return errors.Join(errs...)
}

func (c Config) tables() storage.Tables {
	return storage.Tables{
		Items:         c.ItemsTable,
		Funnels:       c.FunnelsTable,
		Conversations: c.ConversationsTable,
		Users:         c.UsersTable,
		Attachments:   c.AttachmentsTable,
	}
}

// redisOptions accepts a redis:// URL or the Azure style
// "host:port,password=...,ssl=True" connection string.
func redisOptions(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
