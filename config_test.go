package main

import (
	"context"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_CONNECTION_STRING", "UseDevelopmentStorage=true")
	t.Setenv("AUTH0_TEST_MODE", "true")
	t.Setenv("TEST_JWT_SECRET", "secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ItemCacheTTL != 5*time.Minute {
		t.Fatalf("expected default cache ttl 5m, got %v", cfg.ItemCacheTTL)
	}
	if cfg.ItemsTable != "KanbanItems" || cfg.ListenPort != "8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MachineID != 0 {
		t.Fatalf("expected unset machine id to stay 0, got %d", cfg.MachineID)
	}
	if tables := cfg.tables(); tables.Items != "KanbanItems" || tables.Attachments != "Attachments" {
		t.Fatalf("unexpected tables: %+v", tables)
	}
}

func TestLoadConfigMachineID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MACHINE_ID", "12")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.MachineID != 12 {
		t.Fatalf("expected machine id 12, got %d", cfg.MachineID)
	}
}

func TestLoadConfigParseError(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ITEM_CACHE_TTL", "soon")

	_, err := loadConfig()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	err := Config{ItemCacheTTL: time.Minute}.validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"STORAGE_CONNECTION_STRING", "Auth0"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}

	err = Config{StorageConnectionString: "x", ItemCacheTTL: time.Minute, Auth0TestMode: true}.validate()
	if err == nil || !strings.Contains(err.Error(), "TEST_JWT_SECRET") {
		t.Fatalf("expected missing secret error, got %v", err)
	}

	err = Config{StorageConnectionString: "x", ItemCacheTTL: time.Minute, Auth0Domain: "tenant.auth0.com", Auth0Audience: "api://kanban"}.validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRedisOptions(t *testing.T) {
	opts := redisOptions("redis://:pw@localhost:6380/2")
	if opts.Addr != "localhost:6380" || opts.Password != "pw" || opts.DB != 2 {
		t.Fatalf("unexpected url options: %+v", opts)
	}

	opts = redisOptions("cache.example.net:6380,password=secret,ssl=True,abortConnect=False")
	if opts.Addr != "cache.example.net:6380" || opts.Password != "secret" || opts.TLSConfig == nil {
		t.Fatalf("unexpected connection string options: %+v", opts)
	}
}

func TestSetupTracingDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := setupTracing(context.Background(), "", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}
