package cache

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantDB  int
		wantErr bool
	}{
		{"plain", "redis://localhost:6379", 0, false},
		{"with-db", "redis://localhost:6379/3", 3, false},
		{"tls", "rediss://localhost:6380/1", 1, false},
		{"empty", "", 0, true},
		{"wrong-scheme", "http://localhost:6379", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if opts.DB != tt.wantDB {
				t.Errorf("DB = %d, want %d", opts.DB, tt.wantDB)
			}
			if opts.ReadTimeout != 3*time.Second || opts.DialTimeout != 5*time.Second {
				t.Errorf("timeouts = dial %v read %v, want 5s and 3s", opts.DialTimeout, opts.ReadTimeout)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	_, err := New(t.Context(), "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestAppendStream_RejectsBadInput(t *testing.T) {
	opts, err := ParseURL("redis://localhost:59999")
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	tests := []struct {
		name   string
		cache  *Cache
		stream string
		values map[string]any
	}{
		{"nil cache", nil, "events", map[string]any{"type": "x"}},
		{"nil client", &Cache{}, "events", map[string]any{"type": "x"}},
		{"empty stream", &Cache{Client: client}, "", map[string]any{"type": "x"}},
		{"no fields", &Cache{Client: client}, "events", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cache.AppendStream(t.Context(), tt.stream, 10, tt.values); err == nil {
				t.Fatal("AppendStream() should fail before reaching Redis")
			}
		})
	}
}

func TestAppendStream_Redis(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := t.Context()
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting redis: %v", err)
	}
	endpoint, err := ctr.PortEndpoint(ctx, "6379/tcp", "redis")
	if err != nil {
		t.Fatalf("PortEndpoint() error = %v", err)
	}

	c, err := New(ctx, endpoint)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	for i := range 3 {
		if _, err := c.AppendStream(ctx, "tracker:events", 0, map[string]any{"type": "lesson_completed", "n": i}); err != nil {
			t.Fatalf("AppendStream() error = %v", err)
		}
	}

	entries, err := c.Client.XRange(ctx, "tracker:events", "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("stream has %d entries, want 3", len(entries))
	}
	if got := entries[2].Values["n"]; got != "2" {
		t.Errorf("last entry n = %v, want 2", got)
	}
}
