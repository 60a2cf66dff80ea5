package memberauth

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestDefaultConfigIsDeepCopy(t *testing.T) {
	first := DefaultConfig()
	first.Lockout.Steps[0].Duration = 999 * time.Hour

	second := DefaultConfig()
	if second.Lockout.Steps[0].Duration == 999*time.Hour {
		t.Fatal("mutating a returned config leaked into later copies")
	}
}

func TestConfigValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty lockout steps",
			mutate:  func(c *Config) { c.Lockout.Steps = nil },
			wantErr: "Lockout.Steps",
		},
		{
			name: "non-ascending thresholds",
			mutate: func(c *Config) {
				c.Lockout.Steps = []LockoutStep{
					{Threshold: 3, Duration: 15 * time.Second},
					{Threshold: 3, Duration: 30 * time.Second},
				}
			},
			wantErr: "strictly ascending",
		},
		{
			name: "decreasing durations",
			mutate: func(c *Config) {
				c.Lockout.Steps = []LockoutStep{
					{Threshold: 3, Duration: 30 * time.Second},
					{Threshold: 6, Duration: 15 * time.Second},
				}
			},
			wantErr: "must not decrease",
		},
		{
			name:    "zero counter retries",
			mutate:  func(c *Config) { c.Lockout.CounterUpdateRetries = 0 },
			wantErr: "CounterUpdateRetries",
		},
		{
			name:    "argon2 memory below floor",
			mutate:  func(c *Config) { c.Password.Memory = 1024 },
			wantErr: "Password.Memory",
		},
		{
			name:    "short salt",
			mutate:  func(c *Config) { c.Password.SaltLength = 8 },
			wantErr: "Password.SaltLength",
		},
		{
			name:    "short minimum password",
			mutate:  func(c *Config) { c.Password.MinLength = 4 },
			wantErr: "Password.MinLength",
		},
		{
			name:    "empty redis prefix",
			mutate:  func(c *Config) { c.Session.RedisPrefix = "" },
			wantErr: "Session.RedisPrefix",
		},
		{
			name:    "session ttl below a minute",
			mutate:  func(c *Config) { c.Session.TTL = time.Second },
			wantErr: "Session.TTL",
		},
		{
			name:    "recovery link threshold zero",
			mutate:  func(c *Config) { c.Recovery.ShowRecoveryLinkAfter = 0 },
			wantErr: "ShowRecoveryLinkAfter",
		},
		{
			name:    "authorization ttl below a minute",
			mutate:  func(c *Config) { c.Recovery.AuthorizationTTL = time.Second },
			wantErr: "AuthorizationTTL",
		},
		{
			name: "audit enabled with no buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantErr: "Audit.BufferSize",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestBuilderRequiresRedis(t *testing.T) {
	_, err := New().WithUserStore(newMockUserStore()).Build()
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected redis requirement error, got %v", err)
	}
}

func TestBuilderRequiresUserStore(t *testing.T) {
	_, rdb := newTestRedis(t)
	_, err := New().WithRedis(rdb).Build()
	if err == nil || !strings.Contains(err.Error(), "user store") {
		t.Fatalf("expected user store requirement error, got %v", err)
	}
}

func TestBuilderSingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)
	builder := New().WithRedis(rdb).WithUserStore(newMockUserStore())

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := builder.Build(); err == nil {
		t.Fatal("expected second Build to be rejected")
	}
}

func TestBuilderConfigSnapshotIsolation(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := DefaultConfig()
	builder := New().WithConfig(cfg).WithRedis(rdb).WithUserStore(newMockUserStore())

	// Mutating the caller's copy after WithConfig must not reach the engine.
	cfg.Lockout.Steps[0].Duration = time.Hour

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if engine.config.Lockout.Steps[0].Duration == time.Hour {
		t.Fatal("expected engine config to be isolated from caller mutations")
	}
}
