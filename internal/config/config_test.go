package config

import (
	"testing"
	"time"
)

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "production", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "telecom", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret", JWTIssuer: "iss", JWTAudience: "aud"},
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := Config{
		App:   AppConfig{Env: "local", Port: 8080},
		DB:    DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "telecom", SSLMode: ""},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		Auth:  AuthConfig{JWTSecret: "secret"},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Call.RingTimeout != 20*time.Second {
		t.Fatalf("expected 20s ring timeout default, got %v", c.Call.RingTimeout)
	}
	if c.Call.ArtifactDir != "calls" {
		t.Fatalf("expected calls artifact dir default, got %q", c.Call.ArtifactDir)
	}
	if c.Auth.MaxPINAttempts != 3 {
		t.Fatalf("expected 3 pin attempts default, got %d", c.Auth.MaxPINAttempts)
	}
	if c.Media.SampleRate != 8000 || c.Media.Channels != 1 {
		t.Fatalf("unexpected media defaults: %+v", c.Media)
	}
	if c.Auth.ManagerUser != "root" || c.Auth.ManagerPIN != "0000" {
		t.Fatalf("unexpected manager defaults: %q/%q", c.Auth.ManagerUser, c.Auth.ManagerPIN)
	}
}
