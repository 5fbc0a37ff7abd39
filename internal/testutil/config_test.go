package testutil

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultTestDBConfig(t *testing.T) {
	t.Run("defaults to local test database port 55432", func(t *testing.T) {
		for _, key := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME"} {
			t.Setenv(key, "")
		}
		cfg := DefaultTestDBConfig()
		if cfg.Host != "localhost" || cfg.Port != "55432" {
			t.Errorf("expected localhost:55432, got %s:%s", cfg.Host, cfg.Port)
		}
		if cfg.User != "gradesync" || cfg.DBName != "gradesync" {
			t.Errorf("expected gradesync user/db, got %s/%s", cfg.User, cfg.DBName)
		}
	})

	t.Run("respects TEST_DB_PORT environment variable", func(t *testing.T) {
		t.Setenv("TEST_DB_PORT", "5432")
		if cfg := DefaultTestDBConfig(); cfg.Port != "5432" {
			t.Errorf("expected Port=5432, got %s", cfg.Port)
		}
	})
}

func TestTestDBConfig_DSNIncludesSearchPath(t *testing.T) {
	cfg := TestDBConfig{Host: "db", Port: "5432", User: "u", Password: "p@ss", DBName: "gs"}
	dsn := cfg.dsn("t_abc,public")
	if !strings.Contains(dsn, "search_path=t_abc%2Cpublic") {
		t.Errorf("dsn missing search_path: %s", dsn)
	}
	if !strings.Contains(dsn, "p%40ss") {
		t.Errorf("dsn should escape the password: %s", dsn)
	}
}

func TestTestTimeProvider(t *testing.T) {
	p := NewTestTimeProvider(TestTime())
	p.AddTime(90 * time.Second)
	if got := p.Now().Sub(TestTime()); got != 90*time.Second {
		t.Errorf("AddTime() advanced %v, want 90s", got)
	}
}
