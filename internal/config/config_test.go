package config

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RawDir != "./data/raw" {
		t.Fatalf("unexpected raw dir default %q", cfg.RawDir)
	}
	if cfg.ReportDriver != "fs" {
		t.Fatalf("unexpected report driver default %q", cfg.ReportDriver)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected log level default %q", cfg.LogLevel)
	}
}

func TestLoadReadsPrefixedEnvironment(t *testing.T) {
	t.Setenv("ONETMART_RAW_DIR", "/srv/onet/raw")
	t.Setenv("ONETMART_POSTGRES_DSN", "postgres://etl@db/onet")
	t.Setenv("ONETMART_REPORT_S3_PATH_STYLE", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RawDir != "/srv/onet/raw" {
		t.Fatalf("env override lost: %q", cfg.RawDir)
	}
	if cfg.PostgresDSN != "postgres://etl@db/onet" {
		t.Fatalf("dsn lost: %q", cfg.PostgresDSN)
	}
	if !cfg.ReportPathStyle {
		t.Fatal("bool env not parsed")
	}
}

func TestLoggerHonorsLevelAndFormat(t *testing.T) {
	cfg := Config{LogLevel: "debug", LogJSON: true}
	log, err := cfg.Logger()
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter, got %T", log.Formatter)
	}
	cfg.LogLevel = "shout"
	if _, err := cfg.Logger(); err == nil {
		t.Fatal("bad level must fail")
	}
}
