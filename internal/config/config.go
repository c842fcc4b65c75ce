// Package config resolves runtime settings from the process environment.
// Every variable carries the ONETMART_ prefix; command-line flags may
// override individual fields after loading.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

// Config holds the settings for the ETL and reporting commands.
type Config struct {
	// RawDir holds the dump files to extract.
	RawDir string `env:"RAW_DIR" envDefault:"./data/raw"`
	// LookupPath points to the major-group CSV; empty means RawDir/soc_major_groups.csv.
	LookupPath string `env:"LOOKUP_PATH"`

	// DBPath locates the embedded sqlite warehouse file.
	DBPath string `env:"DB_PATH" envDefault:"./data/warehouse/onet.db"`
	// PostgresDSN, when set, selects the postgres dialect instead of sqlite.
	PostgresDSN string `env:"POSTGRES_DSN"`
	// SchemaPath optionally overrides the embedded schema bundle.
	SchemaPath string `env:"SCHEMA_PATH"`

	// QueriesDir holds the reporting *.sql files.
	QueriesDir string `env:"QUERIES_DIR" envDefault:"./queries"`
	// ReportDriver selects the report sink: fs, s3, or memory.
	ReportDriver string `env:"REPORT_DRIVER" envDefault:"fs"`
	// ReportRoot is the filesystem sink's output directory.
	ReportRoot string `env:"REPORT_ROOT" envDefault:"./reports"`
	// ReportBucket and friends configure the s3 sink.
	ReportBucket    string `env:"REPORT_S3_BUCKET"`
	ReportRegion    string `env:"REPORT_S3_REGION"`
	ReportEndpoint  string `env:"REPORT_S3_ENDPOINT"`
	ReportPathStyle bool   `env:"REPORT_S3_PATH_STYLE"`

	// PushgatewayURL, when set, pushes the run's metrics after completion.
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`

	// LogLevel is a logrus level name.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogJSON switches the log format from text to JSON.
	LogJSON bool `env:"LOG_JSON"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ONETMART_"}); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Logger builds a logrus logger from the config's level and format.
func (c Config) Logger() (*logrus.Logger, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", c.LogLevel, err)
	}
	log.SetLevel(level)
	if c.LogJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log, nil
}
