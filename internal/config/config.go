// Package config defines the process configuration for the dbaccess CLI and
// loads it in layers.
//
// Precedence, lowest to highest:
//
//  1. built-in defaults
//  2. a YAML or JSON file (--config)
//  3. a .env file, whose variables are exported into the environment
//  4. DBACCESS_* environment variables; "__" separates nesting levels, so
//     DBACCESS_BACKEND__HOST sets backend.host
//  5. command-line flags that were explicitly set
//
// Example (YAML):
//
//	backend:
//	  kind: postgresql
//	  host: db.local
//	  database: shop
//	  user: app
//	log:
//	  level: info
//	ingest:
//	  concurrency: 2
//	  jobs:
//	    - table: public.orders
//	      file: data/orders.csv
//	      csv: { comma: ";", encoding: windows-1250, fold_headers: true }
package config

import (
	"os"
	"strings"
	"time"

	"dbaccess/internal/source/csv"
	"dbaccess/internal/source/fetch"
	"dbaccess/internal/storage"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DBACCESS_"

// DefaultEnvFile is read when present and no other env file is named.
const DefaultEnvFile = ".env"

// Config is the full process configuration.
type Config struct {
	Backend Backend `koanf:"backend" json:"backend"`
	Log     Log     `koanf:"log" json:"log"`
	Metrics Metrics `koanf:"metrics" json:"metrics"`
	Ingest  Ingest  `koanf:"ingest" json:"ingest"`
}

// Backend selects the engine and its connection coordinates.
type Backend struct {
	Kind     string `koanf:"kind" json:"kind"`
	Host     string `koanf:"host" json:"host"`
	Database string `koanf:"database" json:"database"`
	User     string `koanf:"user" json:"user"`
	Password string `koanf:"password" json:"-"`
	Port     int    `koanf:"port" json:"port"`
}

// Params converts the section into storage connection parameters.
func (b Backend) Params() storage.ConnectionParams {
	return storage.ConnectionParams{
		Host:     b.Host,
		Database: b.Database,
		User:     b.User,
		Password: b.Password,
		Port:     b.Port,
	}
}

// Log configures the process logger.
type Log struct {
	Level string `koanf:"level" json:"level"`
	JSON  bool   `koanf:"json" json:"json"`
}

// Metrics selects a metrics backend: "none", "prometheus" (Pushgateway) or
// "datadog" (DogStatsD).
type Metrics struct {
	Backend        string `koanf:"backend" json:"backend"`
	Job            string `koanf:"job" json:"job"`
	PushgatewayURL string `koanf:"pushgateway_url" json:"pushgateway_url"`
	DatadogAddr    string `koanf:"datadog_addr" json:"datadog_addr"`
}

// Ingest configures ingestion runs.
type Ingest struct {
	// ProgressEvery is the progress log interval in rows.
	ProgressEvery int `koanf:"progress_every" json:"progress_every"`
	// Concurrency bounds how many jobs run at once.
	Concurrency int   `koanf:"concurrency" json:"concurrency"`
	HTTP        HTTP  `koanf:"http" json:"http"`
	Jobs        []Job `koanf:"jobs" json:"jobs"`
}

// HTTP configures downloads for jobs whose file is an http(s) URL.
type HTTP struct {
	Timeout            time.Duration     `koanf:"timeout" json:"timeout"`
	MaxRetries         int               `koanf:"max_retries" json:"max_retries"`
	InsecureSkipVerify bool              `koanf:"insecure_skip_verify" json:"insecure_skip_verify"`
	Headers            map[string]string `koanf:"headers" json:"-"`
}

// Fetch converts the section into client settings.
func (h HTTP) Fetch() fetch.Config {
	return fetch.Config{
		Timeout:            h.Timeout,
		MaxRetries:         h.MaxRetries,
		InsecureSkipVerify: h.InsecureSkipVerify,
		Headers:            h.Headers,
	}
}

// Job loads one CSV file into one table. File is a local path or an
// http(s) URL.
type Job struct {
	Table string `koanf:"table" json:"table"`
	File  string `koanf:"file" json:"file"`
	CSV   CSV    `koanf:"csv" json:"csv"`
}

// CSV mirrors csv.Options in configuration form.
type CSV struct {
	Comma       string            `koanf:"comma" json:"comma"`
	TrimSpace   bool              `koanf:"trim_space" json:"trim_space"`
	LazyQuotes  bool              `koanf:"lazy_quotes" json:"lazy_quotes"`
	Encoding    string            `koanf:"encoding" json:"encoding"`
	HeaderMap   map[string]string `koanf:"header_map" json:"header_map"`
	FoldHeaders bool              `koanf:"fold_headers" json:"fold_headers"`
	KeepEmpty   bool              `koanf:"keep_empty" json:"keep_empty"`
}

// Options converts the section into reader options. The comma is the first
// rune of Comma; Validate reports longer values.
func (c CSV) Options() csv.Options {
	o := csv.Options{
		TrimSpace:   c.TrimSpace,
		LazyQuotes:  c.LazyQuotes,
		Encoding:    c.Encoding,
		HeaderMap:   c.HeaderMap,
		FoldHeaders: c.FoldHeaders,
		KeepEmpty:   c.KeepEmpty,
	}
	if r := []rune(c.Comma); len(r) > 0 {
		o.Comma = r[0]
	}
	return o
}

func defaults() map[string]any {
	return map[string]any{
		"log.level":               "info",
		"log.json":                false,
		"metrics.backend":         "none",
		"metrics.job":             "dbaccess",
		"ingest.progress_every":   10_000,
		"ingest.concurrency":      1,
		"ingest.http.timeout":     "5m",
		"ingest.http.max_retries": 3,
	}
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"kind":            "backend.kind",
	"host":            "backend.host",
	"database":        "backend.database",
	"user":            "backend.user",
	"password":        "backend.password",
	"port":            "backend.port",
	"log-level":       "log.level",
	"log-json":        "log.json",
	"metrics-backend": "metrics.backend",
	"progress-every":  "ingest.progress_every",
	"concurrency":     "ingest.concurrency",
}

// Sources names the inputs Load reads besides defaults and the environment.
type Sources struct {
	// File is a YAML or JSON config file; empty skips it.
	File string
	// EnvFile is a dotenv file. Empty means DefaultEnvFile, which may be
	// absent; an explicitly named file must exist.
	EnvFile string
	// Flags are applied last, for flags the user set.
	Flags *pflag.FlagSet
}

// Load builds a Config from src. It does not validate it.
func Load(src Sources) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "config: defaults")
	}

	if src.File != "" {
		if err := k.Load(file.Provider(src.File), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "config: read %s", src.File)
		}
	}

	if err := loadEnvFile(src.EnvFile); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "config: environment")
	}

	if src.Flags != nil {
		cb := func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(src.Flags, f)
		}
		if err := k.Load(posflag.ProviderWithFlag(src.Flags, ".", k, cb), nil); err != nil {
			return nil, errors.Wrap(err, "config: flags")
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "config: decode")
	}
	return &cfg, nil
}

// envKey turns DBACCESS_BACKEND__HOST into backend.host.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// loadEnvFile exports a dotenv file without overriding variables that are
// already set.
func loadEnvFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "config: env file")
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "config: env file %s", path)
	}
	return nil
}
