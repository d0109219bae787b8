package cliopt

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Options are loaded once at the CLI root and passed to subcommands.
// They mirror dynaquery.OpenOptions plus output settings.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command and per-command code.
type Options struct {
	Backend string `koanf:"backend"`
	// Schema is the path of the JSON or YAML record description.
	Schema  string `koanf:"schema"`
	Output  string `koanf:"output"`
	Verbose bool   `koanf:"verbose"`

	File     FileOptions     `koanf:"file"`
	SQLite   SQLiteOptions   `koanf:"sqlite"`
	Postgres PostgresOptions `koanf:"postgres"`
	Redis    RedisOptions    `koanf:"redis"`
	DynamoDB DynamoDBOptions `koanf:"dynamodb"`
}

type FileOptions struct {
	Path string `koanf:"path"`
}

type SQLiteOptions struct {
	Path   string `koanf:"path"`
	Driver string `koanf:"driver"`
	Table  string `koanf:"table"`
}

type PostgresOptions struct {
	DSN    string `koanf:"dsn"`
	Schema string `koanf:"schema"`
	Table  string `koanf:"table"`
}

type RedisOptions struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type DynamoDBOptions struct {
	Table    string `koanf:"table"`
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`
}

const (
	EnvPrefix         = "DYNAQUERY_"
	DefaultConfigFile = "dynaquery.yaml"
	DefaultBackend    = "file"
	DefaultOutput     = "table"
)

// sections are the nested config groups; a flag named "<section>-<key>"
// maps to "<section>.<key>".
var sections = map[string]bool{
	"file": true, "sqlite": true, "postgres": true, "redis": true, "dynamodb": true,
}

// BindFlags registers the global flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default: ./"+DefaultConfigFile+")")
	fs.String("backend", "", "backend: file|sqlite|postgres|redis|dynamodb")
	fs.String("schema", "", "record description file (.json, .yaml)")
	fs.StringP("output", "o", "", "output format: table|json")
	fs.BoolP("verbose", "v", false, "debug logging on stderr")

	fs.String("file-path", "", "JSON-lines file for the file backend")

	fs.String("sqlite-path", "", "sqlite database file")
	fs.String("sqlite-driver", "", "sqlite driver: sqlite|sqlite3")
	fs.String("sqlite-table", "", "sqlite table (default: description name)")

	fs.String("postgres-dsn", "", "postgres DSN")
	fs.String("postgres-schema", "", "postgres schema (default: public)")
	fs.String("postgres-table", "", "postgres table (default: description name)")

	fs.String("redis-addr", "", "redis address host:port")
	fs.String("redis-password", "", "redis password")
	fs.Int("redis-db", 0, "redis db number")
	fs.String("redis-prefix", "", "redis key prefix (default: <name>:)")

	fs.String("dynamodb-table", "", "dynamodb table (default: description name)")
	fs.String("dynamodb-region", "", "aws region")
	fs.String("dynamodb-endpoint", "", "dynamodb endpoint override")
}

// flagKey maps a flag name to its config key.
func flagKey(name string) string {
	if section, rest, ok := strings.Cut(name, "-"); ok && sections[section] {
		return section + "." + strings.ReplaceAll(rest, "-", "_")
	}
	return strings.ReplaceAll(name, "-", "_")
}

// Load reads configuration. Precedence (highest to lowest): flags > env vars
// > config file > defaults. A missing default config file is not an error.
func Load(cfgFile string, flags *pflag.FlagSet) (Options, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]any{
		"backend": DefaultBackend,
		"output":  DefaultOutput,
		"verbose": false,
	}, "."), nil); err != nil {
		return Options{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			cfgFile = DefaultConfigFile
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return Options{}, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// DYNAQUERY_SQLITE_PATH -> sqlite.path
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return Options{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return Options{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var o Options
	if err := k.Unmarshal("", &o); err != nil {
		return Options{}, fmt.Errorf("unable to decode config: %w", err)
	}
	return o, nil
}
