// Package config loads server settings from defaults, an optional config
// file, STOCKLEDGER_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. STOCKLEDGER_DB_PATH.
const EnvPrefix = "STOCKLEDGER"

// Config is the full server configuration.
type Config struct {
	DB    DBConfig    `mapstructure:"db"`
	HTTP  HTTPConfig  `mapstructure:"http"`
	Log   LogConfig   `mapstructure:"log"`
	JWT   JWTConfig   `mapstructure:"jwt"`
	Admin AdminConfig `mapstructure:"admin"`
}

// DBConfig locates the SQLite database.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig configures logging. Format is "console" or "json".
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// JWTConfig configures token signing. An empty Secret means the secret
// persisted in the database is used.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
}

// AdminConfig names the superadmin created on first run.
type AdminConfig struct {
	Email string `mapstructure:"email"`
	Name  string `mapstructure:"name"`
}

var defaults = map[string]any{
	"db.path":               "stockledger.sqlite3",
	"http.addr":             ":8080",
	"http.shutdown_timeout": 5 * time.Second,
	"log.level":             "info",
	"log.format":            "console",
	"log.file":              "",
	"jwt.secret":            "",
	"jwt.expiry":            7 * 24 * time.Hour,
	"admin.email":           "admin@localhost",
	"admin.name":            "Admin",
}

// flagKeys maps each command-line flag, long and short, to its config key.
var flagKeys = []struct {
	long, short, key, usage string
}{
	{"db", "d", "db.path", "SQLite database path"},
	{"addr", "a", "http.addr", "listen address"},
	{"log", "l", "log.file", "log file path"},
	{"log-level", "", "log.level", "log level (debug, info, warn, error)"},
	{"log-format", "", "log.format", "log format (console, json)"},
	{"admin-email", "u", "admin.email", "superadmin email on first run"},
	{"admin-name", "", "admin.name", "superadmin display name on first run"},
}

// ErrHelp is returned by Load when -h or -help was passed.
var ErrHelp = flag.ErrHelp

// Load parses args and builds the configuration. getenv is consulted for
// environment overrides; pass os.Getenv outside tests.
func Load(args []string, getenv func(string) string, usage io.Writer) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	fs := flag.NewFlagSet("stockledger", flag.ContinueOnError)
	fs.SetOutput(usage)
	var configFile string
	fs.StringVar(&configFile, "config", "", "config file path")
	fs.StringVar(&configFile, "c", "", "config file path")
	values := make(map[string]*string, len(flagKeys))
	for _, f := range flagKeys {
		p := new(string)
		fs.StringVar(p, f.long, "", f.usage)
		if f.short != "" {
			fs.StringVar(p, f.short, "", f.usage)
		}
		values[f.key] = p
	}
	fs.Usage = func() { printUsage(usage) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	if configFile == "" {
		configFile = getenv(EnvPrefix + "_CONFIG")
	}
	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	for key := range defaults {
		env := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if val := getenv(env); val != "" {
			v.Set(key, val)
		}
	}

	// Only flags that were given override lower layers.
	fs.Visit(func(f *flag.Flag) {
		for _, fk := range flagKeys {
			if f.Name == fk.long || f.Name == fk.short {
				v.Set(fk.key, *values[fk.key])
			}
		}
	})

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("stockledger")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch {
	case c.DB.Path == "":
		return errors.New("db.path is required")
	case c.HTTP.Addr == "":
		return errors.New("http.addr is required")
	case c.JWT.Expiry <= 0:
		return errors.New("jwt.expiry must be positive")
	case c.Log.Format != "console" && c.Log.Format != "json":
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	case c.Admin.Email == "":
		return errors.New("admin.email is required")
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: stockledger [flags]

Flags:
  -c, -config <path>      config file (default: ./stockledger.{yaml,json,toml,env} if present)
  -d, -db <path>          SQLite database path (default: stockledger.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -admin-email <addr> superadmin email on first run (default: admin@localhost)
      -admin-name <name>  superadmin display name on first run (default: Admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
      -log-level <level>  debug, info, warn or error (default: info)
      -log-format <fmt>   console or json (default: console)
  -h, -help               show this help and exit

Every setting can also be given as an environment variable, for example
STOCKLEDGER_DB_PATH, STOCKLEDGER_JWT_SECRET or STOCKLEDGER_JWT_EXPIRY=24h.
`)
}
