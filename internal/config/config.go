// Package config decodes the gateway's configuration table from CLI flags
// and environment variables, following the teacher's practice in
// cmd/smf/main.go of binding a flag struct per command with
// spf13/pflag/cobra.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/pflag"
)

// Config is the fully-resolved gateway configuration: explicit dial
// options win over anything decoded from databaseUrl, per spec.
type Config struct {
	Host            string
	User            string
	Password        string
	Port            int
	Database        string
	DatabaseURL     string
	PortNumber      int
	ConnectionLimit int
	JWTSecret       string
	JWTRequired     bool
	StorageFolder   string
	Dev             bool
}

// Defaults matches spec.md §6's stated defaults.
func Defaults() Config {
	return Config{
		Port:            3306,
		PortNumber:      3000,
		ConnectionLimit: 10,
	}
}

// BindFlags registers the configuration table as flags on fs, seeded with
// cfg's current (default) values.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Host, "host", cfg.Host, "database host")
	fs.StringVar(&cfg.User, "user", cfg.User, "database user")
	fs.StringVar(&cfg.Password, "password", cfg.Password, "database password")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "database port")
	fs.StringVar(&cfg.Database, "database", cfg.Database, "database name")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "single connection URI")
	fs.IntVar(&cfg.PortNumber, "port-number", cfg.PortNumber, "HTTP listen port")
	fs.IntVar(&cfg.ConnectionLimit, "connection-limit", cfg.ConnectionLimit, "max pool connections")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", cfg.JWTSecret, "symmetric bearer-token verification key")
	fs.BoolVar(&cfg.JWTRequired, "jwt-required", cfg.JWTRequired, "reject requests without a verifiable bearer")
	fs.StringVar(&cfg.StorageFolder, "storage-folder", cfg.StorageFolder, "working directory for upload/download")
	fs.BoolVar(&cfg.Dev, "dev", cfg.Dev, "enable development-mode (console) logging")
}

// envOverrides applies environment variables over cfg's current values:
// a set variable replaces whatever cfg holds, including a value that came
// from a flag. Integer and boolean variables that fail to parse are ignored.
func envOverrides(cfg *Config) {
	apply := func(key string, set func(string)) {
		if v, ok := os.LookupEnv(key); ok {
			set(v)
		}
	}
	apply("PGRST_HOST", func(v string) { cfg.Host = v })
	apply("PGRST_USER", func(v string) { cfg.User = v })
	apply("PGRST_PASSWORD", func(v string) { cfg.Password = v })
	apply("PGRST_DATABASE", func(v string) { cfg.Database = v })
	apply("PGRST_DATABASE_URL", func(v string) { cfg.DatabaseURL = v })
	apply("PGRST_JWT_SECRET", func(v string) { cfg.JWTSecret = v })
	apply("PGRST_STORAGE_FOLDER", func(v string) { cfg.StorageFolder = v })
	if v, ok := os.LookupEnv("PGRST_PORT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v, ok := os.LookupEnv("PGRST_PORT_NUMBER"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PortNumber = n
		}
	}
	if v, ok := os.LookupEnv("PGRST_CONNECTION_LIMIT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ConnectionLimit = n
		}
	}
	if v, ok := os.LookupEnv("PGRST_JWT_REQUIRED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.JWTRequired = b
		}
	}
}

// Resolve applies environment overrides, then merges any databaseUrl into
// explicit dial options — explicit options always win over the decoded
// URL, per spec.md §6 ("explicit options win") — and returns a dial DSN
// ready for sql.Open("mysql", dsn).
func Resolve(cfg *Config) (string, error) {
	envOverrides(cfg)

	if cfg.DatabaseURL != "" {
		parsed, err := ParseDatabaseURL(cfg.DatabaseURL)
		if err != nil {
			return "", err
		}
		if cfg.Host == "" {
			cfg.Host = parsed.Host
		}
		if cfg.User == "" {
			cfg.User = parsed.User
		}
		if cfg.Password == "" {
			cfg.Password = parsed.Password
		}
		if cfg.Database == "" {
			cfg.Database = parsed.Database
		}
		if parsed.Port != 0 && cfg.Port == Defaults().Port {
			cfg.Port = parsed.Port
		}
		if parsed.HasConnLimit && cfg.ConnectionLimit == Defaults().ConnectionLimit {
			cfg.ConnectionLimit = parsed.ConnectionLimit
		}
	}

	if cfg.Host == "" || cfg.Database == "" {
		return "", fmt.Errorf("config: host and database are required (directly or via database-url)")
	}

	driverCfg := mysql.NewConfig()
	driverCfg.Net = "tcp"
	driverCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	driverCfg.User = cfg.User
	driverCfg.Passwd = cfg.Password
	driverCfg.DBName = cfg.Database
	driverCfg.ParseTime = true
	return driverCfg.FormatDSN(), nil
}
