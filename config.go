package habanero

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/habanero-go/habanero/logger"
	"github.com/habanero-go/habanero/schema"
)

const defaultConfig = `
# habanero configuration

[database]
dialect = "sqlite3"
dsn = "file::memory:?cache=shared"
prepare-stmt = false
prepare-stmt-max-size = 0
prepare-stmt-ttl = "24h"

[log]
# silent, error, warn, info
level = "warn"
slow-threshold = "200ms"
# text, json, console, slog, logrus
format = "text"

[session]
user = ""
lock-duration = "15m"

[naming]
table-prefix = ""
singular-table = false
`

// Duration a time.Duration read from text such as "200ms"
type Duration struct {
	time.Duration
}

// UnmarshalText parses the duration
func (d *Duration) UnmarshalText(text []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type DatabaseConfig struct {
	Dialect            string   `toml:"dialect"`
	DSN                string   `toml:"dsn"`
	PrepareStmt        bool     `toml:"prepare-stmt"`
	PrepareStmtMaxSize int      `toml:"prepare-stmt-max-size"`
	PrepareStmtTTL     Duration `toml:"prepare-stmt-ttl"`
}

type LogConfig struct {
	Level         string   `toml:"level"`
	SlowThreshold Duration `toml:"slow-threshold"`
	Colorful      bool     `toml:"colorful"`
	Format        string   `toml:"format"`
}

type SessionConfig struct {
	User         string   `toml:"user"`
	LockDuration Duration `toml:"lock-duration"`
	DryRun       bool     `toml:"dry-run"`
}

type NamingConfig struct {
	TablePrefix   string `toml:"table-prefix"`
	SingularTable bool   `toml:"singular-table"`
}

// FileConfig configuration read from a TOML file
type FileConfig struct {
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	Session  SessionConfig  `toml:"session"`
	Naming   NamingConfig   `toml:"naming"`
}

// LoadConfig reads fileName over the defaults, an empty name returns the defaults
func LoadConfig(fileName string) (*FileConfig, error) {
	config := &FileConfig{}
	if _, err := toml.Decode(defaultConfig, config); err != nil {
		return nil, fmt.Errorf("decode default config: %w", err)
	}

	if fileName != "" {
		if _, err := toml.DecodeFile(fileName, config); err != nil {
			return nil, fmt.Errorf("decode %s: %w", fileName, err)
		}
	}
	return config, config.validate()
}

func (fc *FileConfig) validate() error {
	if fc.Database.Dialect == "" {
		return fmt.Errorf("config: database dialect required")
	}
	if _, err := logger.ParseLevel(fc.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch fc.Log.Format {
	case logger.FormatText, logger.FormatJSON, logger.FormatConsole, logger.FormatSlog, logger.FormatLogrus:
	default:
		return fmt.Errorf("config: unknown log format %q", fc.Log.Format)
	}
	if fc.Session.LockDuration.Duration < 0 {
		return fmt.Errorf("config: negative lock duration")
	}
	return nil
}

// Config converts the file settings into a Config
func (fc *FileConfig) Config() (*Config, error) {
	level, _ := logger.ParseLevel(fc.Log.Level)
	l, err := logger.NewFormat(fc.Log.Format, logger.Config{
		SlowThreshold: fc.Log.SlowThreshold.Duration,
		LogLevel:      level,
		Colorful:      fc.Log.Colorful,
	})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   fc.Naming.TablePrefix,
			SingularTable: fc.Naming.SingularTable,
		},
		Logger:       l,
		DryRun:       fc.Session.DryRun,
		UserName:     fc.Session.User,
		LockDuration: fc.Session.LockDuration.Duration,

		PrepareStmt:        fc.Database.PrepareStmt,
		PrepareStmtMaxSize: fc.Database.PrepareStmtMaxSize,
		PrepareStmtTTL:     fc.Database.PrepareStmtTTL.Duration,
	}, nil
}

// OpenFile loads fileName and opens the database it names
func OpenFile(fileName string) (*DB, error) {
	fc, err := LoadConfig(fileName)
	if err != nil {
		return nil, err
	}
	config, err := fc.Config()
	if err != nil {
		return nil, err
	}
	return Open(NewDialector(fc.Database.Dialect, fc.Database.DSN), config)
}
