package backend

import (
	"fmt"

	"finboard/internal/config"
)

// SessionBackend names where sessions and report links are stored.
type SessionBackend string

const (
	MemoryBackend SessionBackend = "memory"
	SQLiteBackend SessionBackend = "sqlite"
	RedisBackend  SessionBackend = "redis"
)

func (b SessionBackend) String() string { return string(b) }

func (b SessionBackend) IsValid() bool {
	switch b {
	case MemoryBackend, SQLiteBackend, RedisBackend:
		return true
	default:
		return false
	}
}

// BroadcastKind names how session changes reach other instances.
type BroadcastKind string

const (
	LocalBroadcast BroadcastKind = "local"
	AMQPBroadcast  BroadcastKind = "amqp"
	RedisBroadcast BroadcastKind = "redis"
)

// GeneratorKind names the report generator.
type GeneratorKind string

const (
	APIGenerator    GeneratorKind = "api"
	SheetsGenerator GeneratorKind = "sheets"
)

// Config holds what the factory needs from the application config.
type Config struct {
	Session   SessionBackend
	Broadcast BroadcastKind
	Generator GeneratorKind

	SQLiteDBPath string
	RedisURL     string
	AMQPURL      string
	AMQPExchange string

	GoogleSpreadsheetID   string
	GoogleCredentialsFile string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	c := Config{
		Session:               SessionBackend(appConfig.SessionBackend),
		Broadcast:             BroadcastKind(appConfig.Broadcast),
		Generator:             GeneratorKind(appConfig.ReportGenerator),
		SQLiteDBPath:          appConfig.SQLiteDBPath,
		RedisURL:              appConfig.RedisURL,
		AMQPURL:               appConfig.AMQPURL,
		AMQPExchange:          appConfig.AMQPExchange,
		GoogleSpreadsheetID:   appConfig.GoogleSpreadsheetID,
		GoogleCredentialsFile: appConfig.GoogleCredentialsFile,
	}
	return c, c.Validate()
}

// Validate checks combinations the flat config cannot express.
func (c Config) Validate() error {
	if !c.Session.IsValid() {
		return fmt.Errorf("invalid session backend: %s", c.Session)
	}
	switch c.Broadcast {
	case LocalBroadcast:
	case AMQPBroadcast, RedisBroadcast:
		// a broadcast is only useful when instances share storage
		if c.Session == MemoryBackend {
			return fmt.Errorf("broadcast %s requires a shared session backend, not memory", c.Broadcast)
		}
	default:
		return fmt.Errorf("invalid broadcast: %s", c.Broadcast)
	}
	switch c.Generator {
	case APIGenerator:
	case SheetsGenerator:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets report generator")
		}
	default:
		return fmt.Errorf("invalid report generator: %s", c.Generator)
	}
	return nil
}
