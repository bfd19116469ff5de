// Package backend builds the storage, broadcast and report components selected
// by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"finboard/internal/amqp"
	"finboard/internal/log"
	"finboard/internal/report"
	"finboard/internal/report/sheets"
	"finboard/internal/session"
	"finboard/internal/session/memory"
	"finboard/internal/storage"
	"finboard/internal/storage/redisstore"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the wired components.
type Result struct {
	Persister   session.Persister
	Links       report.LinkStore
	Broadcaster session.Broadcaster
	// Profiles lists profiles with a stored session.
	Profiles func(ctx context.Context) ([]string, error)
	// Ping reports storage health; nil for memory.
	Ping func(ctx context.Context) error
	// PruneLinks drops stale report links; nil when the backend expires them itself.
	PruneLinks func(ctx context.Context, maxAge time.Duration) (int64, error)
	Cleanup    CleanupFunc
}

// Close runs every cleanup registered while building.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates the storage and report components.
type Factory interface {
	Create(ctx context.Context, cfg Config) (*Result, error)
	CreateGenerator(ctx context.Context, cfg Config, api report.Backend) (report.Generator, error)
}

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		res      *Result
		redisCli *redis.Client
		err      error
	)
	switch cfg.Session {
	case MemoryBackend:
		res = f.createMemory()
	case SQLiteBackend:
		res, err = f.createSQLite(cfg)
	case RedisBackend:
		redisCli, err = redisstore.NewClient(cfg.RedisURL)
		if err == nil {
			res = f.createRedis(redisCli)
		}
	default:
		err = fmt.Errorf("unsupported session backend: %s", cfg.Session)
	}
	if err != nil {
		return nil, err
	}

	if err := f.attachBroadcaster(ctx, cfg, res, redisCli); err != nil {
		res.Close()
		return nil, err
	}

	f.logger.InfoContext(ctx, "Initialized session backend",
		"session_backend", cfg.Session.String(),
		"broadcast", string(cfg.Broadcast))
	return res, nil
}

func (f *DefaultFactory) createMemory() *Result {
	store := memory.New()
	return &Result{
		Persister: store,
		Links:     store,
		Profiles:  store.Profiles,
	}
}

func (f *DefaultFactory) createSQLite(cfg Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	return &Result{
		Persister:  repo,
		Links:      repo,
		Profiles:   repo.Profiles,
		Ping:       repo.Ping,
		PruneLinks: repo.PruneLinks,
		Cleanup:    repo.Close,
	}, nil
}

func (f *DefaultFactory) createRedis(client *redis.Client) *Result {
	store := redisstore.New(client, redisstore.WithLogger(f.logger))
	return &Result{
		Persister: store,
		Links:     store,
		Profiles:  store.Profiles,
		Ping:      store.Ping,
		Cleanup:   client.Close,
	}
}

func (f *DefaultFactory) attachBroadcaster(ctx context.Context, cfg Config, res *Result, redisCli *redis.Client) error {
	switch cfg.Broadcast {
	case LocalBroadcast:
		res.Broadcaster = session.LocalBroadcaster{}

	case AMQPBroadcast:
		queue := fmt.Sprintf("%s.%s", cfg.AMQPExchange, uuid.NewString())
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, queue, f.logger)
		if err != nil {
			// sessions still work; other instances see changes on their next cache miss
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without broadcast",
				log.FieldError, err.Error())
			res.Broadcaster = session.LocalBroadcaster{}
			return nil
		}
		f.logger.InfoContext(ctx, "Initialized AMQP broadcast", "exchange", cfg.AMQPExchange, "queue", queue)
		res.Broadcaster = amqp.NewBroadcaster(client, f.logger)

	case RedisBroadcast:
		if redisCli == nil {
			var err error
			redisCli, err = redisstore.NewClient(cfg.RedisURL)
			if err != nil {
				return err
			}
			res.addCleanup(redisCli.Close)
		}
		res.Broadcaster = redisstore.NewBroadcaster(redisCli, "", f.logger)
	}
	return nil
}

func (r *Result) addCleanup(fn CleanupFunc) {
	prev := r.Cleanup
	r.Cleanup = func() error {
		var err error
		if prev != nil {
			err = prev()
		}
		return errors.Join(err, fn())
	}
}

// CreateGenerator builds the configured report generator. api serves the
// backend generator.
func (f *DefaultFactory) CreateGenerator(ctx context.Context, cfg Config, api report.Backend) (report.Generator, error) {
	switch cfg.Generator {
	case SheetsGenerator:
		svc, err := sheets.NewService(ctx, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		gen, err := sheets.New(svc, cfg.GoogleSpreadsheetID, sheets.WithLogger(f.logger))
		if err != nil {
			return nil, err
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets report generator")
		return gen, nil
	default:
		return report.NewAPIGenerator(api), nil
	}
}
