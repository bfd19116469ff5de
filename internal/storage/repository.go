// Package storage persists sessions and report links in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"finboard/internal/log"
	"finboard/internal/report"
	"finboard/internal/session"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

// NewSQLiteRepository opens dbPath, creating its directory, and migrates it.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single writer keeps SQLITE_BUSY away
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: NewQueries(db),
		logger:  logger.WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Load(ctx context.Context, profile string) (session.Session, error) {
	row, err := r.queries.GetSession(ctx, profile)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, nil
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("load session: %w", err)
	}
	return session.Session{UserID: row.UserID, Role: row.Role, RoleID: row.RoleID}, nil
}

// Save writes the three fields in one statement.
func (r *SQLiteRepository) Save(ctx context.Context, profile string, s session.Session) error {
	err := r.queries.UpsertSession(ctx, SessionRow{
		Profile:   profile,
		UserID:    s.UserID,
		Role:      s.Role,
		RoleID:    s.RoleID,
		UpdatedAt: r.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the session and the profile's report links in one transaction.
func (r *SQLiteRepository) Delete(ctx context.Context, profile string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteSession(ctx, profile); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := q.DeleteLinks(ctx, profile); err != nil {
		return fmt.Errorf("delete report links: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Profiles lists profiles with a stored session.
func (r *SQLiteRepository) Profiles(ctx context.Context) ([]string, error) {
	out, err := r.queries.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SaveLink(ctx context.Context, profile, kind, url string) error {
	if err := r.queries.UpsertLink(ctx, profile, kind, url, r.now().Unix()); err != nil {
		return fmt.Errorf("save report link: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Link(ctx context.Context, profile, kind string) (string, error) {
	url, err := r.queries.GetLink(ctx, profile, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load report link: %w", err)
	}
	return url, nil
}

func (r *SQLiteRepository) DropLinks(ctx context.Context, profile string) error {
	if err := r.queries.DeleteLinks(ctx, profile); err != nil {
		return fmt.Errorf("drop report links: %w", err)
	}
	return nil
}

// PruneLinks drops links created more than maxAge ago.
func (r *SQLiteRepository) PruneLinks(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := r.queries.DeleteLinksBefore(ctx, r.now().Add(-maxAge).Unix())
	if err != nil {
		return 0, fmt.Errorf("prune report links: %w", err)
	}
	if n > 0 {
		r.logger.InfoContext(ctx, "Pruned stale report links", log.FieldCount, n)
	}
	return n, nil
}

var (
	_ session.Persister = (*SQLiteRepository)(nil)
	_ report.LinkStore  = (*SQLiteRepository)(nil)
)
