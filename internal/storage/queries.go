package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type SessionRow struct {
	Profile   string
	UserID    string
	Role      string
	RoleID    string
	UpdatedAt int64
}

const getSession = `SELECT profile, user_id, role, role_id, updated_at FROM sessions WHERE profile = ?`

func (q *Queries) GetSession(ctx context.Context, profile string) (SessionRow, error) {
	var r SessionRow
	err := q.db.QueryRowContext(ctx, getSession, profile).Scan(&r.Profile, &r.UserID, &r.Role, &r.RoleID, &r.UpdatedAt)
	return r, err
}

const upsertSession = `INSERT INTO sessions (profile, user_id, role, role_id, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(profile) DO UPDATE SET
    user_id = excluded.user_id,
    role = excluded.role,
    role_id = excluded.role_id,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertSession(ctx context.Context, r SessionRow) error {
	_, err := q.db.ExecContext(ctx, upsertSession, r.Profile, r.UserID, r.Role, r.RoleID, r.UpdatedAt)
	return err
}

const deleteSession = `DELETE FROM sessions WHERE profile = ?`

func (q *Queries) DeleteSession(ctx context.Context, profile string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, profile)
	return err
}

const listProfiles = `SELECT profile FROM sessions ORDER BY profile`

func (q *Queries) ListProfiles(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listProfiles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const upsertLink = `INSERT INTO report_links (profile, kind, url, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(profile, kind) DO UPDATE SET url = excluded.url, created_at = excluded.created_at`

func (q *Queries) UpsertLink(ctx context.Context, profile, kind, url string, createdAt int64) error {
	_, err := q.db.ExecContext(ctx, upsertLink, profile, kind, url, createdAt)
	return err
}

const getLink = `SELECT url FROM report_links WHERE profile = ? AND kind = ?`

func (q *Queries) GetLink(ctx context.Context, profile, kind string) (string, error) {
	var url string
	err := q.db.QueryRowContext(ctx, getLink, profile, kind).Scan(&url)
	return url, err
}

const deleteLinks = `DELETE FROM report_links WHERE profile = ?`

func (q *Queries) DeleteLinks(ctx context.Context, profile string) error {
	_, err := q.db.ExecContext(ctx, deleteLinks, profile)
	return err
}

const deleteLinksBefore = `DELETE FROM report_links WHERE created_at < ?`

func (q *Queries) DeleteLinksBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteLinksBefore, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
