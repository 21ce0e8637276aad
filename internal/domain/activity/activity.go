// Package activity records search activity for later review by admins.
package activity

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bitacora/bitacora/internal/platform/db"
)

// LogEntry is one recorded search.
type LogEntry struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"idUsuario"`
	Term     string    `json:"termino"`
	LoggedAt time.Time `json:"fecha"`
}

type Repository interface {
	Record(ctx context.Context, userID int64, term string) error
	List(ctx context.Context, limit, offset int) ([]LogEntry, int, error)
}

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) Record(ctx context.Context, userID int64, term string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO log_busquedas ("idUsuario", termino, fecha)
		VALUES ($1, $2, NOW())`,
		userID, term)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]LogEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM log_busquedas`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, "idUsuario", termino, fecha
		FROM log_busquedas
		ORDER BY fecha DESC
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []LogEntry{}
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Term, &e.LoggedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
