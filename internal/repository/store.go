// Package repository implements the service ports on top of MySQL.  Every
// repository runs its statements through a DBTX so the same code serves
// both plain reads and reads/writes inside a transaction.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql" // registers the "mysql" dialect

	"github.com/iliyamo/booktable/internal/service/ports"
)

// dialect builds MySQL statements with `?` placeholders.
var dialect = goqu.Dialect("mysql")

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repos hands out repositories bound to one DBTX.
type repos struct{ q DBTX }

func (r repos) Restaurants() ports.RestaurantRepo   { return &RestaurantRepo{q: r.q} }
func (r repos) Tables() ports.TableRepo             { return &TableRepo{q: r.q} }
func (r repos) Reservations() ports.ReservationRepo { return &ReservationRepo{q: r.q} }
func (r repos) Reviews() ports.ReviewRepo           { return &ReviewRepo{q: r.q} }
func (r repos) Users() ports.UserRepo               { return &UserRepo{q: r.q} }

// Store is the MySQL implementation of ports.Store.
type Store struct {
	repos
	db *sql.DB
}

// NewStore wraps an open connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{repos: repos{q: db}, db: db}
}

// WithinTx runs fn inside a transaction.  The transaction is committed
// only when fn returns nil; every other exit path, including a panic in
// fn, rolls it back.
func (s *Store) WithinTx(ctx context.Context, fn func(ports.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(repos{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}
