package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides query access and transaction scoping over the pgx pool.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a store wrapper around a pgx connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Repo returns the non-transactional query set.
func (s *Store) Repo() *Repository {
	return NewRepository(s.db)
}

// RunInTx executes fn within a database transaction; the Repository passed to
// fn is scoped to that transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(r *Repository) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(NewRepository(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
