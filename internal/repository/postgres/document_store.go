package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/and161185/seedvault/internal/errs"
	"github.com/and161185/seedvault/internal/repository"
)

// documentID is the single row holding the vault.
const documentID = 1

// DocumentStore implements repository.DurableStore on the vault_document table.
type DocumentStore struct {
	db  *DB
	log *zap.Logger
}

var _ repository.DurableStore = (*DocumentStore)(nil)

// NewDocumentStore constructs a document store.
func NewDocumentStore(db *DB, log *zap.Logger) *DocumentStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &DocumentStore{db: db, log: log}
}

// Load implements repository.DurableStore.
func (s *DocumentStore) Load(ctx context.Context) (repository.Document, uint64, error) {
	const q = `SELECT version, doc FROM vault_document WHERE id=$1`
	var (
		ver int64
		raw []byte
	)
	if err := s.db.Pool.QueryRow(ctx, q, documentID).Scan(&ver, &raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Document{}, 0, nil
		}
		return repository.Document{}, 0, err
	}
	var doc repository.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		// Keep the version so the next write replaces the damaged row.
		s.log.Error("vault document is corrupt; starting from an empty vault",
			zap.Int64("version", ver), zap.Error(err))
		return repository.Document{}, uint64(ver), nil
	}
	return doc, uint64(ver), nil
}

// CompareAndSwap implements repository.DurableStore.
func (s *DocumentStore) CompareAndSwap(ctx context.Context, expected uint64, doc repository.Document) (uint64, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("marshal document: %w", err)
	}
	next := expected + 1

	if expected == 0 {
		const ins = `INSERT INTO vault_document (id, version, doc) VALUES ($1, $2, $3)`
		if _, err := s.db.Pool.Exec(ctx, ins, documentID, int64(next), raw); err != nil {
			if isUniqueViolation(err) {
				return 0, fmt.Errorf("vault document already exists: %w", errs.ErrVersionConflict)
			}
			return 0, err
		}
		return next, nil
	}

	const upd = `UPDATE vault_document SET version=$2, doc=$3, updated_at=now() WHERE id=$1 AND version=$4`
	tag, err := s.db.Pool.Exec(ctx, upd, documentID, int64(next), raw, int64(expected))
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("vault document is not at version %d: %w", expected, errs.ErrVersionConflict)
	}
	return next, nil
}
