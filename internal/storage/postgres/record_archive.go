package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hypeflow/internal/domain"
	"hypeflow/internal/storage"
)

// RecordArchive implements storage.RecordArchive using PostgreSQL.
type RecordArchive struct {
	pool *Pool
}

// NewRecordArchive creates a new RecordArchive.
func NewRecordArchive(pool *Pool) *RecordArchive {
	return &RecordArchive{pool: pool}
}

// Compile-time interface check.
var _ storage.RecordArchive = (*RecordArchive)(nil)

// Append stores an admitted record. Returns ErrDuplicateKey if the mint exists.
func (a *RecordArchive) Append(ctx context.Context, r *domain.NFTRecord) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO nft_records (
			id, collection_id, owner, name, description, image,
			price, currency, source, discovered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := a.pool.Exec(ctx, query,
		r.ID,
		r.CollectionID,
		r.Owner,
		r.Metadata.Name,
		r.Metadata.Description,
		r.Metadata.Image,
		r.Price,
		r.Currency,
		string(r.Source),
		r.DiscoveredAt,
	)
	return mapError("append nft record", err)
}

// Get retrieves an archived record by mint. Returns ErrNotFound if not exists.
func (a *RecordArchive) Get(ctx context.Context, id string) (*domain.NFTRecord, error) {
	query := `
		SELECT id, collection_id, owner, name, description, image,
		       price, currency, source, discovered_at
		FROM nft_records
		WHERE id = $1
	`

	r, err := scanRecord(a.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("get nft record", err)
	}
	return r, nil
}

// Count returns the number of archived records.
func (a *RecordArchive) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := a.pool.QueryRow(ctx, `SELECT count(*) FROM nft_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count nft records: %w", err)
	}
	return n, nil
}

func scanRecord(row pgx.Row) (*domain.NFTRecord, error) {
	var r domain.NFTRecord
	var source string
	err := row.Scan(
		&r.ID,
		&r.CollectionID,
		&r.Owner,
		&r.Metadata.Name,
		&r.Metadata.Description,
		&r.Metadata.Image,
		&r.Price,
		&r.Currency,
		&source,
		&r.DiscoveredAt,
	)
	if err != nil {
		return nil, err
	}
	r.Source = domain.Source(source)
	return &r, nil
}
