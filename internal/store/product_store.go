package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vbonduro/ingredia/internal/domain"
)

// ErrNotFound is returned when a delete targets a row that does not exist.
var ErrNotFound = errors.New("not found")

const productColumns = `id, image_hash, storage_key, mime_type, size_bytes, description, provider, created_at`

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO products (image_hash, storage_key, mime_type, size_bytes, description, provider)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ImageHash, p.StorageKey, p.MimeType, p.SizeBytes, p.Description, p.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *ProductStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

// GetByHash returns the product whose image bytes hash to imageHash, or nil.
func (s *ProductStore) GetByHash(ctx context.Context, imageHash string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE image_hash = ?`, imageHash)
	return scanProduct(row)
}

// ListRecent returns up to limit products, newest first.
func (s *ProductStore) ListRecent(ctx context.Context, limit int) ([]*domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]*domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func (s *ProductStore) UpdateDescription(ctx context.Context, id int64, description, provider string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE products SET description = ?, provider = ? WHERE id = ?
	`, description, provider, id)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return expectOneRow(result, "product")
}

func (s *ProductStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM products WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return expectOneRow(result, "product")
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(&p.ID, &p.ImageHash, &p.StorageKey, &p.MimeType, &p.SizeBytes, &p.Description, &p.Provider, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return p, nil
}

func expectOneRow(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return nil
}
