package storage

import (
	"context"
	"fmt"
	"time"
)

// ReplaceCatalog swaps the catalog snapshot for a fresh one in a single
// transaction. Readers either see the old snapshot or the new one, never a
// mix.
func (s *Store) ReplaceCatalog(ctx context.Context, products []Product) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning catalog replace: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM catalog_products"); err != nil {
		tx.Rollback()
		return fmt.Errorf("clearing catalog: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO catalog_products (id, name, price, currency, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing catalog insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, p := range products {
		active := 0
		if p.Active {
			active = 1
		}
		if _, err := stmt.Exec(p.ID, p.Name, p.Price, p.Currency, active, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting product %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}

// ActiveProducts returns the active rows of the catalog snapshot ordered by
// product ID for deterministic iteration.
func (s *Store) ActiveProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, currency, active, updated_at
		FROM catalog_products
		WHERE active = 1
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		var active int
		var updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Currency, &active, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		p.Active = active == 1
		t, err := time.Parse(time.RFC3339, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at for product %s: %w", p.ID, err)
		}
		p.UpdatedAt = t
		products = append(products, p)
	}
	return products, rows.Err()
}

// CatalogCount returns the number of rows in the catalog snapshot.
func (s *Store) CatalogCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog_products").Scan(&count)
	return count, err
}
