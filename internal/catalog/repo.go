package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("product not found")

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, p Product) (Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PriceCents < 0 {
		return Product{}, fmt.Errorf("negative price for product %s", p.SKU)
	}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, sku, description, price_cents, has_discount)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.SKU, p.Description, p.PriceCents, p.HasDiscount,
	)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, sku, description, price_cents, has_discount, created_at, updated_at
		FROM products WHERE id=$1`, id,
	).Scan(&p.ID, &p.Name, &p.SKU, &p.Description, &p.PriceCents, &p.HasDiscount, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) Update(ctx context.Context, p Product) (Product, error) {
	if p.PriceCents < 0 {
		return Product{}, fmt.Errorf("negative price for product %s", p.SKU)
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE products
		SET name=$2, sku=$3, description=$4, price_cents=$5, has_discount=$6, updated_at=now()
		WHERE id=$1`,
		p.ID, p.Name, p.SKU, p.Description, p.PriceCents, p.HasDiscount,
	)
	if err != nil {
		return Product{}, err
	}
	if ct.RowsAffected() == 0 {
		return Product{}, ErrNotFound
	}
	return r.Get(ctx, p.ID)
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) List(ctx context.Context, limit, offset int) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, sku, description, price_cents, has_discount, created_at, updated_at
		FROM products ORDER BY sku LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ListAvailable returns products not yet claimed by a line item in any open
// cart.
func (r *Repo) ListAvailable(ctx context.Context, limit, offset int) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.name, p.sku, p.description, p.price_cents, p.has_discount, p.created_at, p.updated_at
		FROM products p
		WHERE NOT EXISTS (
			SELECT 1 FROM cart_items ci
			JOIN carts c ON c.id = ci.cart_id
			WHERE ci.product_id = p.id AND c.status = 'open'
		)
		ORDER BY p.sku LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Description, &p.PriceCents, &p.HasDiscount, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
