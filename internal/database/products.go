package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createCategory = `
INSERT INTO categories (name, description)
VALUES ($1, $2)
RETURNING id, name, description, created_at
`

type CreateCategoryParams struct {
	Name        string
	Description pgtype.Text
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRow(ctx, createCategory, arg.Name, arg.Description)
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	return c, err
}

const listCategories = `
SELECT id, name, description, created_at
FROM categories
ORDER BY name
`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.Query(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const createProduct = `
INSERT INTO products (category_id, name, unit_price, stock)
VALUES ($1, $2, $3, $4)
RETURNING id, category_id, name, unit_price, stock, is_active, created_at, updated_at
`

type CreateProductParams struct {
	CategoryID uuid.UUID
	Name       string
	UnitPrice  pgtype.Numeric
	Stock      int32
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct, arg.CategoryID, arg.Name, arg.UnitPrice, arg.Stock)
	return scanProduct(row)
}

const getProduct = `
SELECT id, category_id, name, unit_price, stock, is_active, created_at, updated_at
FROM products
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const getProductForUpdate = `
SELECT id, category_id, name, unit_price, stock, is_active, created_at, updated_at
FROM products
WHERE id = $1 AND is_active = true
FOR UPDATE
`

// GetProductForUpdate locks the product row for the rest of the transaction,
// serializing concurrent stock decrements against it.
func (q *Queries) GetProductForUpdate(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProductForUpdate, id))
}

const listProducts = `
SELECT id, category_id, name, unit_price, stock, is_active, created_at, updated_at
FROM products
WHERE is_active = true
ORDER BY name
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.UnitPrice, &p.Stock,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const updateProduct = `
UPDATE products
SET category_id = $2, name = $3, unit_price = $4, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING id, category_id, name, unit_price, stock, is_active, created_at, updated_at
`

type UpdateProductParams struct {
	ID         uuid.UUID
	CategoryID uuid.UUID
	Name       string
	UnitPrice  pgtype.Numeric
}

// UpdateProduct changes catalog fields only. Stock is deliberately excluded:
// it moves exclusively through DecrementStock paired with a movement row.
func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct, arg.ID, arg.CategoryID, arg.Name, arg.UnitPrice)
	return scanProduct(row)
}

const softDeleteProduct = `
UPDATE products
SET is_active = false, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING id
`

func (q *Queries) SoftDeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteProduct, id).Scan(&out)
	return out, err
}

const decrementStock = `
UPDATE products
SET stock = stock - $2, updated_at = now()
WHERE id = $1 AND stock >= $2
RETURNING id, category_id, name, unit_price, stock, is_active, created_at, updated_at
`

type DecrementStockParams struct {
	ID       uuid.UUID
	Quantity int32
}

// DecrementStock atomically deducts stock. The WHERE clause guards against
// going negative: pgx.ErrNoRows means insufficient stock.
func (q *Queries) DecrementStock(ctx context.Context, arg DecrementStockParams) (Product, error) {
	row := q.db.QueryRow(ctx, decrementStock, arg.ID, arg.Quantity)
	return scanProduct(row)
}

func scanProduct(row interface{ Scan(...any) error }) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.UnitPrice, &p.Stock,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
