package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

// ProductPageSize is the fixed page size of the catalog listing.
const ProductPageSize = 12

const productColumns = `id, category_id, sku, name, slug, description, price, stock, active, created_at, updated_at`

func scanProduct(row interface{ Scan(...interface{}) error }, product *models.Product) error {
	return row.Scan(
		&product.ID,
		&product.CategoryID,
		&product.SKU,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
}

func CreateCategory(ctx context.Context, db *sql.DB, name, slug string) (*models.Category, error) {
	category := &models.Category{}

	query := `
		INSERT INTO categories (name, slug)
		VALUES ($1, $2)
		RETURNING id, name, slug`

	err := db.QueryRowContext(ctx, query, name, slug).Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
	)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	return category, nil
}

func ListCategories(ctx context.Context, db *sql.DB) ([]models.Category, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var category models.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Slug); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

func CreateProduct(ctx context.Context, db *sql.DB, categoryID int64, sku, name, slug, description string, price decimal.Decimal, stock int) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (category_id, sku, name, slug, description, price, stock, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW(), NOW())
		RETURNING ` + productColumns

	err := scanProduct(db.QueryRowContext(ctx, query, categoryID, sku, name, slug, description, price, stock), product)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id int64) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	err := scanProduct(db.QueryRowContext(ctx, query, id), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func GetProductBySlug(ctx context.Context, db *sql.DB, slug string) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	err := scanProduct(db.QueryRowContext(ctx, query, slug), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}

	return product, nil
}

// CurrentPrice reads the live catalog price, as distinct from the
// snapshot price a cart line may still carry.
func CurrentPrice(ctx context.Context, db *sql.DB, id int64) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := db.QueryRowContext(ctx, `SELECT price FROM products WHERE id = $1`, id).Scan(&price)
	if err != nil {
		if err == sql.ErrNoRows {
			return decimal.Decimal{}, database.ErrProductNotFound
		}
		return decimal.Decimal{}, fmt.Errorf("current price: %w", err)
	}
	return price, nil
}

func CurrentStock(ctx context.Context, db *sql.DB, id int64) (int, error) {
	var stock int
	err := db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, database.ErrProductNotFound
		}
		return 0, fmt.Errorf("current stock: %w", err)
	}
	return stock, nil
}

// ReserveStock locks the product row for the duration of the enclosing
// transaction and verifies the requested quantity is coverable. The lock
// is what closes the check-then-decrement race between concurrent
// checkouts.
func ReserveStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) (*models.Product, error) {
	product := &models.Product{}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	err := scanProduct(tx.QueryRowContext(ctx, query, productID), product)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	if product.Stock < quantity {
		return nil, &database.InsufficientStockError{
			ProductID: product.ID,
			Name:      product.Name,
			Available: product.Stock,
		}
	}

	return product, nil
}

// DecrementStock is guarded by stock >= quantity so stock can never go
// negative even if a caller skips the row lock.
func DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

type ProductFilter struct {
	Query        string
	CategorySlug string
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Sort         string
	Page         int
}

const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
)

// SearchProducts lists active products matching the filter, paginated at
// ProductPageSize per page.
func SearchProducts(ctx context.Context, db *sql.DB, filter ProductFilter) (*OffsetPage, error) {
	where := []string{"p.active"}
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Query != "" {
		p := arg("%" + filter.Query + "%")
		where = append(where, fmt.Sprintf("(p.name ILIKE %s OR p.description ILIKE %s)", p, p))
	}
	if filter.CategorySlug != "" {
		where = append(where, fmt.Sprintf("c.slug = %s", arg(filter.CategorySlug)))
	}
	if filter.MinPrice != nil {
		where = append(where, fmt.Sprintf("p.price >= %s", arg(*filter.MinPrice)))
	}
	if filter.MaxPrice != nil {
		where = append(where, fmt.Sprintf("p.price <= %s", arg(*filter.MaxPrice)))
	}

	whereClause := strings.Join(where, " AND ")

	var orderBy string
	switch filter.Sort {
	case SortPriceAsc:
		orderBy = "p.price ASC, p.id ASC"
	case SortPriceDesc:
		orderBy = "p.price DESC, p.id ASC"
	case SortNewest:
		orderBy = "p.created_at DESC, p.id DESC"
	default:
		orderBy = "p.created_at DESC, p.id DESC"
	}

	var total int64
	countQuery := `
		SELECT COUNT(*)
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE ` + whereClause
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * ProductPageSize

	query := fmt.Sprintf(`
		SELECT p.id, p.category_id, p.sku, p.name, p.slug, p.description, p.price, p.stock, p.active, p.created_at, p.updated_at
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE %s
		ORDER BY %s
		LIMIT %s OFFSET %s`,
		whereClause, orderBy, arg(ProductPageSize), arg(offset))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totalPages := int(total) / ProductPageSize
	if int(total)%ProductPageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      products,
		Total:      total,
		Page:       page,
		PageSize:   ProductPageSize,
		TotalPages: totalPages,
	}, nil
}
