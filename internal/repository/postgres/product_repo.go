package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"motoparts-backend/internal/domain"
)

type productRepository struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) domain.ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, sku, name, slug, description, price, stock, category, brand, images, compatibility, is_active, created_at, updated_at`

var productSortClauses = map[string]string{
	domain.SortNewest:    "created_at DESC, id",
	domain.SortPriceAsc:  "price ASC, id",
	domain.SortPriceDesc: "price DESC, id",
	domain.SortNameAsc:   "LOWER(name) ASC, id",
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p      domain.Product
		compat []byte
	)
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Stock,
		&p.Category, &p.Brand, &p.Images, &compat, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(compat) > 0 {
		if err := json.Unmarshal(compat, &p.Compatibility); err != nil {
			return nil, fmt.Errorf("decode compatibility of %s: %w", p.ID, err)
		}
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()
	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}

func encodeCompatibility(entries []domain.CompatibilityEntry) ([]byte, error) {
	if entries == nil {
		entries = []domain.CompatibilityEntry{}
	}
	return json.Marshal(entries)
}

// productWhere renders the filter as a WHERE clause plus its arguments.
func productWhere(f domain.ProductFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.IsActive != nil {
		conds = append(conds, "is_active = "+arg(*f.IsActive))
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		conds = append(conds, "LOWER(category) = LOWER("+arg(c)+")")
	}
	if b := strings.TrimSpace(f.Brand); b != "" {
		conds = append(conds, "LOWER(brand) = LOWER("+arg(b)+")")
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		p := arg("%" + q + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %[1]s OR description ILIKE %[1]s OR sku ILIKE %[1]s)", p))
	}
	if f.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*f.MaxPrice))
	}
	if f.InStockOnly {
		conds = append(conds, "stock > 0")
	}
	if f.ProductIDs != nil {
		conds = append(conds, "id = ANY("+arg(f.ProductIDs)+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *productRepository) GetProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int64, error) {
	where, args := productWhere(filter)
	q := conn(ctx, r.db)

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	order, ok := productSortClauses[filter.Sort]
	if !ok {
		order = productSortClauses[domain.SortNewest]
	}
	query := "SELECT " + productColumns + " FROM products" + where + " ORDER BY " + order
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := conn(ctx, r.db).QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

func (r *productRepository) GetProductsByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}
	rows, err := conn(ctx, r.db).Query(ctx, "SELECT "+productColumns+" FROM products WHERE id = ANY($1) ORDER BY id", ids)
	if err != nil {
		return nil, fmt.Errorf("query products by ids: %w", err)
	}
	return collectProducts(rows)
}

func (r *productRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if product.Images == nil {
		product.Images = []string{}
	}
	compat, err := encodeCompatibility(product.Compatibility)
	if err != nil {
		return fmt.Errorf("encode compatibility: %w", err)
	}

	err = conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO products (id, sku, name, slug, description, price, stock, category, brand, images, compatibility, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		product.ID, product.SKU, product.Name, product.Slug, product.Description, product.Price, product.Stock,
		product.Category, product.Brand, product.Images, compat, product.IsActive,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", translate(err))
	}
	return nil
}

// UpdateProduct rewrites the descriptive fields. Stock, images and compatibility have
// their own operations.
func (r *productRepository) UpdateProduct(ctx context.Context, product *domain.Product) error {
	row := conn(ctx, r.db).QueryRow(ctx, `
		UPDATE products
		SET sku = $2, name = $3, slug = $4, description = $5, price = $6, category = $7,
		    brand = $8, is_active = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns,
		product.ID, product.SKU, product.Name, product.Slug, product.Description, product.Price,
		product.Category, product.Brand, product.IsActive,
	)
	updated, err := scanProduct(row)
	if err != nil {
		return fmt.Errorf("update product: %w", translate(err))
	}
	*product = *updated
	return nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *productRepository) AddProductImage(ctx context.Context, id, url string) error {
	tag, err := conn(ctx, r.db).Exec(ctx,
		"UPDATE products SET images = array_append(images, $2), updated_at = NOW() WHERE id = $1", id, url)
	if err != nil {
		return fmt.Errorf("append product image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Restock increments stock and writes the log row in one statement.
func (r *productRepository) Restock(ctx context.Context, id string, quantity int, reason, referenceID string) (int, error) {
	var stock int
	err := conn(ctx, r.db).QueryRow(ctx, `
		WITH upd AS (
			UPDATE products SET stock = stock + $2, updated_at = NOW()
			WHERE id = $1
			RETURNING id, stock
		), logged AS (
			INSERT INTO inventory_logs (product_id, change_amount, reason, reference_id)
			SELECT id, $2, $3, $4 FROM upd
		)
		SELECT stock FROM upd`,
		id, quantity, reason, referenceID,
	).Scan(&stock)
	if err != nil {
		return 0, translate(err)
	}
	return stock, nil
}

func (r *productRepository) GetInventoryLogs(ctx context.Context, productID string, limit, offset int) ([]domain.InventoryLog, int64, error) {
	q := conn(ctx, r.db)

	var total int64
	if err := q.QueryRow(ctx,
		"SELECT COUNT(*) FROM inventory_logs WHERE ($1 = '' OR product_id = $1)", productID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count inventory logs: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, product_id, change_amount, reason, reference_id, created_at
		FROM inventory_logs
		WHERE ($1 = '' OR product_id = $1)
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`,
		productID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("query inventory logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.InventoryLog{}
	for rows.Next() {
		var l domain.InventoryLog
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ChangeAmount, &l.Reason, &l.ReferenceID, &l.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan inventory log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate inventory logs: %w", err)
	}
	return logs, total, nil
}

// MutateCompatibility locks the product row for the duration of fn.
func (r *productRepository) MutateCompatibility(ctx context.Context, productID string, fn func([]domain.CompatibilityEntry) ([]domain.CompatibilityEntry, error)) error {
	return inTx(ctx, r.db, func(q querier) error {
		var raw []byte
		err := q.QueryRow(ctx, "SELECT compatibility FROM products WHERE id = $1 FOR UPDATE", productID).Scan(&raw)
		if err != nil {
			return translate(err)
		}
		var current []domain.CompatibilityEntry
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &current); err != nil {
				return fmt.Errorf("decode compatibility of %s: %w", productID, err)
			}
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		encoded, err := encodeCompatibility(next)
		if err != nil {
			return fmt.Errorf("encode compatibility: %w", err)
		}
		_, err = q.Exec(ctx, "UPDATE products SET compatibility = $2, updated_at = NOW() WHERE id = $1", productID, encoded)
		if err != nil {
			return fmt.Errorf("update compatibility: %w", err)
		}
		return nil
	})
}

func (r *productRepository) FindByCompatibilityBrand(ctx context.Context, brand string) ([]domain.Product, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `
		SELECT `+productColumns+`
		FROM products p
		WHERE EXISTS (
			SELECT 1 FROM jsonb_array_elements(p.compatibility) AS e
			WHERE LOWER(TRIM(e->>'brand')) = LOWER(TRIM($1))
		)
		ORDER BY id`, brand)
	if err != nil {
		return nil, fmt.Errorf("query products by brand: %w", err)
	}
	return collectProducts(rows)
}
