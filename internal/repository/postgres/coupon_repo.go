package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"motoparts-backend/internal/domain"
)

type couponRepository struct {
	db *pgxpool.Pool
}

func NewCouponRepository(db *pgxpool.Pool) domain.CouponRepository {
	return &couponRepository{db: db}
}

const couponColumns = `id, code, type, value, min_purchase, max_uses, used_count, valid_from, valid_to, is_active, created_at, updated_at`

func scanCoupon(row pgx.Row) (*domain.Coupon, error) {
	var c domain.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.Type, &c.Value, &c.MinPurchase, &c.MaxUses, &c.UsedCount,
		&c.ValidFrom, &c.ValidTo, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *couponRepository) CreateCoupon(ctx context.Context, c *domain.Coupon) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Code = domain.NormalizeCouponCode(c.Code)
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO coupons (id, code, type, value, min_purchase, max_uses, valid_from, valid_to, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING used_count, created_at, updated_at`,
		c.ID, c.Code, c.Type, c.Value, c.MinPurchase, c.MaxUses, c.ValidFrom, c.ValidTo, c.IsActive,
	).Scan(&c.UsedCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert coupon: %w", translate(err))
	}
	return nil
}

func (r *couponRepository) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c, err := scanCoupon(conn(ctx, r.db).QueryRow(ctx,
		"SELECT "+couponColumns+" FROM coupons WHERE code = $1", domain.NormalizeCouponCode(code)))
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func (r *couponRepository) GetCouponByID(ctx context.Context, id string) (*domain.Coupon, error) {
	c, err := scanCoupon(conn(ctx, r.db).QueryRow(ctx, "SELECT "+couponColumns+" FROM coupons WHERE id = $1", id))
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func (r *couponRepository) ListCoupons(ctx context.Context, limit, offset int) ([]domain.Coupon, error) {
	query := "SELECT " + couponColumns + " FROM coupons ORDER BY created_at DESC, code"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", offset)
	}
	rows, err := conn(ctx, r.db).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query coupons: %w", err)
	}
	defer rows.Close()

	coupons := []domain.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

func (r *couponRepository) CountCoupons(ctx context.Context) (int64, error) {
	var n int64
	if err := conn(ctx, r.db).QueryRow(ctx, "SELECT COUNT(*) FROM coupons").Scan(&n); err != nil {
		return 0, fmt.Errorf("count coupons: %w", err)
	}
	return n, nil
}

// UpdateCoupon leaves used_count alone; only IncrementCouponUsage moves it.
func (r *couponRepository) UpdateCoupon(ctx context.Context, c *domain.Coupon) error {
	c.Code = domain.NormalizeCouponCode(c.Code)
	row := conn(ctx, r.db).QueryRow(ctx, `
		UPDATE coupons
		SET code = $2, type = $3, value = $4, min_purchase = $5, max_uses = $6,
		    valid_from = $7, valid_to = $8, is_active = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING `+couponColumns,
		c.ID, c.Code, c.Type, c.Value, c.MinPurchase, c.MaxUses, c.ValidFrom, c.ValidTo, c.IsActive,
	)
	updated, err := scanCoupon(row)
	if err != nil {
		return fmt.Errorf("update coupon: %w", translate(err))
	}
	*c = *updated
	return nil
}

func (r *couponRepository) IncrementCouponUsage(ctx context.Context, id string) error {
	q := conn(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE coupons SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND (max_uses IS NULL OR used_count < max_uses)`, id)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetCouponByID(ctx, id); err != nil {
		return err
	}
	return domain.ErrConflict
}

func (r *couponRepository) DeleteCoupon(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, "DELETE FROM coupons WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
