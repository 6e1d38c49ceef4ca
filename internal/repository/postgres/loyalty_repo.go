package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"motoparts-backend/internal/domain"
)

type loyaltyRepository struct {
	db *pgxpool.Pool
}

func NewLoyaltyRepository(db *pgxpool.Pool) domain.LoyaltyRepository {
	return &loyaltyRepository{db: db}
}

func (r *loyaltyRepository) GetProgram(ctx context.Context, userID string) (*domain.LoyaltyProgram, error) {
	q := conn(ctx, r.db)
	var p domain.LoyaltyProgram
	err := q.QueryRow(ctx,
		"SELECT user_id, points, tier, updated_at FROM loyalty_programs WHERE user_id = $1", userID,
	).Scan(&p.UserID, &p.Points, &p.Tier, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if p.History, err = r.history(ctx, q, userID); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *loyaltyRepository) history(ctx context.Context, q querier, userID string) ([]domain.PointsEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT id, type, amount, description, order_id, created_at
		FROM loyalty_history
		WHERE user_id = $1
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query loyalty history: %w", err)
	}
	defer rows.Close()

	entries := []domain.PointsEntry{}
	for rows.Next() {
		var e domain.PointsEntry
		if err := rows.Scan(&e.ID, &e.Type, &e.Amount, &e.Description, &e.OrderID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan loyalty entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AdjustPoints upserts the program row, then moves the balance only when it stays
// non-negative. The row lock taken by the first UPDATE covers the tier write.
func (r *loyaltyRepository) AdjustPoints(ctx context.Context, userID string, delta int, tiers domain.TierThresholds, entry domain.PointsEntry) (*domain.LoyaltyProgram, error) {
	var program *domain.LoyaltyProgram
	err := inTx(ctx, r.db, func(q querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO loyalty_programs (user_id, points, tier) VALUES ($1, 0, $2)
			ON CONFLICT (user_id) DO NOTHING`, userID, tiers.TierFor(0))
		if err != nil {
			return fmt.Errorf("ensure loyalty program: %w", err)
		}

		var points int
		err = q.QueryRow(ctx, `
			UPDATE loyalty_programs SET points = points + $2
			WHERE user_id = $1 AND points + $2 >= 0
			RETURNING points`, userID, delta,
		).Scan(&points)
		if err != nil {
			if errors.Is(translate(err), domain.ErrNotFound) {
				return domain.ErrInsufficientPoints
			}
			return fmt.Errorf("adjust points: %w", err)
		}

		var p domain.LoyaltyProgram
		err = q.QueryRow(ctx, `
			UPDATE loyalty_programs SET tier = $2, updated_at = NOW()
			WHERE user_id = $1
			RETURNING user_id, points, tier, updated_at`, userID, tiers.TierFor(points),
		).Scan(&p.UserID, &p.Points, &p.Tier, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update tier: %w", err)
		}

		_, err = q.Exec(ctx, `
			INSERT INTO loyalty_history (user_id, type, amount, description, order_id)
			VALUES ($1, $2, $3, $4, $5)`,
			userID, entry.Type, entry.Amount, entry.Description, entry.OrderID)
		if err != nil {
			return fmt.Errorf("insert loyalty entry: %w", err)
		}

		if p.History, err = r.history(ctx, q, userID); err != nil {
			return err
		}
		program = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return program, nil
}
