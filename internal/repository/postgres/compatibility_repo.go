package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"motoparts-backend/internal/domain"
)

type compatibilityRepository struct {
	db *pgxpool.Pool
}

func NewCompatibilityRepository(db *pgxpool.Pool) domain.CompatibilityRepository {
	return &compatibilityRepository{db: db}
}

const (
	modelColumns = `id, brand, model, years, created_at, updated_at`
	ruleColumns  = `id, category, product_ids, motorcycle_ids, is_universal, notes, created_at, updated_at`
)

func scanModel(row pgx.Row) (*domain.MotorcycleModel, error) {
	var m domain.MotorcycleModel
	if err := row.Scan(&m.ID, &m.Brand, &m.Model, &m.Years, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if m.Years == nil {
		m.Years = []int{}
	}
	return &m, nil
}

func scanRule(row pgx.Row) (*domain.CompatibilityRule, error) {
	var r domain.CompatibilityRule
	err := row.Scan(&r.ID, &r.Category, &r.ProductIDs, &r.MotorcycleIDs, &r.IsUniversal, &r.Notes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func nonNilInts(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func (r *compatibilityRepository) CreateMotorcycleModel(ctx context.Context, m *domain.MotorcycleModel) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO motorcycle_models (id, brand, model, years)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		m.ID, m.Brand, m.Model, nonNilInts(m.Years),
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert motorcycle model: %w", translate(err))
	}
	return nil
}

func (r *compatibilityRepository) UpdateMotorcycleModel(ctx context.Context, m *domain.MotorcycleModel) error {
	updated, err := scanModel(conn(ctx, r.db).QueryRow(ctx, `
		UPDATE motorcycle_models SET brand = $2, model = $3, years = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+modelColumns,
		m.ID, m.Brand, m.Model, nonNilInts(m.Years),
	))
	if err != nil {
		return fmt.Errorf("update motorcycle model: %w", translate(err))
	}
	*m = *updated
	return nil
}

func (r *compatibilityRepository) DeleteMotorcycleModel(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, "DELETE FROM motorcycle_models WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete motorcycle model: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *compatibilityRepository) GetMotorcycleModel(ctx context.Context, id string) (*domain.MotorcycleModel, error) {
	m, err := scanModel(conn(ctx, r.db).QueryRow(ctx, "SELECT "+modelColumns+" FROM motorcycle_models WHERE id = $1", id))
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

func (r *compatibilityRepository) GetMotorcycleModels(ctx context.Context, ids []string) ([]domain.MotorcycleModel, error) {
	if len(ids) == 0 {
		return []domain.MotorcycleModel{}, nil
	}
	return r.listModels(ctx, "SELECT "+modelColumns+" FROM motorcycle_models WHERE id = ANY($1) ORDER BY brand, model", ids)
}

func (r *compatibilityRepository) ListMotorcycleModels(ctx context.Context) ([]domain.MotorcycleModel, error) {
	return r.listModels(ctx, "SELECT "+modelColumns+" FROM motorcycle_models ORDER BY brand, model")
}

func (r *compatibilityRepository) listModels(ctx context.Context, query string, args ...any) ([]domain.MotorcycleModel, error) {
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query motorcycle models: %w", err)
	}
	defer rows.Close()

	out := []domain.MotorcycleModel{}
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan motorcycle model: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *compatibilityRepository) CreateRule(ctx context.Context, rule *domain.CompatibilityRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	rule.ProductIDs = nonNilStrings(rule.ProductIDs)
	rule.MotorcycleIDs = nonNilStrings(rule.MotorcycleIDs)
	err := conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO compatibility_rules (id, category, product_ids, motorcycle_ids, is_universal, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		rule.ID, rule.Category, rule.ProductIDs, rule.MotorcycleIDs, rule.IsUniversal, rule.Notes,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert compatibility rule: %w", translate(err))
	}
	return nil
}

func (r *compatibilityRepository) UpdateRule(ctx context.Context, rule *domain.CompatibilityRule) error {
	updated, err := scanRule(conn(ctx, r.db).QueryRow(ctx, `
		UPDATE compatibility_rules
		SET category = $2, product_ids = $3, motorcycle_ids = $4, is_universal = $5, notes = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING `+ruleColumns,
		rule.ID, rule.Category, nonNilStrings(rule.ProductIDs), nonNilStrings(rule.MotorcycleIDs), rule.IsUniversal, rule.Notes,
	))
	if err != nil {
		return fmt.Errorf("update compatibility rule: %w", translate(err))
	}
	*rule = *updated
	return nil
}

func (r *compatibilityRepository) DeleteRule(ctx context.Context, id string) error {
	tag, err := conn(ctx, r.db).Exec(ctx, "DELETE FROM compatibility_rules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete compatibility rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *compatibilityRepository) GetRule(ctx context.Context, id string) (*domain.CompatibilityRule, error) {
	rule, err := scanRule(conn(ctx, r.db).QueryRow(ctx, "SELECT "+ruleColumns+" FROM compatibility_rules WHERE id = $1", id))
	if err != nil {
		return nil, translate(err)
	}
	return rule, nil
}

func (r *compatibilityRepository) ListRules(ctx context.Context) ([]domain.CompatibilityRule, error) {
	return r.listRules(ctx, "")
}

func (r *compatibilityRepository) ListUniversalRules(ctx context.Context) ([]domain.CompatibilityRule, error) {
	return r.listRules(ctx, " WHERE is_universal")
}

func (r *compatibilityRepository) ListRulesByMotorcycle(ctx context.Context, motorcycleID string) ([]domain.CompatibilityRule, error) {
	return r.listRules(ctx, " WHERE motorcycle_ids @> ARRAY[$1]::text[]", motorcycleID)
}

func (r *compatibilityRepository) listRules(ctx context.Context, where string, args ...any) ([]domain.CompatibilityRule, error) {
	rows, err := conn(ctx, r.db).Query(ctx,
		"SELECT "+ruleColumns+" FROM compatibility_rules"+where+" ORDER BY created_at, id", args...)
	if err != nil {
		return nil, fmt.Errorf("query compatibility rules: %w", err)
	}
	defer rows.Close()

	out := []domain.CompatibilityRule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan compatibility rule: %w", err)
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}
