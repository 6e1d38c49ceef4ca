package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"motoparts-backend/internal/domain"
	"motoparts-backend/pkg/cache"
	"motoparts-backend/pkg/logger"
)

const (
	minModelYear = 1900
	maxModelYear = 2100
)

type CompatibilityUsecase struct {
	products  domain.ProductRepository
	repo      domain.CompatibilityRepository
	txManager domain.TransactionManager
	cache     cache.CacheService
}

func NewCompatibilityUsecase(products domain.ProductRepository, repo domain.CompatibilityRepository, txManager domain.TransactionManager, cache cache.CacheService) *CompatibilityUsecase {
	return &CompatibilityUsecase{
		products:  products,
		repo:      repo,
		txManager: txManager,
		cache:     cache,
	}
}

// --- Queries ---

// IsCompatible answers whether a product fits the selected motorcycle, either through
// its own entries or through a universal rule covering it.
func (uc *CompatibilityUsecase) IsCompatible(ctx context.Context, productID string, sel domain.MotorcycleSelector) (bool, error) {
	if err := sel.Validate(); err != nil {
		return false, err
	}
	product, err := uc.products.GetProductByID(ctx, productID)
	if err != nil {
		return false, err
	}
	if domain.MatchesSelector(product.Compatibility, sel) {
		return true, nil
	}
	universal, err := uc.repo.ListUniversalRules(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load universal rules: %w", err)
	}
	for _, rule := range universal {
		if rule.Covers(*product) {
			return true, nil
		}
	}
	return false, nil
}

// ProductsCompatibleWith lists the ids of every product fitting sel, universal ones
// included. A non-empty category narrows both sets.
func (uc *CompatibilityUsecase) ProductsCompatibleWith(ctx context.Context, sel domain.MotorcycleSelector, category string) ([]string, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	inCategory := func(p domain.Product) bool {
		return category == "" || strings.EqualFold(category, p.Category)
	}

	ids := make(map[string]struct{})

	candidates, err := uc.products.FindByCompatibilityBrand(ctx, sel.Brand)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	for _, p := range candidates {
		if inCategory(p) && domain.MatchesSelector(p.Compatibility, sel) {
			ids[p.ID] = struct{}{}
		}
	}

	universal, err := uc.repo.ListUniversalRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load universal rules: %w", err)
	}
	for _, rule := range universal {
		if category != "" && rule.Category != "" && !strings.EqualFold(category, rule.Category) {
			continue
		}
		covered, err := uc.products.GetProductsByIDs(ctx, rule.ProductIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load products of rule %s: %w", rule.ID, err)
		}
		for _, p := range covered {
			if inCategory(p) && rule.Covers(p) {
				ids[p.ID] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(ids))
	for id := range ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// MotorcyclesForProduct is the reverse lookup: every bike the product is listed for.
func (uc *CompatibilityUsecase) MotorcyclesForProduct(ctx context.Context, productID string) (*domain.ProductCompatibility, error) {
	product, err := uc.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	universal, err := uc.repo.ListUniversalRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load universal rules: %w", err)
	}
	out := &domain.ProductCompatibility{
		ProductID:   product.ID,
		Motorcycles: domain.Motorcycles(product.Compatibility),
	}
	for _, rule := range universal {
		if rule.Covers(*product) {
			out.IsUniversal = true
			break
		}
	}
	return out, nil
}

// Brands, Models and Years feed the progressive brand -> model -> year picker.
func (uc *CompatibilityUsecase) Brands(ctx context.Context) ([]string, error) {
	models, err := uc.repo.ListMotorcycleModels(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, m := range models {
		key := strings.ToLower(m.Brand)
		if !seen[key] {
			seen[key] = true
			out = append(out, m.Brand)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (uc *CompatibilityUsecase) Models(ctx context.Context, brand string) ([]string, error) {
	if strings.TrimSpace(brand) == "" {
		return nil, domain.NewValidationError("brand", "brand is required")
	}
	models, err := uc.repo.ListMotorcycleModels(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, m := range models {
		key := strings.ToLower(m.Model)
		if strings.EqualFold(m.Brand, strings.TrimSpace(brand)) && !seen[key] {
			seen[key] = true
			out = append(out, m.Model)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (uc *CompatibilityUsecase) Years(ctx context.Context, brand, model string) ([]int, error) {
	if strings.TrimSpace(brand) == "" || strings.TrimSpace(model) == "" {
		return nil, domain.NewValidationError("model", "brand and model are required")
	}
	models, err := uc.repo.ListMotorcycleModels(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool)
	out := []int{}
	for _, m := range models {
		if !strings.EqualFold(m.Brand, strings.TrimSpace(brand)) || !strings.EqualFold(m.Model, strings.TrimSpace(model)) {
			continue
		}
		for _, y := range m.Years {
			if !seen[y] {
				seen[y] = true
				out = append(out, y)
			}
		}
	}
	sort.Ints(out)
	return out, nil
}

// --- Rule fan-out ---

// ApplyRuleToProducts expands the rule and merges the entries into each of its
// products. Applying the same rule again changes nothing. A rule with a category
// only reaches products of that category.
func (uc *CompatibilityUsecase) ApplyRuleToProducts(ctx context.Context, rule domain.CompatibilityRule) error {
	if rule.IsUniversal {
		return nil
	}
	models, err := uc.repo.GetMotorcycleModels(ctx, rule.MotorcycleIDs)
	if err != nil {
		return fmt.Errorf("failed to load motorcycle models: %w", err)
	}
	entries := domain.ExpandRule(rule, models)

	targets, err := uc.ruleTargets(ctx, rule)
	if err != nil {
		return err
	}
	scoped := rule
	scoped.ProductIDs = targets

	err = uc.eachProduct(ctx, scoped, func(existing []domain.CompatibilityEntry) ([]domain.CompatibilityEntry, error) {
		return domain.MergeEntries(existing, entries, rule.ID), nil
	})
	uc.invalidateListings()
	return err
}

func (uc *CompatibilityUsecase) ruleTargets(ctx context.Context, rule domain.CompatibilityRule) ([]string, error) {
	if rule.Category == "" {
		return rule.ProductIDs, nil
	}
	products, err := uc.products.GetProductsByIDs(ctx, rule.ProductIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	inCategory := make(map[string]bool, len(products))
	for _, p := range products {
		inCategory[p.ID] = strings.EqualFold(p.Category, rule.Category)
	}
	var out []string
	for _, id := range rule.ProductIDs {
		in, found := inCategory[id]
		if found && !in {
			logger.WithContext(ctx).Debug().
				Str("rule_id", rule.ID).
				Str("product_id", id).
				Str("category", rule.Category).
				Msg("Product outside rule category; skipped")
			continue
		}
		// Missing products fall through to eachProduct, which logs them.
		out = append(out, id)
	}
	return out, nil
}

// RemoveRuleFromProducts withdraws exactly what the rule contributed. Entries that
// another rule or an admin also supplied stay in place.
func (uc *CompatibilityUsecase) RemoveRuleFromProducts(ctx context.Context, rule domain.CompatibilityRule) error {
	err := uc.eachProduct(ctx, rule, func(existing []domain.CompatibilityEntry) ([]domain.CompatibilityEntry, error) {
		return domain.RemoveSource(existing, rule.ID), nil
	})
	uc.invalidateListings()
	return err
}

func (uc *CompatibilityUsecase) eachProduct(ctx context.Context, rule domain.CompatibilityRule, fn func([]domain.CompatibilityEntry) ([]domain.CompatibilityEntry, error)) error {
	for _, productID := range rule.ProductIDs {
		err := uc.products.MutateCompatibility(ctx, productID, fn)
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted after the rule was written; nothing to update.
			logger.WithContext(ctx).Warn().
				Str("rule_id", rule.ID).
				Str("product_id", productID).
				Msg("Compatibility rule references missing product")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to update compatibility of product %s: %w", productID, err)
		}
	}
	return nil
}

// --- Rules ---

func (uc *CompatibilityUsecase) CreateRule(ctx context.Context, rule *domain.CompatibilityRule) error {
	if err := uc.validateRule(ctx, rule); err != nil {
		return err
	}
	return uc.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := uc.repo.CreateRule(txCtx, rule); err != nil {
			return fmt.Errorf("failed to create rule: %w", err)
		}
		return uc.ApplyRuleToProducts(txCtx, *rule)
	})
}

// UpdateRule swaps the previous version's entries for the new one's. The rule write
// comes first so a refused update leaves every product untouched.
func (uc *CompatibilityUsecase) UpdateRule(ctx context.Context, rule *domain.CompatibilityRule) error {
	previous, err := uc.repo.GetRule(ctx, rule.ID)
	if err != nil {
		return err
	}
	if err := uc.validateRule(ctx, rule); err != nil {
		return err
	}
	return uc.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := uc.repo.UpdateRule(txCtx, rule); err != nil {
			return fmt.Errorf("failed to update rule: %w", err)
		}
		if err := uc.RemoveRuleFromProducts(txCtx, *previous); err != nil {
			return err
		}
		return uc.ApplyRuleToProducts(txCtx, *rule)
	})
}

func (uc *CompatibilityUsecase) DeleteRule(ctx context.Context, id string) error {
	rule, err := uc.repo.GetRule(ctx, id)
	if err != nil {
		return err
	}
	return uc.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := uc.repo.DeleteRule(txCtx, id); err != nil {
			return err
		}
		return uc.RemoveRuleFromProducts(txCtx, *rule)
	})
}

func (uc *CompatibilityUsecase) GetRule(ctx context.Context, id string) (*domain.CompatibilityRule, error) {
	return uc.repo.GetRule(ctx, id)
}

func (uc *CompatibilityUsecase) ListRules(ctx context.Context) ([]domain.CompatibilityRule, error) {
	return uc.repo.ListRules(ctx)
}

func (uc *CompatibilityUsecase) validateRule(ctx context.Context, rule *domain.CompatibilityRule) error {
	rule.Category = strings.TrimSpace(rule.Category)
	rule.ProductIDs = dedupe(rule.ProductIDs)
	rule.MotorcycleIDs = dedupe(rule.MotorcycleIDs)

	if len(rule.ProductIDs) == 0 {
		return domain.NewValidationError("productIds", "at least one product is required")
	}
	if !rule.IsUniversal && len(rule.MotorcycleIDs) == 0 {
		return domain.NewValidationError("motorcycleIds", "at least one motorcycle model is required unless the rule is universal")
	}

	products, err := uc.products.GetProductsByIDs(ctx, rule.ProductIDs)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	if missing := missingIDs(rule.ProductIDs, len(products), func(i int) string { return products[i].ID }); len(missing) > 0 {
		return domain.NewValidationError("productIds", "unknown products: %s", strings.Join(missing, ", "))
	}

	if rule.IsUniversal {
		return nil
	}
	models, err := uc.repo.GetMotorcycleModels(ctx, rule.MotorcycleIDs)
	if err != nil {
		return fmt.Errorf("failed to load motorcycle models: %w", err)
	}
	if missing := missingIDs(rule.MotorcycleIDs, len(models), func(i int) string { return models[i].ID }); len(missing) > 0 {
		return domain.NewValidationError("motorcycleIds", "unknown motorcycle models: %s", strings.Join(missing, ", "))
	}
	return nil
}

// --- Motorcycle catalog ---

func (uc *CompatibilityUsecase) CreateMotorcycleModel(ctx context.Context, m *domain.MotorcycleModel) error {
	if err := validateMotorcycleModel(m); err != nil {
		return err
	}
	if err := uc.repo.CreateMotorcycleModel(ctx, m); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("%w: motorcycle model %s %s already exists", domain.ErrConflict, m.Brand, m.Model)
		}
		return fmt.Errorf("failed to create motorcycle model: %w", err)
	}
	return nil
}

// UpdateMotorcycleModel re-expands every rule that references the model, so products
// follow a changed year list. Entries are withdrawn by rule, so they only change once
// the model write has been accepted.
func (uc *CompatibilityUsecase) UpdateMotorcycleModel(ctx context.Context, m *domain.MotorcycleModel) error {
	if err := validateMotorcycleModel(m); err != nil {
		return err
	}
	rules, err := uc.repo.ListRulesByMotorcycle(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	return uc.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := uc.repo.UpdateMotorcycleModel(txCtx, m); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return fmt.Errorf("%w: motorcycle model %s %s already exists", domain.ErrConflict, m.Brand, m.Model)
			}
			return err
		}
		for _, rule := range rules {
			if err := uc.RemoveRuleFromProducts(txCtx, rule); err != nil {
				return err
			}
			if err := uc.ApplyRuleToProducts(txCtx, rule); err != nil {
				return err
			}
		}
		return nil
	})
}

func (uc *CompatibilityUsecase) DeleteMotorcycleModel(ctx context.Context, id string) error {
	rules, err := uc.repo.ListRulesByMotorcycle(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	if len(rules) > 0 {
		return fmt.Errorf("%w: motorcycle model is referenced by %d compatibility rules", domain.ErrConflict, len(rules))
	}
	return uc.repo.DeleteMotorcycleModel(ctx, id)
}

func (uc *CompatibilityUsecase) GetMotorcycleModel(ctx context.Context, id string) (*domain.MotorcycleModel, error) {
	return uc.repo.GetMotorcycleModel(ctx, id)
}

func (uc *CompatibilityUsecase) ListMotorcycleModels(ctx context.Context) ([]domain.MotorcycleModel, error) {
	return uc.repo.ListMotorcycleModels(ctx)
}

// SetManualCompatibility replaces the admin-entered entries of a product and keeps
// everything contributed by rules.
func (uc *CompatibilityUsecase) SetManualCompatibility(ctx context.Context, productID string, entries []domain.CompatibilityEntry) error {
	for i, e := range entries {
		if strings.TrimSpace(e.Brand) == "" || strings.TrimSpace(e.Model) == "" {
			return domain.NewValidationError(fmt.Sprintf("compatibility[%d]", i), "brand and model are required")
		}
		if err := domain.ValidateYearExpression(e.Year); err != nil {
			return domain.NewValidationError(fmt.Sprintf("compatibility[%d]", i), "malformed year expression %q", e.Year)
		}
	}
	err := uc.products.MutateCompatibility(ctx, productID, func(existing []domain.CompatibilityEntry) ([]domain.CompatibilityEntry, error) {
		kept := domain.RemoveSource(existing, domain.SourceManual)
		return domain.MergeEntries(kept, entries, domain.SourceManual), nil
	})
	if err != nil {
		return err
	}
	uc.invalidateListings()
	return nil
}

func (uc *CompatibilityUsecase) invalidateListings() {
	uc.cache.DeletePrefix(productListCachePrefix)
}

func validateMotorcycleModel(m *domain.MotorcycleModel) error {
	m.Brand = strings.TrimSpace(m.Brand)
	m.Model = strings.TrimSpace(m.Model)
	if m.Brand == "" {
		return domain.NewValidationError("brand", "brand is required")
	}
	if m.Model == "" {
		return domain.NewValidationError("model", "model is required")
	}
	if len(m.Years) == 0 {
		return domain.NewValidationError("years", "at least one year is required")
	}
	seen := make(map[int]bool, len(m.Years))
	years := make([]int, 0, len(m.Years))
	for _, y := range m.Years {
		if y < minModelYear || y > maxModelYear {
			return domain.NewValidationError("years", "year %d out of range", y)
		}
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Ints(years)
	m.Years = years
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func missingIDs(want []string, n int, idAt func(int) string) []string {
	found := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		found[idAt(i)] = true
	}
	var missing []string
	for _, id := range want {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
