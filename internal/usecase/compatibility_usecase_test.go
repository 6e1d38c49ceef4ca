package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoparts-backend/internal/domain"
)

func (e *testEnv) seedModel(t *testing.T, brand, model string, years ...int) *domain.MotorcycleModel {
	t.Helper()
	m := &domain.MotorcycleModel{Brand: brand, Model: model, Years: years}
	require.NoError(t, e.compat.CreateMotorcycleModel(context.Background(), m))
	return m
}

func (e *testEnv) compatibilityOf(t *testing.T, productID string) []domain.CompatibilityEntry {
	t.Helper()
	p, err := e.products.GetProductByID(context.Background(), productID)
	require.NoError(t, err)
	return p.Compatibility
}

func TestIsCompatible_YearRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := &domain.Product{
		ID:       "pad-cg",
		Name:     "Brake Pad CG150",
		IsActive: true,
		Compatibility: []domain.CompatibilityEntry{
			{Brand: "Honda", Model: "CG150", Year: "2015-2020"},
		},
	}
	require.NoError(t, env.catalog.CreateProduct(ctx, p))

	cases := []struct {
		name string
		sel  domain.MotorcycleSelector
		want bool
	}{
		{"year inside range", domain.MotorcycleSelector{Brand: "Honda", Model: "CG150", Year: intPtr(2019)}, true},
		{"range start inclusive", domain.MotorcycleSelector{Brand: "Honda", Model: "CG150", Year: intPtr(2015)}, true},
		{"year before range", domain.MotorcycleSelector{Brand: "Honda", Model: "CG150", Year: intPtr(2005)}, false},
		{"brand only", domain.MotorcycleSelector{Brand: "Honda"}, true},
		{"case and spacing ignored", domain.MotorcycleSelector{Brand: " honda ", Model: "cg150"}, true},
		{"other model", domain.MotorcycleSelector{Brand: "Honda", Model: "CBR150R"}, false},
		{"other brand", domain.MotorcycleSelector{Brand: "Yamaha"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := env.compat.IsCompatible(ctx, "pad-cg", tc.sel)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := env.compat.IsCompatible(ctx, "pad-cg", domain.MotorcycleSelector{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestApplyRule_ExpandsListedYearsAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProduct(t, "chain", "Chain Kit", "40.00", 5)
	cg := env.seedModel(t, "Honda", "CG150", 2020, 2018)

	rule := &domain.CompatibilityRule{ProductIDs: []string{"chain"}, MotorcycleIDs: []string{cg.ID}}
	require.NoError(t, env.compat.CreateRule(ctx, rule))

	entries := env.compatibilityOf(t, "chain")
	require.Len(t, entries, 2)
	assert.Equal(t, "2018", entries[0].Year)
	assert.Equal(t, "2020", entries[1].Year)
	assert.Equal(t, []string{rule.ID}, entries[0].Sources)

	require.NoError(t, env.compat.ApplyRuleToProducts(ctx, *rule))
	assert.Equal(t, entries, env.compatibilityOf(t, "chain"))

	ok, err := env.compat.IsCompatible(ctx, "chain", domain.MotorcycleSelector{Brand: "Honda", Model: "CG150", Year: intPtr(2019)})
	require.NoError(t, err)
	assert.False(t, ok, "years are a list, not a range")
}

func TestDeleteRule_RestoresPriorEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := &domain.Product{
		ID:       "chain",
		Name:     "Chain Kit",
		IsActive: true,
		Compatibility: []domain.CompatibilityEntry{
			{Brand: "Honda", Model: "CG150", Year: "2018"},
		},
	}
	require.NoError(t, env.catalog.CreateProduct(ctx, p))
	before := env.compatibilityOf(t, "chain")

	cg := env.seedModel(t, "Honda", "CG150", 2018, 2020)
	pulsar := env.seedModel(t, "Bajaj", "Pulsar 150", 2019)

	first := &domain.CompatibilityRule{ProductIDs: []string{"chain"}, MotorcycleIDs: []string{cg.ID}}
	second := &domain.CompatibilityRule{ProductIDs: []string{"chain"}, MotorcycleIDs: []string{cg.ID, pulsar.ID}}
	require.NoError(t, env.compat.CreateRule(ctx, first))
	require.NoError(t, env.compat.CreateRule(ctx, second))
	assert.Len(t, env.compatibilityOf(t, "chain"), 3)

	require.NoError(t, env.compat.DeleteRule(ctx, second.ID))
	after := env.compatibilityOf(t, "chain")
	require.Len(t, after, 2, "entries shared with the first rule survive")
	assert.ElementsMatch(t, []string{domain.SourceManual, first.ID}, after[0].Sources)

	require.NoError(t, env.compat.DeleteRule(ctx, first.ID))
	assert.Equal(t, before, env.compatibilityOf(t, "chain"))

	_, err := env.compat.GetRule(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateRule_SwapsProvenance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProduct(t, "chain", "Chain Kit", "40.00", 5)
	env.seedProduct(t, "sprocket", "Sprocket", "15.00", 5)
	cg := env.seedModel(t, "Honda", "CG150", 2018)

	rule := &domain.CompatibilityRule{ProductIDs: []string{"chain"}, MotorcycleIDs: []string{cg.ID}}
	require.NoError(t, env.compat.CreateRule(ctx, rule))

	rule.ProductIDs = []string{"sprocket"}
	require.NoError(t, env.compat.UpdateRule(ctx, rule))

	assert.Empty(t, env.compatibilityOf(t, "chain"))
	assert.Len(t, env.compatibilityOf(t, "sprocket"), 1)
}

func TestUniversalRule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProduct(t, "grip", "Handle Grip", "5.00", 10)
	env.seedProduct(t, "pad", "Brake Pad", "10.00", 10)

	universal := &domain.CompatibilityRule{Category: "brakes", ProductIDs: []string{"grip"}, IsUniversal: true}
	require.NoError(t, env.compat.CreateRule(ctx, universal))
	assert.Empty(t, env.compatibilityOf(t, "grip"), "universal rules are not expanded")

	sel := domain.MotorcycleSelector{Brand: "Suzuki", Model: "Gixxer", Year: intPtr(2021)}
	ids, err := env.compat.ProductsCompatibleWith(ctx, sel, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"grip"}, ids)

	ids, err = env.compat.ProductsCompatibleWith(ctx, sel, "exhaust")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ok, err := env.compat.IsCompatible(ctx, "grip", sel)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.compat.IsCompatible(ctx, "pad", sel)
	require.NoError(t, err)
	assert.False(t, ok, "no data means incompatible")

	reverse, err := env.compat.MotorcyclesForProduct(ctx, "grip")
	require.NoError(t, err)
	assert.True(t, reverse.IsUniversal)
}

func TestProductsCompatibleWith_ProgressiveSelector(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, p := range []*domain.Product{
		{ID: "a", Name: "A", IsActive: true, Category: "brakes", Compatibility: []domain.CompatibilityEntry{{Brand: "Honda", Model: "CG150", Year: "2019"}}},
		{ID: "b", Name: "B", IsActive: true, Category: "engine", Compatibility: []domain.CompatibilityEntry{{Brand: "Honda", Model: "CBR150R"}}},
		{ID: "c", Name: "C", IsActive: true, Category: "brakes", Compatibility: []domain.CompatibilityEntry{{Brand: "Yamaha", Model: "FZ"}}},
	} {
		require.NoError(t, env.catalog.CreateProduct(ctx, p))
	}

	ids, err := env.compat.ProductsCompatibleWith(ctx, domain.MotorcycleSelector{Brand: "Honda"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	ids, err = env.compat.ProductsCompatibleWith(ctx, domain.MotorcycleSelector{Brand: "Honda"}, "brakes")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)

	ids, err = env.compat.ProductsCompatibleWith(ctx, domain.MotorcycleSelector{Brand: "Honda", Model: "CBR150R", Year: intPtr(2012)}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids, "an entry without a year fits every year")
}

func TestMotorcycleModels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProduct(t, "chain", "Chain Kit", "40.00", 5)
	cg := env.seedModel(t, "Honda", "CG150", 2019, 2018, 2019)
	assert.Equal(t, []int{2018, 2019}, cg.Years)

	err := env.compat.CreateMotorcycleModel(ctx, &domain.MotorcycleModel{Brand: "honda", Model: "cg150", Years: []int{2020}})
	assert.ErrorIs(t, err, domain.ErrConflict)
	err = env.compat.CreateMotorcycleModel(ctx, &domain.MotorcycleModel{Brand: "Honda", Model: "X", Years: []int{1800}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	rule := &domain.CompatibilityRule{ProductIDs: []string{"chain"}, MotorcycleIDs: []string{cg.ID}}
	require.NoError(t, env.compat.CreateRule(ctx, rule))

	cg.Years = []int{2021}
	require.NoError(t, env.compat.UpdateMotorcycleModel(ctx, cg))
	entries := env.compatibilityOf(t, "chain")
	require.Len(t, entries, 1)
	assert.Equal(t, "2021", entries[0].Year)

	err = env.compat.DeleteMotorcycleModel(ctx, cg.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	brands, err := env.compat.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Honda"}, brands)
	years, err := env.compat.Years(ctx, "Honda", "CG150")
	require.NoError(t, err)
	assert.Equal(t, []int{2021}, years)

	require.NoError(t, env.compat.DeleteRule(ctx, rule.ID))
	require.NoError(t, env.compat.DeleteMotorcycleModel(ctx, cg.ID))
}

func TestCreateRule_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProduct(t, "chain", "Chain Kit", "40.00", 5)

	err := env.compat.CreateRule(ctx, &domain.CompatibilityRule{MotorcycleIDs: []string{"x"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
	err = env.compat.CreateRule(ctx, &domain.CompatibilityRule{ProductIDs: []string{"chain"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
	err = env.compat.CreateRule(ctx, &domain.CompatibilityRule{ProductIDs: []string{"ghost"}, IsUniversal: true})
	assert.ErrorIs(t, err, domain.ErrValidation)
	err = env.compat.CreateRule(ctx, &domain.CompatibilityRule{ProductIDs: []string{"chain"}, MotorcycleIDs: []string{"missing"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSetManualCompatibility_KeepsRuleEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProduct(t, "chain", "Chain Kit", "40.00", 5)
	cg := env.seedModel(t, "Honda", "CG150", 2018)
	rule := &domain.CompatibilityRule{ProductIDs: []string{"chain"}, MotorcycleIDs: []string{cg.ID}}
	require.NoError(t, env.compat.CreateRule(ctx, rule))

	require.NoError(t, env.compat.SetManualCompatibility(ctx, "chain", []domain.CompatibilityEntry{
		{Brand: "Bajaj", Model: "Pulsar", Year: "2010-2014"},
	}))
	assert.Len(t, env.compatibilityOf(t, "chain"), 2)

	require.NoError(t, env.compat.SetManualCompatibility(ctx, "chain", nil))
	entries := env.compatibilityOf(t, "chain")
	require.Len(t, entries, 1)
	assert.Equal(t, []string{rule.ID}, entries[0].Sources)

	err := env.compat.SetManualCompatibility(ctx, "chain", []domain.CompatibilityEntry{{Brand: "Honda", Model: "CG", Year: "20x"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateMotorcycleModel_ConflictKeepsProductEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProduct(t, "chain", "Chain Kit", "40.00", 5)
	cg := env.seedModel(t, "Honda", "CG150", 2019)
	env.seedModel(t, "Honda", "XR190", 2021)

	rule := &domain.CompatibilityRule{ProductIDs: []string{"chain"}, MotorcycleIDs: []string{cg.ID}}
	require.NoError(t, env.compat.CreateRule(ctx, rule))
	before := env.compatibilityOf(t, "chain")
	require.Len(t, before, 1)

	renamed := *cg
	renamed.Model = "xr190"
	err := env.compat.UpdateMotorcycleModel(ctx, &renamed)
	assert.ErrorIs(t, err, domain.ErrConflict)

	assert.Equal(t, before, env.compatibilityOf(t, "chain"))
	ok, err := env.compat.IsCompatible(ctx, "chain", domain.MotorcycleSelector{Brand: "Honda", Model: "CG150", Year: intPtr(2019)})
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := env.compat.GetMotorcycleModel(ctx, cg.ID)
	require.NoError(t, err)
	assert.Equal(t, "CG150", stored.Model)
}

func TestDeleteRule_MissingRuleLeavesProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProduct(t, "chain", "Chain Kit", "40.00", 5)
	cg := env.seedModel(t, "Honda", "CG150", 2019)
	rule := &domain.CompatibilityRule{ProductIDs: []string{"chain"}, MotorcycleIDs: []string{cg.ID}}
	require.NoError(t, env.compat.CreateRule(ctx, rule))

	err := env.compat.DeleteRule(ctx, "no-such-rule")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Len(t, env.compatibilityOf(t, "chain"), 1)
}

func TestApplyRule_CategoryLimitsFanOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedProduct(t, "pad", "Brake Pad", "10.00", 5)
	require.NoError(t, env.catalog.CreateProduct(ctx, &domain.Product{ID: "filter", Name: "Air Filter", Category: "engine", IsActive: true}))
	cg := env.seedModel(t, "Honda", "CG150", 2019)

	rule := &domain.CompatibilityRule{Category: "Brakes", ProductIDs: []string{"pad", "filter"}, MotorcycleIDs: []string{cg.ID}}
	require.NoError(t, env.compat.CreateRule(ctx, rule))

	assert.Len(t, env.compatibilityOf(t, "pad"), 1)
	assert.Empty(t, env.compatibilityOf(t, "filter"))

	rule.Category = ""
	require.NoError(t, env.compat.UpdateRule(ctx, rule))
	assert.Len(t, env.compatibilityOf(t, "filter"), 1)

	rule.Category = "engine"
	require.NoError(t, env.compat.UpdateRule(ctx, rule))
	assert.Empty(t, env.compatibilityOf(t, "pad"))
	assert.Len(t, env.compatibilityOf(t, "filter"), 1)
}
