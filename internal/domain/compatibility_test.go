package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestYearRange(t *testing.T) {
	tests := []struct {
		expr     string
		from, to int
		ok       bool
	}{
		{"2019", 2019, 2019, true},
		{" 2015-2020 ", 2015, 2020, true},
		{"2020-2015", 2015, 2020, true},
		{"", 0, 0, false},
		{"twenty", 0, 0, false},
		{"2015-", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			from, to, ok := YearRange(tt.expr)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestMatchesSelector(t *testing.T) {
	entries := []CompatibilityEntry{
		{Brand: "Honda", Model: "CG150", Year: "2015-2020"},
		{Brand: "Yamaha", Model: "FZ", Year: "2019"},
		{Brand: "Suzuki", Model: "GN125", Year: ""},
	}

	tests := []struct {
		name string
		sel  MotorcycleSelector
		want bool
	}{
		{"brand only", MotorcycleSelector{Brand: "honda"}, true},
		{"brand and model", MotorcycleSelector{Brand: "Honda", Model: " cg150 "}, true},
		{"range lower bound", MotorcycleSelector{Brand: "Honda", Model: "CG150", Year: intPtr(2015)}, true},
		{"range upper bound", MotorcycleSelector{Brand: "Honda", Model: "CG150", Year: intPtr(2020)}, true},
		{"outside range", MotorcycleSelector{Brand: "Honda", Model: "CG150", Year: intPtr(2021)}, false},
		{"single year exact", MotorcycleSelector{Brand: "Yamaha", Model: "FZ", Year: intPtr(2019)}, true},
		{"single year mismatch", MotorcycleSelector{Brand: "Yamaha", Model: "FZ", Year: intPtr(2018)}, false},
		{"entry without year", MotorcycleSelector{Brand: "Suzuki", Model: "GN125", Year: intPtr(1990)}, true},
		{"wrong model", MotorcycleSelector{Brand: "Honda", Model: "CBR"}, false},
		{"year without model", MotorcycleSelector{Brand: "Yamaha", Year: intPtr(2019)}, true},
		{"unknown brand", MotorcycleSelector{Brand: "Ducati"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesSelector(entries, tt.sel))
		})
	}

	assert.False(t, MatchesSelector(nil, MotorcycleSelector{Brand: "Honda"}), "no data means incompatible")
}

func TestExpandRule_ListedYearsOnly(t *testing.T) {
	models := []MotorcycleModel{
		{ID: "m1", Brand: "Honda", Model: "CG150", Years: []int{2020, 2018}},
		{ID: "m2", Brand: "Bajaj", Model: "Pulsar", Years: []int{2010}},
	}
	rule := CompatibilityRule{ID: "r1", MotorcycleIDs: []string{"m1"}}

	entries := ExpandRule(rule, models)

	require.Len(t, entries, 2)
	assert.Equal(t, "2018", entries[0].Year)
	assert.Equal(t, "2020", entries[1].Year)
	for _, e := range entries {
		assert.Equal(t, []string{"r1"}, e.Sources)
	}
	assert.False(t, MatchesSelector(entries, MotorcycleSelector{Brand: "Honda", Model: "CG150", Year: intPtr(2019)}),
		"gap years must not be filled")
}

func TestExpandRule_UniversalProducesNothing(t *testing.T) {
	rule := CompatibilityRule{ID: "r1", IsUniversal: true, MotorcycleIDs: []string{"m1"}}
	assert.Empty(t, ExpandRule(rule, []MotorcycleModel{{ID: "m1", Brand: "Honda", Model: "CG150", Years: []int{2019}}}))
}

func TestMergeEntries_Idempotent(t *testing.T) {
	existing := []CompatibilityEntry{{Brand: "Honda", Model: "CG150", Year: "2019", Sources: []string{SourceManual}}}
	added := []CompatibilityEntry{
		{Brand: "HONDA", Model: "cg150", Year: "2019"},
		{Brand: "Honda", Model: "CG150", Year: "2020"},
	}

	once := MergeEntries(existing, added, "r1")
	twice := MergeEntries(once, added, "r1")

	assert.Equal(t, once, twice)
	require.Len(t, once, 2)
	assert.ElementsMatch(t, []string{SourceManual, "r1"}, once[0].Sources)
	assert.Equal(t, []string{SourceManual}, existing[0].Sources, "input must not be mutated")
}

func TestRemoveSource_RoundTrip(t *testing.T) {
	original := []CompatibilityEntry{
		{Brand: "Honda", Model: "CG150", Year: "2019", Sources: []string{SourceManual}},
		{Brand: "Yamaha", Model: "FZ", Year: "2018", Sources: []string{"r2"}},
	}
	added := []CompatibilityEntry{
		{Brand: "Honda", Model: "CG150", Year: "2019"},
		{Brand: "Honda", Model: "CG150", Year: "2020"},
		{Brand: "Yamaha", Model: "FZ", Year: "2018"},
	}

	merged := MergeEntries(original, added, "r1")
	require.Len(t, merged, 3)

	restored := RemoveSource(merged, "r1")
	assert.Equal(t, original, restored)
}

func TestMotorcycles_Distinct(t *testing.T) {
	got := Motorcycles([]CompatibilityEntry{
		{Brand: "Honda", Model: "CG150", Year: "2019", Sources: []string{"r1"}},
		{Brand: "honda", Model: "cg150", Year: "2019", Sources: []string{"r2"}},
	})
	assert.Equal(t, []CompatibleMotorcycle{{Brand: "Honda", Model: "CG150", Year: "2019"}}, got)
}

func TestCompatibilityRule_Covers(t *testing.T) {
	p := Product{ID: "p1", Category: "Oil"}
	assert.True(t, CompatibilityRule{IsUniversal: true, ProductIDs: []string{"p1"}}.Covers(p))
	assert.True(t, CompatibilityRule{IsUniversal: true, Category: "oil", ProductIDs: []string{"p1"}}.Covers(p))
	assert.False(t, CompatibilityRule{IsUniversal: true, Category: "Brakes", ProductIDs: []string{"p1"}}.Covers(p))
	assert.False(t, CompatibilityRule{IsUniversal: false, ProductIDs: []string{"p1"}}.Covers(p))
	assert.False(t, CompatibilityRule{IsUniversal: true, ProductIDs: []string{"p2"}}.Covers(p))
}

func TestValidateYearExpression(t *testing.T) {
	assert.NoError(t, ValidateYearExpression(""))
	assert.NoError(t, ValidateYearExpression("2019"))
	assert.NoError(t, ValidateYearExpression("2015-2020"))
	assert.ErrorIs(t, ValidateYearExpression("soon"), ErrValidation)
}
