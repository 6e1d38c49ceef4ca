package domain

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SourceManual tags compatibility entries typed in by an admin on the product itself.
const SourceManual = "manual"

// CompatibilityEntry is one (brand, model, year) tuple a product fits.
// Year is a year expression: "" (any year), "2019" or an inclusive range "2015-2020".
// Sources records who contributed the entry: SourceManual or a compatibility rule id.
type CompatibilityEntry struct {
	Brand   string   `json:"brand"`
	Model   string   `json:"model"`
	Year    string   `json:"year"`
	Sources []string `json:"sources,omitempty"`
}

// Key identifies the tuple independent of provenance and letter case.
func (e CompatibilityEntry) Key() string {
	return normalize(e.Brand) + "|" + normalize(e.Model) + "|" + strings.TrimSpace(e.Year)
}

func (e CompatibilityEntry) hasSource(source string) bool {
	for _, s := range e.Sources {
		if s == source {
			return true
		}
	}
	return false
}

// MotorcycleModel is a catalog entry of a bike and the model years it was built.
type MotorcycleModel struct {
	ID        string    `json:"id"`
	Brand     string    `json:"brand"`
	Model     string    `json:"model"`
	Years     []int     `json:"years"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CompatibilityRule links products to motorcycle models. A universal rule makes its
// products fit every motorcycle and ignores MotorcycleIDs.
type CompatibilityRule struct {
	ID            string    `json:"id"`
	Category      string    `json:"category"`
	ProductIDs    []string  `json:"productIds"`
	MotorcycleIDs []string  `json:"motorcycleIds"`
	IsUniversal   bool      `json:"isUniversal"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Covers reports whether a universal rule applies to the given product.
func (r CompatibilityRule) Covers(p Product) bool {
	if !r.IsUniversal {
		return false
	}
	if r.Category != "" && !strings.EqualFold(r.Category, p.Category) {
		return false
	}
	for _, id := range r.ProductIDs {
		if id == p.ID {
			return true
		}
	}
	return false
}

// MotorcycleSelector narrows progressively: brand, then model, then year.
type MotorcycleSelector struct {
	Brand string `json:"brand"`
	Model string `json:"model,omitempty"`
	Year  *int   `json:"year,omitempty"`
}

func (s MotorcycleSelector) Validate() error {
	if strings.TrimSpace(s.Brand) == "" {
		return NewValidationError("brand", "motorcycle brand is required")
	}
	if s.Year != nil && *s.Year <= 0 {
		return NewValidationError("year", "year must be positive")
	}
	return nil
}

// String is used for cache keys and logs.
func (s MotorcycleSelector) String() string {
	year := "*"
	if s.Year != nil {
		year = strconv.Itoa(*s.Year)
	}
	model := s.Model
	if model == "" {
		model = "*"
	}
	return fmt.Sprintf("%s/%s/%s", normalize(s.Brand), normalize(model), year)
}

// CompatibleMotorcycle is the product-to-motorcycle direction of a lookup.
type CompatibleMotorcycle struct {
	Brand string `json:"brand"`
	Model string `json:"model"`
	Year  string `json:"year"`
}

type ProductCompatibility struct {
	ProductID   string                 `json:"productId"`
	IsUniversal bool                   `json:"isUniversal"`
	Motorcycles []CompatibleMotorcycle `json:"motorcycles"`
}

// YearRange parses a year expression. ok is false for an empty or malformed expression.
func YearRange(expr string) (from, to int, ok bool) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, 0, false
	}
	if start, end, found := strings.Cut(expr, "-"); found {
		a, errA := strconv.Atoi(strings.TrimSpace(start))
		b, errB := strconv.Atoi(strings.TrimSpace(end))
		if errA != nil || errB != nil {
			return 0, 0, false
		}
		if a > b {
			a, b = b, a
		}
		return a, b, true
	}
	y, err := strconv.Atoi(expr)
	if err != nil {
		return 0, 0, false
	}
	return y, y, true
}

// ValidateYearExpression accepts "", "YYYY" and "YYYY-YYYY".
func ValidateYearExpression(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	if _, _, ok := YearRange(expr); !ok {
		return NewValidationError("year", "malformed year expression %q", expr)
	}
	return nil
}

// EntryMatches applies the brand -> model -> year narrowing to a single entry.
func EntryMatches(e CompatibilityEntry, sel MotorcycleSelector) bool {
	if normalize(e.Brand) != normalize(sel.Brand) {
		return false
	}
	if sel.Model != "" && normalize(e.Model) != normalize(sel.Model) {
		return false
	}
	if sel.Year == nil {
		return true
	}
	if strings.TrimSpace(e.Year) == "" {
		return true
	}
	from, to, ok := YearRange(e.Year)
	if !ok {
		return false
	}
	return *sel.Year >= from && *sel.Year <= to
}

// MatchesSelector is true when any entry fits. No entries means not compatible.
func MatchesSelector(entries []CompatibilityEntry, sel MotorcycleSelector) bool {
	for _, e := range entries {
		if EntryMatches(e, sel) {
			return true
		}
	}
	return false
}

// ExpandRule flattens a rule into one entry per listed model year, tagged with the rule id.
// Years are taken as a list, never as a contiguous range.
func ExpandRule(rule CompatibilityRule, models []MotorcycleModel) []CompatibilityEntry {
	if rule.IsUniversal {
		return nil
	}
	wanted := make(map[string]bool, len(rule.MotorcycleIDs))
	for _, id := range rule.MotorcycleIDs {
		wanted[id] = true
	}

	seen := make(map[string]bool)
	var entries []CompatibilityEntry
	for _, m := range models {
		if !wanted[m.ID] {
			continue
		}
		years := append([]int(nil), m.Years...)
		sort.Ints(years)
		for _, y := range years {
			e := CompatibilityEntry{
				Brand:   m.Brand,
				Model:   m.Model,
				Year:    strconv.Itoa(y),
				Sources: []string{rule.ID},
			}
			if seen[e.Key()] {
				continue
			}
			seen[e.Key()] = true
			entries = append(entries, e)
		}
	}
	return entries
}

// MergeEntries adds entries under the given source. An existing tuple gains the source
// instead of being duplicated, so merging the same set twice is a no-op.
func MergeEntries(existing, added []CompatibilityEntry, source string) []CompatibilityEntry {
	out := cloneEntries(existing)
	index := make(map[string]int, len(out))
	for i, e := range out {
		index[e.Key()] = i
	}
	for _, a := range added {
		if i, ok := index[a.Key()]; ok {
			if !out[i].hasSource(source) {
				out[i].Sources = append(out[i].Sources, source)
			}
			continue
		}
		index[a.Key()] = len(out)
		out = append(out, CompatibilityEntry{
			Brand:   strings.TrimSpace(a.Brand),
			Model:   strings.TrimSpace(a.Model),
			Year:    strings.TrimSpace(a.Year),
			Sources: []string{source},
		})
	}
	return out
}

// RemoveSource withdraws one source from every entry and drops entries nobody else
// contributed. Entries shared with another rule or typed in manually survive.
func RemoveSource(existing []CompatibilityEntry, source string) []CompatibilityEntry {
	out := make([]CompatibilityEntry, 0, len(existing))
	for _, e := range existing {
		if !e.hasSource(source) {
			out = append(out, cloneEntry(e))
			continue
		}
		var rest []string
		for _, s := range e.Sources {
			if s != source {
				rest = append(rest, s)
			}
		}
		if len(rest) == 0 {
			continue
		}
		e = cloneEntry(e)
		e.Sources = rest
		out = append(out, e)
	}
	return out
}

// Motorcycles strips provenance and returns the distinct tuples.
func Motorcycles(entries []CompatibilityEntry) []CompatibleMotorcycle {
	seen := make(map[string]bool, len(entries))
	out := make([]CompatibleMotorcycle, 0, len(entries))
	for _, e := range entries {
		if seen[e.Key()] {
			continue
		}
		seen[e.Key()] = true
		out = append(out, CompatibleMotorcycle{Brand: e.Brand, Model: e.Model, Year: e.Year})
	}
	return out
}

func cloneEntry(e CompatibilityEntry) CompatibilityEntry {
	e.Sources = append([]string(nil), e.Sources...)
	return e
}

func cloneEntries(in []CompatibilityEntry) []CompatibilityEntry {
	if in == nil {
		return nil
	}
	out := make([]CompatibilityEntry, len(in))
	for i, e := range in {
		out[i] = cloneEntry(e)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// CompatibilityRepository stores motorcycle models and rules.
type CompatibilityRepository interface {
	CreateMotorcycleModel(ctx context.Context, m *MotorcycleModel) error
	UpdateMotorcycleModel(ctx context.Context, m *MotorcycleModel) error
	DeleteMotorcycleModel(ctx context.Context, id string) error
	GetMotorcycleModel(ctx context.Context, id string) (*MotorcycleModel, error)
	GetMotorcycleModels(ctx context.Context, ids []string) ([]MotorcycleModel, error)
	ListMotorcycleModels(ctx context.Context) ([]MotorcycleModel, error)

	CreateRule(ctx context.Context, rule *CompatibilityRule) error
	UpdateRule(ctx context.Context, rule *CompatibilityRule) error
	DeleteRule(ctx context.Context, id string) error
	GetRule(ctx context.Context, id string) (*CompatibilityRule, error)
	ListRules(ctx context.Context) ([]CompatibilityRule, error)
	ListUniversalRules(ctx context.Context) ([]CompatibilityRule, error)
	ListRulesByMotorcycle(ctx context.Context, motorcycleID string) ([]CompatibilityRule, error)
}
