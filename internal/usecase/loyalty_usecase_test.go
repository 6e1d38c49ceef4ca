package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoparts-backend/internal/domain"
	"motoparts-backend/internal/repository/memory"
)

type fakeLeaderboard struct {
	mu     sync.Mutex
	points map[string]int
	err    error
}

func (f *fakeLeaderboard) SetPoints(_ context.Context, userID string, points int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.points == nil {
		f.points = map[string]int{}
	}
	f.points[userID] = points
	return nil
}

func (f *fakeLeaderboard) Top(_ context.Context, n int) ([]domain.LeaderboardEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LeaderboardEntry
	for id, p := range f.points {
		out = append(out, domain.LeaderboardEntry{UserID: id, Points: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Points > out[j].Points })
	if len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func newLoyalty(t *testing.T, board domain.Leaderboard) *LoyaltyUsecase {
	t.Helper()
	uc, err := NewLoyaltyUsecase(memory.NewLoyaltyRepository(memory.NewStore()), board, domain.DefaultTierThresholds, 1)
	require.NoError(t, err)
	return uc
}

func TestLoyalty_AddAndRedeem(t *testing.T) {
	board := &fakeLeaderboard{}
	uc := newLoyalty(t, board)
	ctx := context.Background()

	empty, err := uc.GetProgram(ctx, "user-1")
	require.NoError(t, err)
	assert.Zero(t, empty.Points)
	assert.Equal(t, domain.TierBronze, empty.Tier)

	program, err := uc.AddPoints(ctx, "user-1", 499, "Order A", strPtr("order-a"))
	require.NoError(t, err)
	assert.Equal(t, domain.TierBronze, program.Tier)

	program, err = uc.AddPoints(ctx, "user-1", 1, "Order B", nil)
	require.NoError(t, err)
	assert.Equal(t, 500, program.Points)
	assert.Equal(t, domain.TierSilver, program.Tier)

	_, err = uc.RedeemPoints(ctx, "user-1", 501, "Voucher")
	assert.ErrorIs(t, err, domain.ErrInsufficientPoints)

	program, err = uc.RedeemPoints(ctx, "user-1", 100, "Voucher")
	require.NoError(t, err)
	assert.Equal(t, 400, program.Points)
	assert.Equal(t, domain.TierBronze, program.Tier, "tier follows the balance down")

	require.Len(t, program.History, 3)
	assert.Equal(t, domain.PointsEarned, program.History[0].Type)
	assert.Equal(t, "order-a", *program.History[0].OrderID)
	assert.Equal(t, domain.PointsRedeemed, program.History[2].Type)
	assert.Equal(t, 100, program.History[2].Amount)

	top, err := uc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 400, top[0].Points)
}

func TestLoyalty_RejectsNonPositiveAmounts(t *testing.T) {
	uc := newLoyalty(t, nil)
	ctx := context.Background()

	_, err := uc.AddPoints(ctx, "user-1", 0, "", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.RedeemPoints(ctx, "user-1", -5, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.AddPoints(ctx, "", 10, "", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	top, err := uc.Leaderboard(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestLoyalty_LeaderboardFailureIsNotFatal(t *testing.T) {
	uc := newLoyalty(t, &fakeLeaderboard{err: errors.New("redis down")})

	program, err := uc.AddPoints(context.Background(), "user-1", 2000, "", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TierGold, program.Tier)
}

func TestLoyalty_PointsForOrder(t *testing.T) {
	uc := newLoyalty(t, nil)
	assert.Equal(t, 25, uc.PointsForOrder(decimal.RequireFromString("25.99")))
	assert.Equal(t, 0, uc.PointsForOrder(decimal.RequireFromString("0.50")))
	assert.Equal(t, 0, uc.PointsForOrder(decimal.NewFromInt(-3)))

	_, err := NewLoyaltyUsecase(nil, nil, domain.TierThresholds{Silver: 10, Gold: 5, Platinum: 20}, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
