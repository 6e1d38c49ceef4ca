package domain

import (
	"context"
	"time"
)

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Rank orders tiers bronze < silver < gold < platinum.
func (t Tier) Rank() int {
	switch t {
	case TierSilver:
		return 1
	case TierGold:
		return 2
	case TierPlatinum:
		return 3
	default:
		return 0
	}
}

// TierThresholds are the minimum point balances for each tier above bronze.
type TierThresholds struct {
	Silver   int
	Gold     int
	Platinum int
}

var DefaultTierThresholds = TierThresholds{Silver: 500, Gold: 2000, Platinum: 5000}

func (t TierThresholds) Validate() error {
	if t.Silver <= 0 || t.Gold <= t.Silver || t.Platinum <= t.Gold {
		return NewValidationError("tiers", "thresholds must be positive and strictly ascending (got %d/%d/%d)", t.Silver, t.Gold, t.Platinum)
	}
	return nil
}

// TierFor derives the tier from a point balance.
func (t TierThresholds) TierFor(points int) Tier {
	switch {
	case points >= t.Platinum:
		return TierPlatinum
	case points >= t.Gold:
		return TierGold
	case points >= t.Silver:
		return TierSilver
	default:
		return TierBronze
	}
}

const (
	PointsEarned   = "earned"
	PointsRedeemed = "redeemed"
)

type PointsEntry struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Amount      int       `json:"amount"`
	Description string    `json:"description"`
	OrderID     *string   `json:"orderId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type LoyaltyProgram struct {
	UserID    string        `json:"userId"`
	Points    int           `json:"points"`
	Tier      Tier          `json:"tier"`
	History   []PointsEntry `json:"history"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

type LoyaltyRepository interface {
	// GetProgram returns ErrNotFound for users who never earned points.
	GetProgram(ctx context.Context, userID string) (*LoyaltyProgram, error)
	// AdjustPoints applies delta, recomputes the tier with tiers and appends entry, all
	// atomically. A negative delta larger than the balance fails with ErrInsufficientPoints.
	AdjustPoints(ctx context.Context, userID string, delta int, tiers TierThresholds, entry PointsEntry) (*LoyaltyProgram, error)
}

type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Points int    `json:"points"`
	Rank   int    `json:"rank"`
}

// Leaderboard mirrors point balances for ranking. It is never the source of truth.
type Leaderboard interface {
	SetPoints(ctx context.Context, userID string, points int) error
	Top(ctx context.Context, n int) ([]LeaderboardEntry, error)
}
