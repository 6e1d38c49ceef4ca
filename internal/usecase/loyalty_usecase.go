package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"motoparts-backend/internal/domain"
	"motoparts-backend/pkg/logger"
)

const maxLeaderboardSize = 100

type LoyaltyUsecase struct {
	repo          domain.LoyaltyRepository
	leaderboard   domain.Leaderboard
	tiers         domain.TierThresholds
	pointsPerUnit int
}

// NewLoyaltyUsecase wires the points store. leaderboard may be nil when Redis is not
// configured.
func NewLoyaltyUsecase(repo domain.LoyaltyRepository, leaderboard domain.Leaderboard, tiers domain.TierThresholds, pointsPerUnit int) (*LoyaltyUsecase, error) {
	if err := tiers.Validate(); err != nil {
		return nil, err
	}
	if pointsPerUnit < 0 {
		return nil, domain.NewValidationError("pointsPerUnit", "must not be negative")
	}
	return &LoyaltyUsecase{
		repo:          repo,
		leaderboard:   leaderboard,
		tiers:         tiers,
		pointsPerUnit: pointsPerUnit,
	}, nil
}

// PointsForOrder awards pointsPerUnit for every whole currency unit of total.
func (uc *LoyaltyUsecase) PointsForOrder(total decimal.Decimal) int {
	if !total.IsPositive() {
		return 0
	}
	return int(total.Floor().IntPart()) * uc.pointsPerUnit
}

func (uc *LoyaltyUsecase) TierFor(points int) domain.Tier {
	return uc.tiers.TierFor(points)
}

// GetProgram returns the user's balance. Users who never earned points get an empty
// bronze program.
func (uc *LoyaltyUsecase) GetProgram(ctx context.Context, userID string) (*domain.LoyaltyProgram, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewValidationError("userId", "user id is required")
	}
	program, err := uc.repo.GetProgram(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.LoyaltyProgram{
			UserID:  userID,
			Tier:    uc.tiers.TierFor(0),
			History: []domain.PointsEntry{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load loyalty program: %w", err)
	}
	return program, nil
}

// AddPoints credits amount, recomputes the tier and appends an earned entry atomically.
func (uc *LoyaltyUsecase) AddPoints(ctx context.Context, userID string, amount int, description string, orderID *string) (*domain.LoyaltyProgram, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewValidationError("userId", "user id is required")
	}
	if amount <= 0 {
		return nil, domain.NewValidationError("amount", "points to add must be positive")
	}

	program, err := uc.repo.AdjustPoints(ctx, userID, amount, uc.tiers, domain.PointsEntry{
		Type:        domain.PointsEarned,
		Amount:      amount,
		Description: description,
		OrderID:     orderID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add points: %w", err)
	}
	uc.mirror(ctx, program)
	return program, nil
}

// RedeemPoints debits amount. It fails with ErrInsufficientPoints rather than go negative.
func (uc *LoyaltyUsecase) RedeemPoints(ctx context.Context, userID string, amount int, description string) (*domain.LoyaltyProgram, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.NewValidationError("userId", "user id is required")
	}
	if amount <= 0 {
		return nil, domain.NewValidationError("amount", "points to redeem must be positive")
	}

	program, err := uc.repo.AdjustPoints(ctx, userID, -amount, uc.tiers, domain.PointsEntry{
		Type:        domain.PointsRedeemed,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientPoints) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to redeem points: %w", err)
	}
	uc.mirror(ctx, program)
	return program, nil
}

// Leaderboard returns the top n balances from the ranking mirror.
func (uc *LoyaltyUsecase) Leaderboard(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if uc.leaderboard == nil {
		return []domain.LeaderboardEntry{}, nil
	}
	if n <= 0 || n > maxLeaderboardSize {
		n = 10
	}
	return uc.leaderboard.Top(ctx, n)
}

func (uc *LoyaltyUsecase) mirror(ctx context.Context, program *domain.LoyaltyProgram) {
	if uc.leaderboard == nil {
		return
	}
	if err := uc.leaderboard.SetPoints(ctx, program.UserID, program.Points); err != nil {
		logger.WithContext(ctx).Warn().Err(err).Str("user_id", program.UserID).Msg("Leaderboard update failed")
	}
}
