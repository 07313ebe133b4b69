package pricing

import (
	"errors"
	"sort"

	"github.com/safar/horeca-store/internal/models"
	"github.com/shopspring/decimal"
)

var ErrTierOverlap = errors.New("volume tiers must be ordered and must not overlap")

// ValidateTiers checks that tiers, sorted by MinAmount, form non-overlapping
// half-open ranges and that only the last tier may be unbounded.
func ValidateTiers(tiers []models.VolumeTier) error {
	sorted := sortedTiers(tiers)
	for i, tier := range sorted {
		if tier.MinAmount.IsNegative() || tier.ExtraDiscountPct.IsNegative() || tier.ExtraDiscountPct.GreaterThan(hundred) {
			return ErrTierOverlap
		}
		if tier.MaxAmount.Valid && !tier.MaxAmount.Decimal.GreaterThan(tier.MinAmount) {
			return ErrTierOverlap
		}
		if i == len(sorted)-1 {
			break
		}
		if !tier.MaxAmount.Valid {
			return ErrTierOverlap
		}
		if sorted[i+1].MinAmount.LessThan(tier.MaxAmount.Decimal) {
			return ErrTierOverlap
		}
	}
	return nil
}

// SuggestTier returns the tier whose range contains the annual spend. The
// result is advisory and never feeds PriceOrder.
func SuggestTier(tiers []models.VolumeTier, annualSpend decimal.Decimal) (models.VolumeTier, bool) {
	for _, tier := range sortedTiers(tiers) {
		if annualSpend.LessThan(tier.MinAmount) {
			continue
		}
		if tier.MaxAmount.Valid && !annualSpend.LessThan(tier.MaxAmount.Decimal) {
			continue
		}
		return tier, true
	}
	return models.VolumeTier{}, false
}

func sortedTiers(tiers []models.VolumeTier) []models.VolumeTier {
	sorted := make([]models.VolumeTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinAmount.LessThan(sorted[j].MinAmount)
	})
	return sorted
}
