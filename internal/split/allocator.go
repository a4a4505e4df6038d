// Package split allocates a sale's fee-adjusted net amount across
// producer/co-producer/affiliate/platform shares.
package split

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/podpay/fee-engine/internal/domain"
	"github.com/podpay/fee-engine/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrPercentagesSum = errors.New("split percentages must sum to 100")
	ErrNoPlatform     = errors.New("split configuration requires exactly one platform participant")
)

// percentTolerance is the accepted drift when validating that percentages
// sum to 100.
const percentTolerance = 0.01

// Participant is one (beneficiary, role, percentage) tuple of a split
// configuration.
type Participant struct {
	BeneficiaryID uuid.UUID
	Role          string
	Percentage    float64
}

// Allocate distributes netCents across the participants, one CommissionSplit
// per tuple. Percentage shares are each rounded to the cent; the platform
// share is computed as the remainder rather than its own percentage so the
// splits always sum to netCents exactly, regardless of rounding drift.
//
// Validation failures reject the whole configuration before any split is
// produced; partial allocation never happens.
func Allocate(saleID uuid.UUID, grossCents, netCents int64, participants []Participant) ([]models.CommissionSplit, error) {
	if netCents < 0 {
		return nil, fmt.Errorf("net amount must not be negative: %d", netCents)
	}
	if err := validate(participants); err != nil {
		return nil, err
	}

	splits := make([]models.CommissionSplit, 0, len(participants))
	var allocatedNet, allocatedGross int64
	platformIdx := -1

	for i, p := range participants {
		if p.Role == domain.RolePlatform {
			platformIdx = i
			splits = append(splits, models.CommissionSplit{}) // placeholder, filled below
			continue
		}

		pct := decimal.NewFromFloat(p.Percentage)
		net := domain.NewMoney(netCents).Percent(pct)
		gross := domain.NewMoney(grossCents).Percent(pct)
		allocatedNet += net.Cents
		allocatedGross += gross.Cents
		splits = append(splits, newSplit(saleID, p, gross.Cents, net.Cents))
	}

	splits[platformIdx] = newSplit(saleID, participants[platformIdx],
		grossCents-allocatedGross, netCents-allocatedNet)

	return splits, nil
}

func validate(participants []Participant) error {
	if len(participants) == 0 {
		return errors.New("split configuration is empty")
	}

	var sum float64
	platformCount := 0
	for _, p := range participants {
		if !domain.IsValidRole(p.Role) {
			return fmt.Errorf("unknown split role: %s", p.Role)
		}
		if p.Percentage < 0 {
			return fmt.Errorf("negative percentage for %s", p.BeneficiaryID)
		}
		if p.Role == domain.RolePlatform {
			platformCount++
		}
		sum += p.Percentage
	}

	if platformCount != 1 {
		return ErrNoPlatform
	}
	if math.Abs(sum-100) > percentTolerance {
		return fmt.Errorf("%w: got %.2f", ErrPercentagesSum, sum)
	}
	return nil
}

func newSplit(saleID uuid.UUID, p Participant, grossCents, netCents int64) models.CommissionSplit {
	return models.CommissionSplit{
		ID:            uuid.New(),
		SaleID:        saleID,
		BeneficiaryID: p.BeneficiaryID,
		Role:          p.Role,
		Percentage:    p.Percentage,
		GrossCents:    grossCents,
		NetCents:      netCents,
		Status:        domain.SplitStatusPending,
	}
}

// CanTransition reports whether a split status change is allowed. Statuses
// advance pending -> processed -> transferred and never revert.
func CanTransition(current, next string) bool {
	switch current {
	case domain.SplitStatusPending:
		return next == domain.SplitStatusProcessed
	case domain.SplitStatusProcessed:
		return next == domain.SplitStatusTransferred
	default:
		return false
	}
}
