package ledger

import (
	"fmt"
	"math"

	"billsplit-backend/models"

	"github.com/google/uuid"
)

// roundToTwo rounds to two decimals, the precision every monetary value in
// the ledger is kept at.
func roundToTwo(val float64) float64 {
	return math.Round(val*100) / 100
}

// ShareValue pairs a participant with the raw number supplied for them in a
// split request: a fixed amount for custom splits, a percentage for
// percentage splits.
type ShareValue struct {
	UserID uuid.UUID
	Value  float64
}

// BillItem is one line of an item-based split: a price divided evenly among
// the participants it is assigned to.
type BillItem struct {
	Name       string
	Price      float64
	AssignedTo []uuid.UUID
}

// EqualSplit divides total evenly among the participants. Each share is
// rounded to two decimals and the rounding residual is added to the last
// participant, so the shares always sum back to total. An empty participant
// list yields an empty slice; callers must reject it upstream.
func EqualSplit(total float64, participantIDs []uuid.UUID) []models.Share {
	shares := make([]models.Share, 0, len(participantIDs))
	if len(participantIDs) == 0 {
		return shares
	}

	perPerson := roundToTwo(total / float64(len(participantIDs)))
	for _, id := range participantIDs {
		shares = append(shares, models.Share{
			UserID:        id,
			Amount:        perPerson,
			PaymentStatus: models.PaymentUnpaid,
		})
	}

	remainder := roundToTwo(total - perPerson*float64(len(participantIDs)))
	if remainder != 0 {
		last := &shares[len(shares)-1]
		last.Amount = roundToTwo(last.Amount + remainder) // last person absorbs the rounding residual
	}

	return shares
}

// ValidateCustomSplit checks that the supplied amounts reconcile with the
// bill total. Amounts may miss the total by at most one cent.
func ValidateCustomSplit(values []ShareValue, total float64) error {
	var sum float64
	for _, v := range values {
		sum += v.Value
	}

	// One cent of drift is legal, so compare integer cents; a raw float
	// comparison against 0.01 rejects the exactly-one-cent case
	// (100.00-99.99 evaluates above 0.01 in float64).
	if math.Abs(math.Round(sum*100)-math.Round(total*100)) > 1 {
		return ValidationError{Message: fmt.Sprintf("split amounts (%.2f) don't add up to total (%.2f)", sum, total)}
	}
	return nil
}

// CustomSplit maps caller-provided amounts onto unpaid shares, rounding each
// to two decimals. Callers validate with ValidateCustomSplit first.
func CustomSplit(values []ShareValue) []models.Share {
	shares := make([]models.Share, 0, len(values))
	for _, v := range values {
		shares = append(shares, models.Share{
			UserID:        v.UserID,
			Amount:        roundToTwo(v.Value),
			PaymentStatus: models.PaymentUnpaid,
		})
	}
	return shares
}

// ValidatePercentageSplit checks that the supplied percentages add up to 100
// within 0.01.
func ValidatePercentageSplit(values []ShareValue) error {
	var totalPercent float64
	for _, v := range values {
		totalPercent += v.Value
	}

	// Same integer-cent comparison as ValidateCustomSplit: 99.99 and 100.01
	// both pass.
	if math.Abs(math.Round(totalPercent*100)-10000) > 1 {
		return ValidationError{Message: fmt.Sprintf("percentages must add up to 100, got %.2f", totalPercent)}
	}
	return nil
}

// PercentageSplit computes each share as its percentage of the total. Unlike
// EqualSplit no residual correction is applied, so the rounded shares may
// miss the total by a cent in aggregate. Downstream reconciliation tolerates
// that gap.
func PercentageSplit(total float64, values []ShareValue) []models.Share {
	shares := make([]models.Share, 0, len(values))
	for _, v := range values {
		pct := v.Value
		shares = append(shares, models.Share{
			UserID:        v.UserID,
			Amount:        roundToTwo(total * pct / 100.0),
			Percentage:    &pct,
			PaymentStatus: models.PaymentUnpaid,
		})
	}
	return shares
}

// ItemBasedSplit divides each item's price evenly among its assignees and
// accumulates the result per participant. Participants with no assigned
// items get a zero share. As with PercentageSplit, no residual correction is
// applied.
func ItemBasedSplit(items []BillItem, participantIDs []uuid.UUID) []models.Share {
	totals := make(map[uuid.UUID]float64, len(participantIDs))
	for _, item := range items {
		if len(item.AssignedTo) == 0 {
			continue
		}
		perAssignee := item.Price / float64(len(item.AssignedTo))
		for _, id := range item.AssignedTo {
			totals[id] += perAssignee
		}
	}

	shares := make([]models.Share, 0, len(participantIDs))
	for _, id := range participantIDs {
		shares = append(shares, models.Share{
			UserID:        id,
			Amount:        roundToTwo(totals[id]),
			PaymentStatus: models.PaymentUnpaid,
		})
	}
	return shares
}
