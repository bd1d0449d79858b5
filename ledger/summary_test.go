package ledger

import (
	"testing"
	"time"

	"billsplit-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	user := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	confirmed := func(s models.Share) models.Share {
		ts := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
		s.PaymentStatus = models.PaymentConfirmed
		s.MarkedPaidAt = &ts
		s.ConfirmedAt = &ts
		return s
	}

	bills := []models.Bill{
		{
			ID:     uuid.New(),
			PaidBy: user,
			Splits: []models.Share{
				{UserID: user, Amount: 20, PaymentStatus: models.PaymentUnpaid},
				{UserID: bob, Amount: 30, PaymentStatus: models.PaymentUnpaid},
				confirmed(models.Share{UserID: carol, Amount: 30}),
			},
		},
		{
			ID:     uuid.New(),
			PaidBy: bob,
			Splits: []models.Share{
				{UserID: bob, Amount: 25, PaymentStatus: models.PaymentUnpaid},
				{UserID: user, Amount: 25, PaymentStatus: models.PaymentUnpaid},
			},
		},
		{
			ID:     uuid.New(),
			PaidBy: carol,
			Splits: []models.Share{
				{UserID: carol, Amount: 10, PaymentStatus: models.PaymentUnpaid},
				confirmed(models.Share{UserID: user, Amount: 10}),
			},
		},
	}

	t.Run("MixedRolesAggregate", func(t *testing.T) {
		summary := Summarize(user, bills)

		assert.Equal(t, 30.0, summary.TotalOwed, "bob's unconfirmed share")
		assert.Equal(t, 25.0, summary.TotalOwing, "user's unconfirmed share on bob's bill")
		assert.Equal(t, 40.0, summary.TotalSettled, "carol's confirmed 30 plus user's confirmed 10")
		assert.Equal(t, 5.0, summary.Balance)
		assert.Equal(t, 3, summary.BillCount)
	})

	t.Run("OrderIndependent", func(t *testing.T) {
		reference := Summarize(user, bills)

		reversed := []models.Bill{bills[2], bills[1], bills[0]}
		rotated := []models.Bill{bills[1], bills[2], bills[0]}

		assert.Equal(t, reference, Summarize(user, reversed))
		assert.Equal(t, reference, Summarize(user, rotated))
	})

	t.Run("PendingConfirmationStillCountsAsOwed", func(t *testing.T) {
		pendingAt := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
		pending := []models.Bill{{
			ID:     uuid.New(),
			PaidBy: user,
			Splits: []models.Share{
				{UserID: user, Amount: 50, PaymentStatus: models.PaymentUnpaid},
				{UserID: bob, Amount: 50, PaymentStatus: models.PaymentPendingConfirmation, MarkedPaidAt: &pendingAt},
			},
		}}

		summary := Summarize(user, pending)

		assert.Equal(t, 50.0, summary.TotalOwed)
		assert.Zero(t, summary.TotalSettled)
	})

	t.Run("PayerOwnShareNeverCounts", func(t *testing.T) {
		solo := []models.Bill{{
			ID:     uuid.New(),
			PaidBy: user,
			Splits: []models.Share{
				{UserID: user, Amount: 80, PaymentStatus: models.PaymentUnpaid},
			},
		}}

		summary := Summarize(user, solo)

		assert.Zero(t, summary.TotalOwed)
		assert.Zero(t, summary.TotalOwing)
		assert.Zero(t, summary.TotalSettled)
		assert.Equal(t, 1, summary.BillCount)
	})

	t.Run("UninvolvedBillsAreIgnored", func(t *testing.T) {
		others := []models.Bill{{
			ID:     uuid.New(),
			PaidBy: bob,
			Splits: []models.Share{
				{UserID: bob, Amount: 15, PaymentStatus: models.PaymentUnpaid},
				{UserID: carol, Amount: 15, PaymentStatus: models.PaymentUnpaid},
			},
		}}

		summary := Summarize(user, others)

		assert.Equal(t, models.BillSummary{}, summary)
	})

	t.Run("NoBillsYieldsZeroSummary", func(t *testing.T) {
		assert.Equal(t, models.BillSummary{}, Summarize(user, nil))
	})
}

// The full lifecycle the components compose into: an equal three-way split,
// the derived payment edges, one debtor marking paid, the payer confirming,
// and the payer's resulting summary.
func TestEqualSplitSettlementLifecycle(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	shares := EqualSplit(120, []uuid.UUID{alice, bob, carol})
	require.Len(t, shares, 3)

	edges := BuildPaymentEdges(alice, shares)
	require.Len(t, edges, 2)
	assert.Equal(t, bob, edges[0].From)
	assert.InDelta(t, 40.0, edges[0].Amount, 1e-9)
	assert.Equal(t, models.PaymentUnpaid, edges[0].Status)
	assert.Equal(t, carol, edges[1].From)
	assert.InDelta(t, 40.0, edges[1].Amount, 1e-9)

	// Bob pays Alice back and Alice confirms.
	bobShare := &shares[1]
	require.NoError(t, ApplyTransition(bobShare, ActionMarkPaid, RoleFor(bobShare, alice, bob), now))
	assert.Equal(t, models.PaymentPendingConfirmation, bobShare.PaymentStatus)

	require.NoError(t, ApplyTransition(bobShare, ActionConfirm, RoleFor(bobShare, alice, alice), now.Add(time.Minute)))
	assert.Equal(t, models.PaymentConfirmed, bobShare.PaymentStatus)

	edges = BuildPaymentEdges(alice, shares)
	assert.Equal(t, models.PaymentConfirmed, edges[0].Status)
	assert.Equal(t, models.PaymentUnpaid, edges[1].Status)

	summary := Summarize(alice, []models.Bill{{ID: uuid.New(), PaidBy: alice, Splits: shares}})
	assert.Equal(t, 40.0, summary.TotalOwed, "only carol still owes")
	assert.Equal(t, 40.0, summary.TotalSettled, "bob's confirmed share")
	assert.Zero(t, summary.TotalOwing)
	assert.Equal(t, 1, summary.BillCount)
}
