package ledger

import (
	"testing"

	"billsplit-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shareSum(shares []models.Share) float64 {
	var sum float64
	for _, s := range shares {
		sum += s.Amount
	}
	return sum
}

func TestEqualSplit(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	t.Run("ResidualGoesToLastParticipant", func(t *testing.T) {
		shares := EqualSplit(100, []uuid.UUID{alice, bob, carol})

		require.Len(t, shares, 3)
		assert.InDelta(t, 33.33, shares[0].Amount, 1e-9)
		assert.InDelta(t, 33.33, shares[1].Amount, 1e-9)
		assert.InDelta(t, 33.34, shares[2].Amount, 1e-9)
		assert.Equal(t, carol, shares[2].UserID, "residual must land on the last supplied id")
	})

	t.Run("SumInvariant", func(t *testing.T) {
		participants := []uuid.UUID{alice, bob, carol}
		for _, total := range []float64{0, 0.01, 0.1, 1, 10, 50.5, 99.99, 100, 120, 333.33, 1000.01} {
			shares := EqualSplit(total, participants)
			assert.InDelta(t, total, shareSum(shares), 0.001, "total %v", total)
		}
	})

	t.Run("EvenDivisionNeedsNoResidual", func(t *testing.T) {
		shares := EqualSplit(120, []uuid.UUID{alice, bob, carol})

		require.Len(t, shares, 3)
		for _, s := range shares {
			assert.InDelta(t, 40.0, s.Amount, 1e-9)
		}
	})

	t.Run("SingleParticipantTakesEverything", func(t *testing.T) {
		shares := EqualSplit(59.99, []uuid.UUID{alice})

		require.Len(t, shares, 1)
		assert.InDelta(t, 59.99, shares[0].Amount, 1e-9)
	})

	t.Run("NoParticipantsYieldsEmptySlice", func(t *testing.T) {
		assert.Empty(t, EqualSplit(100, nil))
	})

	t.Run("SharesStartUnpaid", func(t *testing.T) {
		for _, s := range EqualSplit(90, []uuid.UUID{alice, bob, carol}) {
			assert.Equal(t, models.PaymentUnpaid, s.PaymentStatus)
			assert.Nil(t, s.MarkedPaidAt)
			assert.Nil(t, s.ConfirmedAt)
		}
	})
}

func TestValidateCustomSplit(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	t.Run("MatchingAmountsPass", func(t *testing.T) {
		err := ValidateCustomSplit([]ShareValue{
			{UserID: alice, Value: 40},
			{UserID: bob, Value: 60},
		}, 100)
		assert.NoError(t, err)
	})

	t.Run("MismatchReportsBothTotals", func(t *testing.T) {
		err := ValidateCustomSplit([]ShareValue{
			{UserID: alice, Value: 40},
			{UserID: bob, Value: 50},
		}, 100)

		require.Error(t, err)
		var ve ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Message, "90.00")
		assert.Contains(t, ve.Message, "100.00")
	})

	t.Run("MissingValuesCountAsZero", func(t *testing.T) {
		err := ValidateCustomSplit([]ShareValue{
			{UserID: alice},
			{UserID: bob, Value: 100},
		}, 100)
		assert.NoError(t, err)
	})

	t.Run("RoundedCentsReconcile", func(t *testing.T) {
		err := ValidateCustomSplit([]ShareValue{
			{UserID: alice, Value: 33.33},
			{UserID: bob, Value: 66.67},
		}, 100)
		assert.NoError(t, err)
	})

	t.Run("OneCentShortIsTolerated", func(t *testing.T) {
		err := ValidateCustomSplit([]ShareValue{
			{UserID: alice, Value: 50.00},
			{UserID: bob, Value: 49.99},
		}, 100)
		assert.NoError(t, err)
	})

	t.Run("OneCentOverIsTolerated", func(t *testing.T) {
		err := ValidateCustomSplit([]ShareValue{
			{UserID: alice, Value: 50.00},
			{UserID: bob, Value: 50.01},
		}, 100)
		assert.NoError(t, err)
	})

	t.Run("TwoCentsOffIsRejected", func(t *testing.T) {
		err := ValidateCustomSplit([]ShareValue{
			{UserID: alice, Value: 50.00},
			{UserID: bob, Value: 49.98},
		}, 100)

		require.Error(t, err)
		var ve ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Message, "99.98")
	})
}

func TestCustomSplit(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	shares := CustomSplit([]ShareValue{
		{UserID: alice, Value: 40},
		{UserID: bob, Value: 60},
	})

	require.Len(t, shares, 2)
	assert.Equal(t, alice, shares[0].UserID)
	assert.InDelta(t, 40.0, shares[0].Amount, 1e-9)
	assert.Equal(t, bob, shares[1].UserID)
	assert.InDelta(t, 60.0, shares[1].Amount, 1e-9)
	for _, s := range shares {
		assert.Equal(t, models.PaymentUnpaid, s.PaymentStatus)
	}
}

func TestValidatePercentageSplit(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	t.Run("HundredPercentPasses", func(t *testing.T) {
		err := ValidatePercentageSplit([]ShareValue{
			{UserID: alice, Value: 50},
			{UserID: bob, Value: 50},
		})
		assert.NoError(t, err)
	})

	t.Run("ShortTotalReportsActual", func(t *testing.T) {
		err := ValidatePercentageSplit([]ShareValue{
			{UserID: alice, Value: 50},
			{UserID: bob, Value: 40},
		})

		require.Error(t, err)
		var ve ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Message, "90.00")
	})

	t.Run("FractionalPercentagesPass", func(t *testing.T) {
		err := ValidatePercentageSplit([]ShareValue{
			{UserID: alice, Value: 33.33},
			{UserID: bob, Value: 33.33},
			{UserID: uuid.New(), Value: 33.34},
		})
		assert.NoError(t, err)
	})

	t.Run("ExactThirdsAreTolerated", func(t *testing.T) {
		// 33.33 x 3 sums to 99.99, one hundredth short of 100.
		err := ValidatePercentageSplit([]ShareValue{
			{UserID: alice, Value: 33.33},
			{UserID: bob, Value: 33.33},
			{UserID: uuid.New(), Value: 33.33},
		})
		assert.NoError(t, err)
	})

	t.Run("OneHundredthOverIsTolerated", func(t *testing.T) {
		err := ValidatePercentageSplit([]ShareValue{
			{UserID: alice, Value: 50},
			{UserID: bob, Value: 50.01},
		})
		assert.NoError(t, err)
	})

	t.Run("TwoHundredthsOffIsRejected", func(t *testing.T) {
		err := ValidatePercentageSplit([]ShareValue{
			{UserID: alice, Value: 50},
			{UserID: bob, Value: 49.98},
		})

		require.Error(t, err)
		var ve ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Message, "99.98")
	})
}

func TestPercentageSplit(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()

	t.Run("ComputesShareOfTotal", func(t *testing.T) {
		shares := PercentageSplit(200, []ShareValue{
			{UserID: alice, Value: 25},
			{UserID: bob, Value: 75},
		})

		require.Len(t, shares, 2)
		assert.InDelta(t, 50.0, shares[0].Amount, 1e-9)
		assert.InDelta(t, 150.0, shares[1].Amount, 1e-9)
		require.NotNil(t, shares[0].Percentage)
		assert.InDelta(t, 25.0, *shares[0].Percentage, 1e-9)
	})

	t.Run("NoResidualCorrection", func(t *testing.T) {
		// Three-way 33.33/33.33/33.34 of 100.10 rounds each share
		// independently; the aggregate is allowed to drift from the total.
		shares := PercentageSplit(100.10, []ShareValue{
			{UserID: alice, Value: 33.33},
			{UserID: bob, Value: 33.33},
			{UserID: uuid.New(), Value: 33.34},
		})

		require.Len(t, shares, 3)
		assert.InDelta(t, 33.36, shares[0].Amount, 1e-9)
		assert.InDelta(t, 33.36, shares[1].Amount, 1e-9)
		assert.InDelta(t, 33.37, shares[2].Amount, 1e-9)
		assert.InDelta(t, 100.09, shareSum(shares), 1e-9, "one cent short of 100.10, left uncorrected")
	})
}

func TestItemBasedSplit(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	t.Run("AccumulatesAssignedItems", func(t *testing.T) {
		items := []BillItem{
			{Name: "Pizza", Price: 20, AssignedTo: []uuid.UUID{alice, bob}},
			{Name: "Salad", Price: 10, AssignedTo: []uuid.UUID{alice}},
			{Name: "Wine", Price: 18, AssignedTo: []uuid.UUID{alice, bob, carol}},
		}

		shares := ItemBasedSplit(items, []uuid.UUID{alice, bob, carol})

		require.Len(t, shares, 3)
		assert.InDelta(t, 26.0, shares[0].Amount, 1e-9) // 10 + 10 + 6
		assert.InDelta(t, 16.0, shares[1].Amount, 1e-9) // 10 + 6
		assert.InDelta(t, 6.0, shares[2].Amount, 1e-9)  // 6
	})

	t.Run("UnassignedParticipantGetsZeroShare", func(t *testing.T) {
		items := []BillItem{
			{Name: "Burger", Price: 12.50, AssignedTo: []uuid.UUID{alice}},
		}

		shares := ItemBasedSplit(items, []uuid.UUID{alice, bob})

		require.Len(t, shares, 2)
		assert.InDelta(t, 12.50, shares[0].Amount, 1e-9)
		assert.InDelta(t, 0.0, shares[1].Amount, 1e-9)
	})

	t.Run("ItemWithoutAssigneesIsIgnored", func(t *testing.T) {
		items := []BillItem{
			{Name: "Shared platter", Price: 30, AssignedTo: []uuid.UUID{alice, bob}},
			{Name: "Unclaimed", Price: 99},
		}

		shares := ItemBasedSplit(items, []uuid.UUID{alice, bob})

		require.Len(t, shares, 2)
		assert.InDelta(t, 15.0, shares[0].Amount, 1e-9)
		assert.InDelta(t, 15.0, shares[1].Amount, 1e-9)
	})

	t.Run("NoItemsYieldsAllZeroShares", func(t *testing.T) {
		shares := ItemBasedSplit(nil, []uuid.UUID{alice, bob})

		require.Len(t, shares, 2)
		for _, s := range shares {
			assert.Zero(t, s.Amount)
		}
	})
}
