package provision_test

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/austral/provision-engine/provision"
)

// =============================================================================
// BALANCE REDUCTION TESTS
// =============================================================================

func credit(amount int64, status provision.MovementStatus) provision.Movement {
	return provision.Movement{
		Type:   provision.MovementCredit,
		Amount: provision.NewMoneyFromInt(amount),
		Status: status,
	}
}

func debit(amount int64) provision.Movement {
	return provision.Movement{
		Type:   provision.MovementDebit,
		Amount: provision.NewMoneyFromInt(amount),
		Status: provision.StatusCompleted,
	}
}

func TestBalanceOf_CreditsMinusDebits(t *testing.T) {
	// GIVEN: Pending credits of 3000 and 2000, a completed debit of 1500
	// THEN: Balance = 3000 + 2000 - 1500 = 3500
	movements := []provision.Movement{
		credit(3000, provision.StatusPending),
		credit(2000, provision.StatusPending),
		debit(1500),
	}
	assert.Equal(t, "3500.00", provision.BalanceOf(movements).String())
}

func TestBalanceOf_PaidCreditsExcluded(t *testing.T) {
	// GIVEN: A paid credit among pending ones
	// THEN: The paid credit contributes nothing; debits always count
	movements := []provision.Movement{
		credit(3000, provision.StatusPending),
		credit(5000, provision.StatusPaid),
		debit(1000),
	}
	assert.Equal(t, "2000.00", provision.BalanceOf(movements).String())
}

func TestBalanceOf_EmptyAndZero(t *testing.T) {
	assert.True(t, provision.BalanceOf(nil).IsZero())
	assert.True(t, provision.BalanceOf([]provision.Movement{}).IsZero())
}

func TestBalanceOf_PermutationInvariant(t *testing.T) {
	// GIVEN: A fixed multiset of movements
	// WHEN: The list is shuffled repeatedly
	// THEN: The balance never changes
	movements := []provision.Movement{
		credit(2004, provision.StatusPending),
		credit(7200, provision.StatusPending),
		credit(3000, provision.StatusPaid),
		debit(1500),
		debit(250),
		credit(3000, provision.StatusCompleted),
	}
	want := provision.BalanceOf(movements).String()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(movements), func(a, b int) {
			movements[a], movements[b] = movements[b], movements[a]
		})
		assert.Equal(t, want, provision.BalanceOf(movements).String())
	}
}

func TestPendingDaysOf(t *testing.T) {
	// GIVEN: License credits with day counts and a debit that took days
	d167 := decimal.RequireFromString("1.67")
	d2 := decimal.RequireFromString("2")
	movements := []provision.Movement{
		{Type: provision.MovementCredit, Status: provision.StatusPending, Days: &d167},
		{Type: provision.MovementCredit, Status: provision.StatusPending, Days: &d167},
		{Type: provision.MovementDebit, Status: provision.StatusCompleted, Days: &d2},
		// Movements without day counts are ignored
		credit(3000, provision.StatusPending),
	}
	assert.InDelta(t, 1.34, provision.PendingDaysOf(movements), 0.0001)
}
