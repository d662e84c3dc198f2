package quota

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgekit/nudgekit/pkg/models"
	"github.com/nudgekit/nudgekit/pkg/persistence"
	"github.com/nudgekit/nudgekit/pkg/persistence/memory"
	"github.com/nudgekit/nudgekit/pkg/testutil"
)

func newGate(t *testing.T, sub *models.Subscription) (*Gate, *memory.Persistence) {
	t.Helper()

	store := memory.NewPersistence()
	if sub != nil {
		store.AddSubscription(sub)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewGate(store.SubscriptionRepository(), logger), store
}

func TestReserve_ChargesOnSuccess(t *testing.T) {
	gate, store := newGate(t, testutil.CreateTestSubscription(
		testutil.WithUsage(models.ResourceMonthlyEvents, 5),
		testutil.WithLimit(models.ResourceMonthlyEvents, 10),
	))

	require.NoError(t, gate.Reserve(t.Context(), "account-1"))

	sub, err := store.SubscriptionRepository().Subscription(t.Context(), "account-1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), sub.Usage[models.ResourceMonthlyEvents])
}

func TestReserve_RefusesAtLimit(t *testing.T) {
	gate, store := newGate(t, testutil.CreateTestSubscription(
		testutil.WithUsage(models.ResourceMonthlyEvents, 10),
		testutil.WithLimit(models.ResourceMonthlyEvents, 10),
	))

	err := gate.Reserve(t.Context(), "account-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	var exceeded *ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, int64(10), exceeded.Usage)
	assert.Equal(t, int64(10), exceeded.Limit)

	// Refusal never consumes capacity.
	sub, subErr := store.SubscriptionRepository().Subscription(t.Context(), "account-1")
	require.NoError(t, subErr)
	assert.Equal(t, int64(10), sub.Usage[models.ResourceMonthlyEvents])
}

func TestReserve_MissingSubscriptionDenies(t *testing.T) {
	gate, _ := newGate(t, nil)

	err := gate.Reserve(t.Context(), "account-unknown")
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrSubscriptionNotFound)
	assert.NotErrorIs(t, err, ErrQuotaExceeded)
}

func TestReserve_UnlimitedPlanNeverRefuses(t *testing.T) {
	gate, _ := newGate(t, testutil.CreateTestSubscription(
		testutil.WithPlan(models.PlanUnlimited),
		testutil.WithUsage(models.ResourceMonthlyEvents, 1_000_000),
		testutil.WithLimit(models.ResourceMonthlyEvents, 1),
	))

	for range 100 {
		require.NoError(t, gate.Reserve(t.Context(), "account-1"))
	}
}

// Concurrent reservations against a nearly exhausted quota must never
// overshoot the limit: exactly the remaining capacity may be granted.
func TestReserve_ConcurrentNoOvershoot(t *testing.T) {
	const (
		remaining  = 7
		goroutines = 50
	)

	gate, store := newGate(t, testutil.CreateTestSubscription(
		testutil.WithUsage(models.ResourceMonthlyEvents, 100-remaining),
		testutil.WithLimit(models.ResourceMonthlyEvents, 100),
	))

	var granted, refused atomic.Int64

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := gate.Reserve(t.Context(), "account-1")
			switch {
			case err == nil:
				granted.Add(1)
			case errors.Is(err, ErrQuotaExceeded):
				refused.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, int64(remaining), granted.Load())
	assert.Equal(t, int64(goroutines-remaining), refused.Load())

	sub, err := store.SubscriptionRepository().Subscription(t.Context(), "account-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), sub.Usage[models.ResourceMonthlyEvents])
}
