package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multihubswap/engine/pkg/database/query"
	"github.com/multihubswap/engine/pkg/pointer"
	"github.com/multihubswap/engine/pkg/recovery"
)

func RunTests(t *testing.T, s recovery.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s recovery.Store){
		testRoundTrip,
		testUpdateHappyPath,
		testUpdateStaleRecord,
		testGetAllByWalletAndState,
		testGetAllByState,
		testCountByState,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s recovery.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		actual, err := s.GetByAttemptId(ctx, "test_attempt_id")
		require.Error(t, err)
		assert.Equal(t, recovery.ErrNotFound, err)
		assert.Nil(t, actual)

		expected := &recovery.Record{
			AttemptId: "test_attempt_id",

			Wallet: "test_wallet",

			ResourceIn:  "test_resource_in",
			ResourceOut: "test_resource_out",
			Amount:      12345,

			MinimumCredit: 10_000,

			PreBalanceIn:  100_000,
			PreBalanceOut: 50_000,

			TransactionSignature: pointer.String("test_transaction_signature"),

			State: recovery.StatePending,

			CreatedAt: time.Now(),
		}
		cloned := expected.Clone()
		err = s.Save(ctx, expected)
		require.NoError(t, err)
		assert.EqualValues(t, 1, expected.Id)
		assert.EqualValues(t, 1, expected.Version)

		actual, err = s.GetByAttemptId(ctx, "test_attempt_id")
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)
	})
}

func testUpdateHappyPath(t *testing.T, s recovery.Store) {
	t.Run("testUpdateHappyPath", func(t *testing.T) {
		ctx := context.Background()

		expected := &recovery.Record{
			AttemptId: "test_attempt_id",

			Wallet: "test_wallet",

			ResourceIn:  "test_resource_in",
			ResourceOut: "test_resource_out",
			Amount:      12345,

			PreBalanceIn:  100_000,
			PreBalanceOut: 50_000,

			State: recovery.StatePending,

			CreatedAt: time.Now(),
		}
		err := s.Save(ctx, expected)
		require.NoError(t, err)
		assert.EqualValues(t, 1, expected.Id)
		assert.EqualValues(t, 1, expected.Version)

		expected.DebitedDelta = pointer.Uint64(12345)
		expected.TransactionSignature = pointer.String("test_transaction_signature")
		expected.RefundSignature = pointer.String("test_refund_signature")
		expected.State = recovery.StateRefunded

		err = s.Save(ctx, expected)
		require.NoError(t, err)
		assert.EqualValues(t, 1, expected.Id)
		assert.EqualValues(t, 2, expected.Version)

		actual, err := s.GetByAttemptId(ctx, "test_attempt_id")
		require.NoError(t, err)
		assertEquivalentRecords(t, expected, actual)
	})
}

func testUpdateStaleRecord(t *testing.T, s recovery.Store) {
	t.Run("testUpdateStaleRecord", func(t *testing.T) {
		ctx := context.Background()

		expected := &recovery.Record{
			AttemptId: "test_attempt_id",

			Wallet: "test_wallet",

			ResourceIn:  "test_resource_in",
			ResourceOut: "test_resource_out",
			Amount:      12345,

			PreBalanceIn:  100_000,
			PreBalanceOut: 50_000,

			TransactionSignature: pointer.String("test_transaction_signature"),

			State: recovery.StateConfirmed,

			CreatedAt: time.Now(),
		}
		err := s.Save(ctx, expected)
		require.NoError(t, err)
		assert.EqualValues(t, 1, expected.Id)
		assert.EqualValues(t, 1, expected.Version)

		stale := expected.Clone()
		stale.State = recovery.StateFailed
		stale.Version -= 1

		err = s.Save(ctx, &stale)
		assert.Equal(t, recovery.ErrStaleVersion, err)
		assert.EqualValues(t, 1, stale.Id)
		assert.EqualValues(t, 0, stale.Version)

		actual, err := s.GetByAttemptId(ctx, "test_attempt_id")
		require.NoError(t, err)
		assert.Equal(t, recovery.StateConfirmed, actual.State)
		assert.EqualValues(t, 1, actual.Id)
		assert.EqualValues(t, 1, actual.Version)
	})
}

func testGetAllByWalletAndState(t *testing.T, s recovery.Store) {
	t.Run("testGetAllByWalletAndState", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByWalletAndState(ctx, "test_wallet_0", recovery.StatePending)
		assert.Equal(t, recovery.ErrNotFound, err)

		var records []*recovery.Record
		for i := 0; i < 100; i++ {
			record := &recovery.Record{
				AttemptId: fmt.Sprintf("test_attempt_id_%d", i),

				Wallet: fmt.Sprintf("test_wallet_%d", i%2),

				ResourceIn:  fmt.Sprintf("test_resource_in_%d", i),
				ResourceOut: fmt.Sprintf("test_resource_out_%d", i),
				Amount:      uint64(i + 1),

				PreBalanceIn:  uint64(1000 * i),
				PreBalanceOut: uint64(500 * i),

				// i/2 cycles through every state for each wallet
				// independently of the wallet split.
				State: recovery.StatePending + recovery.State((i/2)%4),

				CreatedAt: time.Now(),
			}
			require.NoError(t, s.Save(ctx, record))

			records = append(records, record)
		}

		for _, wallet := range []string{"test_wallet_0", "test_wallet_1"} {
			for state := recovery.StatePending; state <= recovery.StateRefunding; state++ {
				allActual, err := s.GetAllByWalletAndState(ctx, wallet, state)
				require.NoError(t, err)
				require.NotEmpty(t, allActual)

				for _, actual := range allActual {
					assert.Equal(t, wallet, actual.Wallet)
					assert.Equal(t, state, actual.State)
				}

				var expectedCount int
				for _, record := range records {
					if record.Wallet == wallet && record.State == state {
						expectedCount++
					}
				}
				assert.Equal(t, expectedCount, len(allActual))
			}
		}
	})
}

func testGetAllByState(t *testing.T, s recovery.Store) {
	t.Run("testGetAllByState", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByState(ctx, recovery.StatePending, query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, recovery.ErrNotFound, err)

		for i := 0; i < 10; i++ {
			record := &recovery.Record{
				AttemptId: fmt.Sprintf("test_attempt_id_%d", i),

				Wallet: "test_wallet",

				ResourceIn:  fmt.Sprintf("test_resource_in_%d", i),
				ResourceOut: fmt.Sprintf("test_resource_out_%d", i),
				Amount:      uint64(i + 1),

				State: recovery.StatePending,

				CreatedAt: time.Now(),
			}
			require.NoError(t, s.Save(ctx, record))
		}

		actual, err := s.GetAllByState(ctx, recovery.StatePending, query.EmptyCursor, 5, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 5)
		for i := 0; i < len(actual)-1; i++ {
			assert.True(t, actual[i].Id < actual[i+1].Id)
		}

		actual, err = s.GetAllByState(ctx, recovery.StatePending, query.ToCursor(actual[len(actual)-1].Id), 100, query.Ascending)
		require.NoError(t, err)
		require.Len(t, actual, 5)

		actual, err = s.GetAllByState(ctx, recovery.StatePending, query.EmptyCursor, 100, query.Descending)
		require.NoError(t, err)
		require.Len(t, actual, 10)
		for i := 0; i < len(actual)-1; i++ {
			assert.True(t, actual[i].Id > actual[i+1].Id)
		}

		_, err = s.GetAllByState(ctx, recovery.StateRefunded, query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, recovery.ErrNotFound, err)
	})
}

func testCountByState(t *testing.T, s recovery.Store) {
	t.Run("testCountByState", func(t *testing.T) {
		ctx := context.Background()

		count, err := s.CountByState(ctx, recovery.StatePending)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		for i := 0; i < 7; i++ {
			state := recovery.StatePending
			if i%2 == 0 {
				state = recovery.StateConfirmed
			}

			record := &recovery.Record{
				AttemptId: fmt.Sprintf("test_attempt_id_%d", i),

				Wallet: "test_wallet",

				ResourceIn:  fmt.Sprintf("test_resource_in_%d", i),
				ResourceOut: fmt.Sprintf("test_resource_out_%d", i),
				Amount:      uint64(i + 1),

				State: state,

				CreatedAt: time.Now(),
			}
			require.NoError(t, s.Save(ctx, record))
		}

		count, err = s.CountByState(ctx, recovery.StatePending)
		require.NoError(t, err)
		assert.EqualValues(t, 3, count)

		count, err = s.CountByState(ctx, recovery.StateConfirmed)
		require.NoError(t, err)
		assert.EqualValues(t, 4, count)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *recovery.Record) {
	assert.Equal(t, obj1.AttemptId, obj2.AttemptId)
	assert.Equal(t, obj1.Wallet, obj2.Wallet)
	assert.Equal(t, obj1.ResourceIn, obj2.ResourceIn)
	assert.Equal(t, obj1.ResourceOut, obj2.ResourceOut)
	assert.Equal(t, obj1.Amount, obj2.Amount)
	assert.Equal(t, obj1.MinimumCredit, obj2.MinimumCredit)
	assert.Equal(t, obj1.PreBalanceIn, obj2.PreBalanceIn)
	assert.Equal(t, obj1.PreBalanceOut, obj2.PreBalanceOut)
	assert.EqualValues(t, obj1.DebitedDelta, obj2.DebitedDelta)
	assert.EqualValues(t, obj1.TransactionSignature, obj2.TransactionSignature)
	assert.EqualValues(t, obj1.RefundSignature, obj2.RefundSignature)
	assert.Equal(t, obj1.State, obj2.State)
}
