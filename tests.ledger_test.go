package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ledgerModes = []string{LedgerModeAtomic, LedgerModeTwoStep}

// TestCastVote ensures a first vote is added and a repeated one is idempotent.
func TestCastVote(t *testing.T) {
	for _, mode := range ledgerModes {
		t.Run(mode, func(t *testing.T) {
			f := newLedgerFixture(t, mode, 5)
			ids := f.seedBooks(t, 1)
			ctx := context.Background()

			res, err := f.ledger.CastVote(ctx, testUserA, ids[0])
			require.NoError(t, err)
			assert.Equal(t, OutcomeAdded, res.Outcome)
			assert.True(t, res.Voted)
			assert.Equal(t, int64(1), res.Votes)
			assert.Equal(t, 4, res.Remaining)

			res, err = f.ledger.CastVote(ctx, testUserA, ids[0])
			require.NoError(t, err)
			assert.Equal(t, OutcomeAlreadyVoted, res.Outcome)
			assert.True(t, res.Voted)
			assert.Equal(t, int64(1), res.Votes)
			assert.Equal(t, 4, res.Remaining)

			events := f.queue.Events()
			require.Len(t, events, 1)
			assert.Equal(t, ActionAdd, events[0].Action)
			assert.Equal(t, int64(1), events[0].NewCount)
			assert.Equal(t, testUserA, events[0].UserID)
		})
	}
}

// TestCastVote_QuotaExceeded ensures the vote beyond the quota is rejected without side effects.
func TestCastVote_QuotaExceeded(t *testing.T) {
	for _, mode := range ledgerModes {
		t.Run(mode, func(t *testing.T) {
			f := newLedgerFixture(t, mode, 5)
			ids := f.seedBooks(t, 6)
			ctx := context.Background()

			for _, id := range ids[:5] {
				_, err := f.ledger.CastVote(ctx, testUserA, id)
				require.NoError(t, err)
			}

			res, err := f.ledger.CastVote(ctx, testUserA, ids[5])
			assert.ErrorIs(t, err, ErrQuotaExceeded)
			assert.Equal(t, 0, res.Remaining)
			assert.False(t, res.Voted)

			votes, err := f.votes.BookVoteCount(ctx, ids[5])
			require.NoError(t, err)
			assert.Equal(t, int64(0), votes)
			voted, err := f.votes.HasVoted(ctx, ids[5], testUserA)
			require.NoError(t, err)
			assert.False(t, voted)

			state, err := f.ledger.GetUserVoteState(ctx, testUserA)
			require.NoError(t, err)
			assert.Equal(t, 5, state.Used)
			assert.Equal(t, 0, state.Remaining)
			assert.Equal(t, ids[:5], state.BookIDs)

			// a repeated vote at full quota is still reported as already voted.
			res, err = f.ledger.CastVote(ctx, testUserA, ids[0])
			require.NoError(t, err)
			assert.Equal(t, OutcomeAlreadyVoted, res.Outcome)
		})
	}
}

// TestCastVote_UnknownBook ensures voting for a missing book fails and writes nothing.
func TestCastVote_UnknownBook(t *testing.T) {
	for _, mode := range ledgerModes {
		t.Run(mode, func(t *testing.T) {
			f := newLedgerFixture(t, mode, 5)
			ctx := context.Background()

			_, err := f.ledger.CastVote(ctx, testUserA, testBookID(42))
			assert.ErrorIs(t, err, ErrBookNotFound)

			used, err := f.votes.CountUserVotes(ctx, testUserA)
			require.NoError(t, err)
			assert.Equal(t, 0, used)
		})
	}
}

// TestCastVote_Unauthenticated ensures anonymous mutations are refused.
func TestCastVote_Unauthenticated(t *testing.T) {
	f := newLedgerFixture(t, LedgerModeAtomic, 5)
	ids := f.seedBooks(t, 1)

	_, err := f.ledger.CastVote(context.Background(), "", ids[0])
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.ledger.RetractVote(context.Background(), "", ids[0])
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = f.ledger.GetUserVoteState(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

// TestRetractVote ensures a retraction frees quota and a second one is a no-op.
func TestRetractVote(t *testing.T) {
	for _, mode := range ledgerModes {
		t.Run(mode, func(t *testing.T) {
			f := newLedgerFixture(t, mode, 5)
			ids := f.seedBooks(t, 1)
			ctx := context.Background()

			_, err := f.ledger.CastVote(ctx, testUserA, ids[0])
			require.NoError(t, err)
			_, err = f.ledger.CastVote(ctx, testUserB, ids[0])
			require.NoError(t, err)

			res, err := f.ledger.RetractVote(ctx, testUserA, ids[0])
			require.NoError(t, err)
			assert.Equal(t, OutcomeRemoved, res.Outcome)
			assert.False(t, res.Voted)
			assert.Equal(t, int64(1), res.Votes)
			assert.Equal(t, 5, res.Remaining)

			res, err = f.ledger.RetractVote(ctx, testUserA, ids[0])
			require.NoError(t, err)
			assert.Equal(t, OutcomeNotVoted, res.Outcome)
			assert.Equal(t, int64(1), res.Votes)

			events := f.queue.Events()
			require.Len(t, events, 3)
			assert.Equal(t, ActionRemove, events[2].Action)
			assert.Equal(t, int64(1), events[2].NewCount)
		})
	}
}

// TestRetractVote_UnknownBook ensures retracting on a missing book reports not found.
func TestRetractVote_UnknownBook(t *testing.T) {
	f := newLedgerFixture(t, LedgerModeAtomic, 5)
	_, err := f.ledger.RetractVote(context.Background(), testUserA, testBookID(7))
	assert.ErrorIs(t, err, ErrBookNotFound)
}

// TestRetractVote_CounterFloor ensures a drifted zero counter never goes negative.
func TestRetractVote_CounterFloor(t *testing.T) {
	for _, mode := range ledgerModes {
		t.Run(mode, func(t *testing.T) {
			f := newLedgerFixture(t, mode, 5)
			ids := f.seedBooks(t, 1)
			ctx := context.Background()

			_, err := f.ledger.CastVote(ctx, testUserA, ids[0])
			require.NoError(t, err)
			f.mr.HSet(HBookVotes, ids[0], "0")

			res, err := f.ledger.RetractVote(ctx, testUserA, ids[0])
			require.NoError(t, err)
			assert.Equal(t, OutcomeRemoved, res.Outcome)
			assert.Equal(t, int64(0), res.Votes)
			assert.Equal(t, "0", f.mr.HGet(HBookVotes, ids[0]))
		})
	}
}

// TestCastVote_ConcurrentQuota ensures parallel votes of one user never exceed the quota.
func TestCastVote_ConcurrentQuota(t *testing.T) {
	for _, mode := range ledgerModes {
		t.Run(mode, func(t *testing.T) {
			f := newLedgerFixture(t, mode, 5)
			ids := f.seedBooks(t, 12)
			ctx := context.Background()

			var wg sync.WaitGroup
			var mu sync.Mutex
			added, rejected := 0, 0
			for _, id := range ids {
				id := id // per-iteration copy (Go 1.21 loop semantics)
				wg.Add(1)
				go func() {
					defer wg.Done()
					res, err := f.ledger.CastVote(ctx, testUserA, id)
					mu.Lock()
					defer mu.Unlock()
					switch {
					case errors.Is(err, ErrQuotaExceeded):
						rejected++
					case err == nil && res.Outcome == OutcomeAdded:
						added++
					default:
						t.Errorf("unexpected result %+v: %v", res, err)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 5, added)
			assert.Equal(t, 7, rejected)
			used, err := f.votes.CountUserVotes(ctx, testUserA)
			require.NoError(t, err)
			assert.Equal(t, 5, used)
		})
	}
}

// TestCastVote_ConcurrentUsers ensures no increment is lost when many users vote together.
func TestCastVote_ConcurrentUsers(t *testing.T) {
	for _, mode := range ledgerModes {
		t.Run(mode, func(t *testing.T) {
			f := newLedgerFixture(t, mode, 5)
			ids := f.seedBooks(t, 1)
			ctx := context.Background()

			const users = 20
			var wg sync.WaitGroup
			for i := 0; i < users; i++ {
				i := i // per-iteration copy (Go 1.21 loop semantics)
				wg.Add(1)
				go func() {
					defer wg.Done()
					userID := fmt.Sprintf("8c9c3b1e-2d1f-4f7a-9a4e-%012d", i+100)
					// the same user clicking twice must count once.
					for j := 0; j < 2; j++ {
						if _, err := f.ledger.CastVote(ctx, userID, ids[0]); err != nil {
							t.Errorf("cast vote failed: %v", err)
						}
					}
				}()
			}
			wg.Wait()

			votes, err := f.votes.BookVoteCount(ctx, ids[0])
			require.NoError(t, err)
			assert.Equal(t, int64(users), votes)
			n, err := f.client.HLen(ctx, bookVotersKey(ids[0])).Result()
			require.NoError(t, err)
			assert.Equal(t, int64(users), n)
		})
	}
}

// TestGetBookVoteState ensures the per-card state for known and anonymous users.
func TestGetBookVoteState(t *testing.T) {
	f := newLedgerFixture(t, LedgerModeAtomic, 5)
	ids := f.seedBooks(t, 2)
	ctx := context.Background()
	_, err := f.ledger.CastVote(ctx, testUserA, ids[0])
	require.NoError(t, err)

	state, err := f.ledger.GetBookVoteState(ctx, testUserA, ids[0])
	require.NoError(t, err)
	assert.Equal(t, BookVoteState{BookID: ids[0], Votes: 1, HasVoted: true, Remaining: 4}, state)

	state, err = f.ledger.GetBookVoteState(ctx, testUserB, ids[0])
	require.NoError(t, err)
	assert.Equal(t, BookVoteState{BookID: ids[0], Votes: 1, HasVoted: false, Remaining: 5}, state)

	state, err = f.ledger.GetBookVoteState(ctx, "", ids[1])
	require.NoError(t, err)
	assert.Equal(t, BookVoteState{BookID: ids[1]}, state)

	_, err = f.ledger.GetBookVoteState(ctx, testUserA, testBookID(99))
	assert.ErrorIs(t, err, ErrBookNotFound)
}

// TestGetUserVoteState_LoweredQuota ensures remaining never goes below zero
// when the configured quota is lowered under the votes already held.
func TestGetUserVoteState_LoweredQuota(t *testing.T) {
	f := newLedgerFixture(t, LedgerModeAtomic, 5)
	ids := f.seedBooks(t, 4)
	ctx := context.Background()
	for _, id := range ids {
		_, err := f.ledger.CastVote(ctx, testUserA, id)
		require.NoError(t, err)
	}
	f.config.MaxVotes = 2

	state, err := f.ledger.GetUserVoteState(ctx, testUserA)
	require.NoError(t, err)
	assert.Equal(t, 4, state.Used)
	assert.Equal(t, 0, state.Remaining)
	assert.Equal(t, 2, state.Max)

	_, err = f.ledger.CastVote(ctx, testUserA, testBookID(1))
	assert.NoError(t, err, "already voted book stays idempotent")
}

// TestReconcileCounters ensures drifted counters converge to the ledger size.
func TestReconcileCounters(t *testing.T) {
	f := newLedgerFixture(t, LedgerModeAtomic, 5)
	ids := f.seedBooks(t, 3)
	ctx := context.Background()

	for _, user := range []string{testUserA, testUserB} {
		_, err := f.ledger.CastVote(ctx, user, ids[0])
		require.NoError(t, err)
	}
	_, err := f.ledger.CastVote(ctx, testUserA, ids[1])
	require.NoError(t, err)

	f.mr.HSet(HBookVotes, ids[0], "7")
	f.mr.HSet(HBookVotes, ids[2], "3")
	// orphan counter without any book record.
	f.mr.HSet(HBookVotes, testBookID(50), "2")

	report, err := f.ledger.ReconcileCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Books)
	require.Len(t, report.Corrected, 3)
	assert.Equal(t, Reconciliation{BookID: ids[0], Previous: 7, Current: 2}, report.Corrected[0])
	assert.Equal(t, Reconciliation{BookID: ids[2], Previous: 3, Current: 0}, report.Corrected[1])
	assert.Equal(t, Reconciliation{BookID: testBookID(50), Previous: 2, Current: 0}, report.Corrected[2])

	for i, want := range []int64{2, 1, 0} {
		votes, err := f.votes.BookVoteCount(ctx, ids[i])
		require.NoError(t, err)
		assert.Equal(t, want, votes)
	}

	// a second run is a no-op.
	report, err = f.ledger.ReconcileCounters(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Corrected)

	reconciled := 0
	for _, e := range f.queue.Events() {
		if e.Action == ActionReconcile {
			reconciled++
		}
	}
	assert.Equal(t, 3, reconciled)
}

// TestReconcileCounters_Convergence ensures counters equal the ledger once the
// writers stop, even when reconciliation runs in the middle of cast and retract.
//
//nolint:funlen
func TestReconcileCounters_Convergence(t *testing.T) {
	for _, mode := range ledgerModes {
		t.Run(mode, func(t *testing.T) {
			f := newLedgerFixture(t, mode, 5)
			ids := f.seedBooks(t, 4)
			ctx := context.Background()

			const (
				users  = 8
				rounds = 30
			)
			// casts for four rounds then retracts for four, per user.
			casting := func(round int) bool { return (round/4)%2 == 0 }

			stop := make(chan struct{})
			reconciled := make(chan int)
			go func() {
				runs := 0
				defer func() { reconciled <- runs }()
				for {
					if _, err := f.ledger.ReconcileCounters(ctx); err != nil {
						t.Errorf("reconcile failed: %v", err)
						return
					}
					runs++
					select {
					case <-stop:
						return
					default:
					}
				}
			}()

			var wg sync.WaitGroup
			var mu sync.Mutex
			want := make([]int64, len(ids))
			for i := 0; i < users; i++ {
				i := i // per-iteration copy (Go 1.21 loop semantics)
				wg.Add(1)
				go func() {
					defer wg.Done()
					userID := fmt.Sprintf("8c9c3b1e-2d1f-4f7a-9a4e-%012d", i+200)
					voted := make([]bool, len(ids))
					for round := 0; round < rounds; round++ {
						b := (i + round) % len(ids)
						var err error
						if casting(round) {
							_, err = f.ledger.CastVote(ctx, userID, ids[b])
						} else {
							_, err = f.ledger.RetractVote(ctx, userID, ids[b])
						}
						if err != nil {
							t.Errorf("round %d on book %d failed: %v", round, b, err)
							return
						}
						voted[b] = casting(round)
					}
					mu.Lock()
					defer mu.Unlock()
					for b, v := range voted {
						if v {
							want[b]++
						}
					}
				}()
			}
			wg.Wait()
			close(stop)
			assert.Positive(t, <-reconciled)

			_, err := f.ledger.ReconcileCounters(ctx)
			require.NoError(t, err)
			for b, id := range ids {
				n, err := f.client.HLen(ctx, bookVotersKey(id)).Result()
				require.NoError(t, err)
				assert.Equal(t, want[b], n, "ledger rows of book %d", b)
				votes, err := f.votes.BookVoteCount(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, n, votes, "counter of book %d", b)
			}

			report, err := f.ledger.ReconcileCounters(ctx)
			require.NoError(t, err)
			assert.Empty(t, report.Corrected)
		})
	}
}

// TestReconcileBook ensures a single counter can be repaired.
func TestReconcileBook(t *testing.T) {
	f := newLedgerFixture(t, LedgerModeAtomic, 5)
	ids := f.seedBooks(t, 1)
	ctx := context.Background()
	_, err := f.ledger.CastVote(ctx, testUserA, ids[0])
	require.NoError(t, err)
	f.mr.HSet(HBookVotes, ids[0], "9")

	rec, err := f.ledger.ReconcileBook(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, Reconciliation{BookID: ids[0], Previous: 9, Current: 1}, rec)

	_, err = f.ledger.ReconcileBook(ctx, testBookID(2))
	assert.ErrorIs(t, err, ErrBookNotFound)
}

// TestTwoStep_CounterFailureRepaired ensures a failed increment is repaired
// from the ledger before the result is reported.
func TestTwoStep_CounterFailureRepaired(t *testing.T) {
	f := newLedgerFixture(t, LedgerModeTwoStep, 5)
	ids := f.seedBooks(t, 1)
	faulty := &FaultyVoteStore{
		VoteStore: f.votes,
		IncrementVoteFunc: func(ctx context.Context, bookID string) (int64, error) {
			return 0, errors.New("connection reset")
		},
	}
	ledger := NewVoteLedger(zap.NewNop(), f.config, NewMockClocker(), NewIDsHandler(), f.books, faulty, f.queue)

	res, err := ledger.CastVote(context.Background(), testUserA, ids[0])
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdded, res.Outcome)
	assert.Equal(t, int64(1), res.Votes)
	assert.Equal(t, "1", f.mr.HGet(HBookVotes, ids[0]))
}

// TestTwoStep_CounterFailureUnrepaired ensures the caller sees a store failure
// while the ledger row stays for the next reconciliation.
func TestTwoStep_CounterFailureUnrepaired(t *testing.T) {
	f := newLedgerFixture(t, LedgerModeTwoStep, 5)
	ids := f.seedBooks(t, 1)
	faulty := &FaultyVoteStore{
		VoteStore: f.votes,
		IncrementVoteFunc: func(ctx context.Context, bookID string) (int64, error) {
			return 0, errors.New("connection reset")
		},
		RecalculateBookVotesFunc: func(ctx context.Context, bookID string) (Reconciliation, error) {
			return Reconciliation{}, errors.New("connection reset")
		},
	}
	ledger := NewVoteLedger(zap.NewNop(), f.config, NewMockClocker(), NewIDsHandler(), f.books, faulty, f.queue)
	ctx := context.Background()

	_, err := ledger.CastVote(ctx, testUserA, ids[0])
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	report, err := f.ledger.ReconcileCounters(ctx)
	require.NoError(t, err)
	require.Len(t, report.Corrected, 1)
	assert.Equal(t, int64(1), report.Corrected[0].Current)
}

// TestCastVote_StoreFailure ensures backend failures surface as ErrStoreUnavailable.
func TestCastVote_StoreFailure(t *testing.T) {
	f := newLedgerFixture(t, LedgerModeAtomic, 5)
	ids := f.seedBooks(t, 1)
	faulty := &FaultyVoteStore{
		VoteStore: f.votes,
		SecureAddVoteFunc: func(ctx context.Context, vote Vote, maxVotes int) (VoteMutation, error) {
			return VoteMutation{}, errors.New("i/o timeout")
		},
	}
	ledger := NewVoteLedger(zap.NewNop(), f.config, NewMockClocker(), NewIDsHandler(), f.books, faulty, f.queue)

	_, err := ledger.CastVote(context.Background(), testUserA, ids[0])
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, f.queue.Events())
}

// TestCastVote_UnsupportedMode ensures an unknown mode is refused.
func TestCastVote_UnsupportedMode(t *testing.T) {
	f := newLedgerFixture(t, "eventual", 5)
	ids := f.seedBooks(t, 1)
	_, err := f.ledger.CastVote(context.Background(), testUserA, ids[0])
	assert.ErrorIs(t, err, ErrUnsupportedLedgerMode)
}

// TestCastVote_QueueFailureIgnored ensures a failing event queue does not fail the vote.
func TestCastVote_QueueFailureIgnored(t *testing.T) {
	f := newLedgerFixture(t, LedgerModeAtomic, 5)
	ids := f.seedBooks(t, 1)
	f.queue.PushErr = errors.New("queue down")

	res, err := f.ledger.CastVote(context.Background(), testUserA, ids[0])
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Votes)
}
