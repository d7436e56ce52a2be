package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Supported ledger modes.
const (
	LedgerModeAtomic  = "atomic"
	LedgerModeTwoStep = "two-step"
)

// VoteLedgerProvider enforces the vote quota and the one vote per book rule.
type VoteLedgerProvider interface {
	CastVote(ctx context.Context, userID, bookID string) (VoteResult, error)
	RetractVote(ctx context.Context, userID, bookID string) (VoteResult, error)
	GetUserVoteState(ctx context.Context, userID string) (UserVoteState, error)
	GetBookVoteState(ctx context.Context, userID, bookID string) (BookVoteState, error)
	ReconcileCounters(ctx context.Context) (ReconcileReport, error)
	ReconcileBook(ctx context.Context, bookID string) (Reconciliation, error)
}

// VoteLedger keeps the ledger and the per-book counters consistent. Counters
// are only changed through atomic store operations and their returned value
// is the one reported to callers.
type VoteLedger struct {
	logger *zap.Logger
	config *VotingConfig
	clock  Clocker
	ids    UIDHandler
	books  BookStorage
	votes  VoteStore
	queue  Queuer
}

// NewVoteLedger provides a ready to use vote ledger.
func NewVoteLedger(logger *zap.Logger, config *VotingConfig, clock Clocker, ids UIDHandler, books BookStorage, votes VoteStore, queue Queuer) *VoteLedger {
	return &VoteLedger{
		logger: logger,
		config: config,
		clock:  clock,
		ids:    ids,
		books:  books,
		votes:  votes,
		queue:  queue,
	}
}

func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

func (l *VoteLedger) remaining(used int) int {
	if r := l.config.MaxVotes - used; r > 0 {
		return r
	}
	return 0
}

// CastVote records a vote of the user for the book.
func (l *VoteLedger) CastVote(ctx context.Context, userID, bookID string) (VoteResult, error) {
	if userID == "" {
		return VoteResult{}, ErrUnauthenticated
	}
	vote := Vote{
		ID:        l.ids.Generate(VoteIDPrefix),
		BookID:    bookID,
		UserID:    userID,
		CreatedAt: l.clock.Now().UTC(),
	}

	var (
		result VoteResult
		err    error
	)
	switch l.config.Mode {
	case LedgerModeAtomic, "":
		result, err = l.castAtomic(ctx, vote)
	case LedgerModeTwoStep:
		result, err = l.castTwoStep(ctx, vote)
	default:
		return VoteResult{}, fmt.Errorf("%w: %q", ErrUnsupportedLedgerMode, l.config.Mode)
	}
	if err != nil {
		return result, err
	}

	if result.Outcome == OutcomeAdded {
		l.publish(ctx, VoteEvent{Action: ActionAdd, BookID: bookID, UserID: userID, NewCount: result.Votes, At: vote.CreatedAt})
	} else {
		l.logger.Info("ledger: vote already recorded", zap.String("book.id", bookID), zap.String("user.id", userID))
	}
	return result, nil
}

func (l *VoteLedger) castAtomic(ctx context.Context, vote Vote) (VoteResult, error) {
	m, err := l.votes.SecureAddVote(ctx, vote, l.config.MaxVotes)
	if err != nil {
		return VoteResult{}, storeUnavailable("secure add vote", err)
	}
	result := VoteResult{BookID: vote.BookID, Votes: m.Votes, Remaining: l.remaining(m.Used)}
	switch m.Status {
	case MutationApplied:
		result.Outcome, result.Voted = OutcomeAdded, true
	case MutationDuplicate:
		result.Outcome, result.Voted = OutcomeAlreadyVoted, true
	case MutationQuotaExceeded:
		result.Outcome = OutcomeNotVoted
		return result, ErrQuotaExceeded
	case MutationUnknownBook:
		return VoteResult{}, ErrBookNotFound
	default:
		return VoteResult{}, storeUnavailable("secure add vote", fmt.Errorf("%w: %d", ErrUnknownMutationStatus, m.Status))
	}
	return result, nil
}

func (l *VoteLedger) castTwoStep(ctx context.Context, vote Vote) (VoteResult, error) {
	if err := l.ensureBook(ctx, vote.BookID); err != nil {
		return VoteResult{}, err
	}

	err := l.votes.InsertVote(ctx, vote, l.config.MaxVotes)
	switch {
	case errors.Is(err, ErrDuplicateVote):
		return l.snapshot(ctx, vote.UserID, vote.BookID, OutcomeAlreadyVoted)
	case errors.Is(err, ErrQuotaExceeded):
		result, serr := l.snapshot(ctx, vote.UserID, vote.BookID, OutcomeNotVoted)
		if serr != nil {
			return result, serr
		}
		return result, ErrQuotaExceeded
	case err != nil:
		return VoteResult{}, storeUnavailable("insert vote", err)
	}

	votes, err := l.votes.IncrementVote(ctx, vote.BookID)
	if err != nil {
		if votes, err = l.repairCounter(ctx, vote.BookID, err); err != nil {
			return VoteResult{}, storeUnavailable("increment vote", err)
		}
	}
	used, err := l.votes.CountUserVotes(ctx, vote.UserID)
	if err != nil {
		return VoteResult{}, storeUnavailable("count user votes", err)
	}
	return VoteResult{BookID: vote.BookID, Outcome: OutcomeAdded, Voted: true, Votes: votes, Remaining: l.remaining(used)}, nil
}

// RetractVote removes the vote of the user for the book. Retracting a
// missing vote is a no-op which reports the not voted state.
func (l *VoteLedger) RetractVote(ctx context.Context, userID, bookID string) (VoteResult, error) {
	if userID == "" {
		return VoteResult{}, ErrUnauthenticated
	}
	if err := l.ensureBook(ctx, bookID); err != nil {
		return VoteResult{}, err
	}

	var (
		result VoteResult
		err    error
	)
	switch l.config.Mode {
	case LedgerModeAtomic, "":
		result, err = l.retractAtomic(ctx, userID, bookID)
	case LedgerModeTwoStep:
		result, err = l.retractTwoStep(ctx, userID, bookID)
	default:
		return VoteResult{}, fmt.Errorf("%w: %q", ErrUnsupportedLedgerMode, l.config.Mode)
	}
	if err != nil {
		return result, err
	}

	if result.Outcome == OutcomeRemoved {
		l.publish(ctx, VoteEvent{Action: ActionRemove, BookID: bookID, UserID: userID, NewCount: result.Votes, At: l.clock.Now().UTC()})
	} else {
		l.logger.Info("ledger: no vote to retract", zap.String("book.id", bookID), zap.String("user.id", userID))
	}
	return result, nil
}

func (l *VoteLedger) retractAtomic(ctx context.Context, userID, bookID string) (VoteResult, error) {
	m, err := l.votes.SecureRemoveVote(ctx, bookID, userID)
	if err != nil {
		return VoteResult{}, storeUnavailable("secure remove vote", err)
	}
	result := VoteResult{BookID: bookID, Votes: m.Votes, Remaining: l.remaining(m.Used)}
	switch m.Status {
	case MutationApplied:
		result.Outcome = OutcomeRemoved
	case MutationNotFound:
		result.Outcome = OutcomeNotVoted
	default:
		return VoteResult{}, storeUnavailable("secure remove vote", fmt.Errorf("%w: %d", ErrUnknownMutationStatus, m.Status))
	}
	return result, nil
}

func (l *VoteLedger) retractTwoStep(ctx context.Context, userID, bookID string) (VoteResult, error) {
	err := l.votes.DeleteVote(ctx, bookID, userID)
	if errors.Is(err, ErrVoteNotFound) {
		return l.snapshot(ctx, userID, bookID, OutcomeNotVoted)
	}
	if err != nil {
		return VoteResult{}, storeUnavailable("delete vote", err)
	}

	votes, err := l.votes.DecrementVote(ctx, bookID)
	if err != nil {
		if votes, err = l.repairCounter(ctx, bookID, err); err != nil {
			return VoteResult{}, storeUnavailable("decrement vote", err)
		}
	}
	used, err := l.votes.CountUserVotes(ctx, userID)
	if err != nil {
		return VoteResult{}, storeUnavailable("count user votes", err)
	}
	return VoteResult{BookID: bookID, Outcome: OutcomeRemoved, Votes: votes, Remaining: l.remaining(used)}, nil
}

// repairCounter is called once the ledger row was written but the counter
// update failed. It recomputes the counter of that book from the ledger. When
// this fails as well the drift is left to the next reconciliation run.
func (l *VoteLedger) repairCounter(ctx context.Context, bookID string, cause error) (int64, error) {
	l.logger.Warn("ledger: counter update failed after ledger write", zap.String("book.id", bookID), zap.Error(cause))
	rec, err := l.votes.RecalculateBookVotes(ctx, bookID)
	if err != nil {
		l.logger.Error("ledger: counter drift left for reconciliation", zap.String("book.id", bookID), zap.Error(err))
		return 0, errors.Join(cause, err)
	}
	return rec.Current, nil
}

// snapshot reads the current state of the (user, book) pair from the store.
func (l *VoteLedger) snapshot(ctx context.Context, userID, bookID string, outcome VoteOutcome) (VoteResult, error) {
	votes, err := l.votes.BookVoteCount(ctx, bookID)
	if err != nil {
		return VoteResult{}, storeUnavailable("book vote count", err)
	}
	used, err := l.votes.CountUserVotes(ctx, userID)
	if err != nil {
		return VoteResult{}, storeUnavailable("count user votes", err)
	}
	return VoteResult{
		BookID:    bookID,
		Outcome:   outcome,
		Voted:     outcome == OutcomeAlreadyVoted,
		Votes:     votes,
		Remaining: l.remaining(used),
	}, nil
}

func (l *VoteLedger) ensureBook(ctx context.Context, bookID string) error {
	exists, err := l.books.Exists(ctx, bookID)
	if err != nil {
		return storeUnavailable("book exists", err)
	}
	if !exists {
		return ErrBookNotFound
	}
	return nil
}

// GetUserVoteState returns the books the user votes for and the remaining quota.
func (l *VoteLedger) GetUserVoteState(ctx context.Context, userID string) (UserVoteState, error) {
	if userID == "" {
		return UserVoteState{}, ErrUnauthenticated
	}
	ids, err := l.votes.UserVotedBooks(ctx, userID)
	if err != nil {
		return UserVoteState{}, storeUnavailable("user voted books", err)
	}
	return UserVoteState{
		UserID:    userID,
		BookIDs:   ids,
		Used:      len(ids),
		Remaining: l.remaining(len(ids)),
		Max:       l.config.MaxVotes,
	}, nil
}

// GetBookVoteState returns the counter of the book and, for a known user,
// whether they voted for it. An empty userID yields the anonymous view.
func (l *VoteLedger) GetBookVoteState(ctx context.Context, userID, bookID string) (BookVoteState, error) {
	if err := l.ensureBook(ctx, bookID); err != nil {
		return BookVoteState{}, err
	}
	votes, err := l.votes.BookVoteCount(ctx, bookID)
	if err != nil {
		return BookVoteState{}, storeUnavailable("book vote count", err)
	}
	state := BookVoteState{BookID: bookID, Votes: votes}
	if userID == "" {
		return state, nil
	}
	if state.HasVoted, err = l.votes.HasVoted(ctx, bookID, userID); err != nil {
		return BookVoteState{}, storeUnavailable("has voted", err)
	}
	used, err := l.votes.CountUserVotes(ctx, userID)
	if err != nil {
		return BookVoteState{}, storeUnavailable("count user votes", err)
	}
	state.Remaining = l.remaining(used)
	return state, nil
}

// ReconcileCounters recomputes every counter from the ledger. The ledger
// itself is never modified.
func (l *VoteLedger) ReconcileCounters(ctx context.Context) (ReconcileReport, error) {
	started := l.clock.Now()
	results, err := l.votes.RecalculateAllBookVotes(ctx)
	if err != nil {
		return ReconcileReport{}, storeUnavailable("recalculate all book votes", err)
	}
	report := ReconcileReport{
		Books:     len(results),
		Corrected: []Reconciliation{},
		StartedAt: started.UTC(),
	}
	for _, rec := range results {
		if rec.Drifted() {
			report.Corrected = append(report.Corrected, rec)
			l.recordDrift(ctx, rec)
		}
	}
	report.Duration = l.clock.Now().Sub(started).String()
	l.logger.Info("ledger: counters reconciled",
		zap.Int("books", report.Books),
		zap.Int("corrected", len(report.Corrected)),
		zap.String("duration", report.Duration),
	)
	return report, nil
}

// ReconcileBook recomputes the counter of a single book.
func (l *VoteLedger) ReconcileBook(ctx context.Context, bookID string) (Reconciliation, error) {
	if err := l.ensureBook(ctx, bookID); err != nil {
		return Reconciliation{}, err
	}
	rec, err := l.votes.RecalculateBookVotes(ctx, bookID)
	if err != nil {
		return Reconciliation{}, storeUnavailable("recalculate book votes", err)
	}
	if rec.Drifted() {
		l.recordDrift(ctx, rec)
	}
	return rec, nil
}

func (l *VoteLedger) recordDrift(ctx context.Context, rec Reconciliation) {
	l.logger.Warn("ledger: counter drift corrected",
		zap.String("book.id", rec.BookID),
		zap.Int64("counter.previous", rec.Previous),
		zap.Int64("counter.current", rec.Current),
	)
	l.publish(ctx, VoteEvent{Action: ActionReconcile, BookID: rec.BookID, NewCount: rec.Current, At: l.clock.Now().UTC()})
}

func (l *VoteLedger) publish(ctx context.Context, event VoteEvent) {
	if l.queue == nil {
		return
	}
	if err := l.queue.Push(ctx, VoteLogQueue, event); err != nil {
		l.logger.Error("ledger: failed to push vote event to queue",
			zap.String("qid", VoteLogQueue),
			zap.String("vote.action", event.Action),
			zap.String("book.id", event.BookID),
			zap.Error(err),
		)
	}
}
