package main

import (
	"context"
	"time"
)

// Vote is a single ledger row. A user holds at most one per book.
type Vote struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// VoteOutcome tells the caller which state the (user, book) pair ended in.
type VoteOutcome string

const (
	OutcomeAdded        VoteOutcome = "added"
	OutcomeAlreadyVoted VoteOutcome = "already_voted"
	OutcomeRemoved      VoteOutcome = "removed"
	OutcomeNotVoted     VoteOutcome = "not_voted"
)

// VoteResult is returned by cast and retract operations.
type VoteResult struct {
	BookID    string      `json:"bookId"`
	Outcome   VoteOutcome `json:"outcome"`
	Voted     bool        `json:"voted"`
	Votes     int64       `json:"votes"`
	Remaining int         `json:"remaining"`
}

// UserVoteState lists the books a user currently votes for.
type UserVoteState struct {
	UserID    string   `json:"userId"`
	BookIDs   []string `json:"bookIds"`
	Used      int      `json:"used"`
	Remaining int      `json:"remaining"`
	Max       int      `json:"max"`
}

// BookVoteState is the per-card view of a book for a given user.
type BookVoteState struct {
	BookID    string `json:"bookId"`
	Votes     int64  `json:"votes"`
	HasVoted  bool   `json:"hasVoted"`
	Remaining int    `json:"remaining"`
}

// Reconciliation reports a single counter recomputation.
type Reconciliation struct {
	BookID   string `json:"bookId"`
	Previous int64  `json:"previous"`
	Current  int64  `json:"current"`
}

// Drifted reports whether the counter disagreed with the ledger.
func (r Reconciliation) Drifted() bool {
	return r.Previous != r.Current
}

// ReconcileReport summarizes a full reconciliation run.
type ReconcileReport struct {
	Books     int              `json:"books"`
	Corrected []Reconciliation `json:"corrected"`
	StartedAt time.Time        `json:"startedAt"`
	Duration  string           `json:"duration"`
}

// MutationStatus is the status code returned by the store scripts.
type MutationStatus int

const (
	MutationApplied MutationStatus = iota + 1
	MutationDuplicate
	MutationNotFound
	MutationQuotaExceeded
	MutationUnknownBook
)

// VoteMutation is what the store reports after a secure add or remove.
type VoteMutation struct {
	Status MutationStatus
	Votes  int64
	Used   int
}

// Vote log actions.
const (
	ActionAdd       = "add"
	ActionRemove    = "remove"
	ActionReconcile = "reconcile"
)

// VoteEvent is an entry of the vote log.
type VoteEvent struct {
	Action   string    `json:"action"`
	BookID   string    `json:"bookId"`
	UserID   string    `json:"userId,omitempty"`
	NewCount int64     `json:"newCount"`
	At       time.Time `json:"at"`
}

// VoteStore is the persistent side of the ledger. Every method maps to a
// single atomic operation on the backend.
type VoteStore interface {
	// SecureAddVote enforces book existence, uniqueness and quota and
	// increments the counter in one step.
	SecureAddVote(ctx context.Context, vote Vote, maxVotes int) (VoteMutation, error)
	// SecureRemoveVote deletes the vote and decrements the counter in one step.
	SecureRemoveVote(ctx context.Context, bookID, userID string) (VoteMutation, error)
	// InsertVote adds the ledger row only. It fails with ErrDuplicateVote or
	// ErrQuotaExceeded, in which case nothing was written.
	InsertVote(ctx context.Context, vote Vote, maxVotes int) error
	// DeleteVote removes the ledger row only. It fails with ErrVoteNotFound.
	DeleteVote(ctx context.Context, bookID, userID string) error
	IncrementVote(ctx context.Context, bookID string) (int64, error)
	// DecrementVote never takes the counter below zero.
	DecrementVote(ctx context.Context, bookID string) (int64, error)
	HasVoted(ctx context.Context, bookID, userID string) (bool, error)
	CountUserVotes(ctx context.Context, userID string) (int, error)
	UserVotedBooks(ctx context.Context, userID string) ([]string, error)
	BookVoteCount(ctx context.Context, bookID string) (int64, error)
	RecalculateBookVotes(ctx context.Context, bookID string) (Reconciliation, error)
	// RecalculateAllBookVotes recomputes every known counter from the ledger.
	RecalculateAllBookVotes(ctx context.Context) ([]Reconciliation, error)
}
