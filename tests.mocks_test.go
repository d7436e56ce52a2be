package main

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// This file contains mocks definitions needed to perform unit tests.

// MockBookStorage implements BookStorage with overridable behaviors.
type MockBookStorage struct {
	AddFunc              func(ctx context.Context, book Book, maxSuggestions int) error
	GetOneFunc           func(ctx context.Context, id string) (Book, error)
	GetAllFunc           func(ctx context.Context) ([]Book, error)
	ExistsFunc           func(ctx context.Context, id string) (bool, error)
	CountSuggestionsFunc func(ctx context.Context, userID string) (int, error)
}

// Add mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Add(ctx context.Context, book Book, maxSuggestions int) error {
	return m.AddFunc(ctx, book, maxSuggestions)
}

// GetOne mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

// GetAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	return m.GetAllFunc(ctx)
}

// Exists mocks the behavior of checking a book existence.
func (m *MockBookStorage) Exists(ctx context.Context, id string) (bool, error) {
	return m.ExistsFunc(ctx, id)
}

// CountSuggestions mocks the behavior of counting the suggestions of a user.
func (m *MockBookStorage) CountSuggestions(ctx context.Context, userID string) (int, error) {
	return m.CountSuggestionsFunc(ctx, userID)
}

// FaultyVoteStore wraps a working VoteStore. Any non nil func field
// replaces the corresponding method.
type FaultyVoteStore struct {
	VoteStore
	IncrementVoteFunc        func(ctx context.Context, bookID string) (int64, error)
	DecrementVoteFunc        func(ctx context.Context, bookID string) (int64, error)
	RecalculateBookVotesFunc func(ctx context.Context, bookID string) (Reconciliation, error)
	SecureAddVoteFunc        func(ctx context.Context, vote Vote, maxVotes int) (VoteMutation, error)
}

func (f *FaultyVoteStore) IncrementVote(ctx context.Context, bookID string) (int64, error) {
	if f.IncrementVoteFunc != nil {
		return f.IncrementVoteFunc(ctx, bookID)
	}
	return f.VoteStore.IncrementVote(ctx, bookID)
}

func (f *FaultyVoteStore) DecrementVote(ctx context.Context, bookID string) (int64, error) {
	if f.DecrementVoteFunc != nil {
		return f.DecrementVoteFunc(ctx, bookID)
	}
	return f.VoteStore.DecrementVote(ctx, bookID)
}

func (f *FaultyVoteStore) RecalculateBookVotes(ctx context.Context, bookID string) (Reconciliation, error) {
	if f.RecalculateBookVotesFunc != nil {
		return f.RecalculateBookVotesFunc(ctx, bookID)
	}
	return f.VoteStore.RecalculateBookVotes(ctx, bookID)
}

func (f *FaultyVoteStore) SecureAddVote(ctx context.Context, vote Vote, maxVotes int) (VoteMutation, error) {
	if f.SecureAddVoteFunc != nil {
		return f.SecureAddVoteFunc(ctx, vote, maxVotes)
	}
	return f.VoteStore.SecureAddVote(ctx, vote, maxVotes)
}

// MockQueue records pushed payloads and serves queued items on Pop.
type MockQueue struct {
	mu      sync.Mutex
	PushErr error
	PopErr  error
	Pushed  map[string][]interface{}
	items   chan mockQueueItem
	pops    atomic.Int64
}

type mockQueueItem struct {
	qid  string
	data []byte
}

func NewMockQueue() *MockQueue {
	return &MockQueue{Pushed: make(map[string][]interface{}), items: make(chan mockQueueItem, 64)}
}

// Push records the payload unless PushErr is set.
func (q *MockQueue) Push(_ context.Context, qid string, payload interface{}) error {
	if q.PushErr != nil {
		return q.PushErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Pushed[qid] = append(q.Pushed[qid], payload)
	return nil
}

// Feed makes raw data available to Pop.
func (q *MockQueue) Feed(qid string, data []byte) {
	q.items <- mockQueueItem{qid, data}
}

// Pop blocks until an item was fed or ctx is done. It fails at once when PopErr is set.
func (q *MockQueue) Pop(ctx context.Context, _ ...string) (string, []byte, error) {
	q.pops.Add(1)
	q.mu.Lock()
	popErr := q.PopErr
	q.mu.Unlock()
	if popErr != nil {
		return "", nil, popErr
	}
	select {
	case it := <-q.items:
		return it.qid, it.data, nil
	case <-ctx.Done():
		return "", nil, ctx.Err()
	}
}

// Pops returns the number of Pop calls made so far.
func (q *MockQueue) Pops() int64 {
	return q.pops.Load()
}

// Events returns the vote events pushed so far.
func (q *MockQueue) Events() []VoteEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := []VoteEvent{}
	for _, p := range q.Pushed[VoteLogQueue] {
		events = append(events, p.(VoteEvent))
	}
	return events
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

// Well-formed identifiers used across tests.
const (
	testUserA = "8c9c3b1e-2d1f-4f7a-9a4e-0b7c1f0a0001"
	testUserB = "8c9c3b1e-2d1f-4f7a-9a4e-0b7c1f0a0002"
)

func testBookID(n int) string {
	return "b:00000000-0000-4000-8000-" + leftPad(n)
}

func leftPad(n int) string {
	const digits = "000000000000"
	s := []byte(digits)
	for i := len(s) - 1; n > 0 && i >= 0; i-- {
		s[i] = byte('0' + n%10)
		n /= 10
	}
	return string(s)
}

// newTestRedis starts an in-memory redis server bound to the test lifetime.
func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// ledgerFixture bundles a ledger over in-memory redis.
type ledgerFixture struct {
	mr     *miniredis.Miniredis
	client *redis.Client
	books  BookStorage
	votes  VoteStore
	queue  *MockQueue
	config *VotingConfig
	ledger *VoteLedger
}

func newLedgerFixture(t *testing.T, mode string, maxVotes int) *ledgerFixture {
	t.Helper()
	mr, client := newTestRedis(t)
	f := &ledgerFixture{
		mr:     mr,
		client: client,
		books:  NewRedisBookStorage(zap.NewNop(), client),
		votes:  NewRedisVoteStore(zap.NewNop(), client, 4),
		queue:  NewMockQueue(),
		config: &VotingConfig{MaxVotes: maxVotes, MaxSuggestions: 3, Mode: mode},
	}
	f.ledger = NewVoteLedger(zap.NewNop(), f.config, NewMockClocker(), NewIDsHandler(), f.books, f.votes, f.queue)
	return f
}

// seedBooks stores n books with ids testBookID(1..n).
func (f *ledgerFixture) seedBooks(t *testing.T, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		id := testBookID(i)
		book := Book{ID: id, Title: "Book " + leftPad(i), Author: "Author", CreatedAt: NewMockClocker().Now()}
		if err := f.books.Add(context.Background(), book, 1000); err != nil {
			t.Fatalf("failed to seed book %s: %v", id, err)
		}
		ids = append(ids, id)
	}
	return ids
}
