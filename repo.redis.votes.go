package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Ensure redisVoteStore implements VoteStore.
var _ VoteStore = (*redisVoteStore)(nil)

// Scripts reply with {status, counter, used}. Status values match MutationStatus.
var (
	secureAddVoteScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
  return {5, 0, 0}
end
local used = redis.call('SCARD', KEYS[3])
local votes = tonumber(redis.call('HGET', KEYS[4], ARGV[1]) or '0')
if redis.call('HEXISTS', KEYS[2], ARGV[2]) == 1 then
  return {2, votes, used}
end
if used >= tonumber(ARGV[3]) then
  return {4, votes, used}
end
redis.call('HSET', KEYS[2], ARGV[2], ARGV[4])
redis.call('SADD', KEYS[3], ARGV[1])
votes = redis.call('HINCRBY', KEYS[4], ARGV[1], 1)
return {1, votes, used + 1}
`)

	secureRemoveVoteScript = redis.NewScript(`
local used = redis.call('SCARD', KEYS[2])
local votes = tonumber(redis.call('HGET', KEYS[3], ARGV[1]) or '0')
if redis.call('HDEL', KEYS[1], ARGV[2]) == 0 then
  return {3, votes, used}
end
redis.call('SREM', KEYS[2], ARGV[1])
if votes > 0 then
  votes = redis.call('HINCRBY', KEYS[3], ARGV[1], -1)
else
  redis.call('HSET', KEYS[3], ARGV[1], 0)
  votes = 0
end
return {1, votes, used - 1}
`)

	insertVoteScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[2], ARGV[4]) == 0 then
  return 2
end
redis.call('SADD', KEYS[2], ARGV[1])
if redis.call('SCARD', KEYS[2]) > tonumber(ARGV[3]) then
  redis.call('HDEL', KEYS[1], ARGV[2])
  redis.call('SREM', KEYS[2], ARGV[1])
  return 4
end
return 1
`)

	deleteVoteScript = redis.NewScript(`
if redis.call('HDEL', KEYS[1], ARGV[2]) == 0 then
  return 3
end
redis.call('SREM', KEYS[2], ARGV[1])
return 1
`)

	decrementVoteScript = redis.NewScript(`
local votes = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if votes <= 0 then
  redis.call('HSET', KEYS[1], ARGV[1], 0)
  return 0
end
return redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
`)

	recalculateVotesScript = redis.NewScript(`
local previous = tonumber(redis.call('HGET', KEYS[2], ARGV[1]) or '0')
local current = redis.call('HLEN', KEYS[1])
redis.call('HSET', KEYS[2], ARGV[1], current)
return {previous, current}
`)
)

type redisVoteStore struct {
	logger      *zap.Logger
	client      *redis.Client
	concurrency int
}

// NewRedisVoteStore provides a redis-based vote ledger. The concurrency
// bounds the number of parallel recalculations during a full run.
func NewRedisVoteStore(logger *zap.Logger, client *redis.Client, concurrency int) VoteStore {
	if concurrency < 1 {
		concurrency = 1
	}
	return &redisVoteStore{
		logger:      logger,
		client:      client,
		concurrency: concurrency,
	}
}

func parseMutation(reply []int64) (VoteMutation, error) {
	if len(reply) != 3 {
		return VoteMutation{}, fmt.Errorf("%w: reply of length %d", ErrUnknownMutationStatus, len(reply))
	}
	status := MutationStatus(reply[0])
	if status < MutationApplied || status > MutationUnknownBook {
		return VoteMutation{}, fmt.Errorf("%w: %d", ErrUnknownMutationStatus, reply[0])
	}
	return VoteMutation{Status: status, Votes: reply[1], Used: int(reply[2])}, nil
}

// SecureAddVote runs the whole add path as a single script.
func (vs *redisVoteStore) SecureAddVote(ctx context.Context, vote Vote, maxVotes int) (VoteMutation, error) {
	voteBytes, err := json.Marshal(vote)
	if err != nil {
		return VoteMutation{}, err
	}
	keys := []string{HBooks, bookVotersKey(vote.BookID), userVotesKey(vote.UserID), HBookVotes}
	reply, err := secureAddVoteScript.Run(ctx, vs.client, keys, vote.BookID, vote.UserID, maxVotes, voteBytes).Int64Slice()
	if err != nil {
		return VoteMutation{}, err
	}
	return parseMutation(reply)
}

// SecureRemoveVote runs the whole remove path as a single script.
func (vs *redisVoteStore) SecureRemoveVote(ctx context.Context, bookID, userID string) (VoteMutation, error) {
	keys := []string{bookVotersKey(bookID), userVotesKey(userID), HBookVotes}
	reply, err := secureRemoveVoteScript.Run(ctx, vs.client, keys, bookID, userID).Int64Slice()
	if err != nil {
		return VoteMutation{}, err
	}
	return parseMutation(reply)
}

// InsertVote adds the ledger row under the (book, user) uniqueness constraint.
func (vs *redisVoteStore) InsertVote(ctx context.Context, vote Vote, maxVotes int) error {
	voteBytes, err := json.Marshal(vote)
	if err != nil {
		return err
	}
	keys := []string{bookVotersKey(vote.BookID), userVotesKey(vote.UserID)}
	code, err := insertVoteScript.Run(ctx, vs.client, keys, vote.BookID, vote.UserID, maxVotes, voteBytes).Int()
	if err != nil {
		return err
	}
	switch MutationStatus(code) {
	case MutationApplied:
		return nil
	case MutationDuplicate:
		return ErrDuplicateVote
	case MutationQuotaExceeded:
		return ErrQuotaExceeded
	default:
		return fmt.Errorf("%w: %d", ErrUnknownMutationStatus, code)
	}
}

// DeleteVote removes the ledger row of the (book, user) pair.
func (vs *redisVoteStore) DeleteVote(ctx context.Context, bookID, userID string) error {
	keys := []string{bookVotersKey(bookID), userVotesKey(userID)}
	code, err := deleteVoteScript.Run(ctx, vs.client, keys, bookID, userID).Int()
	if err != nil {
		return err
	}
	switch MutationStatus(code) {
	case MutationApplied:
		return nil
	case MutationNotFound:
		return ErrVoteNotFound
	default:
		return fmt.Errorf("%w: %d", ErrUnknownMutationStatus, code)
	}
}

// IncrementVote atomically increments the book counter.
func (vs *redisVoteStore) IncrementVote(ctx context.Context, bookID string) (int64, error) {
	return vs.client.HIncrBy(ctx, HBookVotes, bookID, 1).Result()
}

// DecrementVote atomically decrements the book counter, floored at zero.
func (vs *redisVoteStore) DecrementVote(ctx context.Context, bookID string) (int64, error) {
	return decrementVoteScript.Run(ctx, vs.client, []string{HBookVotes}, bookID).Int64()
}

// HasVoted checks the existence of the (book, user) ledger row.
func (vs *redisVoteStore) HasVoted(ctx context.Context, bookID, userID string) (bool, error) {
	return vs.client.HExists(ctx, bookVotersKey(bookID), userID).Result()
}

// CountUserVotes returns the number of active votes of the user.
func (vs *redisVoteStore) CountUserVotes(ctx context.Context, userID string) (int, error) {
	n, err := vs.client.SCard(ctx, userVotesKey(userID)).Result()
	return int(n), err
}

// UserVotedBooks lists the ids of the books the user votes for, sorted.
func (vs *redisVoteStore) UserVotedBooks(ctx context.Context, userID string) ([]string, error) {
	ids, err := vs.client.SMembers(ctx, userVotesKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// BookVoteCount reads the denormalized counter of the book.
func (vs *redisVoteStore) BookVoteCount(ctx context.Context, bookID string) (int64, error) {
	votes, err := vs.client.HGet(ctx, HBookVotes, bookID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return votes, err
}

// RecalculateBookVotes overwrites the counter with the ledger size.
func (vs *redisVoteStore) RecalculateBookVotes(ctx context.Context, bookID string) (Reconciliation, error) {
	keys := []string{bookVotersKey(bookID), HBookVotes}
	reply, err := recalculateVotesScript.Run(ctx, vs.client, keys, bookID).Int64Slice()
	if err != nil {
		return Reconciliation{}, err
	}
	if len(reply) != 2 {
		return Reconciliation{}, fmt.Errorf("%w: reply of length %d", ErrUnknownMutationStatus, len(reply))
	}
	return Reconciliation{BookID: bookID, Previous: reply[0], Current: reply[1]}, nil
}

// RecalculateAllBookVotes recomputes the counters of every book known either
// by the books hash or by the counters hash. Results are sorted by book id.
func (vs *redisVoteStore) RecalculateAllBookVotes(ctx context.Context) ([]Reconciliation, error) {
	ids, err := vs.knownBookIDs(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make([]Reconciliation, 0, len(ids))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(vs.concurrency)
	for _, id := range ids {
		id := id // per-iteration copy (Go 1.21 loop semantics)
		g.Go(func() error {
			rec, err := vs.RecalculateBookVotes(gCtx, id)
			if err != nil {
				return fmt.Errorf("book %s: %w", id, err)
			}
			mu.Lock()
			results = append(results, rec)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].BookID < results[j].BookID })
	return results, nil
}

func (vs *redisVoteStore) knownBookIDs(ctx context.Context) ([]string, error) {
	pipe := vs.client.Pipeline()
	booksCmd := pipe.HKeys(ctx, HBooks)
	countersCmd := pipe.HKeys(ctx, HBookVotes)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	ids := []string{}
	for _, id := range append(booksCmd.Val(), countersCmd.Val()...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
