package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis keys layout. Per-book and per-user keys are built with the helpers below.
const (
	HBooks     string = "books"
	HBookVotes string = "books:votes"
	HBookISBNs string = "books:isbn"
)

func bookVotersKey(bookID string) string {
	return "book:" + bookID + ":voters"
}

func userVotesKey(userID string) string {
	return "user:" + userID + ":votes"
}

func userSuggestionsKey(userID string) string {
	return "user:" + userID + ":suggested"
}

// Ensure redisBookStorage implements BookStorage.
var _ BookStorage = (*redisBookStorage)(nil)

// addBookScript rejects a known ISBN (-1) or an exhausted suggester (-2),
// otherwise stores the book with a zeroed counter.
var addBookScript = redis.NewScript(`
if ARGV[3] ~= '' and redis.call('HEXISTS', KEYS[2], ARGV[3]) == 1 then
  return -1
end
if ARGV[5] ~= '' and redis.call('SCARD', KEYS[3]) >= tonumber(ARGV[4]) then
  return -2
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSETNX', KEYS[4], ARGV[1], 0)
if ARGV[3] ~= '' then
  redis.call('HSET', KEYS[2], ARGV[3], ARGV[1])
end
if ARGV[5] ~= '' then
  redis.call('SADD', KEYS[3], ARGV[1])
end
return 1
`)

type redisBookStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisBookStorage provides an instance of redis-based book storage.
func NewRedisBookStorage(logger *zap.Logger, client *redis.Client) BookStorage {
	return &redisBookStorage{
		logger: logger,
		client: client,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// Add inserts a new book record. The stored record never carries
// the counter, that one lives in its own hash.
func (rs *redisBookStorage) Add(ctx context.Context, book Book, maxSuggestions int) error {
	book.Votes = 0
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	keys := []string{HBooks, HBookISBNs, userSuggestionsKey(book.SuggestedBy), HBookVotes}
	code, err := addBookScript.Run(ctx, rs.client, keys,
		book.ID, bookBytes, book.ISBN, maxSuggestions, book.SuggestedBy).Int()
	if err != nil {
		return err
	}
	switch code {
	case 1:
		return nil
	case -1:
		return ErrDuplicateISBN
	case -2:
		return ErrSuggestionQuotaExceeded
	default:
		return fmt.Errorf("%w: %d", ErrUnknownMutationStatus, code)
	}
}

// GetOne retrieves a book record based on its ID with its current counter.
func (rs *redisBookStorage) GetOne(ctx context.Context, id string) (Book, error) {
	var book Book
	bookJSONString, err := rs.client.HGet(ctx, HBooks, id).Result()
	if errors.Is(err, redis.Nil) {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, err
	}
	if err = json.Unmarshal([]byte(bookJSONString), &book); err != nil {
		return book, err
	}
	votes, err := rs.client.HGet(ctx, HBookVotes, id).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return book, err
	}
	book.Votes = votes
	return book, nil
}

// Exists checks whether a book record is stored under the given ID.
func (rs *redisBookStorage) Exists(ctx context.Context, id string) (bool, error) {
	return rs.client.HExists(ctx, HBooks, id).Result()
}

// GetAll retrieves all stored books merged with their counters.
// Both hashes are read in one transaction.
func (rs *redisBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	pipe := rs.client.TxPipeline()
	valsCmd := pipe.HVals(ctx, HBooks)
	votesCmd := pipe.HGetAll(ctx, HBookVotes)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	counters := votesCmd.Val()
	books := []Book{}
	for _, bookJSONString := range valsCmd.Val() {
		var book Book
		if err := json.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return nil, err
		}
		if raw, ok := counters[book.ID]; ok {
			votes, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				rs.logger.Warn("storage: invalid vote counter", zap.String("book.id", book.ID), zap.String("counter", raw))
			}
			book.Votes = votes
		}
		books = append(books, book)
	}
	return books, nil
}

// CountSuggestions returns how many books the user already suggested.
func (rs *redisBookStorage) CountSuggestions(ctx context.Context, userID string) (int, error) {
	n, err := rs.client.SCard(ctx, userSuggestionsKey(userID)).Result()
	return int(n), err
}
