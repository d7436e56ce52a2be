package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Predefinied Queue IDs.
const (
	SuggestedBooksQueue = "books.suggested"
	VoteLogQueue        = "votes.logged"
)

// Ensure *redisQueue implements Queuer.
var _ Queuer = (*redisQueue)(nil)

// Queuer describes a queue. Payloads are JSON encoded on push and handed
// back raw on pop so consumers decode based on the queue id.
type Queuer interface {
	Push(ctx context.Context, qid string, payload interface{}) error
	Pop(ctx context.Context, qids ...string) (string, []byte, error)
}

// redisQueue represents a queue which implements the Queuer interface.
type redisQueue struct {
	client *redis.Client
}

func NewRedisQueue(client *redis.Client) Queuer {
	return &redisQueue{client: client}
}

// Push enqueues a payload onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, qid, data).Err()
}

// Pop blocks until a payload is available on one of the queue ids
// and returns it with the id of the queue it came from.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, []byte, error) {
	infos, err := q.client.BLPop(ctx, 0*time.Second, qids...).Result()
	if err != nil {
		return "", nil, err
	}
	return infos[0], []byte(infos[1]), nil
}
