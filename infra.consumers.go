package main

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Bounds of the wait between two failed queue pops.
const (
	ConsumerMinBackoff = 500 * time.Millisecond
	ConsumerMaxBackoff = 30 * time.Second
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

type boltDBConsumer struct {
	logger  *zap.Logger
	clock   TickerClocker
	queue   Queuer
	archive Archive
}

func NewBoltDBConsumer(logger *zap.Logger, clock TickerClocker, q Queuer, archive Archive) Consumer {
	return &boltDBConsumer{logger, clock, q, archive}
}

// Consume moves queued payloads into the archive until ctx is done. Failed
// pops are retried after a doubling wait, reset by the next successful pop.
func (bc *boltDBConsumer) Consume(ctx context.Context, qids ...string) error {
	backoff := ConsumerMinBackoff
	for {
		qid, data, err := bc.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			bc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			bc.logger.Error("consumer: error on queue pop call", zap.Duration("retry.in", backoff), zap.Error(err))
			if !bc.wait(ctx, backoff) {
				bc.logger.Info("consumer: context is done during backoff: exit", zap.String("reason", ctx.Err().Error()))
				return nil
			}
			backoff = min(2*backoff, ConsumerMaxBackoff)
			continue
		}

		backoff = ConsumerMinBackoff
		bc.handle(qid, data)
	}
}

// wait blocks for d and reports false when ctx is done first.
func (bc *boltDBConsumer) wait(ctx context.Context, d time.Duration) bool {
	timer := bc.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (bc *boltDBConsumer) handle(qid string, data []byte) {
	switch qid {
	case SuggestedBooksQueue:
		var book Book
		if err := json.Unmarshal(data, &book); err != nil {
			bc.logger.Error("consumer: invalid book payload", zap.String("qid", qid), zap.ByteString("payload", data), zap.Error(err))
			return
		}
		if err := bc.archive.SaveBook(book); err != nil {
			bc.logger.Error("consumer: failed to archive book", zap.String("book.id", book.ID), zap.Error(err))
		}
	case VoteLogQueue:
		var event VoteEvent
		if err := json.Unmarshal(data, &event); err != nil {
			bc.logger.Error("consumer: invalid vote event payload", zap.String("qid", qid), zap.ByteString("payload", data), zap.Error(err))
			return
		}
		if err := bc.archive.AppendVoteLog(event); err != nil {
			bc.logger.Error("consumer: failed to archive vote event", zap.Any("event", event), zap.Error(err))
		}
	default:
		bc.logger.Warn("consumer: received payload on unknown queue id", zap.String("qid", qid), zap.ByteString("payload", data))
	}
}
