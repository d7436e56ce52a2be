package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

// Archive buckets.
const (
	BooksBucket    = "books"
	VoteLogsBucket = "vote_logs"
)

// Archive keeps an append-only history of suggestions and vote events.
// It is fed by the queue consumer and never read on the voting path.
type Archive interface {
	SaveBook(book Book) error
	GetBook(id string) (Book, error)
	AllBooks() ([]Book, error)
	AppendVoteLog(event VoteEvent) error
	// VoteLogs lists events in insertion order. An empty bookID lists them all.
	VoteLogs(bookID string) ([]VoteEvent, error)
	Close() error
}

// Ensure boltArchive implements Archive.
var _ Archive = (*boltArchive)(nil)

type boltArchive struct {
	logger *zap.Logger
	client *bolt.DB
}

// GetBoltDBClient setup the database and the buckets then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{BooksBucket, VoteLogsBucket} {
			if _, errB := tx.CreateBucketIfNotExists([]byte(name)); errB != nil {
				return fmt.Errorf("failed to create %s bucket: %v", name, errB)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up buckets: %v", err)
	}
	return db, nil
}

// NewBoltArchive provides an instance of bolt-based archive.
func NewBoltArchive(logger *zap.Logger, client *bolt.DB) Archive {
	return &boltArchive{
		logger: logger,
		client: client,
	}
}

// Close shuts down the bolt-based archive.
func (ba *boltArchive) Close() error {
	return ba.client.Close()
}

// SaveBook inserts or replaces a book record.
func (ba *boltArchive) SaveBook(book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return ba.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BooksBucket)).Put([]byte(book.ID), bookBytes)
	})
}

// GetBook retrieves an archived book record based on its ID.
func (ba *boltArchive) GetBook(id string) (Book, error) {
	var book Book
	// initialize a readable transaction.
	tx, err := ba.client.Begin(false)
	if err != nil {
		return book, err
	}
	defer tx.Rollback()

	result := tx.Bucket([]byte(BooksBucket)).Get([]byte(id))
	if result == nil {
		return book, ErrBookNotFound
	}
	err = json.Unmarshal(result, &book)
	return book, err
}

// AllBooks retrieves all archived books ordered by id.
func (ba *boltArchive) AllBooks() ([]Book, error) {
	tx, err := ba.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := tx.Bucket([]byte(BooksBucket)).Cursor()
	books := []Book{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var book Book
		if err = json.Unmarshal(v, &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

// AppendVoteLog stores the event under the next bucket sequence.
func (ba *boltArchive) AppendVoteLog(event VoteEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return ba.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(VoteLogsBucket))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(itob(seq), eventBytes)
	})
}

// VoteLogs retrieves the archived vote events.
func (ba *boltArchive) VoteLogs(bookID string) ([]VoteEvent, error) {
	tx, err := ba.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := tx.Bucket([]byte(VoteLogsBucket)).Cursor()
	events := []VoteEvent{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var event VoteEvent
		if err = json.Unmarshal(v, &event); err != nil {
			return nil, err
		}
		if bookID != "" && event.BookID != bookID {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// itob returns an 8-byte big endian representation of v.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
