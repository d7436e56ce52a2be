package main

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	Suggest(ctx context.Context, userID string, req SuggestBookRequest) (Book, error)
	GetOne(ctx context.Context, id string) (Book, error)
	GetAll(ctx context.Context, sortBy string) ([]Book, error)
	SuggestionState(ctx context.Context, userID string) (SuggestionState, error)
}

type BookService struct {
	logger    *zap.Logger
	config    *VotingConfig
	clock     Clocker
	ids       UIDHandler
	validator *Validator
	storage   BookStorage
	queue     Queuer
}

func NewBookService(logger *zap.Logger, config *VotingConfig, clock Clocker, ids UIDHandler, storage BookStorage, queue Queuer) *BookService {
	return &BookService{
		logger:    logger,
		config:    config,
		clock:     clock,
		ids:       ids,
		validator: NewValidator(),
		storage:   storage,
		queue:     queue,
	}
}

// Suggest sanitizes and validates the request then stores the new book with
// a zero counter. The duplicate ISBN and suggestion quota checks are atomic.
func (bs *BookService) Suggest(ctx context.Context, userID string, req SuggestBookRequest) (Book, error) {
	if userID == "" {
		return Book{}, ErrUnauthenticated
	}
	SanitizeSuggestion(&req)
	if err := bs.validator.Validate(req); err != nil {
		return Book{}, err
	}

	book := Book{
		ID:               bs.ids.Generate(BookIDPrefix),
		Title:            req.Title,
		Author:           req.Author,
		Description:      req.Description,
		CoverURL:         req.CoverURL,
		ISBN:             req.ISBN,
		InspirationQuote: req.InspirationQuote,
		IsAnonymous:      req.IsAnonymous,
		SuggestedBy:      userID,
		CreatedAt:        bs.clock.Now().UTC(),
	}

	err := bs.storage.Add(ctx, book, bs.config.MaxSuggestions)
	switch {
	case errors.Is(err, ErrDuplicateISBN), errors.Is(err, ErrSuggestionQuotaExceeded):
		return Book{}, err
	case err != nil:
		return Book{}, storeUnavailable("add book", err)
	}

	if err := bs.queue.Push(ctx, SuggestedBooksQueue, book); err != nil {
		bs.logger.Error("service: failed to push book to queue", zap.String("qid", SuggestedBooksQueue), zap.String("book.id", book.ID), zap.Error(err))
	}
	return book, nil
}

func (bs *BookService) GetOne(ctx context.Context, id string) (Book, error) {
	book, err := bs.storage.GetOne(ctx, id)
	if err != nil && !errors.Is(err, ErrBookNotFound) {
		return book, storeUnavailable("get book", err)
	}
	return book, err
}

// GetAll lists the books ordered by sortBy. Unknown keys fall back to votes.
func (bs *BookService) GetAll(ctx context.Context, sortBy string) ([]Book, error) {
	books, err := bs.storage.GetAll(ctx)
	if err != nil {
		return nil, storeUnavailable("get all books", err)
	}
	SortBooks(books, sortBy)
	return books, nil
}

// SortBooks orders the books in place. Ties keep a stable order by id.
func SortBooks(books []Book, sortBy string) {
	var less func(a, b Book) bool
	switch sortBy {
	case SortByNewest:
		less = func(a, b Book) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID < b.ID
		}
	case SortByTitle:
		less = func(a, b Book) bool {
			at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if at != bt {
				return at < bt
			}
			return a.ID < b.ID
		}
	default:
		less = func(a, b Book) bool {
			if a.Votes != b.Votes {
				return a.Votes > b.Votes
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		}
	}
	sort.SliceStable(books, func(i, j int) bool { return less(books[i], books[j]) })
}

func (bs *BookService) SuggestionState(ctx context.Context, userID string) (SuggestionState, error) {
	if userID == "" {
		return SuggestionState{}, ErrUnauthenticated
	}
	used, err := bs.storage.CountSuggestions(ctx, userID)
	if err != nil {
		return SuggestionState{}, storeUnavailable("count suggestions", err)
	}
	remaining := bs.config.MaxSuggestions - used
	if remaining < 0 {
		remaining = 0
	}
	return SuggestionState{UserID: userID, Used: used, Remaining: remaining, Max: bs.config.MaxSuggestions}, nil
}
