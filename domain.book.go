package main

import (
	"context"
	"time"
)

// Book represents a book suggested by the community.
// Votes is the denormalized counter, the ledger stays authoritative.
type Book struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Author             string    `json:"author"`
	Description        string    `json:"description,omitempty"`
	CoverURL           string    `json:"coverUrl,omitempty"`
	Votes              int64     `json:"votes"`
	CreatedAt          time.Time `json:"createdAt"`
	ISBN               string    `json:"isbn,omitempty"`
	SuggestedBy        string    `json:"suggestedBy,omitempty"`
	InspirationQuote   string    `json:"inspirationQuote,omitempty"`
	IsAnonymous        bool      `json:"isAnonymous"`
	AvailableInLibrary bool      `json:"availableInLibrary"`
}

// PublicView returns a copy of the book safe to share with
// every visitor. Anonymous suggestions do not expose the suggester.
func (b Book) PublicView() Book {
	if b.IsAnonymous {
		b.SuggestedBy = ""
	}
	return b
}

// SuggestBookRequest is the payload of a book suggestion.
type SuggestBookRequest struct {
	Title            string `json:"title" validate:"required,min=2,max=200,safetext"`
	Author           string `json:"author" validate:"required,min=2,max=100,safetext"`
	Description      string `json:"description" validate:"max=2000,safetext"`
	CoverURL         string `json:"coverUrl" validate:"omitempty,url,max=500"`
	ISBN             string `json:"isbn" validate:"omitempty,min=10,max=13,alphanum"`
	InspirationQuote string `json:"inspirationQuote" validate:"required,min=2,max=500,safetext"`
	IsAnonymous      bool   `json:"isAnonymous"`
}

// SuggestionState describes how many suggestions a user has left.
type SuggestionState struct {
	UserID    string `json:"userId"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Max       int    `json:"max"`
}

// Book sorting keys accepted by the listing.
const (
	SortByVotes  = "votes"
	SortByNewest = "newest"
	SortByTitle  = "title"
)

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	// Add stores the book if its ISBN is not yet known and its
	// suggester still has quota left. Both checks are atomic.
	Add(ctx context.Context, book Book, maxSuggestions int) error
	GetOne(ctx context.Context, id string) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	Exists(ctx context.Context, id string) (bool, error)
	CountSuggestions(ctx context.Context, userID string) (int, error)
}
