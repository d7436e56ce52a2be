package main

import "errors"

var (
	ErrBookNotFound             = errors.New("book not found")
	ErrQuotaExceeded            = errors.New("vote quota exhausted")
	ErrSuggestionQuotaExceeded  = errors.New("suggestion quota exhausted")
	ErrDuplicateISBN            = errors.New("book with this isbn already suggested")
	ErrDuplicateVote            = errors.New("vote already exists")
	ErrVoteNotFound             = errors.New("vote not found")
	ErrStoreUnavailable         = errors.New("store unavailable")
	ErrUnauthenticated          = errors.New("user identity missing or invalid")
	ErrUnknownMutationStatus    = errors.New("unknown status returned by store")
	ErrUnsupportedLedgerMode    = errors.New("unsupported ledger mode")
	ErrInvalidSuggestionRequest = errors.New("invalid suggestion request")
)
