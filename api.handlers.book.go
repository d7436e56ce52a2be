package main

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// SuggestBook stores a new book suggested by the calling user.
//
//	@Summary	Suggest a book
//	@Tags		books
//	@Accept		json
//	@Produce	json
//	@Param		X-User-ID	header		string				true	"user uuid"
//	@Param		book		body		SuggestBookRequest	true	"suggestion"
//	@Success	201			{object}	APIResponse
//	@Failure	400,401,409	{object}	APIError
//	@Router		/v1/books [post]
func (api *APIHandler) SuggestBook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req SuggestBookRequest
	userID := GetValueFromContext(r.Context(), UserIDContextKey)
	if err := DecodeSuggestBookRequestBody(w, r, &req); err != nil {
		api.sendError(w, r, "failed to suggest the book", errors.Join(ErrInvalidSuggestionRequest, err), nil)
		return
	}

	book, err := api.bookService.Suggest(r.Context(), userID, req)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			api.sendError(w, r, "failed to suggest the book", err, verr.Fields)
			return
		}
		api.sendError(w, r, "failed to suggest the book", err, nil)
		return
	}
	api.GetLoggerFromContext(r.Context()).Info("success to suggest book",
		zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)),
		zap.String("book.id", book.ID),
		zap.String("user.id", userID),
	)
	api.sendResponse(w, r, http.StatusCreated, "Book suggested successfully.", nil, book.PublicView())
}

// GetAllBooks lists the books with their counters.
//
//	@Summary	List books
//	@Tags		books
//	@Produce	json
//	@Param		sort	query		string	false	"votes, newest or title"
//	@Success	200		{object}	APIResponse
//	@Failure	503		{object}	APIError
//	@Router		/v1/books [get]
//
//nolint:bodyclose
func (api *APIHandler) GetAllBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	if api.config != nil && api.config.Server.LongRequestWriteTimeout > 0 {
		rc := http.NewResponseController(w)
		if err := rc.SetWriteDeadline(api.clock.Now().Add(api.config.Server.LongRequestWriteTimeout)); err != nil {
			api.logger.Debug("http: failed to update the write deadline", zap.String("request.id", requestID), zap.Error(err))
		}
	}

	books, err := api.bookService.GetAll(r.Context(), r.URL.Query().Get("sort"))
	if err != nil {
		api.sendError(w, r, "failed to get all books", err, nil)
		return
	}
	for i := range books {
		books[i] = books[i].PublicView()
	}
	total := len(books)
	api.sendResponse(w, r, http.StatusOK, "All books fetched successfully.", &total, books)
}

// GetOneBook fetches a single book.
//
//	@Summary	Get a book
//	@Tags		books
//	@Produce	json
//	@Param		id	path		string	true	"book id"
//	@Success	200	{object}	APIResponse
//	@Failure	400,404	{object}	APIError
//	@Router		/v1/books/{id} [get]
func (api *APIHandler) GetOneBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	id := ps.ByName("id")
	if ok := api.idsHandler.IsValid(id, BookIDPrefix); !ok {
		api.logger.Warn("book id provided is not valid", zap.String("book.id", id), zap.String("request.id", requestID))
		errResp := NewAPIError(requestID, http.StatusBadRequest, "book id provided is not valid", EmptyData)
		if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
			api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
		}
		return
	}
	book, err := api.bookService.GetOne(r.Context(), id)
	if err != nil {
		api.sendError(w, r, "failed to get book", err, nil)
		return
	}
	api.sendResponse(w, r, http.StatusOK, "Book fetched successfully.", nil, book.PublicView())
}

// GetMySuggestions reports the suggestion quota of the calling user.
//
//	@Summary	Current user suggestion quota
//	@Tags		books
//	@Produce	json
//	@Param		X-User-ID	header		string	true	"user uuid"
//	@Success	200			{object}	APIResponse
//	@Failure	401,503		{object}	APIError
//	@Router		/v1/me/suggestions [get]
func (api *APIHandler) GetMySuggestions(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := GetValueFromContext(r.Context(), UserIDContextKey)
	state, err := api.bookService.SuggestionState(r.Context(), userID)
	if err != nil {
		api.sendError(w, r, "failed to get suggestion state", err, nil)
		return
	}
	api.sendResponse(w, r, http.StatusOK, "Suggestion state fetched successfully.", nil, state)
}
