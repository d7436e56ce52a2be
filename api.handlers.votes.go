package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// validBookID writes a 400 response and returns false when the path id is not a book id.
func (api *APIHandler) validBookID(w http.ResponseWriter, r *http.Request, id string) bool {
	if api.idsHandler.IsValid(id, BookIDPrefix) {
		return true
	}
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	errResp := NewAPIError(requestID, http.StatusBadRequest, "book id provided is not valid", EmptyData)
	if err := WriteErrorResponse(r.Context(), w, errResp); err != nil {
		api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(err))
	}
	return false
}

// CastVote records the vote of the calling user for the book.
//
//	@Summary	Vote for a book
//	@Tags		votes
//	@Produce	json
//	@Param		X-User-ID	header		string	true	"user uuid"
//	@Param		id			path		string	true	"book id"
//	@Success	200			{object}	APIResponse
//	@Failure	401,404,409,429	{object}	APIError
//	@Router		/v1/books/{id}/votes [post]
func (api *APIHandler) CastVote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookID := ps.ByName("id")
	if !api.validBookID(w, r, bookID) {
		return
	}
	userID := GetValueFromContext(r.Context(), UserIDContextKey)
	result, err := api.ledger.CastVote(r.Context(), userID, bookID)
	if err != nil {
		api.sendError(w, r, "failed to cast vote", err, result)
		return
	}
	message := "Vote added successfully."
	if result.Outcome == OutcomeAlreadyVoted {
		message = "Vote already recorded."
	}
	api.sendResponse(w, r, http.StatusOK, message, nil, result)
}

// RetractVote removes the vote of the calling user for the book.
//
//	@Summary	Retract a vote
//	@Tags		votes
//	@Produce	json
//	@Param		X-User-ID	header		string	true	"user uuid"
//	@Param		id			path		string	true	"book id"
//	@Success	200			{object}	APIResponse
//	@Failure	401,404,429	{object}	APIError
//	@Router		/v1/books/{id}/votes [delete]
func (api *APIHandler) RetractVote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookID := ps.ByName("id")
	if !api.validBookID(w, r, bookID) {
		return
	}
	userID := GetValueFromContext(r.Context(), UserIDContextKey)
	result, err := api.ledger.RetractVote(r.Context(), userID, bookID)
	if err != nil {
		api.sendError(w, r, "failed to retract vote", err, nil)
		return
	}
	message := "Vote removed successfully."
	if result.Outcome == OutcomeNotVoted {
		message = "No vote to remove."
	}
	api.sendResponse(w, r, http.StatusOK, message, nil, result)
}

// GetBookVoteState returns the counter of the book and the caller state when known.
//
//	@Summary	Book vote state
//	@Tags		votes
//	@Produce	json
//	@Param		X-User-ID	header		string	false	"user uuid"
//	@Param		id			path		string	true	"book id"
//	@Success	200			{object}	APIResponse
//	@Failure	400,404		{object}	APIError
//	@Router		/v1/books/{id}/votes [get]
func (api *APIHandler) GetBookVoteState(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookID := ps.ByName("id")
	if !api.validBookID(w, r, bookID) {
		return
	}
	userID := GetValueFromContext(r.Context(), UserIDContextKey)
	state, err := api.ledger.GetBookVoteState(r.Context(), userID, bookID)
	if err != nil {
		api.sendError(w, r, "failed to get book vote state", err, nil)
		return
	}
	api.sendResponse(w, r, http.StatusOK, "Book vote state fetched successfully.", nil, state)
}

// GetMyVotes lists the books the calling user votes for.
//
//	@Summary	Current user votes
//	@Tags		votes
//	@Produce	json
//	@Param		X-User-ID	header		string	true	"user uuid"
//	@Success	200			{object}	APIResponse
//	@Failure	401,503		{object}	APIError
//	@Router		/v1/me/votes [get]
func (api *APIHandler) GetMyVotes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := GetValueFromContext(r.Context(), UserIDContextKey)
	state, err := api.ledger.GetUserVoteState(r.Context(), userID)
	if err != nil {
		api.sendError(w, r, "failed to get user vote state", err, nil)
		return
	}
	total := len(state.BookIDs)
	api.sendResponse(w, r, http.StatusOK, "User vote state fetched successfully.", &total, state)
}
