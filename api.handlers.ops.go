package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

func (api *APIHandler) OpsHandlerWrapper(h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}

func (api *APIHandler) GetCPUProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Profile(w, r)
}

func (api *APIHandler) GetTraceProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Trace(w, r)
}

func (api *APIHandler) GetSymbol(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Symbol(w, r)
}

func (api *APIHandler) GetCmdLine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pprof.Cmdline(w, r)
}

// ReconcileCounters rebuilds every vote counter from the ledger on demand.
//
//	@Summary	Reconcile all vote counters
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	APIResponse
//	@Failure	503	{object}	APIError
//	@Router		/ops/votes/reconcile [post]
func (api *APIHandler) ReconcileCounters(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	report, err := api.ledger.ReconcileCounters(r.Context())
	if err != nil {
		api.sendError(w, r, "failed to reconcile counters", err, nil)
		return
	}
	total := len(report.Corrected)
	api.sendResponse(w, r, http.StatusOK, "Counters reconciled successfully.", &total, report)
}

// ReconcileBook rebuilds the vote counter of a single book.
//
//	@Summary	Reconcile a book vote counter
//	@Tags		ops
//	@Produce	json
//	@Param		id		path		string	true	"book id"
//	@Success	200		{object}	APIResponse
//	@Failure	400,503	{object}	APIError
//	@Router		/ops/books/{id}/reconcile [post]
func (api *APIHandler) ReconcileBook(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookID := ps.ByName("id")
	if !api.validBookID(w, r, bookID) {
		return
	}
	rec, err := api.ledger.ReconcileBook(r.Context(), bookID)
	if err != nil {
		api.sendError(w, r, "failed to reconcile book counter", err, nil)
		return
	}
	api.sendResponse(w, r, http.StatusOK, "Book counter reconciled successfully.", nil, rec)
}

// GetVoteLogs lists the archived vote events, optionally for one book.
//
//	@Summary	Archived vote events
//	@Tags		ops
//	@Produce	json
//	@Param		book	query		string	false	"book id"
//	@Success	200		{object}	APIResponse
//	@Failure	500		{object}	APIError
//	@Router		/ops/votes/logs [get]
func (api *APIHandler) GetVoteLogs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	events, err := api.archive.VoteLogs(r.URL.Query().Get("book"))
	if err != nil {
		api.sendError(w, r, "failed to read vote logs", err, nil)
		return
	}
	total := len(events)
	api.sendResponse(w, r, http.StatusOK, "Vote logs fetched successfully.", &total, events)
}

// GetArchivedBooks lists the books stored in the archive.
//
//	@Summary	Archived books
//	@Tags		ops
//	@Produce	json
//	@Success	200	{object}	APIResponse
//	@Failure	500	{object}	APIError
//	@Router		/ops/archive/books [get]
func (api *APIHandler) GetArchivedBooks(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	books, err := api.archive.AllBooks()
	if err != nil {
		api.sendError(w, r, "failed to read archived books", err, nil)
		return
	}
	total := len(books)
	api.sendResponse(w, r, http.StatusOK, "Archived books fetched successfully.", &total, books)
}
