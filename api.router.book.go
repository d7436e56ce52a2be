package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupBookRoutes injects the public books and votes endpoints.
func (api *APIHandler) SetupBookRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	identified := api.IdentityMiddleware(true)
	optional := api.IdentityMiddleware(false)

	router.GET("/", m.public(api.Index))
	router.GET("/status", m.public(api.Status))

	router.GET("/v1/books", m.public(api.GetAllBooks))
	router.POST("/v1/books", m.public(identified(api.SuggestBook)))
	router.GET("/v1/books/:id", m.public(api.GetOneBook))

	router.GET("/v1/books/:id/votes", m.public(optional(api.GetBookVoteState)))
	router.POST("/v1/books/:id/votes", m.public(identified(api.RateLimitMiddleware(api.CastVote))))
	router.DELETE("/v1/books/:id/votes", m.public(identified(api.RateLimitMiddleware(api.RetractVote))))

	router.GET("/v1/me/votes", m.public(identified(api.GetMyVotes)))
	router.GET("/v1/me/suggestions", m.public(identified(api.GetMySuggestions)))
	return router
}
