package main

import (
	"strings"

	"github.com/gofrs/uuid"
)

var _ UIDHandler = (*IDsHandler)(nil) // ensure IDsHandler implements UIDHandler.

// UIDHandler is an interface for getting and checking a uid.
type UIDHandler interface {
	Generate(prefix string) string
	IsValid(id, prefix string) bool
}

// IDsHandler implements the UIDHandler interface.
type IDsHandler struct{}

// NewIDsHandler returns a ready to use IDsHandler.
func NewIDsHandler() *IDsHandler {
	return &IDsHandler{}
}

// Generate provides a random unique identifier.
func (idh *IDsHandler) Generate(prefix string) string {
	id, _ := uuid.NewV4()
	return prefix + ":" + id.String()
}

// IsValid checks if a given string is a valid uuid after removal of custom
// prefix. An empty prefix expects a bare uuid, like the user identifiers.
func (idh *IDsHandler) IsValid(id, prefix string) bool {
	if prefix != "" {
		if !strings.HasPrefix(id, prefix+":") {
			return false
		}
		id = strings.TrimPrefix(id, prefix+":")
	}
	return uuid.FromStringOrNil(id) != uuid.Nil
}
