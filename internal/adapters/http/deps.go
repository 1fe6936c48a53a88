package http

import (
	"github.com/mdenis/trailposter/internal/adapters/postgres"
	"github.com/mdenis/trailposter/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Session *usecases.Session
	DB      *postgres.DB // optional
	Store   bool         // durable payload store configured
	Events  bool         // event publisher configured
}
