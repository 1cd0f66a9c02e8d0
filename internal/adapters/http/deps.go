package http

import (
	"github.com/calvales/co2scope/internal/core/ports"
	"github.com/calvales/co2scope/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Selector *usecases.SelectorService
	Catalog  *usecases.CatalogService
	Granules ports.GranuleSource
}
