package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/psford/t-tracker/internal/app"
)

// application wraps the shared dependency container with the HTTP surface.
type application struct {
	*app.Application
}

func (api *application) routes() http.Handler {
	router := httprouter.New()

	router.HandlerFunc(http.MethodGet, "/api/vehicles.json", api.vehiclesHandler)
	router.HandlerFunc(http.MethodGet, "/api/rules.json", api.listRulesHandler)
	router.HandlerFunc(http.MethodPost, "/api/rules.json", api.createRuleHandler)
	router.HandlerFunc(http.MethodDelete, "/api/rules/:id", api.deleteRuleHandler)
	router.HandlerFunc(http.MethodPut, "/api/rules/pause.json", api.pauseRulesHandler)
	router.HandlerFunc(http.MethodGet, "/health.json", api.healthHandler)
	router.HandlerFunc(http.MethodGet, "/ws", api.Hub.HandleWebSocket)
	router.Handler(http.MethodGet, "/metrics", api.Metrics.Handler())

	return router
}
