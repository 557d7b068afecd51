package main

import (
	"net/http"
	"sort"
)

// vehiclesHandler returns the current animated vehicle snapshot. Consumers
// that need smooth per-frame positions should use the WebSocket endpoint
// instead; this is a point-in-time read.
func (api *application) vehiclesHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := api.Store.Snapshot()
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })

	api.sendResponse(w, r, newOKResponse(map[string]any{
		"vehicles": snapshot,
	}))
}

func (api *application) healthHandler(w http.ResponseWriter, r *http.Request) {
	api.sendResponse(w, r, newOKResponse(map[string]any{
		"vehicles": api.Store.Len(),
		"stops":    api.Stops.Len(),
		"rules":    len(api.Rules.List()),
	}))
}
