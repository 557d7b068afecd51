package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/psford/t-tracker/internal/rules"
	"github.com/psford/t-tracker/internal/utils"
)

func (api *application) listRulesHandler(w http.ResponseWriter, r *http.Request) {
	api.sendResponse(w, r, newOKResponse(map[string]any{
		"rules":  api.Rules.List(),
		"paused": api.Rules.Paused(),
	}))
}

func (api *application) createRuleHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CheckpointStopID string `json:"checkpointStopId"`
		RouteID          string `json:"routeId"`
		DirectionID      int    `json:"directionId"`
		Terminus         bool   `json:"terminus"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.badRequestResponse(w, r, "invalid JSON body")
		return
	}
	if err := utils.ValidateID(input.CheckpointStopID); err != nil {
		api.badRequestResponse(w, r, "invalid checkpoint stop id")
		return
	}
	if err := utils.ValidateID(input.RouteID); err != nil {
		api.badRequestResponse(w, r, "invalid route id")
		return
	}
	if !api.Stops.Known(input.CheckpointStopID) {
		api.badRequestResponse(w, r, "unknown checkpoint stop")
		return
	}

	rule, err := api.Rules.Add(rules.Rule{
		CheckpointStopID: input.CheckpointStopID,
		RouteID:          input.RouteID,
		DirectionID:      input.DirectionID,
		Terminus:         input.Terminus,
	})
	switch {
	case errors.Is(err, rules.ErrRuleLimit), errors.Is(err, rules.ErrDuplicate), errors.Is(err, rules.ErrInvalid):
		api.unprocessableResponse(w, r, err.Error())
		return
	case err != nil:
		api.serverErrorResponse(w, r, err)
		return
	}

	api.sendResponse(w, r, newOKResponse(rule))
}

func (api *application) deleteRuleHandler(w http.ResponseWriter, r *http.Request) {
	id := utils.ExtractIDFromParams(r, "id")
	if err := utils.ValidateID(id); err != nil {
		api.badRequestResponse(w, r, "invalid rule id")
		return
	}
	if !api.Rules.Remove(id) {
		api.notFoundResponse(w, r)
		return
	}
	api.sendResponse(w, r, newOKResponse(nil))
}

func (api *application) pauseRulesHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Paused bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		api.badRequestResponse(w, r, "invalid JSON body")
		return
	}
	api.Rules.SetPaused(input.Paused)
	api.sendResponse(w, r, newOKResponse(map[string]any{"paused": input.Paused}))
}
