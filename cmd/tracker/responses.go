package main

import (
	"encoding/json"
	"net/http"
	"time"
)

// responseModel is the JSON envelope shared by all REST endpoints.
type responseModel struct {
	Code        int    `json:"code"`
	CurrentTime int64  `json:"currentTime"`
	Text        string `json:"text"`
	Data        any    `json:"data,omitempty"`
}

func newOKResponse(data any) responseModel {
	return responseModel{
		Code:        http.StatusOK,
		CurrentTime: time.Now().UnixMilli(),
		Text:        "OK",
		Data:        data,
	}
}

func (api *application) sendResponse(w http.ResponseWriter, r *http.Request, response responseModel) {
	w.Header().Set("Content-Type", "application/json")
	if response.Code != http.StatusOK {
		w.WriteHeader(response.Code)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		api.Logger.Error("failed to encode response", "error", err)
	}
}
