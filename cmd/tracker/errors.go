package main

import (
	"net/http"
	"time"
)

func (api *application) errorResponse(w http.ResponseWriter, r *http.Request, code int, text string) {
	api.sendResponse(w, r, responseModel{
		Code:        code,
		CurrentTime: time.Now().UnixMilli(),
		Text:        text,
	})
}

func (api *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	api.Logger.Error("internal server error", "error", err, "path", r.URL.Path)
	api.errorResponse(w, r, http.StatusInternalServerError, "internal server error")
}

func (api *application) badRequestResponse(w http.ResponseWriter, r *http.Request, text string) {
	api.errorResponse(w, r, http.StatusBadRequest, text)
}

func (api *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	api.errorResponse(w, r, http.StatusNotFound, "resource not found")
}

// unprocessableResponse reports a structured rule rejection: the request
// was well formed but violates the rule set's constraints.
func (api *application) unprocessableResponse(w http.ResponseWriter, r *http.Request, text string) {
	api.errorResponse(w, r, http.StatusUnprocessableEntity, text)
}
