package api

import (
	"net/http"
	"strings"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": toAPIError(code, err)})
}

// toAPIError maps a status to a stable code and a user-safe message. Raw
// error text is never echoed for 5xx.
func toAPIError(status int, err error) apiError {
	code := "SS-API-4000"
	msg := "Request failed."

	switch status {
	case http.StatusBadRequest:
		code = "SS-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case http.StatusNotFound:
		code = "SS-API-4004"
		msg = "Requested resource was not found."
	case http.StatusMethodNotAllowed:
		code = "SS-API-4005"
		msg = "This endpoint does not support the requested method."
	case http.StatusConflict:
		code = "SS-API-4009"
		msg = "A drain run is already in progress."
	case http.StatusRequestEntityTooLarge:
		code = "SS-API-4013"
		msg = "Uploaded document exceeds the size limit."
	case http.StatusUnprocessableEntity:
		code = "SS-API-4022"
		msg = "No extractable text found in the uploaded PDF."
	case http.StatusBadGateway:
		code = "SS-API-5020"
		msg = "Workflow service unavailable. Retry shortly."
	case http.StatusServiceUnavailable:
		code = "SS-API-5030"
		msg = "Service dependency unavailable."
	default:
		if status >= 500 {
			code = "SS-API-5000"
			msg = "Internal server error. Please retry or check service logs."
		}
	}

	if status == http.StatusBadRequest && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "text is required"):
			msg = "Document text is required."
		case strings.Contains(low, "no file provided"):
			msg = "No document file was provided."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}
	return apiError{Code: code, Message: msg}
}
