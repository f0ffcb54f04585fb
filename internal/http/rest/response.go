package rest

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/planetcalm/petmap/util"
	"github.com/planetcalm/petmap/util/tracing"
	"github.com/planetcalm/petmap/util/values"
)

// ServerResponse is the envelope every handler returns.
type ServerResponse struct {
	Message    string      `json:"message"`
	Status     string      `json:"status"`
	StatusCode int         `json:"-"`
	Data       interface{} `json:"data,omitempty"`
	Errors     interface{} `json:"errors,omitempty"`
}

// respondWithError logs the error against the request id and produces the
// client-facing envelope. The underlying error never reaches the caller.
func respondWithError(err error, message string, status string, tc *tracing.Context) *ServerResponse {
	requestID := ""
	if tc != nil {
		requestID = tc.RequestID
	}
	if err != nil {
		log.Printf("[%s] %s: %v", requestID, message, err)
	} else {
		log.Printf("[%s] %s", requestID, message)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
	}
}

// respondWithFieldErrors is respondWithError plus per-field detail so the
// client can correct its input.
func respondWithFieldErrors(fieldErrs []util.FieldError, message string, tc *tracing.Context) *ServerResponse {
	resp := respondWithError(nil, message, values.BadRequestBody, tc)
	resp.Errors = fieldErrs
	return resp
}

func writeJSONResponse(w http.ResponseWriter, body []byte, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func writeErrorResponse(w http.ResponseWriter, err error, status string, message string) {
	if err != nil {
		log.Printf("%s: %v", message, err)
	}

	resp := ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
	}
	body, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		http.Error(w, message, http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, body, resp.StatusCode)
}
