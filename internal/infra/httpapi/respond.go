package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"parishd/internal/domain"
)

// envelope is the stable response shape: {status, message?, data?}.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, envelope{Status: "success", Data: data})
}

func writeMessage(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, envelope{Status: "success", Message: message})
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if domainCode, ok := domain.CodeFrom(err); ok {
		code = httpStatus(domainCode)
	}
	writeJSON(w, code, envelope{Status: "error", Message: err.Error()})
}

func httpStatus(code domain.ErrorCode) int {
	switch code {
	case domain.CodeInvalidArgument:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeAlreadyExists:
		return http.StatusConflict
	case domain.CodeFailedPrecond:
		return http.StatusConflict
	case domain.CodePermissionDenied:
		return http.StatusForbidden
	case domain.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.E(domain.CodeInvalidArgument, "httpapi.decode", "", errors.New("invalid request body"))
	}
	return nil
}
