package common

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/EduTebar97/journeest-app/internal/diagnostic/domain"
)

// WriteJSON serializes payload to JSON with status and logs on failure.
func WriteJSON(logger *log.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Printf("JSON エンコードに失敗: %v", err)
	}
}

var statusByKind = map[domain.ErrorKind]int{
	domain.ErrorNotFound:             http.StatusNotFound,
	domain.ErrorIncomplete:           http.StatusUnprocessableEntity,
	domain.ErrorPersistence:          http.StatusServiceUnavailable,
	domain.ErrorGeneration:           http.StatusBadGateway,
	domain.ErrorConfig:               http.StatusInternalServerError,
	domain.ErrorInvalidTransition:    http.StatusConflict,
	domain.ErrorFormDisabled:         http.StatusConflict,
	domain.ErrorConfirmationRequired: http.StatusPreconditionRequired,
	domain.ErrorInvalid:              http.StatusBadRequest,
	domain.ErrorForbidden:            http.StatusForbidden,
}

// StatusForError maps a domain error kind onto an HTTP status. Errors without a kind are 500.
func StatusForError(err error) int {
	if de, ok := domain.AsError(err); ok {
		if status, ok := statusByKind[de.Kind]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// WriteError writes {"error", "kind"} for err. Causes of server side failures are logged, not returned.
func WriteError(logger *log.Logger, w http.ResponseWriter, err error) {
	status := StatusForError(err)
	de, ok := domain.AsError(err)
	if !ok {
		if logger != nil {
			logger.Printf("想定外のエラー: %v", err)
		}
		WriteJSON(logger, w, status, map[string]string{"error": "内部エラーが発生しました"})
		return
	}
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Printf("%s: %v", de.Kind, err)
	}

	payload := map[string]any{
		"error": de.Message,
		"kind":  string(de.Kind),
	}
	if len(de.Modules) > 0 {
		payload["modules"] = de.Modules
	}
	WriteJSON(logger, w, status, payload)
}
