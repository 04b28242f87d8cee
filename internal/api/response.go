package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/UkralStul/fanfic-archive-service/internal/domain"
	"github.com/sirupsen/logrus"
)

// Envelope - общий формат ответов API. При ошибке data всегда null.
type Envelope struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeOK(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{OK: true, Message: message, Data: data})
}

func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{OK: false, Message: message})
}

// writeError переводит ошибку предметной области в HTTP-статус.
func writeError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		log.WithError(err).Error("unexpected error")
		writeFail(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch de.Kind {
	case domain.KindValidation:
		writeFail(w, http.StatusBadRequest, de.Message)
	case domain.KindNotFound:
		writeFail(w, http.StatusNotFound, de.Message)
	default:
		writeFail(w, http.StatusInternalServerError, err.Error())
	}
}
