package handlers

import (
	"encoding/json"
	"net/http"

	"voice-connector/internal/infra/logger"
)

type HttpHandlers struct {
	Logger *logger.Logger
}

func NewHttpHandlers(logger *logger.Logger) *HttpHandlers {
	return &HttpHandlers{Logger: logger}
}

// HealthCheck reports that the process is up and polling.
func (th *HttpHandlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	response := map[string]string{"status": "healthy"}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		th.Logger.Error("Failed to encode health response")
	}
}
