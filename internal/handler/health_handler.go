package handler

import (
	"net/http"
	"time"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/model"
)

// Health is a liveness probe with no dependencies.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
