package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/databricks"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/model"
	"github.com/doj0985/databricks-aibi-external-embedding/pkg/apierror"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	var upstreamErr *databricks.UpstreamError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.As(err, &upstreamErr) {
		status = http.StatusBadGateway
		body.Code = "UPSTREAM_ERROR"
		body.Message = "Databricks token exchange failed"
		body.Details = upstreamErr.Error()
	} else if errors.Is(err, databricks.ErrMissingConfig) {
		body.Code = "CONFIG_ERROR"
		body.Message = "Databricks workspace is not configured"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrUnknownUser) || errors.Is(err, model.ErrUnauthenticated) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Authentication required"
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid input"
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	writeJSON(w, status, model.ErrorResponse{Error: body})
}
