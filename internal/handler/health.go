package handler

import (
	"net/http"

	"github.com/prelink-app/identity/internal/errHandler"
	"github.com/prelink-app/identity/internal/response"
	"github.com/prelink-app/identity/internal/version"
)

type HealthCheckHandler struct {
	ErrHandler *errHandler.ErrorHandler
}

func NewHealthCheckHandler(errHandler *errHandler.ErrorHandler) *HealthCheckHandler {
	return &HealthCheckHandler{
		ErrHandler: errHandler,
	}
}

func (h *HealthCheckHandler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{
		"status":  "OK",
		"version": version.Get(),
	}

	err := response.JSONOkResponse(w, data, "Service is healthy", nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
