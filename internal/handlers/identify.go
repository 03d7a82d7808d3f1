package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"contactlink/internal/logging"
	"contactlink/internal/middleware"
	"contactlink/internal/models"
	"contactlink/internal/service"
)

// Identifier resolves an identify request to its consolidated contact.
type Identifier interface {
	Identify(ctx context.Context, req models.IdentifyRequest) (*models.IdentifyResponse, error)
}

// IdentifyHandler handles the /identify endpoint
type IdentifyHandler struct {
	service Identifier
	logger  *zap.Logger
}

// NewIdentifyHandler creates a new identify handler
func NewIdentifyHandler(svc Identifier, logger *zap.Logger) *IdentifyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentifyHandler{
		service: svc,
		logger:  logger,
	}
}

// Handle processes the identify request
func (h *IdentifyHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req models.IdentifyRequest
	if status, err := decodeJSON(w, r, &req); err != nil {
		writeError(w, status, err.Error())
		return
	}

	req, err := ValidateIdentifyRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := h.service.Identify(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrNoIdentifier) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("identify failed",
			zap.String(logging.FieldRequestID, middleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, response)
}
