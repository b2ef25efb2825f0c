package handler

import (
	"encoding/json"
	"net/http"

	"courtside/internal/payments/service"
	httputil "courtside/pkg/http"
	"courtside/pkg/logger"
	"courtside/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log,
	}
}

// Attempt charges a reservation. Clients should send an Idempotency-Key
// header so replays of the same attempt return the cached outcome.
func (h *PaymentHandler) Attempt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Attempt", "error", writeErr)
		}
		return
	}
	req.ReservationID = ps.ByName("id")

	result, err := h.service.Attempt(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Attempt", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Attempt", "error", err)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations/:id/payment", h.Attempt)
}
