package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"spotbroker/internal/app/service"
	"spotbroker/internal/common"
)

type PriceHandler struct {
	priceService *service.PriceService
}

func NewPriceHandler(priceService *service.PriceService) *PriceHandler {
	return &PriceHandler{priceService: priceService}
}

func (h *PriceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/spot_price", h.spotPrice)
}

// spotPrice returns the recorded price series as a bare JSON array.
func (h *PriceHandler) spotPrice(w http.ResponseWriter, r *http.Request) {
	prices, err := h.priceService.History(r.Context())
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, prices)
}
