package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"spotbroker/internal/app/service"
	"spotbroker/internal/common"
)

type ChargeHandler struct {
	chargeService *service.ChargeService
}

func NewChargeHandler(chargeService *service.ChargeService) *ChargeHandler {
	return &ChargeHandler{chargeService: chargeService}
}

func (h *ChargeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/charges", h.listBySession)
	r.Get("/accounts/{account}/charged", h.accountTotal)
}

func (h *ChargeHandler) listBySession(w http.ResponseWriter, r *http.Request) {
	records, err := h.chargeService.BySession(r.Context(), r.URL.Query().Get("session"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, records)
}

func (h *ChargeHandler) accountTotal(w http.ResponseWriter, r *http.Request) {
	account, err := strconv.ParseInt(chi.URLParam(r, "account"), 10, 64)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}
	total, err := h.chargeService.TotalForAccount(r.Context(), account)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, total)
}
