package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"spotbroker/internal/api/middleware"
	"spotbroker/internal/app/service"
	"spotbroker/internal/common"
)

type PoolHandler struct {
	poolService *service.PoolService
}

func NewPoolHandler(poolService *service.PoolService) *PoolHandler {
	return &PoolHandler{poolService: poolService}
}

// RegisterRoutes mounts the pool controls. The caller guards them with
// AdminOnly.
func (h *PoolHandler) RegisterRoutes(r chi.Router) {
	r.Get("/pool", h.stats)
	r.Put("/capacity", h.setCapacity)
}

func (h *PoolHandler) stats(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, h.poolService.Stats())
}

func (h *PoolHandler) setCapacity(w http.ResponseWriter, r *http.Request) {
	var req service.SetCapacityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	stats, err := h.poolService.SetCapacity(req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	subject, _ := middleware.GetSubjectFromContext(r.Context())
	log.Printf("INFO: %s set pool capacity to %d", subject, req.Capacity)
	common.RespondWithJSON(w, http.StatusOK, stats)
}
