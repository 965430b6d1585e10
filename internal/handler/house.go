package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/landlord/internal/model"
	"github.com/dukerupert/landlord/internal/occupancy"
	"github.com/dukerupert/landlord/internal/store"
)

type HouseHandler struct {
	houses *store.HouseStore
	coord  *occupancy.Coordinator
	logger *slog.Logger
}

func NewHouseHandler(hs *store.HouseStore, coord *occupancy.Coordinator, logger *slog.Logger) *HouseHandler {
	return &HouseHandler{houses: hs, coord: coord, logger: logger}
}

func (h *HouseHandler) List(w http.ResponseWriter, r *http.Request) {
	includeInactive, err := queryBool(r, "include_inactive", false)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "include_inactive must be true or false")
		return
	}
	houses, err := h.houses.List(r.Context(), includeInactive)
	if err != nil {
		writeError(w, h.logger, "list houses", err)
		return
	}
	if houses == nil {
		houses = []model.House{}
	}
	writeJSON(w, http.StatusOK, houses)
}

func (h *HouseHandler) ListWithTenants(w http.ResponseWriter, r *http.Request) {
	houses, err := h.houses.ListWithTenants(r.Context())
	if err != nil {
		writeError(w, h.logger, "list houses with tenants", err)
		return
	}
	if houses == nil {
		houses = []model.HouseWithTenant{}
	}
	writeJSON(w, http.StatusOK, houses)
}

func (h *HouseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	house, err := h.houses.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "get house", err)
		return
	}
	if house == nil {
		writeDetail(w, http.StatusNotFound, "House not found")
		return
	}
	writeJSON(w, http.StatusOK, house)
}

func (h *HouseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req occupancy.HouseInput
	if !decodeJSON(w, r, &req) {
		return
	}
	house, err := h.coord.CreateHouse(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "create house", err)
		return
	}
	writeJSON(w, http.StatusCreated, house)
}

func (h *HouseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req occupancy.HousePatch
	if !decodeJSON(w, r, &req) {
		return
	}
	house, err := h.coord.UpdateHouse(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, "update house", err)
		return
	}
	writeJSON(w, http.StatusOK, house)
}

func (h *HouseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	house, err := h.coord.DeleteHouse(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "delete house", err)
		return
	}
	writeMessage(w, fmt.Sprintf("House '%s' deleted successfully", house.Name))
}
