package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/landlord/internal/ledger"
	"github.com/dukerupert/landlord/internal/model"
	"github.com/dukerupert/landlord/internal/occupancy"
	"github.com/dukerupert/landlord/internal/store"
)

type TenantHandler struct {
	tenants *store.TenantStore
	houses  *store.HouseStore
	coord   *occupancy.Coordinator
	ledger  *ledger.Ledger
	logger  *slog.Logger
}

func NewTenantHandler(ts *store.TenantStore, hs *store.HouseStore, coord *occupancy.Coordinator, l *ledger.Ledger, logger *slog.Logger) *TenantHandler {
	return &TenantHandler{tenants: ts, houses: hs, coord: coord, ledger: l, logger: logger}
}

func (h *TenantHandler) detail(ctx context.Context, t *model.Tenant) (*model.TenantDetail, error) {
	d := &model.TenantDetail{Tenant: *t}
	if t.HouseID != nil {
		house, err := h.houses.GetByID(ctx, *t.HouseID)
		if err != nil {
			return nil, err
		}
		d.House = house
	}
	return d, nil
}

func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := queryBool(r, "active_only", true)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "active_only must be true or false")
		return
	}
	tenants, err := h.tenants.List(r.Context(), activeOnly)
	if err != nil {
		writeError(w, h.logger, "list tenants", err)
		return
	}

	houses, err := h.houses.List(r.Context(), true)
	if err != nil {
		writeError(w, h.logger, "list houses", err)
		return
	}
	byID := make(map[int64]*model.House, len(houses))
	for i := range houses {
		byID[houses[i].ID] = &houses[i]
	}

	out := make([]model.TenantDetail, 0, len(tenants))
	for _, t := range tenants {
		d := model.TenantDetail{Tenant: t}
		if t.HouseID != nil {
			d.House = byID[*t.HouseID]
		}
		out = append(out, d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *TenantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.tenants.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "get tenant", err)
		return
	}
	if t == nil {
		writeDetail(w, http.StatusNotFound, "Tenant not found")
		return
	}
	h.respond(w, r, http.StatusOK, t)
}

func (h *TenantHandler) respond(w http.ResponseWriter, r *http.Request, status int, t *model.Tenant) {
	d, err := h.detail(r.Context(), t)
	if err != nil {
		writeError(w, h.logger, "load tenant house", err)
		return
	}
	writeJSON(w, status, d)
}

func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req occupancy.TenantInput
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.coord.CreateTenant(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "create tenant", err)
		return
	}
	h.respond(w, r, http.StatusCreated, t)
}

func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req occupancy.TenantPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.coord.UpdateTenant(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, "update tenant", err)
		return
	}
	h.respond(w, r, http.StatusOK, t)
}

func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.coord.RemoveTenant(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "remove tenant", err)
		return
	}
	writeMessage(w, fmt.Sprintf("Tenant '%s' removed successfully", t.FullName))
}

func (h *TenantHandler) Payments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	history, err := h.ledger.ForTenant(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "tenant payments", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
