package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/landlord/internal/dashboard"
	"github.com/dukerupert/landlord/internal/ledger"
	"github.com/dukerupert/landlord/internal/model"
	"github.com/dukerupert/landlord/internal/store"
)

type PaymentHandler struct {
	ledger *ledger.Ledger
	agg    *dashboard.Aggregator
	logger *slog.Logger
}

func NewPaymentHandler(l *ledger.Ledger, agg *dashboard.Aggregator, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{ledger: l, agg: agg, logger: logger}
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	var f store.PaymentFilter
	var err error
	if f.Period, err = queryPeriod(r); err != nil {
		writeError(w, h.logger, "list payments", err)
		return
	}
	if f.TenantID, err = queryInt64(r, "tenant_id"); err != nil {
		writeDetail(w, http.StatusBadRequest, "tenant_id must be an integer")
		return
	}
	if f.HouseID, err = queryInt64(r, "house_id"); err != nil {
		writeDetail(w, http.StatusBadRequest, "house_id must be an integer")
		return
	}

	payments, err := h.ledger.List(r.Context(), f)
	if err != nil {
		writeError(w, h.logger, "list payments", err)
		return
	}
	if payments == nil {
		payments = []model.PaymentDetail{}
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "get payment", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ledger.PaymentInput
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.ledger.Record(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ledger.PaymentPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.ledger.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, "update payment", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.ledger.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, "delete payment", err)
		return
	}
	writeMessage(w, "Payment deleted successfully")
}

func (h *PaymentHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	period, err := queryPeriod(r)
	if err != nil {
		writeError(w, h.logger, "dashboard", err)
		return
	}
	stats, err := h.agg.Compute(r.Context(), period)
	if err != nil {
		writeError(w, h.logger, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type reminderResponse struct {
	Message string `json:"message"`
	*ledger.ReminderResult
}

func (h *PaymentHandler) SendReminders(w http.ResponseWriter, r *http.Request) {
	period, err := queryPeriod(r)
	if err != nil {
		writeError(w, h.logger, "send reminders", err)
		return
	}
	if period == "" {
		period = h.agg.CurrentPeriod()
	}
	res, err := h.ledger.SendReminders(r.Context(), period)
	if err != nil {
		writeError(w, h.logger, "send reminders", err)
		return
	}
	writeJSON(w, http.StatusOK, reminderResponse{
		Message:        fmt.Sprintf("Queued %d payment reminders for %s", res.Sent, period),
		ReminderResult: res,
	})
}
