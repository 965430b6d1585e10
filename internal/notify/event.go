// Package notify carries transactional notification events from the
// mutation paths to whatever delivers them. Delivery is best effort and
// at most once: nothing on the request path waits for it or sees its errors.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/landlord/internal/model"
)

type Kind string

const (
	KindPaymentConfirmation Kind = "payment_confirmation"
	KindPaymentReminder     Kind = "payment_reminder"
	KindTenantWelcome       Kind = "tenant_welcome"
)

// Event is one outbound message. Which fields are meaningful depends on Kind:
// Date is the payment date for confirmations and the move-in date for
// welcomes; DaysOverdue is only read for reminders.
type Event struct {
	Kind        Kind                `json:"kind"`
	To          string              `json:"to"`
	TenantName  string              `json:"tenant_name"`
	HouseName   string              `json:"house_name"`
	Amount      float64             `json:"amount"`
	Period      model.Period        `json:"period,omitempty"`
	Method      model.PaymentMethod `json:"method,omitempty"`
	Reference   string              `json:"reference,omitempty"`
	Date        *model.Date         `json:"date,omitempty"`
	DaysOverdue int                 `json:"days_overdue,omitempty"`
}

func PaymentConfirmation(to string, t model.Tenant, h model.House, p model.Payment) Event {
	ev := Event{
		Kind:       KindPaymentConfirmation,
		To:         to,
		TenantName: t.FullName,
		HouseName:  h.Name,
		Amount:     p.AmountPaid,
		Period:     p.MonthPaidFor,
		Method:     p.PaymentMethod,
		Date:       &p.PaymentDate,
	}
	if p.ReferenceCode != nil {
		ev.Reference = *p.ReferenceCode
	}
	return ev
}

func PaymentReminder(to string, t model.Tenant, h model.House, period model.Period, daysOverdue int) Event {
	return Event{
		Kind:        KindPaymentReminder,
		To:          to,
		TenantName:  t.FullName,
		HouseName:   h.Name,
		Amount:      h.RentAmount,
		Period:      period,
		DaysOverdue: daysOverdue,
	}
}

func TenantWelcome(to string, t model.Tenant, h model.House) Event {
	return Event{
		Kind:       KindTenantWelcome,
		To:         to,
		TenantName: t.FullName,
		HouseName:  h.Name,
		Amount:     h.RentAmount,
		Date:       t.MoveInDate,
	}
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	switch ev.Kind {
	case KindPaymentConfirmation, KindPaymentReminder, KindTenantWelcome:
	default:
		return Event{}, fmt.Errorf("decode event: unknown kind %q", ev.Kind)
	}
	return ev, nil
}

// Dispatcher accepts events without blocking. Dispatch reports whether the
// event was queued; false means it was dropped.
type Dispatcher interface {
	Dispatch(ev Event) bool
}

// Sender delivers a single event.
type Sender interface {
	Send(ctx context.Context, ev Event) error
}

type SenderFunc func(ctx context.Context, ev Event) error

func (f SenderFunc) Send(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Discard drops every event. Used when notifications are disabled.
type Discard struct{}

func (Discard) Dispatch(Event) bool { return false }
