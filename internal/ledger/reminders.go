package ledger

import (
	"context"

	"github.com/dukerupert/landlord/internal/model"
	"github.com/dukerupert/landlord/internal/notify"
	"github.com/dukerupert/landlord/internal/store"
)

type ReminderResult struct {
	Period  model.Period `json:"month"`
	Sent    int          `json:"sent"`
	Skipped int          `json:"skipped"`
}

// SendReminders queues a payment reminder for every overdue tenant in
// period. Every other assigned tenant counts as skipped: those who already
// paid, those without an email, and those whose event the queue refuses.
func (l *Ledger) SendReminders(ctx context.Context, period model.Period) (*ReminderResult, error) {
	tenants, err := store.NewTenantStore(l.db).ListAssigned(ctx)
	if err != nil {
		return nil, err
	}
	paid, err := l.payments.PaidTenantIDs(ctx, period)
	if err != nil {
		return nil, err
	}
	houses, err := store.NewHouseStore(l.db).List(ctx, true)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]model.House, len(houses))
	for _, h := range houses {
		byID[h.ID] = h
	}

	now := l.now()
	days := int(now.Sub(period.Start(now.Location())).Hours() / 24)
	if days < 0 {
		days = 0
	}

	res := &ReminderResult{Period: period}
	for _, t := range tenants {
		if _, ok := paid[t.ID]; ok {
			res.Skipped++
			continue
		}
		h, ok := byID[*t.HouseID]
		if t.Email == nil || !ok {
			res.Skipped++
			continue
		}
		if l.notifier.Dispatch(notify.PaymentReminder(*t.Email, t, h, period, days)) {
			res.Sent++
		} else {
			res.Skipped++
		}
	}
	l.logger.Info("payment reminders queued", "period", period, "sent", res.Sent, "skipped", res.Skipped)
	return res, nil
}
