// Package ledger records rent payments against a YYYY-MM period key and
// answers the per-period questions the rest of the system asks of them:
// who has paid, how much came in, and who still needs a reminder.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/landlord/internal/database"
	"github.com/dukerupert/landlord/internal/model"
	"github.com/dukerupert/landlord/internal/notify"
	"github.com/dukerupert/landlord/internal/store"
)

type Ledger struct {
	db       *sql.DB
	payments *store.PaymentStore
	notifier notify.Dispatcher
	now      func() time.Time
	logger   *slog.Logger
}

func New(db *sql.DB, notifier notify.Dispatcher, now func() time.Time, logger *slog.Logger) *Ledger {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		db:       db,
		payments: store.NewPaymentStore(db),
		notifier: notifier,
		now:      now,
		logger:   logger,
	}
}

type PaymentInput struct {
	TenantID      int64       `json:"tenant_id"`
	HouseID       int64       `json:"house_id"`
	AmountPaid    float64     `json:"amount_paid"`
	PaymentDate   *model.Date `json:"payment_date"`
	MonthPaidFor  string      `json:"month_paid_for"`
	PaymentMethod string      `json:"payment_method"`
	ReferenceCode *string     `json:"reference_code"`
	Notes         *string     `json:"notes"`
	SendEmail     *bool       `json:"send_email"`
}

// PaymentPatch edits a recorded payment. The tenant, house and period are
// fixed at creation; setting any of them is a validation error.
type PaymentPatch struct {
	AmountPaid    *float64    `json:"amount_paid"`
	PaymentDate   *model.Date `json:"payment_date"`
	PaymentMethod *string     `json:"payment_method"`
	ReferenceCode *string     `json:"reference_code"`
	Notes         *string     `json:"notes"`

	TenantID     *int64  `json:"tenant_id"`
	HouseID      *int64  `json:"house_id"`
	MonthPaidFor *string `json:"month_paid_for"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{model.ErrValidation}, args...)...)
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func (in PaymentInput) payment(today model.Date) (*model.Payment, error) {
	if in.AmountPaid <= 0 {
		return nil, invalid("amount_paid must be greater than 0")
	}
	method, err := model.ParsePaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, err
	}
	date := today
	if in.PaymentDate != nil {
		date = *in.PaymentDate
	}
	period := model.PeriodOf(date.Time)
	if in.MonthPaidFor != "" {
		period, err = model.ParsePeriod(in.MonthPaidFor)
		if err != nil {
			return nil, err
		}
	}
	return &model.Payment{
		TenantID:      in.TenantID,
		HouseID:       in.HouseID,
		AmountPaid:    in.AmountPaid,
		PaymentDate:   date,
		MonthPaidFor:  period,
		PaymentMethod: method,
		ReferenceCode: trimmed(in.ReferenceCode),
		Notes:         trimmed(in.Notes),
	}, nil
}

func (p PaymentPatch) apply(pay *model.Payment) error {
	if p.TenantID != nil || p.HouseID != nil || p.MonthPaidFor != nil {
		return invalid("tenant_id, house_id and month_paid_for cannot be changed")
	}
	if p.AmountPaid != nil {
		if *p.AmountPaid <= 0 {
			return invalid("amount_paid must be greater than 0")
		}
		pay.AmountPaid = *p.AmountPaid
	}
	if p.PaymentDate != nil {
		pay.PaymentDate = *p.PaymentDate
	}
	if p.PaymentMethod != nil {
		m, err := model.ParsePaymentMethod(*p.PaymentMethod)
		if err != nil {
			return err
		}
		pay.PaymentMethod = m
	}
	if p.ReferenceCode != nil {
		pay.ReferenceCode = trimmed(p.ReferenceCode)
	}
	if p.Notes != nil {
		pay.Notes = trimmed(p.Notes)
	}
	return nil
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%w: %s %d", model.ErrNotFound, what, id)
}

// Record appends a payment. Several payments for the same tenant and period
// are allowed. When requested and the tenant has an email, a confirmation
// is dispatched after commit.
func (l *Ledger) Record(ctx context.Context, in PaymentInput) (*model.Payment, error) {
	p, err := in.payment(model.DateOf(l.now()))
	if err != nil {
		return nil, err
	}
	sendEmail := in.SendEmail == nil || *in.SendEmail
	_, disabled := l.notifier.(notify.Discard)

	var created *model.Payment
	var tenant *model.Tenant
	var house *model.House
	err = database.InTx(ctx, l.db, func(tx *sql.Tx) error {
		tenant, err = store.NewTenantStore(tx).GetByID(ctx, p.TenantID)
		if err != nil {
			return err
		}
		if tenant == nil {
			return notFound("tenant", p.TenantID)
		}
		house, err = store.NewHouseStore(tx).GetByID(ctx, p.HouseID)
		if err != nil {
			return err
		}
		if house == nil {
			return notFound("house", p.HouseID)
		}
		p.EmailSent = sendEmail && !disabled && tenant.Email != nil
		created, err = store.NewPaymentStore(tx).Create(ctx, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("payment recorded",
		"payment_id", created.ID, "tenant_id", created.TenantID, "period", created.MonthPaidFor, "amount", created.AmountPaid)
	if created.EmailSent {
		l.notifier.Dispatch(notify.PaymentConfirmation(*tenant.Email, *tenant, *house, *created))
	}
	return created, nil
}

func (l *Ledger) Get(ctx context.Context, id int64) (*model.Payment, error) {
	p, err := l.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound("payment", id)
	}
	return p, nil
}

func (l *Ledger) Update(ctx context.Context, id int64, patch PaymentPatch) (*model.Payment, error) {
	var updated *model.Payment
	err := database.InTx(ctx, l.db, func(tx *sql.Tx) error {
		ps := store.NewPaymentStore(tx)
		p, err := ps.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return notFound("payment", id)
		}
		if err := patch.apply(p); err != nil {
			return err
		}
		updated, err = ps.Update(ctx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (l *Ledger) Delete(ctx context.Context, id int64) error {
	return database.InTx(ctx, l.db, func(tx *sql.Tx) error {
		ps := store.NewPaymentStore(tx)
		p, err := ps.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return notFound("payment", id)
		}
		return ps.Delete(ctx, id)
	})
}

func (l *Ledger) List(ctx context.Context, f store.PaymentFilter) ([]model.PaymentDetail, error) {
	return l.payments.List(ctx, f)
}

func (l *Ledger) Recent(ctx context.Context, n int) ([]model.PaymentDetail, error) {
	return l.payments.Recent(ctx, n)
}

// ForTenant returns a tenant's full history with a running total.
func (l *Ledger) ForTenant(ctx context.Context, tenantID int64) (*model.TenantPayments, error) {
	tenant, err := store.NewTenantStore(l.db).GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, notFound("tenant", tenantID)
	}
	payments, err := l.payments.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := &model.TenantPayments{
		Tenant:       tenant.FullName,
		PaymentCount: len(payments),
		Payments:     payments,
	}
	if out.Payments == nil {
		out.Payments = []model.Payment{}
	}
	for _, p := range payments {
		out.TotalPaid += p.AmountPaid
	}
	if tenant.HouseID != nil {
		h, err := store.NewHouseStore(l.db).GetByID(ctx, *tenant.HouseID)
		if err != nil {
			return nil, err
		}
		if h != nil {
			out.House = &h.Name
		}
	}
	return out, nil
}

func (l *Ledger) PaidTenantIDs(ctx context.Context, period model.Period) (map[int64]struct{}, error) {
	return l.payments.PaidTenantIDs(ctx, period)
}

func (l *Ledger) TotalForPeriod(ctx context.Context, period model.Period, houseID *int64) (float64, error) {
	return l.payments.TotalForPeriod(ctx, period, houseID)
}
