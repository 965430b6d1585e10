package ledger

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dukerupert/landlord/internal/database"
	"github.com/dukerupert/landlord/internal/model"
	"github.com/dukerupert/landlord/internal/notify"
	"github.com/dukerupert/landlord/internal/occupancy"
	"github.com/dukerupert/landlord/internal/store"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
	refuse bool
}

func (r *recorder) Dispatch(ev notify.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.refuse {
		return false
	}
	r.events = append(r.events, ev)
	return true
}

var fixedNow = time.Date(2025, time.February, 11, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ledger *Ledger
	coord  *occupancy.Coordinator
	db     *sql.DB
	rec    *recorder
}

func setupLedger(t *testing.T) *fixture {
	t.Helper()
	return setupLedgerAt(t, ":memory:")
}

func setupLedgerAt(t *testing.T, dbPath string) *fixture {
	t.Helper()
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return fixedNow }
	rec := &recorder{}
	return &fixture{
		ledger: New(db, rec, now, logger),
		coord:  occupancy.New(db, notify.Discard{}, now, logger),
		db:     db,
		rec:    rec,
	}
}

func (f *fixture) house(t *testing.T, name string, rent float64) *model.House {
	t.Helper()
	h, err := f.coord.CreateHouse(context.Background(), occupancy.HouseInput{Name: name, HouseType: "bedsitter", RentAmount: rent})
	if err != nil {
		t.Fatalf("create house: %v", err)
	}
	return h
}

func (f *fixture) tenant(t *testing.T, name string, email *string, houseID *int64) *model.Tenant {
	t.Helper()
	tn, err := f.coord.CreateTenant(context.Background(), occupancy.TenantInput{FullName: name, Phone: "0700", Email: email, HouseID: houseID})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return tn
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool     { return &b }

func TestRecordPayment(t *testing.T) {
	f := setupLedger(t)
	h := f.house(t, "B1", 8000)
	tn := f.tenant(t, "Jane", strPtr("jane@example.com"), &h.ID)

	p, err := f.ledger.Record(context.Background(), PaymentInput{
		TenantID:      tn.ID,
		HouseID:       h.ID,
		AmountPaid:    8000,
		MonthPaidFor:  "2025-02",
		PaymentMethod: "mpesa",
		ReferenceCode: strPtr(" QK12AB "),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if p.ID == 0 || p.CreatedAt.IsZero() {
		t.Errorf("stored payment missing id or created_at: %+v", p)
	}
	if p.PaymentDate.String() != "2025-02-11" {
		t.Errorf("payment_date = %s, want today", p.PaymentDate)
	}
	if *p.ReferenceCode != "QK12AB" {
		t.Errorf("reference_code = %q, want %q", *p.ReferenceCode, "QK12AB")
	}
	if !p.EmailSent {
		t.Error("email_sent should be true")
	}
	if len(f.rec.events) != 1 || f.rec.events[0].Kind != notify.KindPaymentConfirmation {
		t.Fatalf("events = %+v, want one confirmation", f.rec.events)
	}
	if f.rec.events[0].Amount != 8000 || f.rec.events[0].Period != "2025-02" {
		t.Errorf("confirmation = %+v", f.rec.events[0])
	}
}

func TestRecordPaymentNoEmail(t *testing.T) {
	f := setupLedger(t)
	h := f.house(t, "B1", 8000)
	withMail := f.tenant(t, "Jane", strPtr("jane@example.com"), &h.ID)
	h2 := f.house(t, "B2", 8000)
	noMail := f.tenant(t, "John", nil, &h2.ID)
	ctx := context.Background()

	p, err := f.ledger.Record(ctx, PaymentInput{TenantID: withMail.ID, HouseID: h.ID, AmountPaid: 100, PaymentMethod: "cash", SendEmail: boolPtr(false)})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if p.EmailSent {
		t.Error("send_email=false should not send")
	}
	p, err = f.ledger.Record(ctx, PaymentInput{TenantID: noMail.ID, HouseID: h2.ID, AmountPaid: 100, PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if p.EmailSent {
		t.Error("tenant without email should not be sent")
	}
	if len(f.rec.events) != 0 {
		t.Errorf("dispatched %d events, want 0", len(f.rec.events))
	}
}

func TestRecordPaymentErrors(t *testing.T) {
	f := setupLedger(t)
	h := f.house(t, "B1", 8000)
	tn := f.tenant(t, "Jane", nil, &h.ID)
	ctx := context.Background()

	tests := []struct {
		name string
		in   PaymentInput
		want error
	}{
		{"unknown tenant", PaymentInput{TenantID: 999, HouseID: h.ID, AmountPaid: 1, PaymentMethod: "cash"}, model.ErrNotFound},
		{"unknown house", PaymentInput{TenantID: tn.ID, HouseID: 999, AmountPaid: 1, PaymentMethod: "cash"}, model.ErrNotFound},
		{"zero amount", PaymentInput{TenantID: tn.ID, HouseID: h.ID, AmountPaid: 0, PaymentMethod: "cash"}, model.ErrValidation},
		{"bad method", PaymentInput{TenantID: tn.ID, HouseID: h.ID, AmountPaid: 1, PaymentMethod: "cheque"}, model.ErrValidation},
		{"bad period", PaymentInput{TenantID: tn.ID, HouseID: h.ID, AmountPaid: 1, PaymentMethod: "cash", MonthPaidFor: "2025-13"}, model.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ledger.Record(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPartialPaymentsSum(t *testing.T) {
	f := setupLedger(t)
	h := f.house(t, "B1", 8000)
	tn := f.tenant(t, "Jane", nil, &h.ID)
	ctx := context.Background()

	for _, amt := range []float64{3000, 2500} {
		if _, err := f.ledger.Record(ctx, PaymentInput{TenantID: tn.ID, HouseID: h.ID, AmountPaid: amt, MonthPaidFor: "2025-02", PaymentMethod: "mpesa"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	total, err := f.ledger.TotalForPeriod(ctx, "2025-02", nil)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 5500 {
		t.Errorf("total = %v, want 5500", total)
	}
	houseTotal, _ := f.ledger.TotalForPeriod(ctx, "2025-02", &h.ID)
	if houseTotal != 5500 {
		t.Errorf("house total = %v, want 5500", houseTotal)
	}
	empty, _ := f.ledger.TotalForPeriod(ctx, "2025-01", nil)
	if empty != 0 {
		t.Errorf("empty period total = %v, want 0", empty)
	}

	paid, err := f.ledger.PaidTenantIDs(ctx, "2025-02")
	if err != nil {
		t.Fatalf("paid ids: %v", err)
	}
	if diff := cmp.Diff(map[int64]struct{}{tn.ID: {}}, paid); diff != "" {
		t.Errorf("paid tenant ids mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdatePayment(t *testing.T) {
	f := setupLedger(t)
	h := f.house(t, "B1", 8000)
	tn := f.tenant(t, "Jane", nil, &h.ID)
	ctx := context.Background()
	p, err := f.ledger.Record(ctx, PaymentInput{TenantID: tn.ID, HouseID: h.ID, AmountPaid: 100, MonthPaidFor: "2025-02", PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	amt := 7500.0
	got, err := f.ledger.Update(ctx, p.ID, PaymentPatch{AmountPaid: &amt, PaymentMethod: strPtr("bank"), Notes: strPtr("corrected")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.AmountPaid != 7500 || got.PaymentMethod != model.PaymentMethodBank || *got.Notes != "corrected" {
		t.Errorf("updated payment = %+v", got)
	}
	if got.TenantID != tn.ID || got.HouseID != h.ID || got.MonthPaidFor != "2025-02" {
		t.Errorf("linkage changed: %+v", got)
	}

	other := int64(42)
	if _, err := f.ledger.Update(ctx, p.ID, PaymentPatch{TenantID: &other}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("relink: err = %v, want ErrValidation", err)
	}
	if _, err := f.ledger.Update(ctx, 999, PaymentPatch{AmountPaid: &amt}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("update unknown: err = %v, want ErrNotFound", err)
	}
}

func TestDeletePayment(t *testing.T) {
	f := setupLedger(t)
	h := f.house(t, "B1", 8000)
	tn := f.tenant(t, "Jane", nil, &h.ID)
	ctx := context.Background()
	p, err := f.ledger.Record(ctx, PaymentInput{TenantID: tn.ID, HouseID: h.ID, AmountPaid: 100, MonthPaidFor: "2025-02", PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := f.ledger.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.ledger.Get(ctx, p.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("get deleted: err = %v, want ErrNotFound", err)
	}
	if err := f.ledger.Delete(ctx, p.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("delete twice: err = %v, want ErrNotFound", err)
	}
}

func TestPaymentOutlivesMove(t *testing.T) {
	f := setupLedger(t)
	a := f.house(t, "A1", 8000)
	b := f.house(t, "B1", 9000)
	tn := f.tenant(t, "Jane", nil, &a.ID)
	ctx := context.Background()

	if _, err := f.ledger.Record(ctx, PaymentInput{TenantID: tn.ID, HouseID: a.ID, AmountPaid: 8000, MonthPaidFor: "2025-01", PaymentMethod: "mpesa"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := f.coord.UpdateTenant(ctx, tn.ID, occupancy.TenantPatch{HouseID: &b.ID}); err != nil {
		t.Fatalf("move: %v", err)
	}

	list, err := f.ledger.List(ctx, store.PaymentFilter{TenantID: tn.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].HouseID != a.ID || *list[0].HouseName != "A1" {
		t.Errorf("payment history changed after move: %+v", list)
	}

	hist, err := f.ledger.ForTenant(ctx, tn.ID)
	if err != nil {
		t.Fatalf("for tenant: %v", err)
	}
	if hist.TotalPaid != 8000 || hist.PaymentCount != 1 || hist.House == nil || *hist.House != "B1" {
		t.Errorf("history = %+v", hist)
	}
}

func TestSendReminders(t *testing.T) {
	f := setupLedger(t)
	ctx := context.Background()
	a := f.house(t, "A1", 8000)
	b := f.house(t, "B1", 9000)
	c := f.house(t, "C1", 7000)
	payer := f.tenant(t, "Payer", strPtr("payer@example.com"), &a.ID)
	late := f.tenant(t, "Late", strPtr("late@example.com"), &b.ID)
	f.tenant(t, "Silent", nil, &c.ID)
	f.tenant(t, "Homeless", strPtr("x@example.com"), nil)

	if _, err := f.ledger.Record(ctx, PaymentInput{TenantID: payer.ID, HouseID: a.ID, AmountPaid: 100, MonthPaidFor: "2025-02", PaymentMethod: "cash", SendEmail: boolPtr(false)}); err != nil {
		t.Fatalf("record: %v", err)
	}

	res, err := f.ledger.SendReminders(ctx, "2025-02")
	if err != nil {
		t.Fatalf("send reminders: %v", err)
	}
	// Payer and Silent are skipped; Homeless has no house and is not counted.
	want := &ReminderResult{Period: "2025-02", Sent: 1, Skipped: 2}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if len(f.rec.events) != 1 {
		t.Fatalf("events = %d, want 1", len(f.rec.events))
	}
	ev := f.rec.events[0]
	if ev.To != "late@example.com" || ev.HouseName != "B1" || ev.Amount != 9000 || ev.DaysOverdue != 10 {
		t.Errorf("reminder = %+v (tenant %d)", ev, late.ID)
	}

	f.rec.refuse = true
	res, err = f.ledger.SendReminders(ctx, "2025-02")
	if err != nil {
		t.Fatalf("send reminders: %v", err)
	}
	if res.Sent != 0 || res.Skipped != 3 {
		t.Errorf("refused queue: sent=%d skipped=%d, want 0/3", res.Sent, res.Skipped)
	}
}

func TestConcurrentRecordOnFile(t *testing.T) {
	f := setupLedgerAt(t, filepath.Join(t.TempDir(), "landlord.db"))
	h := f.house(t, "B1", 8000)
	tn := f.tenant(t, "Jane", nil, &h.ID)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.ledger.Record(context.Background(), PaymentInput{
				TenantID: tn.ID, HouseID: h.ID, AmountPaid: 1000, MonthPaidFor: "2025-02", PaymentMethod: "cash",
			})
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("record %d: %v", i, err)
		}
	}
	total, err := f.ledger.TotalForPeriod(context.Background(), "2025-02", nil)
	if err != nil {
		t.Fatal(err)
	}
	if total != n*1000 {
		t.Errorf("total = %v, want %v", total, n*1000)
	}
}
