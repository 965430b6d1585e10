package occupancy

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

	"github.com/dukerupert/landlord/internal/database"
	"github.com/dukerupert/landlord/internal/model"
	"github.com/dukerupert/landlord/internal/notify"
	"github.com/dukerupert/landlord/internal/store"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Dispatch(ev notify.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

var fixedNow = time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)

func setupCoordinator(t *testing.T) (*Coordinator, *sql.DB, *recorder) {
	t.Helper()
	return setupCoordinatorAt(t, ":memory:")
}

// setupCoordinatorAt opens dbPath; a file path gives real concurrent
// connections where ":memory:" serialises on one.
func setupCoordinatorAt(t *testing.T, dbPath string) (*Coordinator, *sql.DB, *recorder) {
	t.Helper()
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	rec := &recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, rec, func() time.Time { return fixedNow }, logger), db, rec
}

func strPtr(s string) *string { return &s }
func int64Ptr(v int64) *int64  { return &v }
func boolPtr(b bool) *bool     { return &b }

func mustHouse(t *testing.T, c *Coordinator, name string, rent float64) *model.House {
	t.Helper()
	h, err := c.CreateHouse(context.Background(), HouseInput{Name: name, HouseType: "bedsitter", RentAmount: rent})
	if err != nil {
		t.Fatalf("create house %s: %v", name, err)
	}
	return h
}

func mustTenant(t *testing.T, c *Coordinator, name string, houseID *int64) *model.Tenant {
	t.Helper()
	tn, err := c.CreateTenant(context.Background(), TenantInput{FullName: name, Phone: "0712345678", HouseID: houseID})
	if err != nil {
		t.Fatalf("create tenant %s: %v", name, err)
	}
	return tn
}

func getHouse(t *testing.T, db *sql.DB, id int64) *model.House {
	t.Helper()
	h, err := store.NewHouseStore(db).GetByID(context.Background(), id)
	if err != nil || h == nil {
		t.Fatalf("get house %d: %v", id, err)
	}
	return h
}

// checkInvariant asserts that every active house is occupied exactly when
// one active tenant points at it.
func checkInvariant(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()
	houses, err := store.NewHouseStore(db).List(ctx, true)
	if err != nil {
		t.Fatalf("list houses: %v", err)
	}
	tenants, err := store.NewTenantStore(db).ListAssigned(ctx)
	if err != nil {
		t.Fatalf("list tenants: %v", err)
	}
	holders := make(map[int64]int)
	for _, tn := range tenants {
		holders[*tn.HouseID]++
	}
	for _, h := range houses {
		n := holders[h.ID]
		if n > 1 {
			t.Errorf("house %s has %d active tenants", h.Name, n)
		}
		if h.IsOccupied != (n == 1) {
			t.Errorf("house %s is_occupied = %v with %d active tenants", h.Name, h.IsOccupied, n)
		}
	}
}

func TestCreateTenantOccupiesHouse(t *testing.T) {
	c, db, rec := setupCoordinator(t)
	h := mustHouse(t, c, "A1", 8000)

	tn, err := c.CreateTenant(context.Background(), TenantInput{
		FullName: "  Jane Doe ",
		Phone:    "0712345678",
		Email:    strPtr("jane@example.com"),
		HouseID:  &h.ID,
	})
	if err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	if tn.FullName != "Jane Doe" {
		t.Errorf("full_name = %q, want %q", tn.FullName, "Jane Doe")
	}
	if tn.HouseID == nil || *tn.HouseID != h.ID {
		t.Errorf("house_id = %v, want %d", tn.HouseID, h.ID)
	}
	if !getHouse(t, db, h.ID).IsOccupied {
		t.Error("house should be occupied")
	}
	checkInvariant(t, db)

	if len(rec.events) != 1 {
		t.Fatalf("dispatched %d events, want 1", len(rec.events))
	}
	ev := rec.events[0]
	if ev.Kind != notify.KindTenantWelcome || ev.To != "jane@example.com" || ev.HouseName != "A1" {
		t.Errorf("welcome event = %+v", ev)
	}
}

func TestCreateTenantWithoutEmailSendsNothing(t *testing.T) {
	c, _, rec := setupCoordinator(t)
	h := mustHouse(t, c, "A1", 8000)
	mustTenant(t, c, "No Mail", &h.ID)
	if len(rec.events) != 0 {
		t.Errorf("dispatched %d events, want 0", len(rec.events))
	}
}

func TestCreateTenantOccupiedHouse(t *testing.T) {
	c, db, _ := setupCoordinator(t)
	h := mustHouse(t, c, "A1", 8000)
	mustTenant(t, c, "First", &h.ID)

	_, err := c.CreateTenant(context.Background(), TenantInput{FullName: "Second", Phone: "0700", HouseID: &h.ID})
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	tenants, _ := store.NewTenantStore(db).List(context.Background(), false)
	if len(tenants) != 1 {
		t.Errorf("tenant count = %d, want 1 (failed create must not persist)", len(tenants))
	}
	checkInvariant(t, db)
}

func TestCreateTenantValidation(t *testing.T) {
	c, _, _ := setupCoordinator(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   TenantInput
		want error
	}{
		{"missing name", TenantInput{FullName: " ", Phone: "0700"}, model.ErrValidation},
		{"missing phone", TenantInput{FullName: "X"}, model.ErrValidation},
		{"bad email", TenantInput{FullName: "X", Phone: "0700", Email: strPtr("not-an-email")}, model.ErrValidation},
		{"negative deposit", TenantInput{FullName: "X", Phone: "0700", DepositPaid: func() *float64 { v := -1.0; return &v }()}, model.ErrValidation},
		{"unknown house", TenantInput{FullName: "X", Phone: "0700", HouseID: int64Ptr(999)}, model.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreateTenant(ctx, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateTenantDuplicateIDNumber(t *testing.T) {
	c, _, _ := setupCoordinator(t)
	ctx := context.Background()
	if _, err := c.CreateTenant(ctx, TenantInput{FullName: "A", Phone: "1", IDNumber: strPtr("12345678")}); err != nil {
		t.Fatalf("create first: %v", err)
	}
	_, err := c.CreateTenant(ctx, TenantInput{FullName: "B", Phone: "2", IDNumber: strPtr("12345678")})
	if !errors.Is(err, model.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestReassignTenant(t *testing.T) {
	c, db, _ := setupCoordinator(t)
	a := mustHouse(t, c, "A1", 8000)
	b := mustHouse(t, c, "B1", 9000)
	tn := mustTenant(t, c, "Mover", &a.ID)

	got, err := c.UpdateTenant(context.Background(), tn.ID, TenantPatch{HouseID: &b.ID})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if *got.HouseID != b.ID {
		t.Errorf("house_id = %d, want %d", *got.HouseID, b.ID)
	}
	if getHouse(t, db, a.ID).IsOccupied {
		t.Error("old house should be vacant")
	}
	if !getHouse(t, db, b.ID).IsOccupied {
		t.Error("new house should be occupied")
	}
	checkInvariant(t, db)
}

func TestReassignToOccupiedHouseLeavesStateUnchanged(t *testing.T) {
	c, db, _ := setupCoordinator(t)
	a := mustHouse(t, c, "A1", 8000)
	b := mustHouse(t, c, "B1", 9000)
	mover := mustTenant(t, c, "Mover", &a.ID)
	mustTenant(t, c, "Holder", &b.ID)

	_, err := c.UpdateTenant(context.Background(), mover.ID, TenantPatch{HouseID: &b.ID, Phone: strPtr("0799")})
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if !getHouse(t, db, a.ID).IsOccupied {
		t.Error("original house should still be occupied")
	}
	after, _ := store.NewTenantStore(db).GetByID(context.Background(), mover.ID)
	if *after.HouseID != a.ID || after.Phone != "0712345678" {
		t.Errorf("tenant changed after failed update: house=%d phone=%q", *after.HouseID, after.Phone)
	}
	checkInvariant(t, db)
}

func TestReassignSameHouseIsNoop(t *testing.T) {
	c, db, _ := setupCoordinator(t)
	a := mustHouse(t, c, "A1", 8000)
	tn := mustTenant(t, c, "Stayer", &a.ID)

	if _, err := c.UpdateTenant(context.Background(), tn.ID, TenantPatch{HouseID: &a.ID}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !getHouse(t, db, a.ID).IsOccupied {
		t.Error("house should remain occupied")
	}
	checkInvariant(t, db)
}

func TestRemoveTenant(t *testing.T) {
	c, db, _ := setupCoordinator(t)
	a := mustHouse(t, c, "A1", 8000)
	tn := mustTenant(t, c, "Leaver", &a.ID)

	got, err := c.RemoveTenant(context.Background(), tn.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got.IsActive {
		t.Error("tenant should be inactive")
	}
	if got.HouseID != nil {
		t.Errorf("house_id = %d, want nil", *got.HouseID)
	}
	if got.MoveOutDate == nil || got.MoveOutDate.String() != "2025-03-15" {
		t.Errorf("move_out_date = %v, want 2025-03-15", got.MoveOutDate)
	}
	if getHouse(t, db, a.ID).IsOccupied {
		t.Error("house should be vacant")
	}
	checkInvariant(t, db)

	// The house can be let again.
	mustTenant(t, c, "Next", &a.ID)
	checkInvariant(t, db)

	if _, err := c.RemoveTenant(context.Background(), 999); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("remove unknown: err = %v, want ErrNotFound", err)
	}
}

func TestDeactivateViaUpdate(t *testing.T) {
	c, db, _ := setupCoordinator(t)
	a := mustHouse(t, c, "A1", 8000)
	tn := mustTenant(t, c, "Leaver", &a.ID)

	_, err := c.UpdateTenant(context.Background(), tn.ID, TenantPatch{IsActive: boolPtr(false), HouseID: &a.ID})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("deactivate with house: err = %v, want ErrValidation", err)
	}

	got, err := c.UpdateTenant(context.Background(), tn.ID, TenantPatch{IsActive: boolPtr(false)})
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if got.IsActive || got.HouseID != nil {
		t.Errorf("tenant = active %v house %v, want inactive without house", got.IsActive, got.HouseID)
	}
	checkInvariant(t, db)

	// Reactivate into the same, now vacant, house.
	got, err = c.UpdateTenant(context.Background(), tn.ID, TenantPatch{IsActive: boolPtr(true), HouseID: &a.ID})
	if err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	if !got.IsActive || got.HouseID == nil || got.MoveOutDate != nil {
		t.Errorf("reactivated tenant = %+v", got)
	}
	checkInvariant(t, db)
}

func TestConcurrentAssignSameHouse(t *testing.T) {
	c, db, _ := setupCoordinatorAt(t, filepath.Join(t.TempDir(), "landlord.db"))
	h := mustHouse(t, c, "A1", 8000)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.CreateTenant(context.Background(), TenantInput{FullName: "Racer", Phone: "0700", HouseID: &h.ID})
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, model.ErrConflict):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d assignments succeeded, want exactly 1", ok)
	}
	checkInvariant(t, db)
}

func TestHouseLifecycle(t *testing.T) {
	c, db, _ := setupCoordinator(t)
	ctx := context.Background()
	h := mustHouse(t, c, "A1", 8000)

	if _, err := c.CreateHouse(ctx, HouseInput{Name: "A1", HouseType: "single_room", RentAmount: 5000}); !errors.Is(err, model.ErrConflict) {
		t.Errorf("duplicate name: err = %v, want ErrConflict", err)
	}
	if _, err := c.CreateHouse(ctx, HouseInput{Name: "Z", HouseType: "mansion", RentAmount: 5000}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("bad type: err = %v, want ErrValidation", err)
	}
	if _, err := c.CreateHouse(ctx, HouseInput{Name: "Z", HouseType: "bedsitter", RentAmount: 0}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("zero rent: err = %v, want ErrValidation", err)
	}

	got, err := c.UpdateHouse(ctx, h.ID, HousePatch{RentAmount: func() *float64 { v := 8500.0; return &v }()})
	if err != nil {
		t.Fatalf("update house: %v", err)
	}
	if got.RentAmount != 8500 {
		t.Errorf("rent = %v, want 8500", got.RentAmount)
	}

	tn := mustTenant(t, c, "Holder", &h.ID)
	if _, err := c.UpdateHouse(ctx, h.ID, HousePatch{IsActive: boolPtr(false)}); !errors.Is(err, model.ErrConflict) {
		t.Errorf("deactivate occupied: err = %v, want ErrConflict", err)
	}
	if _, err := c.DeleteHouse(ctx, h.ID); !errors.Is(err, model.ErrConflict) {
		t.Errorf("delete occupied: err = %v, want ErrConflict", err)
	}

	if _, err := c.RemoveTenant(ctx, tn.ID); err != nil {
		t.Fatalf("remove tenant: %v", err)
	}
	if _, err := c.DeleteHouse(ctx, h.ID); err != nil {
		t.Fatalf("delete vacant: %v", err)
	}
	if h, _ := store.NewHouseStore(db).GetByID(ctx, h.ID); h != nil {
		t.Error("house should be gone")
	}
	if _, err := c.DeleteHouse(ctx, h.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("delete twice: err = %v, want ErrNotFound", err)
	}
}

func TestAssignInactiveHouse(t *testing.T) {
	c, _, _ := setupCoordinator(t)
	h := mustHouse(t, c, "A1", 8000)
	if _, err := c.UpdateHouse(context.Background(), h.ID, HousePatch{IsActive: boolPtr(false)}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := c.CreateTenant(context.Background(), TenantInput{FullName: "X", Phone: "0700", HouseID: &h.ID})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}
