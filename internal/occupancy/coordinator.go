// Package occupancy owns every mutation that can change which tenant lives
// in which house. Each operation runs in a single transaction so a house's
// occupied flag always agrees with the set of active tenants pointing at it.
package occupancy

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/landlord/internal/database"
	"github.com/dukerupert/landlord/internal/model"
	"github.com/dukerupert/landlord/internal/notify"
	"github.com/dukerupert/landlord/internal/store"
)

type Coordinator struct {
	db       *sql.DB
	notifier notify.Dispatcher
	now      func() time.Time
	logger   *slog.Logger
}

func New(db *sql.DB, notifier notify.Dispatcher, now func() time.Time, logger *slog.Logger) *Coordinator {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	if now == nil {
		now = time.Now
	}
	return &Coordinator{db: db, notifier: notifier, now: now, logger: logger}
}

// stores are bound to one transaction.
type stores struct {
	houses   *store.HouseStore
	tenants  *store.TenantStore
	payments *store.PaymentStore
}

func (c *Coordinator) inTx(ctx context.Context, fn func(s stores) error) error {
	return database.InTx(ctx, c.db, func(tx *sql.Tx) error {
		return fn(stores{
			houses:   store.NewHouseStore(tx),
			tenants:  store.NewTenantStore(tx),
			payments: store.NewPaymentStore(tx),
		})
	})
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%w: %s %d", model.ErrNotFound, what, id)
}

func (c *Coordinator) today() *model.Date {
	d := model.DateOf(c.now())
	return &d
}

// CreateHouse inserts a new vacant house.
func (c *Coordinator) CreateHouse(ctx context.Context, in HouseInput) (*model.House, error) {
	h, err := in.house()
	if err != nil {
		return nil, err
	}
	var created *model.House
	err = c.inTx(ctx, func(s stores) error {
		exists, err := s.houses.NameExists(ctx, h.Name, 0)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: house '%s' already exists", model.ErrConflict, h.Name)
		}
		created, err = s.houses.Create(ctx, h)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateHouse applies a partial update. An occupied house cannot be
// deactivated.
func (c *Coordinator) UpdateHouse(ctx context.Context, id int64, p HousePatch) (*model.House, error) {
	var updated *model.House
	err := c.inTx(ctx, func(s stores) error {
		h, err := s.houses.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if h == nil {
			return notFound("house", id)
		}
		if err := p.apply(h); err != nil {
			return err
		}
		if p.IsActive != nil {
			if !*p.IsActive && h.IsOccupied {
				return fmt.Errorf("%w: cannot deactivate occupied house '%s'", model.ErrConflict, h.Name)
			}
			h.IsActive = *p.IsActive
		}
		exists, err := s.houses.NameExists(ctx, h.Name, h.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: house '%s' already exists", model.ErrConflict, h.Name)
		}
		updated, err = s.houses.Update(ctx, h)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteHouse removes a vacant house that no payment refers to.
func (c *Coordinator) DeleteHouse(ctx context.Context, id int64) (*model.House, error) {
	var deleted *model.House
	err := c.inTx(ctx, func(s stores) error {
		h, err := s.houses.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if h == nil {
			return notFound("house", id)
		}
		if h.IsOccupied {
			return fmt.Errorf("%w: cannot delete occupied house '%s', remove the tenant first", model.ErrConflict, h.Name)
		}
		n, err := s.payments.CountByHouse(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: house '%s' has %d recorded payments, deactivate it instead", model.ErrConflict, h.Name, n)
		}
		if err := s.houses.Delete(ctx, id); err != nil {
			return err
		}
		deleted = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// CreateTenant inserts a tenant and, when a house is given, occupies it.
// A welcome notification is dispatched after commit if the tenant has an
// email and a house.
func (c *Coordinator) CreateTenant(ctx context.Context, in TenantInput) (*model.Tenant, error) {
	t, err := in.tenant()
	if err != nil {
		return nil, err
	}

	var created *model.Tenant
	var house *model.House
	err = c.inTx(ctx, func(s stores) error {
		if err := checkIDNumber(ctx, s, t.IDNumber, 0); err != nil {
			return err
		}
		if in.HouseID != nil {
			house, err = assign(ctx, s, t, *in.HouseID)
			if err != nil {
				return err
			}
		}
		created, err = s.tenants.Create(ctx, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("tenant created", "tenant_id", created.ID, "house_id", created.HouseID)
	if house != nil && created.Email != nil {
		c.notifier.Dispatch(notify.TenantWelcome(*created.Email, *created, *house))
	}
	return created, nil
}

// UpdateTenant applies a partial update. A new HouseID moves the tenant,
// vacating the old house and occupying the new one. IsActive=false is the
// same as RemoveTenant.
func (c *Coordinator) UpdateTenant(ctx context.Context, id int64, p TenantPatch) (*model.Tenant, error) {
	var updated *model.Tenant
	err := c.inTx(ctx, func(s stores) error {
		t, err := s.tenants.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return notFound("tenant", id)
		}
		if err := p.apply(t); err != nil {
			return err
		}
		if p.IDNumber != nil {
			if err := checkIDNumber(ctx, s, t.IDNumber, t.ID); err != nil {
				return err
			}
		}

		wasActive := t.IsActive
		active := wasActive
		if p.IsActive != nil {
			active = *p.IsActive
		}

		switch {
		case !active:
			if p.HouseID != nil {
				return fmt.Errorf("%w: cannot assign a house to an inactive tenant", model.ErrValidation)
			}
			if wasActive {
				if err := c.release(ctx, s, t); err != nil {
					return err
				}
			}
		case !wasActive:
			// Reactivation. The old house may have been let since.
			target := p.HouseID
			if target == nil {
				target = t.HouseID
			}
			t.HouseID = nil
			t.IsActive = true
			t.MoveOutDate = p.MoveOutDate
			if target != nil {
				if _, err := assign(ctx, s, t, *target); err != nil {
					return err
				}
			}
		case p.HouseID != nil:
			if err := reassign(ctx, s, t, *p.HouseID); err != nil {
				return err
			}
		}

		updated, err = s.tenants.Update(ctx, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveTenant deactivates a tenant and frees their house. Removing an
// already inactive tenant is a no-op.
func (c *Coordinator) RemoveTenant(ctx context.Context, id int64) (*model.Tenant, error) {
	var removed *model.Tenant
	err := c.inTx(ctx, func(s stores) error {
		t, err := s.tenants.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return notFound("tenant", id)
		}
		if !t.IsActive {
			removed = t
			return nil
		}
		if err := c.release(ctx, s, t); err != nil {
			return err
		}
		removed, err = s.tenants.Update(ctx, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("tenant removed", "tenant_id", removed.ID)
	return removed, nil
}

func checkIDNumber(ctx context.Context, s stores, idNumber *string, excludeID int64) error {
	if idNumber == nil {
		return nil
	}
	exists, err := s.tenants.IDNumberExists(ctx, *idNumber, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: tenant with ID '%s' already exists", model.ErrConflict, *idNumber)
	}
	return nil
}

// assign occupies houseID for t. The guarded update fails if another
// tenant got there first.
func assign(ctx context.Context, s stores, t *model.Tenant, houseID int64) (*model.House, error) {
	h, err := s.houses.GetByID(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, notFound("house", houseID)
	}
	if !h.IsActive {
		return nil, fmt.Errorf("%w: house '%s' is not active", model.ErrValidation, h.Name)
	}
	ok, err := s.houses.MarkOccupied(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: house '%s' is already occupied", model.ErrConflict, h.Name)
	}
	t.HouseID = &houseID
	return h, nil
}

func reassign(ctx context.Context, s stores, t *model.Tenant, houseID int64) error {
	if t.HouseID != nil && *t.HouseID == houseID {
		return nil
	}
	old := t.HouseID
	if _, err := assign(ctx, s, t, houseID); err != nil {
		return err
	}
	if old != nil {
		return s.houses.MarkVacant(ctx, *old)
	}
	return nil
}

// release vacates t's house and marks t inactive.
func (c *Coordinator) release(ctx context.Context, s stores, t *model.Tenant) error {
	if t.HouseID != nil {
		if err := s.houses.MarkVacant(ctx, *t.HouseID); err != nil {
			return err
		}
	}
	t.HouseID = nil
	t.IsActive = false
	if t.MoveOutDate == nil {
		t.MoveOutDate = c.today()
	}
	return nil
}
