package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/landlord/internal/model"
)

type TenantStore struct {
	db DBTX
}

func NewTenantStore(db DBTX) *TenantStore {
	return &TenantStore{db: db}
}

const tenantCols = `id, full_name, id_number, phone, email, house_id, move_in_date, move_out_date,
	emergency_contact_name, emergency_contact_phone, occupation, private_notes,
	deposit_paid, is_active, created_at, updated_at`

func scanTenant(s scanner) (*model.Tenant, error) {
	var t model.Tenant
	var idNumber, email, ecName, ecPhone, occupation, notes sql.NullString
	var houseID sql.NullInt64
	err := s.Scan(&t.ID, &t.FullName, &idNumber, &t.Phone, &email, &houseID, &t.MoveInDate, &t.MoveOutDate,
		&ecName, &ecPhone, &occupation, &notes, &t.DepositPaid, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.IDNumber = stringPtr(idNumber)
	t.Email = stringPtr(email)
	t.HouseID = int64Ptr(houseID)
	t.EmergencyContactName = stringPtr(ecName)
	t.EmergencyContactPhone = stringPtr(ecPhone)
	t.Occupation = stringPtr(occupation)
	t.PrivateNotes = stringPtr(notes)
	return &t, nil
}

func (s *TenantStore) queryTenants(ctx context.Context, query string, args ...any) ([]model.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}

func (s *TenantStore) Create(ctx context.Context, t *model.Tenant) (*model.Tenant, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (full_name, id_number, phone, email, house_id, move_in_date, move_out_date,
		 emergency_contact_name, emergency_contact_phone, occupation, private_notes, deposit_paid)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.FullName, nullString(t.IDNumber), t.Phone, nullString(t.Email), nullInt64(t.HouseID),
		t.MoveInDate, t.MoveOutDate, nullString(t.EmergencyContactName), nullString(t.EmergencyContactPhone),
		nullString(t.Occupation), nullString(t.PrivateNotes), t.DepositPaid,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: tenant conflicts with an existing tenant", model.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert tenant: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *TenantStore) GetByID(ctx context.Context, id int64) (*model.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tenantCols+` FROM tenants WHERE id = ?`, id)
	t, err := scanTenant(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return t, nil
}

func (s *TenantStore) List(ctx context.Context, activeOnly bool) ([]model.Tenant, error) {
	if activeOnly {
		return s.queryTenants(ctx, `SELECT `+tenantCols+` FROM tenants WHERE is_active = 1 ORDER BY full_name`)
	}
	return s.queryTenants(ctx, `SELECT `+tenantCols+` FROM tenants ORDER BY full_name`)
}

// ListAssigned returns active tenants that currently hold a house.
func (s *TenantStore) ListAssigned(ctx context.Context) ([]model.Tenant, error) {
	return s.queryTenants(ctx,
		`SELECT `+tenantCols+` FROM tenants WHERE is_active = 1 AND house_id IS NOT NULL ORDER BY id`)
}

func (s *TenantStore) IDNumberExists(ctx context.Context, idNumber string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tenants WHERE id_number = ? AND id != ?`, idNumber, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check id number: %w", err)
	}
	return count > 0, nil
}

// Update writes every column of t. Callers that change house_id or
// is_active must go through the occupancy coordinator.
func (s *TenantStore) Update(ctx context.Context, t *model.Tenant) (*model.Tenant, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tenants SET full_name = ?, id_number = ?, phone = ?, email = ?, house_id = ?,
		 move_in_date = ?, move_out_date = ?, emergency_contact_name = ?, emergency_contact_phone = ?,
		 occupation = ?, private_notes = ?, deposit_paid = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		t.FullName, nullString(t.IDNumber), t.Phone, nullString(t.Email), nullInt64(t.HouseID),
		t.MoveInDate, t.MoveOutDate, nullString(t.EmergencyContactName), nullString(t.EmergencyContactPhone),
		nullString(t.Occupation), nullString(t.PrivateNotes), t.DepositPaid, t.IsActive, t.ID,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: tenant conflicts with an existing tenant", model.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("update tenant: %w", err)
	}
	return s.GetByID(ctx, t.ID)
}
