package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/landlord/internal/model"
)

type HouseStore struct {
	db DBTX
}

func NewHouseStore(db DBTX) *HouseStore {
	return &HouseStore{db: db}
}

const houseCols = `id, name, house_type, rent_amount, floor, description, is_occupied, is_active, created_at, updated_at`

func scanHouse(s scanner) (*model.House, error) {
	var h model.House
	var floor, description sql.NullString
	err := s.Scan(&h.ID, &h.Name, &h.HouseType, &h.RentAmount, &floor, &description,
		&h.IsOccupied, &h.IsActive, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	h.Floor = stringPtr(floor)
	h.Description = stringPtr(description)
	return &h, nil
}

func (s *HouseStore) queryHouses(ctx context.Context, query string, args ...any) ([]model.House, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query houses: %w", err)
	}
	defer rows.Close()

	var houses []model.House
	for rows.Next() {
		h, err := scanHouse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan house: %w", err)
		}
		houses = append(houses, *h)
	}
	return houses, rows.Err()
}

// Create inserts a vacant, active house. A duplicate name is ErrConflict.
func (s *HouseStore) Create(ctx context.Context, h *model.House) (*model.House, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO houses (name, house_type, rent_amount, floor, description) VALUES (?, ?, ?, ?, ?)`,
		h.Name, h.HouseType, h.RentAmount, nullString(h.Floor), nullString(h.Description),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: house '%s' already exists", model.ErrConflict, h.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("insert house: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *HouseStore) GetByID(ctx context.Context, id int64) (*model.House, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+houseCols+` FROM houses WHERE id = ?`, id)
	h, err := scanHouse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get house: %w", err)
	}
	return h, nil
}

func (s *HouseStore) NameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM houses WHERE name = ? AND id != ?`, name, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check house name: %w", err)
	}
	return count > 0, nil
}

func (s *HouseStore) List(ctx context.Context, includeInactive bool) ([]model.House, error) {
	if includeInactive {
		return s.queryHouses(ctx, `SELECT `+houseCols+` FROM houses ORDER BY name`)
	}
	return s.queryHouses(ctx, `SELECT `+houseCols+` FROM houses WHERE is_active = 1 ORDER BY name`)
}

// ListOccupied returns active, occupied houses in insertion order.
func (s *HouseStore) ListOccupied(ctx context.Context) ([]model.House, error) {
	return s.queryHouses(ctx,
		`SELECT `+houseCols+` FROM houses WHERE is_active = 1 AND is_occupied = 1 ORDER BY id`)
}

// ListWithTenants returns active houses joined to their active tenant, if any.
func (s *HouseStore) ListWithTenants(ctx context.Context) ([]model.HouseWithTenant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT h.id, h.name, h.house_type, h.rent_amount, h.floor, h.description,
		       h.is_occupied, h.is_active, h.created_at, h.updated_at,
		       t.full_name, t.id
		FROM houses h
		LEFT JOIN tenants t ON t.house_id = h.id AND t.is_active = 1
		WHERE h.is_active = 1
		ORDER BY h.name`)
	if err != nil {
		return nil, fmt.Errorf("query houses with tenants: %w", err)
	}
	defer rows.Close()

	var out []model.HouseWithTenant
	for rows.Next() {
		var hw model.HouseWithTenant
		var floor, description, tenantName sql.NullString
		var tenantID sql.NullInt64
		if err := rows.Scan(&hw.ID, &hw.Name, &hw.HouseType, &hw.RentAmount, &floor, &description,
			&hw.IsOccupied, &hw.IsActive, &hw.CreatedAt, &hw.UpdatedAt, &tenantName, &tenantID); err != nil {
			return nil, fmt.Errorf("scan house with tenant: %w", err)
		}
		hw.Floor = stringPtr(floor)
		hw.Description = stringPtr(description)
		hw.CurrentTenant = stringPtr(tenantName)
		hw.TenantID = int64Ptr(tenantID)
		out = append(out, hw)
	}
	return out, rows.Err()
}

// Update writes the mutable descriptive columns. Occupancy is owned by
// MarkOccupied/MarkVacant and is not touched here.
func (s *HouseStore) Update(ctx context.Context, h *model.House) (*model.House, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE houses SET name = ?, house_type = ?, rent_amount = ?, floor = ?, description = ?,
		 is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		h.Name, h.HouseType, h.RentAmount, nullString(h.Floor), nullString(h.Description), h.IsActive, h.ID,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: house '%s' already exists", model.ErrConflict, h.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("update house: %w", err)
	}
	return s.GetByID(ctx, h.ID)
}

// MarkOccupied flips a vacant house to occupied. It returns false without
// error when the house was already occupied.
func (s *HouseStore) MarkOccupied(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE houses SET is_occupied = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND is_occupied = 0`, id)
	if err != nil {
		return false, fmt.Errorf("mark house occupied: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *HouseStore) MarkVacant(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE houses SET is_occupied = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark house vacant: %w", err)
	}
	return nil
}

func (s *HouseStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM houses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete house: %w", err)
	}
	return nil
}

// Counts returns the number of active houses and how many of them are occupied.
func (s *HouseStore) Counts(ctx context.Context) (total, occupied int, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_occupied), 0) FROM houses WHERE is_active = 1`,
	).Scan(&total, &occupied)
	if err != nil {
		return 0, 0, fmt.Errorf("count houses: %w", err)
	}
	return total, occupied, nil
}
