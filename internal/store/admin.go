package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/landlord/internal/model"
)

type AdminStore struct {
	db DBTX
}

func NewAdminStore(db DBTX) *AdminStore {
	return &AdminStore{db: db}
}

const adminCols = `id, username, email, full_name, hashed_password, is_active, created_at`

func scanAdmin(s scanner) (*model.Admin, error) {
	var a model.Admin
	var email, fullName sql.NullString
	err := s.Scan(&a.ID, &a.Username, &email, &fullName, &a.HashedPassword, &a.IsActive, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Email = stringPtr(email)
	a.FullName = stringPtr(fullName)
	return &a, nil
}

func (s *AdminStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

func (s *AdminStore) Create(ctx context.Context, a *model.Admin) (*model.Admin, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO admins (username, email, full_name, hashed_password) VALUES (?, ?, ?, ?)`,
		a.Username, nullString(a.Email), nullString(a.FullName), a.HashedPassword,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: username already taken", model.ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("insert admin: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *AdminStore) GetByID(ctx context.Context, id int64) (*model.Admin, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminCols+` FROM admins WHERE id = ?`, id)
	a, err := scanAdmin(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return a, nil
}

func (s *AdminStore) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+adminCols+` FROM admins WHERE username = ?`, username)
	a, err := scanAdmin(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin by username: %w", err)
	}
	return a, nil
}

func (s *AdminStore) SetActive(ctx context.Context, id int64, active bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE admins SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("set admin active: %w", err)
	}
	return nil
}
