package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/landlord/internal/model"
)

type PaymentStore struct {
	db DBTX
}

func NewPaymentStore(db DBTX) *PaymentStore {
	return &PaymentStore{db: db}
}

const paymentCols = `p.id, p.tenant_id, p.house_id, p.amount_paid, p.payment_date, p.month_paid_for,
	p.payment_method, p.reference_code, p.notes, p.email_sent, p.created_at`

func scanPayment(s scanner, extra ...any) (*model.Payment, error) {
	var p model.Payment
	var ref, notes sql.NullString
	dest := []any{&p.ID, &p.TenantID, &p.HouseID, &p.AmountPaid, &p.PaymentDate, &p.MonthPaidFor,
		&p.PaymentMethod, &ref, &notes, &p.EmailSent, &p.CreatedAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	p.ReferenceCode = stringPtr(ref)
	p.Notes = stringPtr(notes)
	return &p, nil
}

// PaymentFilter narrows List. Zero values match everything.
type PaymentFilter struct {
	Period   model.Period
	TenantID int64
	HouseID  int64
}

func (s *PaymentStore) Create(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (tenant_id, house_id, amount_paid, payment_date, month_paid_for,
		 payment_method, reference_code, notes, email_sent) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.TenantID, p.HouseID, p.AmountPaid, p.PaymentDate, p.MonthPaidFor,
		p.PaymentMethod, nullString(p.ReferenceCode), nullString(p.Notes), p.EmailSent,
	)
	if err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *PaymentStore) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paymentCols+` FROM payments p WHERE p.id = ?`, id)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (s *PaymentStore) queryDetails(ctx context.Context, query string, args ...any) ([]model.PaymentDetail, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var out []model.PaymentDetail
	for rows.Next() {
		var tenantName, houseName sql.NullString
		p, err := scanPayment(rows, &tenantName, &houseName)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, model.PaymentDetail{
			Payment:    *p,
			TenantName: stringPtr(tenantName),
			HouseName:  stringPtr(houseName),
		})
	}
	return out, rows.Err()
}

const paymentDetailSelect = `SELECT ` + paymentCols + `, t.full_name, h.name
	FROM payments p
	LEFT JOIN tenants t ON t.id = p.tenant_id
	LEFT JOIN houses h ON h.id = p.house_id`

// List returns matching payments newest first.
func (s *PaymentStore) List(ctx context.Context, f PaymentFilter) ([]model.PaymentDetail, error) {
	var where []string
	var args []any
	if f.Period != "" {
		where = append(where, "p.month_paid_for = ?")
		args = append(args, f.Period)
	}
	if f.TenantID != 0 {
		where = append(where, "p.tenant_id = ?")
		args = append(args, f.TenantID)
	}
	if f.HouseID != 0 {
		where = append(where, "p.house_id = ?")
		args = append(args, f.HouseID)
	}

	query := paymentDetailSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id DESC"
	return s.queryDetails(ctx, query, args...)
}

// Recent returns the limit most recently created payments.
func (s *PaymentStore) Recent(ctx context.Context, limit int) ([]model.PaymentDetail, error) {
	return s.queryDetails(ctx, paymentDetailSelect+` ORDER BY p.created_at DESC, p.id DESC LIMIT ?`, limit)
}

func (s *PaymentStore) ListByTenant(ctx context.Context, tenantID int64) ([]model.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paymentCols+` FROM payments p WHERE p.tenant_id = ? ORDER BY p.created_at DESC, p.id DESC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query tenant payments: %w", err)
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Update writes the mutable columns only. Tenant, house and period are
// fixed at creation.
func (s *PaymentStore) Update(ctx context.Context, p *model.Payment) (*model.Payment, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE payments SET amount_paid = ?, payment_date = ?, payment_method = ?, reference_code = ?, notes = ?
		 WHERE id = ?`,
		p.AmountPaid, p.PaymentDate, p.PaymentMethod, nullString(p.ReferenceCode), nullString(p.Notes), p.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	return s.GetByID(ctx, p.ID)
}

func (s *PaymentStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return nil
}

func (s *PaymentStore) CountByHouse(ctx context.Context, houseID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE house_id = ?`, houseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count house payments: %w", err)
	}
	return n, nil
}

func (s *PaymentStore) PaidTenantIDs(ctx context.Context, period model.Period) (map[int64]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT tenant_id FROM payments WHERE month_paid_for = ?`, period)
	if err != nil {
		return nil, fmt.Errorf("query paid tenants: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant id: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// TotalForPeriod sums amounts for a period, optionally scoped to one house.
// It is zero, not NULL, when nothing matches.
func (s *PaymentStore) TotalForPeriod(ctx context.Context, period model.Period, houseID *int64) (float64, error) {
	query := `SELECT COALESCE(SUM(amount_paid), 0) FROM payments WHERE month_paid_for = ?`
	args := []any{period}
	if houseID != nil {
		query += ` AND house_id = ?`
		args = append(args, *houseID)
	}
	var total float64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}

// TotalsByHouse sums a period's payments per house.
func (s *PaymentStore) TotalsByHouse(ctx context.Context, period model.Period) (map[int64]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT house_id, SUM(amount_paid) FROM payments WHERE month_paid_for = ? GROUP BY house_id`, period)
	if err != nil {
		return nil, fmt.Errorf("sum payments by house: %w", err)
	}
	defer rows.Close()

	totals := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var sum float64
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, fmt.Errorf("scan house total: %w", err)
		}
		totals[id] = sum
	}
	return totals, rows.Err()
}

// TotalsByPeriod sums payments per period over the inclusive range [from, to].
// Period keys sort lexically, so a string range is a month range.
func (s *PaymentStore) TotalsByPeriod(ctx context.Context, from, to model.Period) (map[model.Period]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT month_paid_for, SUM(amount_paid) FROM payments
		 WHERE month_paid_for BETWEEN ? AND ? GROUP BY month_paid_for`, from, to)
	if err != nil {
		return nil, fmt.Errorf("sum payments by period: %w", err)
	}
	defer rows.Close()

	totals := make(map[model.Period]float64)
	for rows.Next() {
		var p model.Period
		var sum float64
		if err := rows.Scan(&p, &sum); err != nil {
			return nil, fmt.Errorf("scan period total: %w", err)
		}
		totals[p] = sum
	}
	return totals, rows.Err()
}
