package model

import (
	"fmt"
	"time"
)

type PaymentMethod string

const (
	PaymentMethodMpesa PaymentMethod = "mpesa"
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodBank  PaymentMethod = "bank"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentMethodMpesa, PaymentMethodCash, PaymentMethodBank:
		return m, nil
	}
	return "", fmt.Errorf("%w: payment_method must be one of mpesa, cash, bank", ErrValidation)
}

type Payment struct {
	ID            int64         `json:"id"`
	TenantID      int64         `json:"tenant_id"`
	HouseID       int64         `json:"house_id"`
	AmountPaid    float64       `json:"amount_paid"`
	PaymentDate   Date          `json:"payment_date"`
	MonthPaidFor  Period        `json:"month_paid_for"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	ReferenceCode *string       `json:"reference_code"`
	Notes         *string       `json:"notes"`
	EmailSent     bool          `json:"email_sent"`
	CreatedAt     time.Time     `json:"created_at"`
}

// PaymentDetail is a payment with tenant and house names resolved by join.
// Either name is nil when the linked row no longer exists.
type PaymentDetail struct {
	Payment
	TenantName *string `json:"tenant_name"`
	HouseName  *string `json:"house_name"`
}

type TenantPayments struct {
	Tenant       string    `json:"tenant"`
	House        *string   `json:"house"`
	TotalPaid    float64   `json:"total_paid"`
	PaymentCount int       `json:"payment_count"`
	Payments     []Payment `json:"payments"`
}
