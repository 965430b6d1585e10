package model

import "time"

type Tenant struct {
	ID                    int64      `json:"id"`
	FullName              string     `json:"full_name"`
	IDNumber              *string    `json:"id_number"`
	Phone                 string     `json:"phone"`
	Email                 *string    `json:"email"`
	HouseID               *int64     `json:"house_id"`
	MoveInDate            *Date      `json:"move_in_date"`
	MoveOutDate           *Date      `json:"move_out_date"`
	EmergencyContactName  *string    `json:"emergency_contact_name"`
	EmergencyContactPhone *string    `json:"emergency_contact_phone"`
	Occupation            *string    `json:"occupation"`
	PrivateNotes          *string    `json:"private_notes"`
	DepositPaid           float64    `json:"deposit_paid"`
	IsActive              bool       `json:"is_active"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             *time.Time `json:"updated_at"`
}

// TenantDetail is a tenant with its current house resolved.
type TenantDetail struct {
	Tenant
	House *House `json:"house"`
}
