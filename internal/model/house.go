package model

import (
	"fmt"
	"time"
)

type HouseType string

const (
	HouseTypeBedsitter  HouseType = "bedsitter"
	HouseTypeSingleRoom HouseType = "single_room"
)

func (t HouseType) Valid() bool {
	return t == HouseTypeBedsitter || t == HouseTypeSingleRoom
}

func ParseHouseType(s string) (HouseType, error) {
	t := HouseType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: house_type must be one of bedsitter, single_room", ErrValidation)
	}
	return t, nil
}

type House struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	HouseType   HouseType  `json:"house_type"`
	RentAmount  float64    `json:"rent_amount"`
	Floor       *string    `json:"floor"`
	Description *string    `json:"description"`
	IsOccupied  bool       `json:"is_occupied"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// HouseWithTenant is a house listing row with its current active tenant, if any.
type HouseWithTenant struct {
	House
	CurrentTenant *string `json:"current_tenant"`
	TenantID      *int64  `json:"tenant_id"`
}
