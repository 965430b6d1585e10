package occupancy

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/dukerupert/landlord/internal/model"
)

type HouseInput struct {
	Name        string  `json:"name"`
	HouseType   string  `json:"house_type"`
	RentAmount  float64 `json:"rent_amount"`
	Floor       *string `json:"floor"`
	Description *string `json:"description"`
}

type HousePatch struct {
	Name        *string  `json:"name"`
	HouseType   *string  `json:"house_type"`
	RentAmount  *float64 `json:"rent_amount"`
	Floor       *string  `json:"floor"`
	Description *string  `json:"description"`
	IsActive    *bool    `json:"is_active"`
}

type TenantInput struct {
	FullName              string      `json:"full_name"`
	IDNumber              *string     `json:"id_number"`
	Phone                 string      `json:"phone"`
	Email                 *string     `json:"email"`
	HouseID               *int64      `json:"house_id"`
	MoveInDate            *model.Date `json:"move_in_date"`
	EmergencyContactName  *string     `json:"emergency_contact_name"`
	EmergencyContactPhone *string     `json:"emergency_contact_phone"`
	Occupation            *string     `json:"occupation"`
	PrivateNotes          *string     `json:"private_notes"`
	DepositPaid           *float64    `json:"deposit_paid"`
}

// TenantPatch is a partial update. Nil fields are left unchanged. HouseID
// moves the tenant; IsActive=false removes them and frees their house.
type TenantPatch struct {
	FullName              *string     `json:"full_name"`
	IDNumber              *string     `json:"id_number"`
	Phone                 *string     `json:"phone"`
	Email                 *string     `json:"email"`
	HouseID               *int64      `json:"house_id"`
	MoveInDate            *model.Date `json:"move_in_date"`
	MoveOutDate           *model.Date `json:"move_out_date"`
	EmergencyContactName  *string     `json:"emergency_contact_name"`
	EmergencyContactPhone *string     `json:"emergency_contact_phone"`
	Occupation            *string     `json:"occupation"`
	PrivateNotes          *string     `json:"private_notes"`
	DepositPaid           *float64    `json:"deposit_paid"`
	IsActive              *bool       `json:"is_active"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{model.ErrValidation}, args...)...)
}

func requireText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", invalid("%s is required", field)
	}
	return v, nil
}

// optionalText trims v and maps blank to nil.
func optionalText(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func validRent(v float64) error {
	if v <= 0 {
		return invalid("rent_amount must be greater than 0")
	}
	return nil
}

func validDeposit(v float64) error {
	if v < 0 {
		return invalid("deposit_paid must not be negative")
	}
	return nil
}

func validEmail(v *string) (*string, error) {
	v = optionalText(v)
	if v == nil {
		return nil, nil
	}
	addr, err := mail.ParseAddress(*v)
	if err != nil || addr.Address != *v {
		return nil, invalid("email %q is not a valid address", *v)
	}
	return v, nil
}

func (in HouseInput) house() (*model.House, error) {
	name, err := requireText("name", in.Name)
	if err != nil {
		return nil, err
	}
	ht, err := model.ParseHouseType(in.HouseType)
	if err != nil {
		return nil, err
	}
	if err := validRent(in.RentAmount); err != nil {
		return nil, err
	}
	return &model.House{
		Name:        name,
		HouseType:   ht,
		RentAmount:  in.RentAmount,
		Floor:       optionalText(in.Floor),
		Description: optionalText(in.Description),
	}, nil
}

// apply copies the descriptive fields of p onto h. IsActive is handled by
// the coordinator because it interacts with occupancy.
func (p HousePatch) apply(h *model.House) error {
	if p.Name != nil {
		name, err := requireText("name", *p.Name)
		if err != nil {
			return err
		}
		h.Name = name
	}
	if p.HouseType != nil {
		ht, err := model.ParseHouseType(*p.HouseType)
		if err != nil {
			return err
		}
		h.HouseType = ht
	}
	if p.RentAmount != nil {
		if err := validRent(*p.RentAmount); err != nil {
			return err
		}
		h.RentAmount = *p.RentAmount
	}
	if p.Floor != nil {
		h.Floor = optionalText(p.Floor)
	}
	if p.Description != nil {
		h.Description = optionalText(p.Description)
	}
	return nil
}

func (in TenantInput) tenant() (*model.Tenant, error) {
	name, err := requireText("full_name", in.FullName)
	if err != nil {
		return nil, err
	}
	phone, err := requireText("phone", in.Phone)
	if err != nil {
		return nil, err
	}
	email, err := validEmail(in.Email)
	if err != nil {
		return nil, err
	}
	var deposit float64
	if in.DepositPaid != nil {
		deposit = *in.DepositPaid
	}
	if err := validDeposit(deposit); err != nil {
		return nil, err
	}
	return &model.Tenant{
		FullName:              name,
		IDNumber:              optionalText(in.IDNumber),
		Phone:                 phone,
		Email:                 email,
		MoveInDate:            in.MoveInDate,
		EmergencyContactName:  optionalText(in.EmergencyContactName),
		EmergencyContactPhone: optionalText(in.EmergencyContactPhone),
		Occupation:            optionalText(in.Occupation),
		PrivateNotes:          optionalText(in.PrivateNotes),
		DepositPaid:           deposit,
		IsActive:              true,
	}, nil
}

// apply copies every field except HouseID and IsActive onto t.
func (p TenantPatch) apply(t *model.Tenant) error {
	if p.FullName != nil {
		name, err := requireText("full_name", *p.FullName)
		if err != nil {
			return err
		}
		t.FullName = name
	}
	if p.Phone != nil {
		phone, err := requireText("phone", *p.Phone)
		if err != nil {
			return err
		}
		t.Phone = phone
	}
	if p.Email != nil {
		email, err := validEmail(p.Email)
		if err != nil {
			return err
		}
		t.Email = email
	}
	if p.IDNumber != nil {
		t.IDNumber = optionalText(p.IDNumber)
	}
	if p.DepositPaid != nil {
		if err := validDeposit(*p.DepositPaid); err != nil {
			return err
		}
		t.DepositPaid = *p.DepositPaid
	}
	if p.MoveInDate != nil {
		t.MoveInDate = p.MoveInDate
	}
	if p.MoveOutDate != nil {
		t.MoveOutDate = p.MoveOutDate
	}
	if p.EmergencyContactName != nil {
		t.EmergencyContactName = optionalText(p.EmergencyContactName)
	}
	if p.EmergencyContactPhone != nil {
		t.EmergencyContactPhone = optionalText(p.EmergencyContactPhone)
	}
	if p.Occupation != nil {
		t.Occupation = optionalText(p.Occupation)
	}
	if p.PrivateNotes != nil {
		t.PrivateNotes = optionalText(p.PrivateNotes)
	}
	return nil
}
