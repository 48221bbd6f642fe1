package user

import "time"

const DefaultCountry = "India"

type Profile struct {
	UserID       string    `json:"userId" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	FullName     string    `json:"fullName" db:"full_name"`
	MobileNumber string    `json:"mobileNumber" db:"mobile_number"`
	Address      string    `json:"address" db:"address"`
	City         string    `json:"city" db:"city"`
	State        string    `json:"state" db:"state"`
	PinCode      string    `json:"pinCode" db:"pin_code"`
	Country      string    `json:"country" db:"country"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type ProfileUp struct {
	FullName     string `json:"fullName" validate:"required,max=120"`
	MobileNumber string `json:"mobileNumber" validate:"required,len=10,number"`
	Address      string `json:"address" validate:"required,max=255"`
	City         string `json:"city" validate:"required,max=80"`
	State        string `json:"state" validate:"required,max=80"`
	PinCode      string `json:"pinCode" validate:"required,len=6,number"`
	Country      string `json:"country" validate:"omitempty,max=80"`
}

// Apply copies up onto p. An empty country falls back to DefaultCountry.
func (p Profile) Apply(up ProfileUp, now time.Time) Profile {
	p.FullName = up.FullName
	p.MobileNumber = up.MobileNumber
	p.Address = up.Address
	p.City = up.City
	p.State = up.State
	p.PinCode = up.PinCode
	p.Country = up.Country
	if p.Country == "" {
		p.Country = DefaultCountry
	}
	p.UpdatedAt = now
	return p
}
