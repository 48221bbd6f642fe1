package user

import (
	"testing"
	"time"

	"github.com/irsalhamdi/course-marketplace/validate"
)

func validProfile() ProfileUp {
	return ProfileUp{
		FullName:     "Asha Rao",
		MobileNumber: "9876543210",
		Address:      "12 MG Road",
		City:         "Bengaluru",
		State:        "Karnataka",
		PinCode:      "560001",
	}
}

func TestProfileUpValidation(t *testing.T) {
	if err := validate.Check(validProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := map[string]func(p *ProfileUp){
		"no name":        func(p *ProfileUp) { p.FullName = "" },
		"no address":     func(p *ProfileUp) { p.Address = "" },
		"no city":        func(p *ProfileUp) { p.City = "" },
		"no state":       func(p *ProfileUp) { p.State = "" },
		"short mobile":   func(p *ProfileUp) { p.MobileNumber = "98765" },
		"letters mobile": func(p *ProfileUp) { p.MobileNumber = "98765abcde" },
		"signed mobile":  func(p *ProfileUp) { p.MobileNumber = "+987654321" },
		"long pin":       func(p *ProfileUp) { p.PinCode = "5600011" },
		"letters pin":    func(p *ProfileUp) { p.PinCode = "56000a" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			p := validProfile()
			mutate(&p)
			if err := validate.Check(p); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestApplyDefaultsCountry(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	p := Profile{UserID: "u1", Email: "asha@example.com", Country: "Nepal"}.Apply(validProfile(), now)
	if p.Country != DefaultCountry {
		t.Fatalf("expected %s, got %s", DefaultCountry, p.Country)
	}
	if p.UserID != "u1" || p.Email != "asha@example.com" || !p.UpdatedAt.Equal(now) {
		t.Fatalf("identity must be kept, got %+v", p)
	}

	up := validProfile()
	up.Country = "Sri Lanka"
	if got := (Profile{}).Apply(up, now).Country; got != "Sri Lanka" {
		t.Fatalf("expected Sri Lanka, got %s", got)
	}
}
