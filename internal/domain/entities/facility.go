package entities

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	apperrors "github.com/hemoglovida/dashboard/backend/pkg/errors"
)

// Facility represents the blood collection center (hemocentro) operating the dashboard
type Facility struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	CNPJ      string    `json:"cnpj" db:"cnpj"`
	Address   Address   `json:"address" db:"-"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Address represents a Brazilian postal address
type Address struct {
	Street   string `json:"street" db:"street"`
	District string `json:"district" db:"district"`
	CEP      string `json:"cep" db:"cep"`
	City     string `json:"city" db:"city"`
	State    string `json:"state" db:"state"`
	Country  string `json:"country" db:"country"`
}

// FacilityInput is the profile form payload
type FacilityInput struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   string  `json:"email" validate:"required,email"`
	Phone   string  `json:"phone" validate:"omitempty,max=30"`
	CNPJ    string  `json:"cnpj" validate:"required"`
	Address Address `json:"address"`
}

// Apply validates document numbers and copies the input onto f
func (in FacilityInput) Apply(f *Facility) error {
	cnpj := digitsOnly(in.CNPJ)
	if !ValidCNPJ(cnpj) {
		return apperrors.NewValidationError(fmt.Sprintf("invalid CNPJ %q", in.CNPJ))
	}
	cep := digitsOnly(in.Address.CEP)
	if cep != "" && len(cep) != 8 {
		return apperrors.NewValidationError(fmt.Sprintf("invalid CEP %q", in.Address.CEP))
	}

	f.Name = strings.TrimSpace(in.Name)
	f.Email = strings.ToLower(strings.TrimSpace(in.Email))
	f.Phone = strings.TrimSpace(in.Phone)
	f.CNPJ = cnpj
	f.Address = in.Address
	f.Address.CEP = cep
	f.Address.State = strings.ToUpper(strings.TrimSpace(in.Address.State))
	if f.Address.Country == "" {
		f.Address.Country = "Brasil"
	}
	return nil
}

// FormattedCNPJ renders the CNPJ as 00.000.000/0000-00
func (f *Facility) FormattedCNPJ() string {
	c := f.CNPJ
	if len(c) != 14 {
		return c
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s", c[0:2], c[2:5], c[5:8], c[8:12], c[12:14])
}

// ValidCNPJ checks length and both mod-11 check digits of a digits-only CNPJ
func ValidCNPJ(cnpj string) bool {
	if len(cnpj) != 14 {
		return false
	}
	if strings.Count(cnpj, cnpj[:1]) == 14 {
		return false
	}
	check := func(n int) byte {
		weights := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}[13-n:]
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(cnpj[i]-'0') * weights[i]
		}
		rem := sum % 11
		if rem < 2 {
			return '0'
		}
		return byte('0' + 11 - rem)
	}
	return cnpj[12] == check(12) && cnpj[13] == check(13)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
