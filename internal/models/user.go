package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	PasswordHash  string          `json:"-"`
	Role          string          `json:"role"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	AgencyProfile *AgencyProfile  `json:"agency_profile,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type UserRole string

const (
	RoleClient UserRole = "client"
	RoleAgency UserRole = "agency"
	RoleAdmin  UserRole = "admin"
)

type AgencyProfile struct {
	Address      string     `json:"address,omitempty"`
	CitiesServed []string   `json:"cities_served,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Website      string     `json:"website,omitempty"`
	ContactEmail string     `json:"contact_email,omitempty"`
	Specialty    string     `json:"specialty,omitempty"`
	FoundedAt    *time.Time `json:"founded_at,omitempty"`
	Bio          string     `json:"bio,omitempty"`
	Markets      []string   `json:"markets,omitempty"`
}

// Serves reports whether the agency covers a route touching either city.
// An agency that lists no cities serves every route.
func (p *AgencyProfile) Serves(from, to string) bool {
	if p == nil || len(p.CitiesServed) == 0 {
		return true
	}
	for _, city := range p.CitiesServed {
		if strings.EqualFold(city, from) || strings.EqualFold(city, to) {
			return true
		}
	}
	return false
}

type RegisterRequest struct {
	Name          string         `json:"name" validate:"required,max=100"`
	Email         string         `json:"email" validate:"required,email"`
	Password      string         `json:"password" validate:"required,min=8"`
	Role          string         `json:"role"`
	AgencyProfile *AgencyProfile `json:"agency_profile,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token,omitempty"`
}
